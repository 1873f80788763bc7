package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"tourguard/api/internal/middleware"
	"tourguard/api/internal/model"
	"tourguard/api/internal/service"
)

// ReportHandler serves exports and dashboard summaries. All routes are
// staff-only.
type ReportHandler struct {
	reportService *service.ReportService
}

func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// RegisterRoutes mounts the report endpoints
func (h *ReportHandler) RegisterRoutes(r *gin.RouterGroup) {
	reports := r.Group("/reports", middleware.RequireElevated())
	{
		reports.GET("/alerts/export", h.ExportAlerts)
		reports.GET("/overview", h.Overview)
	}
}

// ExportAlerts streams the filtered alert list as an xlsx download
// @Summary Export alerts
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by alert type"
// @Success 200 {file} binary
// @Failure 403 {object} map[string]string
// @Router /reports/alerts/export [get]
func (h *ReportHandler) ExportAlerts(c *gin.Context) {
	var query model.AlertListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	buf, filename, err := h.reportService.ExportAlerts(c.Request.Context(), middleware.CallerFrom(c), &query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// Overview returns the headline dashboard numbers
// @Summary Dashboard overview
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Router /reports/overview [get]
func (h *ReportHandler) Overview(c *gin.Context) {
	overview, err := h.reportService.DashboardOverview(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, overview)
}
