package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tourguard/api/internal/middleware"
	"tourguard/api/internal/model"
	"tourguard/api/internal/policy"
	"tourguard/api/internal/service"
)

// AlertHandler serves the panic button and the staff alert workflow.
type AlertHandler struct {
	alertService *service.AlertService
}

func NewAlertHandler(alertService *service.AlertService) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// RegisterRoutes mounts the alert endpoints
func (h *AlertHandler) RegisterRoutes(r *gin.RouterGroup) {
	alerts := r.Group("/alerts")
	{
		alerts.POST("/panic", h.Panic)
		alerts.GET("", h.List)
		alerts.GET("/stats", middleware.RequireElevated(), h.Stats)
		alerts.GET("/:id", h.Get)
		alerts.POST("/:id/resolve", middleware.RequireElevated(), h.Resolve)
	}
}

// Panic raises an emergency alert and flips the caller's session to
// emergency in the same transaction.
// @Summary Panic button
// @Tags Alerts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.PanicRequest true "Alert details"
// @Success 201 {object} model.EmergencyAlert
// @Failure 400 {object} map[string]string
// @Router /alerts/panic [post]
func (h *AlertHandler) Panic(c *gin.Context) {
	var req model.PanicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alert, err := h.alertService.TriggerPanic(c.Request.Context(), middleware.CallerFrom(c), &req)
	if err != nil {
		if errors.Is(err, policy.ErrDenied) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, alert)
}

// List returns alerts visible to the caller. Tourists see their own,
// staff see everything; filters and pagination via query parameters.
// @Summary List alerts
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by alert type"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} model.AlertListResponse
// @Failure 400 {object} map[string]string
// @Router /alerts [get]
func (h *AlertHandler) List(c *gin.Context) {
	var query model.AlertListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.alertService.List(c.Request.Context(), middleware.CallerFrom(c), &query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Get returns one alert
// @Summary Get alert
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Alert ID"
// @Success 200 {object} model.EmergencyAlert
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /alerts/{id} [get]
func (h *AlertHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	alert, err := h.alertService.Get(c.Request.Context(), middleware.CallerFrom(c), uint(id))
	if err != nil {
		if errors.Is(err, policy.ErrDenied) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, alert)
}

// Resolve marks an alert resolved. Staff only, and never on their own
// alerts.
// @Summary Resolve alert
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Alert ID"
// @Success 200 {object} model.EmergencyAlert
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /alerts/{id}/resolve [post]
func (h *AlertHandler) Resolve(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	alert, err := h.alertService.Resolve(c.Request.Context(), middleware.CallerFrom(c), uint(id))
	if err != nil {
		if errors.Is(err, policy.ErrDenied) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		if errors.Is(err, service.ErrAlertResolved) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, alert)
}

// Stats returns aggregate alert numbers for the dashboard
// @Summary Alert statistics
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.AlertStats
// @Failure 403 {object} map[string]string
// @Router /alerts/stats [get]
func (h *AlertHandler) Stats(c *gin.Context) {
	stats, err := h.alertService.Stats(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
