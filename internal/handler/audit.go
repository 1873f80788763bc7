package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tourguard/api/internal/middleware"
	"tourguard/api/internal/model"
)

// AuditHandler serves the audit log listings.
type AuditHandler struct {
	db *gorm.DB
}

func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{db: db}
}

// RegisterRoutes mounts the audit endpoints
func (h *AuditHandler) RegisterRoutes(r *gin.RouterGroup) {
	audit := r.Group("/audit", middleware.RequireElevated())
	{
		audit.GET("/logins", h.ListLoginLogs)
		audit.GET("/operations", h.ListOperationLogs)
	}
}

// ListLoginLogs returns the login audit trail
// @Summary List login logs
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param email query string false "Filter by email"
// @Param action query string false "Filter by action"
// @Param page query int false "Page number" default(1)
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Router /audit/logins [get]
func (h *AuditHandler) ListLoginLogs(c *gin.Context) {
	query := h.db.Model(&model.LoginLog{})

	if email := c.Query("email"); email != "" {
		query = query.Where("email = ?", email)
	}
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if startTime := c.Query("start_time"); startTime != "" {
		query = query.Where("created_at >= ?", startTime)
	}
	if endTime := c.Query("end_time"); endTime != "" {
		query = query.Where("created_at <= ?", endTime)
	}

	page, pageSize := pagination(c)

	var total int64
	query.Count(&total)

	var logs []model.LoginLog
	query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&logs)

	c.JSON(http.StatusOK, gin.H{
		"list":      logs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ListOperationLogs returns the operation audit trail
// @Summary List operation logs
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param module query string false "Filter by module"
// @Param page query int false "Page number" default(1)
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Router /audit/operations [get]
func (h *AuditHandler) ListOperationLogs(c *gin.Context) {
	query := h.db.Model(&model.OperationLog{})

	if module := c.Query("module"); module != "" {
		query = query.Where("module = ?", module)
	}
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}

	page, pageSize := pagination(c)

	var total int64
	query.Count(&total)

	var logs []model.OperationLog
	query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&logs)

	c.JSON(http.StatusOK, gin.H{
		"list":      logs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
