package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tourguard/api/internal/middleware"
	"tourguard/api/internal/service"
)

// StreamHandler replays the persisted location and alert feeds so a
// dashboard can backfill after a disconnect. Staff only.
type StreamHandler struct {
	jetstream *service.JetStreamService
}

func NewStreamHandler(jetstream *service.JetStreamService) *StreamHandler {
	return &StreamHandler{jetstream: jetstream}
}

// RegisterRoutes mounts the replay endpoints
func (h *StreamHandler) RegisterRoutes(r *gin.RouterGroup) {
	stream := r.Group("/stream", middleware.RequireElevated())
	{
		stream.GET("/locations", h.ReplayLocations)
		stream.GET("/alerts", h.ReplayAlerts)
	}
}

type replayQuery struct {
	UserID    uint       `form:"user_id"`
	StartTime *time.Time `form:"start_time"`
	EndTime   *time.Time `form:"end_time"`
	BatchSize int        `form:"batch_size,default=500"`
}

func (q *replayQuery) window() (time.Time, time.Time) {
	end := time.Now()
	if q.EndTime != nil {
		end = *q.EndTime
	}
	start := end.Add(-1 * time.Hour)
	if q.StartTime != nil {
		start = *q.StartTime
	}
	return start, end
}

// ReplayLocations replays persisted location messages
// @Summary Replay location feed
// @Tags Stream
// @Produce json
// @Security BearerAuth
// @Param user_id query int false "Filter to one user"
// @Param start_time query string false "Window start (RFC3339)"
// @Param end_time query string false "Window end (RFC3339)"
// @Param batch_size query int false "Max messages" default(500)
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /stream/locations [get]
func (h *StreamHandler) ReplayLocations(c *gin.Context) {
	if !h.jetstream.IsEnabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stream persistence unavailable"})
		return
	}

	var query replayQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if query.BatchSize <= 0 || query.BatchSize > 5000 {
		query.BatchSize = 500
	}

	start, end := query.window()
	messages, hasMore, err := h.jetstream.ReplayLocations(c.Request.Context(), query.UserID, start, end, query.BatchSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"count":    len(messages),
		"has_more": hasMore,
	})
}

// ReplayAlerts replays persisted alert messages
// @Summary Replay alert feed
// @Tags Stream
// @Produce json
// @Security BearerAuth
// @Param user_id query int false "Filter to one user"
// @Param start_time query string false "Window start (RFC3339)"
// @Param end_time query string false "Window end (RFC3339)"
// @Param batch_size query int false "Max messages" default(500)
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /stream/alerts [get]
func (h *StreamHandler) ReplayAlerts(c *gin.Context) {
	if !h.jetstream.IsEnabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stream persistence unavailable"})
		return
	}

	var query replayQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if query.BatchSize <= 0 || query.BatchSize > 5000 {
		query.BatchSize = 500
	}

	start, end := query.window()
	messages, hasMore, err := h.jetstream.ReplayAlerts(c.Request.Context(), query.UserID, start, end, query.BatchSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"count":    len(messages),
		"has_more": hasMore,
	})
}
