package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tourguard/api/internal/middleware"
	"tourguard/api/internal/model"
	"tourguard/api/internal/policy"
	"tourguard/api/internal/service"
)

// SessionHandler serves the tracking session lifecycle.
type SessionHandler struct {
	sessionService *service.SessionService
}

func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// RegisterRoutes mounts the session endpoints
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	sessions := r.Group("/sessions")
	{
		sessions.POST("/start", h.Start)
		sessions.POST("/ping", h.Ping)
		sessions.POST("/status", h.SetSafetyStatus)
		sessions.POST("/stop", h.Stop)
		sessions.GET("/current", h.Current)
		sessions.GET("/active", middleware.RequireElevated(), h.ListActive)
	}
}

// Start begins (or restarts) location tracking for the caller
// @Summary Start tracking
// @Description Start a tracking session; restarting reuses the caller's single session row
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.StartSessionRequest true "Initial location"
// @Success 200 {object} model.TouristSession
// @Failure 400 {object} map[string]string
// @Router /sessions/start [post]
func (h *SessionHandler) Start(c *gin.Context) {
	var req model.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.sessionService.Start(c.Request.Context(), middleware.CallerFrom(c), &req)
	if err != nil {
		if errors.Is(err, policy.ErrDenied) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, session)
}

// Ping updates the caller's current location
// @Summary Location ping
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.PingRequest true "Current location"
// @Success 200 {object} model.TouristSession
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /sessions/ping [post]
func (h *SessionHandler) Ping(c *gin.Context) {
	var req model.PingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.sessionService.Ping(c.Request.Context(), middleware.CallerFrom(c), &req)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveSession) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, session)
}

// SetSafetyStatus changes the caller's safety status
// @Summary Set safety status
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.UpdateSafetyStatusRequest true "New status"
// @Success 200 {object} model.TouristSession
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /sessions/status [post]
func (h *SessionHandler) SetSafetyStatus(c *gin.Context) {
	var req model.UpdateSafetyStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.sessionService.SetSafetyStatus(c.Request.Context(), middleware.CallerFrom(c), req.Status)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveSession) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, session)
}

// Stop ends the caller's tracking session
// @Summary Stop tracking
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.TouristSession
// @Failure 404 {object} map[string]string
// @Router /sessions/stop [post]
func (h *SessionHandler) Stop(c *gin.Context) {
	session, err := h.sessionService.Stop(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		if errors.Is(err, service.ErrNoActiveSession) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, session)
}

// Current returns the caller's session row, active or not
// @Summary Current session
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.TouristSession
// @Failure 404 {object} map[string]string
// @Router /sessions/current [get]
func (h *SessionHandler) Current(c *gin.Context) {
	session, err := h.sessionService.Current(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no session"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, session)
}

// ListActive returns all active sessions for the staff dashboard
// @Summary List active sessions
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.TouristSession
// @Failure 403 {object} map[string]string
// @Router /sessions/active [get]
func (h *SessionHandler) ListActive(c *gin.Context) {
	sessions, err := h.sessionService.ListActive(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sessions)
}
