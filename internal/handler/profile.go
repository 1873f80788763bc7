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

// ProfileHandler serves identity records. Tourists see and edit their own,
// staff can read everyone's.
type ProfileHandler struct {
	profileService *service.ProfileService
}

func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// RegisterRoutes mounts the profile endpoints
func (h *ProfileHandler) RegisterRoutes(r *gin.RouterGroup) {
	profiles := r.Group("/profiles")
	{
		profiles.GET("/me", h.GetOwn)
		profiles.PUT("/me", h.UpdateOwn)
		profiles.GET("", middleware.RequireElevated(), h.List)
		profiles.GET("/:user_id", h.Get)
	}
}

// GetOwn returns the caller's profile
// @Summary Get own profile
// @Tags Profiles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Profile
// @Failure 404 {object} map[string]string
// @Router /profiles/me [get]
func (h *ProfileHandler) GetOwn(c *gin.Context) {
	caller := middleware.CallerFrom(c)

	profile, err := h.profileService.Get(c.Request.Context(), caller, caller.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateOwn updates the caller's profile. The role field is not part of the
// request type: clients cannot change roles through this endpoint.
// @Summary Update own profile
// @Tags Profiles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} model.Profile
// @Failure 400 {object} map[string]string
// @Router /profiles/me [put]
func (h *ProfileHandler) UpdateOwn(c *gin.Context) {
	caller := middleware.CallerFrom(c)

	var req model.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.profileService.Update(c.Request.Context(), caller, &req)
	if err != nil {
		if errors.Is(err, policy.ErrDenied) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// Get returns one profile by user id. Non-staff callers can only fetch
// their own row; anything else is a 403 from the policy layer.
// @Summary Get profile
// @Tags Profiles
// @Produce json
// @Security BearerAuth
// @Param user_id path int true "User ID"
// @Success 200 {object} model.Profile
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /profiles/{user_id} [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	caller := middleware.CallerFrom(c)

	profile, err := h.profileService.Get(c.Request.Context(), caller, uint(userID))
	if err != nil {
		if errors.Is(err, policy.ErrDenied) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// List returns all profiles for staff
// @Summary List profiles
// @Tags Profiles
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Profile
// @Failure 403 {object} map[string]string
// @Router /profiles [get]
func (h *ProfileHandler) List(c *gin.Context) {
	caller := middleware.CallerFrom(c)

	profiles, err := h.profileService.List(c.Request.Context(), caller)
	if err != nil {
		if errors.Is(err, policy.ErrDenied) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, profiles)
}
