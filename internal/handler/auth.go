package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"tourguard/api/internal/middleware"
	"tourguard/api/internal/model"
	"tourguard/api/internal/service"
)

// AuthHandler serves registration, login and the current-identity endpoint.
type AuthHandler struct {
	authService    *service.AuthService
	profileService *service.ProfileService
}

func NewAuthHandler(authService *service.AuthService, profileService *service.ProfileService) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		profileService: profileService,
	}
}

// RegisterPublicRoutes mounts the unauthenticated endpoints
func (h *AuthHandler) RegisterPublicRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}
}

// RegisterRoutes mounts the authenticated endpoints
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.GET("/me", h.Me)
	}
}

// Register creates a new account
// @Summary Register
// @Description Create an account; the profile is provisioned in the same transaction
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "Registration data"
// @Success 201 {object} model.AuthResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, profile, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		// an invalid role in the metadata aborts the whole signup
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, expiresAt, err := h.authService.GenerateToken(user, profile.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	h.audit(c, user.ID, user.Email, "register", true, "")

	c.JSON(http.StatusCreated, model.AuthResponse{
		Token:     token,
		User:      *user,
		Profile:   *profile,
		ExpiresAt: expiresAt,
	})
}

// Login authenticates and issues a token
// @Summary Login
// @Description Authenticate with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Credentials"
// @Success 200 {object} model.AuthResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.audit(c, 0, req.Email, "login", false, err.Error())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	profile, err := h.profileService.GetByUserID(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	token, expiresAt, err := h.authService.GenerateToken(user, profile.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	h.audit(c, user.ID, user.Email, "login", true, "")

	c.JSON(http.StatusOK, model.AuthResponse{
		Token:     token,
		User:      *user,
		Profile:   *profile,
		ExpiresAt: expiresAt,
	})
}

// Me returns the authenticated identity
// @Summary Current identity
// @Description Get the caller's user and profile
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	caller := middleware.CallerFrom(c)

	profile, err := h.profileService.Get(c.Request.Context(), caller, caller.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": caller.UserID,
		"role":    caller.Role,
		"profile": profile,
	})
}

func (h *AuthHandler) audit(c *gin.Context, userID uint, email, action string, success bool, errMsg string) {
	err := h.authService.RecordLogin(c.Request.Context(), userID, email, action,
		c.ClientIP(), c.Request.UserAgent(), success, errMsg)
	if err != nil {
		log.Printf("[Auth] failed to record %s audit entry: %v", action, err)
	}
}
