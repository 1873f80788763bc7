package server

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"tourguard/api/internal/config"
	"tourguard/api/internal/handler"
	"tourguard/api/internal/middleware"
	"tourguard/api/internal/policy"
	"tourguard/api/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Server represents the HTTP server
type Server struct {
	router    *gin.Engine
	config    *config.Config
	db        *gorm.DB
	redis     *redis.Client
	nats      *nats.Conn
	jetstream *service.JetStreamService
	wsHub     *handler.WSHub
	wsHandler *handler.WSHandler
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn, jetstream *service.JetStreamService) *Server {
	return &Server{
		config:    cfg,
		db:        db,
		redis:     redisClient,
		nats:      natsConn,
		jetstream: jetstream,
	}
}

// Setup initializes routes and handlers
func (s *Server) Setup() {
	// WebSocket hub first, the alert service pushes into it
	s.wsHub = handler.NewWSHub(s.nats)
	s.wsHandler = handler.NewWSHandler(s.wsHub)

	resolver := policy.NewRoleResolver(s.db, s.config.RoleCacheTTL)

	// Services
	profileService := service.NewProfileService(s.db)
	authService := service.NewAuthService(s.db, profileService, s.config.JWTSecret, s.config.JWTTTL)
	sessionService := service.NewSessionService(s.db, s.redis, s.nats, s.jetstream)
	alertService := service.NewAlertService(s.db, sessionService, profileService, s.nats, s.jetstream, s.wsHub)
	reportService := service.NewReportService(s.db, profileService)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, profileService)
	profileHandler := handler.NewProfileHandler(profileService)
	sessionHandler := handler.NewSessionHandler(sessionService)
	alertHandler := handler.NewAlertHandler(alertService)
	reportHandler := handler.NewReportHandler(reportService)
	streamHandler := handler.NewStreamHandler(s.jetstream)
	auditHandler := handler.NewAuditHandler(s.db)

	go s.wsHub.Run()
	log.Println("[Server] WebSocket hub started")

	s.router = gin.Default()

	// CORS middleware
	s.router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Per-user rules must run after AuthMiddleware has resolved the
	// caller, so they mount on the authed group further down.
	var userRateLimit gin.HandlerFunc
	if s.config.RateLimit.Enabled && s.redis != nil {
		var ipRateLimit gin.HandlerFunc
		ipRateLimit, userRateLimit = s.rateLimitMiddlewares()
		s.router.Use(ipRateLimit)
	}

	// Swagger UI
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	s.router.GET("/health", s.healthHandler)

	api := s.router.Group("/api/v1")

	// Public routes
	authHandler.RegisterPublicRoutes(api)

	// Protected routes
	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(s.config.JWTSecret, resolver))
	if userRateLimit != nil {
		authed.Use(userRateLimit)
	}
	{
		authHandler.RegisterRoutes(authed)
		profileHandler.RegisterRoutes(authed)
		sessionHandler.RegisterRoutes(authed)
		alertHandler.RegisterRoutes(authed)
		reportHandler.RegisterRoutes(authed)
		streamHandler.RegisterRoutes(authed)
		auditHandler.RegisterRoutes(authed)
	}

	// Dashboard feed, staff only
	ws := s.router.Group("/ws")
	ws.Use(middleware.AuthMiddleware(s.config.JWTSecret, resolver), middleware.RequireElevated())
	{
		ws.GET("/dashboard", s.wsHandler.HandleDashboard)
		ws.GET("/stats", s.wsHandler.GetStats)
	}
}

// rateLimitMiddlewares splits the configured rules into two chains: the
// IP-keyed rules plus the default run on every request; the user-keyed
// rules run only once AuthMiddleware has set the caller, otherwise they
// would silently fall back to IP keying.
func (s *Server) rateLimitMiddlewares() (ipChain, userChain gin.HandlerFunc) {
	limiter := middleware.NewRedisRateLimiter(s.redis)

	ipGroup := middleware.NewRateLimitGroup(limiter, s.config.RateLimit.DefaultRule.ToMiddlewareConfig())
	userGroup := middleware.NewRateLimitGroup(limiter, nil)

	for i := range s.config.RateLimit.SpecificRules {
		rule := &s.config.RateLimit.SpecificRules[i]
		if rule.Type == middleware.RateLimitByUser {
			userGroup.AddSpecificConfig(rule.Path, rule.ToMiddlewareConfig())
		} else {
			ipGroup.AddSpecificConfig(rule.Path, rule.ToMiddlewareConfig())
		}
	}
	return ipGroup.Middleware(), userGroup.Middleware()
}

func (s *Server) healthHandler(c *gin.Context) {
	health := gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	}

	if s.jetstream != nil && s.jetstream.IsEnabled() {
		health["jetstream"] = "enabled"
		if locInfo, err := s.jetstream.GetStreamInfo(service.StreamLocations); err == nil {
			health["jetstream_locations"] = gin.H{
				"messages": locInfo.State.Msgs,
				"bytes":    locInfo.State.Bytes,
			}
		}
		if alertInfo, err := s.jetstream.GetStreamInfo(service.StreamAlerts); err == nil {
			health["jetstream_alerts"] = gin.H{
				"messages": alertInfo.State.Msgs,
				"bytes":    alertInfo.State.Bytes,
			}
		}
	} else {
		health["jetstream"] = "disabled"
	}

	c.JSON(200, health)
}

// Run starts the HTTP server
func (s *Server) Run(addr string) error {
	log.Printf("[Server] HTTP server listening on %s", addr)
	return s.router.Run(addr)
}

// GetRouter returns the gin router for testing
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() {
	if s.wsHub != nil {
		s.wsHub.Stop()
		log.Println("[Server] WebSocket hub stopped")
	}
	if s.jetstream != nil {
		s.jetstream.Close()
		log.Println("[Server] JetStream service stopped")
	}
}
