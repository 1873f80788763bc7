package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// captureLimiter records every key it is asked about.
type captureLimiter struct {
	keys    []string
	allowed bool
}

func (l *captureLimiter) Allow(_ context.Context, key string, config *RateLimitConfig) (*RateLimitResult, error) {
	l.keys = append(l.keys, key)
	return &RateLimitResult{Allowed: l.allowed, Remaining: 1, Limit: config.Limit}, nil
}

// newLimitedRouter mirrors the server wiring: the IP group runs on every
// request, the user group runs on the authed chain after the caller is set.
func newLimitedRouter(limiter RateLimiter, userID interface{}) *gin.Engine {
	gin.SetMode(gin.TestMode)

	ipGroup := NewRateLimitGroup(limiter, &RateLimitConfig{Limit: 100, Window: 60, Type: RateLimitByIP})
	ipGroup.AddSpecificConfig("/api/v1/auth/login", &RateLimitConfig{Limit: 5, Window: 60, Algorithm: FixedWindow, Type: RateLimitByIP})

	userGroup := NewRateLimitGroup(limiter, nil)
	userGroup.AddSpecificConfig("/api/v1/alerts/panic", &RateLimitConfig{Limit: 10, Window: 60, Type: RateLimitByUser})

	router := gin.New()
	router.Use(ipGroup.Middleware())
	router.POST("/api/v1/auth/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	authed := router.Group("/api/v1")
	authed.Use(func(c *gin.Context) {
		if userID != nil {
			c.Set(ContextUserID, userID)
		}
		c.Next()
	})
	authed.Use(userGroup.Middleware())
	authed.POST("/alerts/panic", func(c *gin.Context) { c.Status(http.StatusCreated) })
	authed.GET("/sessions/current", func(c *gin.Context) { c.Status(http.StatusOK) })

	return router
}

func hit(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimitKeying(t *testing.T) {
	t.Run("panic rule keys on the resolved caller", func(t *testing.T) {
		limiter := &captureLimiter{allowed: true}
		router := newLimitedRouter(limiter, uint(42))

		if w := hit(router, http.MethodPost, "/api/v1/alerts/panic"); w.Code != http.StatusCreated {
			t.Fatalf("status = %d", w.Code)
		}
		// first check is the global IP default, second is the panic rule
		if len(limiter.keys) != 2 {
			t.Fatalf("keys = %v, want 2 checks", limiter.keys)
		}
		if limiter.keys[1] != "user:42" {
			t.Errorf("panic rule keyed by %q, want %q", limiter.keys[1], "user:42")
		}
	})

	t.Run("anonymous caller falls back to IP", func(t *testing.T) {
		limiter := &captureLimiter{allowed: true}
		router := newLimitedRouter(limiter, nil)

		hit(router, http.MethodPost, "/api/v1/alerts/panic")
		if len(limiter.keys) != 2 || !strings.HasPrefix(limiter.keys[1], "ip:") {
			t.Errorf("keys = %v, want an ip-keyed panic check", limiter.keys)
		}
	})

	t.Run("login rule keys on IP", func(t *testing.T) {
		limiter := &captureLimiter{allowed: true}
		router := newLimitedRouter(limiter, nil)

		hit(router, http.MethodPost, "/api/v1/auth/login")
		if len(limiter.keys) != 1 || !strings.HasPrefix(limiter.keys[0], "ip:") {
			t.Errorf("keys = %v, want one ip-keyed login check", limiter.keys)
		}
	})

	t.Run("user group skips routes without a rule", func(t *testing.T) {
		limiter := &captureLimiter{allowed: true}
		router := newLimitedRouter(limiter, uint(42))

		hit(router, http.MethodGet, "/api/v1/sessions/current")
		// only the global IP default fires
		if len(limiter.keys) != 1 {
			t.Errorf("keys = %v, want 1 check", limiter.keys)
		}
	})
}

func TestRateLimitDenial(t *testing.T) {
	limiter := &captureLimiter{allowed: false}
	router := newLimitedRouter(limiter, uint(42))

	w := hit(router, http.MethodPost, "/api/v1/alerts/panic")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("X-RateLimit-Limit") == "" {
		t.Error("limit header missing")
	}
}
