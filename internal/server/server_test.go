package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tourguard/api/internal/config"
	"tourguard/api/internal/model"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	err = db.AutoMigrate(
		&model.User{},
		&model.Profile{},
		&model.TouristSession{},
		&model.EmergencyAlert{},
		&model.LoginLog{},
		&model.OperationLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	cfg := &config.Config{
		JWTSecret:    "test-secret",
		JWTTTL:       time.Hour,
		RoleCacheTTL: time.Minute,
	}

	srv := NewServer(cfg, db, nil, nil, nil)
	srv.Setup()
	t.Cleanup(srv.Shutdown)
	return srv.GetRouter()
}

func do(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

func register(t *testing.T, router *gin.Engine, email, role string) model.AuthResponse {
	t.Helper()
	w := do(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    email,
		"password": "secret123",
		"metadata": gin.H{"role": role},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d, body %s", email, w.Code, w.Body.String())
	}
	var resp model.AuthResponse
	decode(t, w, &resp)
	return resp
}

func TestPanicFlow(t *testing.T) {
	router := newTestServer(t)

	tourist := register(t, router, "walker@example.com", "")
	admin := register(t, router, "ops@example.com", "admin")

	if tourist.Profile.Role != model.RoleTourist {
		t.Fatalf("role = %q, want tourist default", tourist.Profile.Role)
	}
	if tourist.Profile.Phone != nil {
		t.Fatalf("phone = %v, want NULL", *tourist.Profile.Phone)
	}

	w := do(t, router, http.MethodPost, "/api/v1/sessions/start", tourist.Token,
		gin.H{"lat": 40.7128, "lng": -74.0060})
	if w.Code != http.StatusOK {
		t.Fatalf("start: status %d, body %s", w.Code, w.Body.String())
	}
	var session model.TouristSession
	decode(t, w, &session)
	if !session.IsActive || session.SafetyStatus != model.SafetySafe {
		t.Fatalf("session = active:%v status:%s, want active safe", session.IsActive, session.SafetyStatus)
	}

	w = do(t, router, http.MethodPost, "/api/v1/alerts/panic", tourist.Token,
		gin.H{"message": "help", "lat": 40.7128, "lng": -74.0060})
	if w.Code != http.StatusCreated {
		t.Fatalf("panic: status %d, body %s", w.Code, w.Body.String())
	}
	var alert model.EmergencyAlert
	decode(t, w, &alert)
	if alert.AlertType != model.AlertTypePanic || alert.Status != model.AlertStatusActive {
		t.Fatalf("alert = %s/%s, want panic/active", alert.AlertType, alert.Status)
	}

	// the panic escalated the session
	w = do(t, router, http.MethodGet, "/api/v1/sessions/current", tourist.Token, nil)
	decode(t, w, &session)
	if session.SafetyStatus != model.SafetyEmergency {
		t.Fatalf("safety status = %q, want emergency", session.SafetyStatus)
	}

	resolvePath := fmt.Sprintf("/api/v1/alerts/%d/resolve", alert.ID)

	t.Run("owner cannot resolve", func(t *testing.T) {
		w := do(t, router, http.MethodPost, resolvePath, tourist.Token, nil)
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})

	t.Run("admin resolves", func(t *testing.T) {
		w := do(t, router, http.MethodPost, resolvePath, admin.Token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		var resolved model.EmergencyAlert
		decode(t, w, &resolved)
		if resolved.Status != model.AlertStatusResolved {
			t.Errorf("status = %q, want resolved", resolved.Status)
		}
		if resolved.ResolvedBy == nil || *resolved.ResolvedBy != admin.User.ID {
			t.Errorf("resolved_by = %v, want %d", resolved.ResolvedBy, admin.User.ID)
		}
	})

	t.Run("resolution leaves the session alone", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/v1/sessions/current", tourist.Token, nil)
		var s model.TouristSession
		decode(t, w, &s)
		if s.SafetyStatus != model.SafetyEmergency {
			t.Errorf("safety status = %q, want emergency kept", s.SafetyStatus)
		}
	})

	t.Run("second resolve conflicts", func(t *testing.T) {
		w := do(t, router, http.MethodPost, resolvePath, admin.Token, nil)
		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", w.Code)
		}
	})
}

func TestRouteGuards(t *testing.T) {
	router := newTestServer(t)

	tourist := register(t, router, "alice@example.com", "")
	police := register(t, router, "patrol@example.com", "police")

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/api/v1/sessions/current", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/v1/sessions/current", "not-a-jwt", http.StatusUnauthorized},
		{"tourist lists active sessions", http.MethodGet, "/api/v1/sessions/active", tourist.Token, http.StatusForbidden},
		{"police lists active sessions", http.MethodGet, "/api/v1/sessions/active", police.Token, http.StatusOK},
		{"tourist lists profiles", http.MethodGet, "/api/v1/profiles", tourist.Token, http.StatusForbidden},
		{"police lists profiles", http.MethodGet, "/api/v1/profiles", police.Token, http.StatusOK},
		{"tourist reads alert stats", http.MethodGet, "/api/v1/alerts/stats", tourist.Token, http.StatusForbidden},
		{"police reads alert stats", http.MethodGet, "/api/v1/alerts/stats", police.Token, http.StatusOK},
		{"tourist reads audit log", http.MethodGet, "/api/v1/audit/logins", tourist.Token, http.StatusForbidden},
		{"replay without jetstream", http.MethodGet, "/api/v1/stream/locations", police.Token, http.StatusServiceUnavailable},
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, router, tc.method, tc.path, tc.token, nil)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d, body %s", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestLoginFlow(t *testing.T) {
	router := newTestServer(t)

	register(t, router, "bob@example.com", "")

	t.Run("valid credentials", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/v1/auth/login", "",
			gin.H{"email": "bob@example.com", "password": "secret123"})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		var resp model.AuthResponse
		decode(t, w, &resp)
		if resp.Token == "" {
			t.Error("empty token")
		}

		me := do(t, router, http.MethodGet, "/api/v1/auth/me", resp.Token, nil)
		if me.Code != http.StatusOK {
			t.Errorf("me: status = %d", me.Code)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/v1/auth/login", "",
			gin.H{"email": "bob@example.com", "password": "wrong"})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("duplicate registration", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/v1/auth/register", "",
			gin.H{"email": "bob@example.com", "password": "secret123"})
		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", w.Code)
		}
	})

	t.Run("invalid role metadata aborts signup", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
			"email":    "evil@example.com",
			"password": "secret123",
			"metadata": gin.H{"role": "superadmin"},
		})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}
