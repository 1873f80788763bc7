package service

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"tourguard/api/internal/model"
	"tourguard/api/internal/policy"
)

func newAlertFixture(t *testing.T) (*AlertService, *SessionService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	sessions := NewSessionService(db, nil, nil, nil)
	profiles := NewProfileService(db)
	alerts := NewAlertService(db, sessions, profiles, nil, nil, nil)
	return alerts, sessions, db
}

func TestTriggerPanic(t *testing.T) {
	ctx := context.Background()
	alerts, sessions, db := newAlertFixture(t)

	tourist := seedAccount(t, db, "ping@example.com", model.RoleTourist)

	if _, err := sessions.Start(ctx, tourist, &model.StartSessionRequest{Lat: 48.85, Lng: 2.35}); err != nil {
		t.Fatalf("start session: %v", err)
	}

	alert, err := alerts.TriggerPanic(ctx, tourist, &model.PanicRequest{Message: "lost near the river", Lat: 48.86, Lng: 2.36})
	if err != nil {
		t.Fatalf("trigger panic: %v", err)
	}
	if alert.AlertType != model.AlertTypePanic {
		t.Errorf("alert type = %q, want %q", alert.AlertType, model.AlertTypePanic)
	}
	if alert.Status != model.AlertStatusActive {
		t.Errorf("alert status = %q, want %q", alert.Status, model.AlertStatusActive)
	}
	if alert.Message == nil || *alert.Message != "lost near the river" {
		t.Errorf("alert message not stored: %v", alert.Message)
	}

	t.Run("session escalates in the same transaction", func(t *testing.T) {
		session, err := sessions.Current(ctx, tourist)
		if err != nil {
			t.Fatalf("current session: %v", err)
		}
		if session.SafetyStatus != model.SafetyEmergency {
			t.Errorf("safety status = %q, want %q", session.SafetyStatus, model.SafetyEmergency)
		}
	})

	t.Run("panic without a session still records the alert", func(t *testing.T) {
		loner := seedAccount(t, db, "loner@example.com", model.RoleTourist)

		raised, err := alerts.TriggerPanic(ctx, loner, &model.PanicRequest{Lat: 1, Lng: 2})
		if err != nil {
			t.Fatalf("trigger panic: %v", err)
		}
		if raised.Status != model.AlertStatusActive {
			t.Errorf("alert status = %q, want %q", raised.Status, model.AlertStatusActive)
		}
	})

	t.Run("empty message stays null", func(t *testing.T) {
		quiet, err := alerts.TriggerPanic(ctx, tourist, &model.PanicRequest{Lat: 48.86, Lng: 2.36})
		if err != nil {
			t.Fatalf("trigger panic: %v", err)
		}
		if quiet.Message != nil {
			t.Errorf("message = %q, want nil", *quiet.Message)
		}
	})
}

func TestResolveAlert(t *testing.T) {
	ctx := context.Background()
	alerts, _, db := newAlertFixture(t)

	tourist := seedAccount(t, db, "walker@example.com", model.RoleTourist)
	admin := seedAccount(t, db, "ops@example.com", model.RoleAdmin)
	police := seedAccount(t, db, "officer@example.com", model.RolePolice)

	raised, err := alerts.TriggerPanic(ctx, tourist, &model.PanicRequest{Lat: 10, Lng: 20})
	if err != nil {
		t.Fatalf("trigger panic: %v", err)
	}

	t.Run("tourist cannot resolve", func(t *testing.T) {
		if _, err := alerts.Resolve(ctx, tourist, raised.ID); !errors.Is(err, policy.ErrDenied) {
			t.Errorf("err = %v, want ErrDenied", err)
		}
	})

	t.Run("staff cannot resolve their own alert", func(t *testing.T) {
		own, err := alerts.TriggerPanic(ctx, admin, &model.PanicRequest{Lat: 1, Lng: 1})
		if err != nil {
			t.Fatalf("trigger panic: %v", err)
		}
		if _, err := alerts.Resolve(ctx, admin, own.ID); !errors.Is(err, policy.ErrDenied) {
			t.Errorf("err = %v, want ErrDenied", err)
		}
		if _, err := alerts.Resolve(ctx, police, own.ID); err != nil {
			t.Errorf("other staff resolving: %v", err)
		}
	})

	t.Run("admin resolves and the transition is recorded", func(t *testing.T) {
		resolved, err := alerts.Resolve(ctx, admin, raised.ID)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if resolved.Status != model.AlertStatusResolved {
			t.Errorf("status = %q, want %q", resolved.Status, model.AlertStatusResolved)
		}
		if resolved.ResolvedAt == nil {
			t.Error("resolved_at not set")
		}
		if resolved.ResolvedBy == nil || *resolved.ResolvedBy != admin.UserID {
			t.Errorf("resolved_by = %v, want %d", resolved.ResolvedBy, admin.UserID)
		}

		var entries int64
		db.Model(&model.OperationLog{}).
			Where("user_id = ? AND module = ? AND action = ?", admin.UserID, "alert", "resolve").
			Count(&entries)
		if entries != 1 {
			t.Errorf("operation log entries = %d, want 1", entries)
		}
	})

	t.Run("resolved is terminal", func(t *testing.T) {
		if _, err := alerts.Resolve(ctx, police, raised.ID); !errors.Is(err, ErrAlertResolved) {
			t.Errorf("err = %v, want ErrAlertResolved", err)
		}
	})

	t.Run("unknown alert", func(t *testing.T) {
		if _, err := alerts.Resolve(ctx, admin, 999999); err == nil {
			t.Error("expected not-found error")
		}
	})
}

func TestAlertListScoping(t *testing.T) {
	ctx := context.Background()
	alerts, _, db := newAlertFixture(t)

	alice := seedAccount(t, db, "alice@example.com", model.RoleTourist)
	bob := seedAccount(t, db, "bob@example.com", model.RoleTourist)
	police := seedAccount(t, db, "patrol@example.com", model.RolePolice)

	for i := 0; i < 2; i++ {
		if _, err := alerts.TriggerPanic(ctx, alice, &model.PanicRequest{Lat: 1, Lng: 1}); err != nil {
			t.Fatalf("trigger panic: %v", err)
		}
	}
	raised, err := alerts.TriggerPanic(ctx, bob, &model.PanicRequest{Lat: 2, Lng: 2})
	if err != nil {
		t.Fatalf("trigger panic: %v", err)
	}
	if _, err := alerts.Resolve(ctx, police, raised.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	t.Run("tourist sees own rows only", func(t *testing.T) {
		page, err := alerts.List(ctx, alice, &model.AlertListQuery{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if page.Total != 2 {
			t.Errorf("total = %d, want 2", page.Total)
		}
		for _, a := range page.List {
			if a.UserID != alice.UserID {
				t.Errorf("leaked alert %d belonging to user %d", a.ID, a.UserID)
			}
		}
	})

	t.Run("staff sees everything", func(t *testing.T) {
		page, err := alerts.List(ctx, police, &model.AlertListQuery{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if page.Total != 3 {
			t.Errorf("total = %d, want 3", page.Total)
		}
	})

	t.Run("status filter", func(t *testing.T) {
		page, err := alerts.List(ctx, police, &model.AlertListQuery{Status: model.AlertStatusResolved})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if page.Total != 1 {
			t.Errorf("total = %d, want 1", page.Total)
		}
	})

	t.Run("pagination clamps", func(t *testing.T) {
		page, err := alerts.List(ctx, police, &model.AlertListQuery{Page: -3, PageSize: 1000})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if page.Page != 1 || page.PageSize != 20 {
			t.Errorf("page = %d size = %d, want defaults 1 and 20", page.Page, page.PageSize)
		}
	})

	t.Run("get honors visibility", func(t *testing.T) {
		if _, err := alerts.Get(ctx, alice, raised.ID); !errors.Is(err, policy.ErrDenied) {
			t.Errorf("err = %v, want ErrDenied", err)
		}
		if _, err := alerts.Get(ctx, bob, raised.ID); err != nil {
			t.Errorf("owner read: %v", err)
		}
		if _, err := alerts.Get(ctx, police, raised.ID); err != nil {
			t.Errorf("staff read: %v", err)
		}
	})
}

func TestAlertStats(t *testing.T) {
	ctx := context.Background()
	alerts, _, db := newAlertFixture(t)

	tourist := seedAccount(t, db, "stats-tourist@example.com", model.RoleTourist)
	admin := seedAccount(t, db, "stats-admin@example.com", model.RoleAdmin)
	police := seedAccount(t, db, "stats-police@example.com", model.RolePolice)

	if _, err := alerts.Stats(ctx, tourist); !errors.Is(err, policy.ErrDenied) {
		t.Fatalf("err = %v, want ErrDenied", err)
	}

	raised, err := alerts.TriggerPanic(ctx, tourist, &model.PanicRequest{Lat: 1, Lng: 1})
	if err != nil {
		t.Fatalf("trigger panic: %v", err)
	}
	if _, err := alerts.TriggerPanic(ctx, tourist, &model.PanicRequest{Lat: 1, Lng: 1}); err != nil {
		t.Fatalf("trigger panic: %v", err)
	}
	if _, err := alerts.Resolve(ctx, police, raised.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	stats, err := alerts.Stats(ctx, admin)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("total = %d, want 2", stats.Total)
	}
	if stats.Active != 1 {
		t.Errorf("active = %d, want 1", stats.Active)
	}
	if stats.Resolved != 1 {
		t.Errorf("resolved = %d, want 1", stats.Resolved)
	}
	if stats.ByType[string(model.AlertTypePanic)] != 2 {
		t.Errorf("panic count = %d, want 2", stats.ByType[string(model.AlertTypePanic)])
	}
}
