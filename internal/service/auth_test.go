package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tourguard/api/internal/model"
)

func TestRegisterProvisionsProfile(t *testing.T) {
	db := newTestDB(t)
	auth := NewAuthService(db, NewProfileService(db), "test-secret", time.Hour)
	ctx := context.Background()

	t.Run("defaults apply when metadata is empty", func(t *testing.T) {
		user, profile, err := auth.Register(ctx, &model.RegisterRequest{
			Email:    "alice@example.com",
			Password: "secret123",
		})
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if profile.UserID != user.ID {
			t.Errorf("profile user %d, want %d", profile.UserID, user.ID)
		}
		if profile.FullName != "User" {
			t.Errorf("full name %q, want default \"User\"", profile.FullName)
		}
		if profile.Role != model.RoleTourist {
			t.Errorf("role %q, want tourist", profile.Role)
		}
		if profile.Phone != nil {
			t.Errorf("phone %v, want NULL", *profile.Phone)
		}
	})

	t.Run("metadata is stored", func(t *testing.T) {
		_, profile, err := auth.Register(ctx, &model.RegisterRequest{
			Email:    "bob@example.com",
			Password: "secret123",
			Metadata: model.SignupMetadata{
				FullName: "Bob Carter",
				Role:     "police",
				Phone:    "+33123456789",
				Country:  "France",
			},
		})
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if profile.FullName != "Bob Carter" || profile.Role != model.RolePolice {
			t.Errorf("got %q/%q", profile.FullName, profile.Role)
		}
		if profile.Phone == nil || *profile.Phone != "+33123456789" {
			t.Errorf("phone not stored")
		}
	})

	t.Run("invalid role aborts the whole signup", func(t *testing.T) {
		_, _, err := auth.Register(ctx, &model.RegisterRequest{
			Email:    "eve@example.com",
			Password: "secret123",
			Metadata: model.SignupMetadata{Role: "superadmin"},
		})
		if err == nil {
			t.Fatal("Register succeeded with invalid role")
		}

		// the user row must have been rolled back with the profile
		var users int64
		db.Model(&model.User{}).Where("email = ?", "eve@example.com").Count(&users)
		if users != 0 {
			t.Errorf("found %d orphaned user rows, want 0", users)
		}
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		_, _, err := auth.Register(ctx, &model.RegisterRequest{
			Email:    "alice@example.com",
			Password: "another1",
		})
		if !errors.Is(err, ErrEmailTaken) {
			t.Errorf("got %v, want ErrEmailTaken", err)
		}
	})
}

func TestAuthenticate(t *testing.T) {
	db := newTestDB(t)
	auth := NewAuthService(db, NewProfileService(db), "test-secret", time.Hour)
	ctx := context.Background()

	if _, _, err := auth.Register(ctx, &model.RegisterRequest{
		Email:    "carol@example.com",
		Password: "correct-horse",
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	t.Run("valid credentials", func(t *testing.T) {
		user, err := auth.Authenticate(ctx, "carol@example.com", "correct-horse")
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if user.Email != "carol@example.com" {
			t.Errorf("got %q", user.Email)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, err := auth.Authenticate(ctx, "carol@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("got %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		if _, err := auth.Authenticate(ctx, "nobody@example.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("got %v, want ErrInvalidCredentials", err)
		}
	})
}

func TestGenerateToken(t *testing.T) {
	db := newTestDB(t)
	auth := NewAuthService(db, NewProfileService(db), "test-secret", time.Hour)

	user := &model.User{Email: "dave@example.com"}
	user.ID = 42

	signed, expiresAt, err := auth.GenerateToken(user, model.RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Error("token already expired")
	}

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("token does not verify: %v", err)
	}

	claims := token.Claims.(jwt.MapClaims)
	if uint(claims["user_id"].(float64)) != 42 {
		t.Errorf("user_id claim = %v", claims["user_id"])
	}
	if claims["role"] != "admin" {
		t.Errorf("role claim = %v", claims["role"])
	}
	if claims["email"] != "dave@example.com" {
		t.Errorf("email claim = %v", claims["email"])
	}
}
