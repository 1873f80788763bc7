package service

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tourguard/api/internal/model"
	"tourguard/api/internal/policy"
)

// newTestDB opens a fresh in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
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
	return db
}

// seedAccount creates a user with a provisioned profile and returns the
// matching caller.
func seedAccount(t *testing.T, db *gorm.DB, email string, role model.AppRole) policy.Caller {
	t.Helper()
	user := model.User{Email: email, Password: "x", Status: 1}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	profile := model.Profile{UserID: user.ID, FullName: email, Role: role}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}
	return policy.Caller{UserID: user.ID, Role: role}
}
