package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents an authentication account. All identity attributes
// (name, role, contacts) live on the Profile provisioned at signup.
type User struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Email     string         `json:"email" gorm:"uniqueIndex;size:100"`
	Password  string         `json:"-" gorm:"size:255"` // bcrypt hash
	Status    int            `json:"status" gorm:"default:1"` // 0: inactive, 1: active
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// RegisterRequest carries signup credentials plus the free-form metadata
// the provisioning step turns into a Profile.
type RegisterRequest struct {
	Email    string         `json:"email" binding:"required,email"`
	Password string         `json:"password" binding:"required,min=6"`
	Metadata SignupMetadata `json:"metadata"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents a successful register/login response
type AuthResponse struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	Profile   Profile   `json:"profile"`
	ExpiresAt time.Time `json:"expires_at"`
}
