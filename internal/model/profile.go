package model

import (
	"fmt"
	"time"
)

// AppRole is the application role enumeration
type AppRole string

const (
	RoleTourist AppRole = "tourist"
	RoleAdmin   AppRole = "admin"
	RolePolice  AppRole = "police"
)

// ParseRole casts a raw metadata value to AppRole. An unknown value is an
// error, not a fallback: provisioning runs inside the signup transaction and
// a bad role aborts the whole registration.
func ParseRole(s string) (AppRole, error) {
	switch AppRole(s) {
	case RoleTourist, RoleAdmin, RolePolice:
		return AppRole(s), nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

// Elevated reports whether the role grants cross-user read access.
// The zero value (no profile resolved yet) is never elevated.
func (r AppRole) Elevated() bool {
	return r == RoleAdmin || r == RolePolice
}

// Profile is the identity record: exactly one per user, created by the
// provisioning step at signup, never by a client call.
type Profile struct {
	ID                    uint      `json:"id" gorm:"primaryKey"`
	UserID                uint      `json:"user_id" gorm:"uniqueIndex;not null"`
	FullName              string    `json:"full_name" gorm:"size:100;not null"`
	Role                  AppRole   `json:"role" gorm:"type:varchar(20);not null;default:'tourist'"`
	Phone                 *string   `json:"phone" gorm:"size:20"`
	EmergencyContactName  *string   `json:"emergency_contact_name" gorm:"column:emergency_contact_name;size:100"`
	EmergencyContactPhone *string   `json:"emergency_contact_phone" gorm:"column:emergency_contact_phone;size:20"`
	Country               *string   `json:"country" gorm:"size:50"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// GetUserID implements the policy ownership check.
func (p Profile) GetUserID() uint {
	return p.UserID
}

// SignupMetadata is the free-form payload supplied at registration. Any
// missing field is stored as NULL except full_name and role, which default.
type SignupMetadata struct {
	FullName              string `json:"full_name"`
	Role                  string `json:"role"`
	Phone                 string `json:"phone"`
	EmergencyContactName  string `json:"emergency_contact_name"`
	EmergencyContactPhone string `json:"emergency_contact_phone"`
	Country               string `json:"country"`
}

// UpdateProfileRequest is the owner-editable subset of a profile.
// Role is deliberately absent: role changes go through staff tooling.
// Absent fields stay untouched; a field sent as "" clears to NULL
// (full_name keeps its NOT NULL default instead).
type UpdateProfileRequest struct {
	FullName              *string `json:"full_name"`
	Phone                 *string `json:"phone"`
	EmergencyContactName  *string `json:"emergency_contact_name"`
	EmergencyContactPhone *string `json:"emergency_contact_phone"`
	Country               *string `json:"country"`
}
