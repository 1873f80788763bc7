package model

import (
	"time"
)

// SafetyStatus values observed on a tracking session
type SafetyStatus string

const (
	SafetySafe      SafetyStatus = "safe"
	SafetyWarning   SafetyStatus = "warning"
	SafetyEmergency SafetyStatus = "emergency"
)

// TouristSession is a user's location-monitoring record. The table holds at
// most one row per user: starting tracking upserts on user_id, stopping marks
// the row inactive, it is never deleted.
type TouristSession struct {
	ID                 uint         `json:"id" gorm:"primaryKey"`
	UserID             uint         `json:"user_id" gorm:"uniqueIndex;not null"`
	IsActive           bool         `json:"is_active" gorm:"column:is_active;not null;default:false;index"`
	StartTime          *time.Time   `json:"start_time" gorm:"column:start_time"`
	EndTime            *time.Time   `json:"end_time" gorm:"column:end_time"`
	CurrentLocationLat *float64     `json:"current_location_lat" gorm:"column:current_location_lat;type:decimal(10,8)"`
	CurrentLocationLng *float64     `json:"current_location_lng" gorm:"column:current_location_lng;type:decimal(11,8)"`
	SafetyStatus       SafetyStatus `json:"safety_status" gorm:"column:safety_status;type:varchar(20);default:'safe'"`
	LastPing           *time.Time   `json:"last_ping" gorm:"column:last_ping"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

func (TouristSession) TableName() string {
	return "tourist_sessions"
}

// GetUserID implements the policy ownership check.
func (s TouristSession) GetUserID() uint {
	return s.UserID
}

// StartSessionRequest starts (or restarts) tracking at a position
type StartSessionRequest struct {
	Lat float64 `json:"lat" binding:"required"`
	Lng float64 `json:"lng" binding:"required"`
}

// PingRequest is a periodic location update while tracking is on
type PingRequest struct {
	Lat float64 `json:"lat" binding:"required"`
	Lng float64 `json:"lng" binding:"required"`
}

// UpdateSafetyStatusRequest sets the owner's safety status
type UpdateSafetyStatusRequest struct {
	Status SafetyStatus `json:"status" binding:"required"`
}

// Presence is the realtime mirror of a session's last-known state kept in
// Redis, one key per user (tour:presence:{user_id}).
type Presence struct {
	UserID       uint         `json:"user_id"`
	FullName     string       `json:"full_name,omitempty"`
	Lat          float64      `json:"lat"`
	Lng          float64      `json:"lng"`
	SafetyStatus SafetyStatus `json:"safety_status"`
	Timestamp    int64        `json:"ts"`
}

// LocationMessage is the realtime feed payload published on tour.location.{user_id}
type LocationMessage struct {
	UserID       uint         `json:"user_id"`
	Lat          float64      `json:"lat"`
	Lng          float64      `json:"lng"`
	SafetyStatus SafetyStatus `json:"safety_status"`
	Timestamp    time.Time    `json:"timestamp"`
}
