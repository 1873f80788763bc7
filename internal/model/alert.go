package model

import (
	"time"
)

// AlertType values observed in production
type AlertType string

const (
	AlertTypePanic AlertType = "panic"
)

// AlertStatus transitions active -> resolved; resolved is terminal
type AlertStatus string

const (
	AlertStatusActive   AlertStatus = "active"
	AlertStatusResolved AlertStatus = "resolved"
)

// EmergencyAlert is an append-only emergency event raised by a tourist.
// The only mutation ever applied is the active -> resolved transition,
// performed by an elevated role.
type EmergencyAlert struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	UserID      uint        `json:"user_id" gorm:"not null;index"`
	AlertType   AlertType   `json:"alert_type" gorm:"column:alert_type;type:varchar(30);not null;default:'panic'"`
	Message     *string     `json:"message,omitempty" gorm:"type:text"`
	LocationLat *float64    `json:"location_lat,omitempty" gorm:"column:location_lat;type:decimal(10,8)"`
	LocationLng *float64    `json:"location_lng,omitempty" gorm:"column:location_lng;type:decimal(11,8)"`
	Status      AlertStatus `json:"status" gorm:"type:varchar(20);not null;default:'active';index"`
	ResolvedAt  *time.Time  `json:"resolved_at,omitempty" gorm:"column:resolved_at"`
	ResolvedBy  *uint       `json:"resolved_by,omitempty" gorm:"column:resolved_by"`
	CreatedAt   time.Time   `json:"created_at" gorm:"not null"`
}

func (EmergencyAlert) TableName() string {
	return "emergency_alerts"
}

// GetUserID implements the policy ownership check.
func (a EmergencyAlert) GetUserID() uint {
	return a.UserID
}

// PanicRequest triggers an emergency alert at the caller's position
type PanicRequest struct {
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// AlertListQuery filters the alert list
type AlertListQuery struct {
	Status    AlertStatus `form:"status"`
	Type      AlertType   `form:"type"`
	StartTime *time.Time  `form:"start_time"`
	EndTime   *time.Time  `form:"end_time"`
	Page      int         `form:"page,default=1"`
	PageSize  int         `form:"page_size,default=20"`
}

// AlertListResponse is a paginated alert list
type AlertListResponse struct {
	List     []EmergencyAlert `json:"list"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// AlertStats summarizes alerts for the staff dashboard
type AlertStats struct {
	Total    int64            `json:"total"`
	Active   int64            `json:"active"`
	Resolved int64            `json:"resolved"`
	Today    int64            `json:"today"`
	ByType   map[string]int64 `json:"by_type,omitempty"`
}

// AlertMessage is the realtime feed payload published on tour.alert.{type}
type AlertMessage struct {
	ID          uint        `json:"id"`
	UserID      uint        `json:"user_id"`
	FullName    string      `json:"full_name,omitempty"`
	AlertType   AlertType   `json:"alert_type"`
	Message     string      `json:"message,omitempty"`
	LocationLat *float64    `json:"location_lat,omitempty"`
	LocationLng *float64    `json:"location_lng,omitempty"`
	Status      AlertStatus `json:"status"`
	Timestamp   time.Time   `json:"timestamp"`
}
