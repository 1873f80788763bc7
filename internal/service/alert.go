package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"gorm.io/gorm"

	"tourguard/api/internal/model"
	"tourguard/api/internal/policy"
)

// ErrAlertResolved is returned when resolving an already-resolved alert;
// resolved is terminal.
var ErrAlertResolved = errors.New("alert already resolved")

// AlertBroadcaster receives alert messages for connected dashboard clients.
type AlertBroadcaster interface {
	BroadcastAlert(msg *model.AlertMessage) error
}

// AlertService owns the emergency alert log
type AlertService struct {
	db        *gorm.DB
	sessions  *SessionService
	profiles  *ProfileService
	nats      *nats.Conn
	jetstream *JetStreamService
	hub       AlertBroadcaster
}

// NewAlertService creates a new alert service
func NewAlertService(db *gorm.DB, sessions *SessionService, profiles *ProfileService, natsConn *nats.Conn, jetstream *JetStreamService, hub AlertBroadcaster) *AlertService {
	return &AlertService{
		db:        db,
		sessions:  sessions,
		profiles:  profiles,
		nats:      natsConn,
		jetstream: jetstream,
		hub:       hub,
	}
}

// TriggerPanic creates a panic alert for the caller and escalates their
// session to emergency. Both writes run in one transaction so the session
// status can never go stale relative to the alert.
func (s *AlertService) TriggerPanic(ctx context.Context, caller policy.Caller, req *model.PanicRequest) (*model.EmergencyAlert, error) {
	alert := model.EmergencyAlert{
		UserID:      caller.UserID,
		AlertType:   model.AlertTypePanic,
		Message:     nullable(req.Message),
		LocationLat: &req.Lat,
		LocationLng: &req.Lng,
		Status:      model.AlertStatusActive,
	}

	if err := policy.Authorize((policy.Alerts{}).Can(caller, policy.ActionInsert, alert)); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&alert).Error; err != nil {
			return err
		}
		return s.sessions.SetEmergency(tx, caller.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, &alert)
	return &alert, nil
}

// List returns alerts visible to the caller: own rows for tourists, all
// rows for elevated roles, filtered and paginated.
func (s *AlertService) List(ctx context.Context, caller policy.Caller, query *model.AlertListQuery) (*model.AlertListResponse, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 || query.PageSize > 100 {
		query.PageSize = 20
	}

	db := s.db.WithContext(ctx).Model(&model.EmergencyAlert{}).Scopes(policy.Scope(caller))

	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}
	if query.Type != "" {
		db = db.Where("alert_type = ?", query.Type)
	}
	if query.StartTime != nil {
		db = db.Where("created_at >= ?", query.StartTime)
	}
	if query.EndTime != nil {
		db = db.Where("created_at <= ?", query.EndTime)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, err
	}

	var alerts []model.EmergencyAlert
	offset := (query.Page - 1) * query.PageSize
	if err := db.Order("created_at DESC").Offset(offset).Limit(query.PageSize).Find(&alerts).Error; err != nil {
		return nil, err
	}

	return &model.AlertListResponse{
		List:     alerts,
		Total:    total,
		Page:     query.Page,
		PageSize: query.PageSize,
	}, nil
}

// Get returns a single alert if the caller may see it.
func (s *AlertService) Get(ctx context.Context, caller policy.Caller, id uint) (*model.EmergencyAlert, error) {
	var alert model.EmergencyAlert
	if err := s.db.WithContext(ctx).First(&alert, id).Error; err != nil {
		return nil, err
	}
	if err := policy.Authorize((policy.Alerts{}).Can(caller, policy.ActionSelect, alert)); err != nil {
		return nil, err
	}
	return &alert, nil
}

// Resolve performs the active -> resolved transition. Only elevated roles
// pass the policy check, and never on their own alerts. The owning
// session's safety status is left untouched: reverting it is a separate
// manual step for the tourist.
func (s *AlertService) Resolve(ctx context.Context, caller policy.Caller, id uint) (*model.EmergencyAlert, error) {
	var alert model.EmergencyAlert
	if err := s.db.WithContext(ctx).First(&alert, id).Error; err != nil {
		return nil, err
	}

	if err := policy.Authorize((policy.Alerts{}).Can(caller, policy.ActionUpdate, alert)); err != nil {
		return nil, err
	}
	if alert.Status == model.AlertStatusResolved {
		return nil, ErrAlertResolved
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":      model.AlertStatusResolved,
		"resolved_at": now,
		"resolved_by": caller.UserID,
	}
	if err := s.db.WithContext(ctx).Model(&alert).Updates(updates).Error; err != nil {
		return nil, err
	}

	alert.Status = model.AlertStatusResolved
	alert.ResolvedAt = &now
	resolvedBy := caller.UserID
	alert.ResolvedBy = &resolvedBy

	if err := s.recordResolution(ctx, caller.UserID, alert.ID); err != nil {
		log.Printf("[Alert] Failed to write operation log for alert %d: %v", alert.ID, err)
	}

	s.publish(ctx, &alert)
	return &alert, nil
}

// Stats summarizes the alert log for the staff dashboard.
func (s *AlertService) Stats(ctx context.Context, caller policy.Caller) (*model.AlertStats, error) {
	if !caller.Elevated() {
		return nil, policy.ErrDenied
	}

	stats := model.AlertStats{ByType: make(map[string]int64)}
	db := s.db.WithContext(ctx).Model(&model.EmergencyAlert{})

	if err := db.Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	s.db.WithContext(ctx).Model(&model.EmergencyAlert{}).Where("status = ?", model.AlertStatusActive).Count(&stats.Active)
	s.db.WithContext(ctx).Model(&model.EmergencyAlert{}).Where("status = ?", model.AlertStatusResolved).Count(&stats.Resolved)

	startOfDay := time.Now().Truncate(24 * time.Hour)
	s.db.WithContext(ctx).Model(&model.EmergencyAlert{}).Where("created_at >= ?", startOfDay).Count(&stats.Today)

	var typeStats []struct {
		AlertType string
		Count     int64
	}
	s.db.WithContext(ctx).Model(&model.EmergencyAlert{}).
		Select("alert_type, COUNT(*) as count").
		Group("alert_type").
		Scan(&typeStats)
	for _, ts := range typeStats {
		stats.ByType[ts.AlertType] = ts.Count
	}

	return &stats, nil
}

func (s *AlertService) recordResolution(ctx context.Context, userID, alertID uint) error {
	entry := model.OperationLog{
		UserID:     userID,
		Module:     "alert",
		Action:     "resolve",
		ResourceID: fmt.Sprintf("%d", alertID),
	}
	return s.db.WithContext(ctx).Create(&entry).Error
}

// publish fans the alert out to NATS, JetStream, and connected dashboards.
// All three are best-effort after the transaction has committed.
func (s *AlertService) publish(ctx context.Context, alert *model.EmergencyAlert) {
	msg := model.AlertMessage{
		ID:          alert.ID,
		UserID:      alert.UserID,
		AlertType:   alert.AlertType,
		LocationLat: alert.LocationLat,
		LocationLng: alert.LocationLng,
		Status:      alert.Status,
		Timestamp:   time.Now(),
	}
	if alert.Message != nil {
		msg.Message = *alert.Message
	}
	if s.profiles != nil {
		if profile, err := s.profiles.GetByUserID(ctx, alert.UserID); err == nil {
			msg.FullName = profile.FullName
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	if s.nats != nil {
		subject := fmt.Sprintf("%s%s", SubjectAlertPrefix, alert.AlertType)
		if err := s.nats.Publish(subject, data); err != nil {
			log.Printf("[Alert] Failed to publish alert %d: %v", alert.ID, err)
		}
	}

	if s.jetstream != nil && s.jetstream.IsEnabled() {
		if err := s.jetstream.PublishAlert(ctx, &msg); err != nil {
			log.Printf("[Alert] Failed to persist alert %d: %v", alert.ID, err)
		}
	}

	if s.hub != nil {
		if err := s.hub.BroadcastAlert(&msg); err != nil {
			log.Printf("[Alert] Failed to broadcast alert %d: %v", alert.ID, err)
		}
	}
}
