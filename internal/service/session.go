package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tourguard/api/internal/model"
	"tourguard/api/internal/policy"
)

// NATS subjects for the realtime feed
const (
	SubjectLocationPrefix = "tour.location."
	SubjectAlertPrefix    = "tour.alert."
)

// Redis presence keys mirror each session's last-known state
const (
	presenceKeyFormat = "tour:presence:%d"
	presenceTTL       = 5 * time.Minute
)

// ErrNoActiveSession is returned when an operation needs tracking to be on.
var ErrNoActiveSession = errors.New("no active tracking session")

// SessionService owns the tracking session records
type SessionService struct {
	db        *gorm.DB
	redis     *redis.Client
	nats      *nats.Conn
	jetstream *JetStreamService
}

// NewSessionService creates a new session service
func NewSessionService(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn, jetstream *JetStreamService) *SessionService {
	return &SessionService{
		db:        db,
		redis:     redisClient,
		nats:      natsConn,
		jetstream: jetstream,
	}
}

// Start begins (or restarts) tracking for the caller. The write is an
// upsert keyed on user_id: the table's unique constraint guarantees at most
// one session row per user, so repeating Start overwrites the existing row
// and never creates a second one, concurrent clients included.
func (s *SessionService) Start(ctx context.Context, caller policy.Caller, req *model.StartSessionRequest) (*model.TouristSession, error) {
	now := time.Now()
	session := model.TouristSession{
		UserID:             caller.UserID,
		IsActive:           true,
		StartTime:          &now,
		EndTime:            nil,
		CurrentLocationLat: &req.Lat,
		CurrentLocationLng: &req.Lng,
		SafetyStatus:       model.SafetySafe,
		LastPing:           &now,
	}

	if err := policy.Authorize((policy.Sessions{}).Can(caller, policy.ActionInsert, session)); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_active", "start_time", "end_time",
			"current_location_lat", "current_location_lng",
			"safety_status", "last_ping", "updated_at",
		}),
	}).Create(&session).Error
	if err != nil {
		return nil, err
	}

	stored, err := s.ownSession(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	s.mirrorAndPublish(ctx, stored)
	return stored, nil
}

// Ping records a periodic location update while tracking is on.
func (s *SessionService) Ping(ctx context.Context, caller policy.Caller, req *model.PingRequest) (*model.TouristSession, error) {
	session, err := s.ownSession(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSession
		}
		return nil, err
	}
	if !session.IsActive {
		return nil, ErrNoActiveSession
	}

	if err := policy.Authorize((policy.Sessions{}).Can(caller, policy.ActionUpdate, session)); err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"current_location_lat": req.Lat,
		"current_location_lng": req.Lng,
		"last_ping":            now,
		"updated_at":           now,
	}
	if err := s.db.WithContext(ctx).Model(session).Updates(updates).Error; err != nil {
		return nil, err
	}

	session.CurrentLocationLat = &req.Lat
	session.CurrentLocationLng = &req.Lng
	session.LastPing = &now

	s.mirrorAndPublish(ctx, session)
	return session, nil
}

// SetSafetyStatus lets the owner change their safety status.
func (s *SessionService) SetSafetyStatus(ctx context.Context, caller policy.Caller, status model.SafetyStatus) (*model.TouristSession, error) {
	switch status {
	case model.SafetySafe, model.SafetyWarning, model.SafetyEmergency:
	default:
		return nil, fmt.Errorf("invalid safety status %q", status)
	}

	session, err := s.ownSession(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSession
		}
		return nil, err
	}

	if err := policy.Authorize((policy.Sessions{}).Can(caller, policy.ActionUpdate, session)); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"safety_status": status,
		"updated_at":    time.Now(),
	}
	if err := s.db.WithContext(ctx).Model(session).Updates(updates).Error; err != nil {
		return nil, err
	}

	session.SafetyStatus = status
	s.mirrorAndPublish(ctx, session)
	return session, nil
}

// Stop ends tracking. The row is marked inactive and kept, never deleted.
func (s *SessionService) Stop(ctx context.Context, caller policy.Caller) (*model.TouristSession, error) {
	session, err := s.ownSession(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSession
		}
		return nil, err
	}

	if err := policy.Authorize((policy.Sessions{}).Can(caller, policy.ActionUpdate, session)); err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"is_active":  false,
		"end_time":   now,
		"updated_at": now,
	}
	if err := s.db.WithContext(ctx).Model(session).Updates(updates).Error; err != nil {
		return nil, err
	}

	session.IsActive = false
	session.EndTime = &now

	if s.redis != nil {
		if err := s.redis.Del(ctx, fmt.Sprintf(presenceKeyFormat, caller.UserID)).Err(); err != nil {
			log.Printf("[Session] Failed to drop presence for user %d: %v", caller.UserID, err)
		}
	}

	return session, nil
}

// Current returns the caller's own session row.
func (s *SessionService) Current(ctx context.Context, caller policy.Caller) (*model.TouristSession, error) {
	session, err := s.ownSession(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize((policy.Sessions{}).Can(caller, policy.ActionSelect, *session)); err != nil {
		return nil, err
	}
	return session, nil
}

// ListActive returns every active session visible to the caller. For a
// tourist the policy scope collapses this to their own row; the dashboard
// (elevated) sees all.
func (s *SessionService) ListActive(ctx context.Context, caller policy.Caller) ([]model.TouristSession, error) {
	var sessions []model.TouristSession
	err := s.db.WithContext(ctx).
		Scopes(policy.Scope(caller)).
		Where("is_active = ?", true).
		Order("last_ping DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// SetEmergency flips a session's safety status inside an existing
// transaction; the panic flow uses it so alert insert and status change
// commit or roll back together.
func (s *SessionService) SetEmergency(tx *gorm.DB, userID uint) error {
	return tx.Model(&model.TouristSession{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"safety_status": model.SafetyEmergency,
			"updated_at":    time.Now(),
		}).Error
}

func (s *SessionService) ownSession(ctx context.Context, userID uint) (*model.TouristSession, error) {
	var session model.TouristSession
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// mirrorAndPublish pushes the session's last-known state to the Redis
// presence key and the NATS location feed. Both are best-effort: the
// database row is the source of truth.
func (s *SessionService) mirrorAndPublish(ctx context.Context, session *model.TouristSession) {
	if session.CurrentLocationLat == nil || session.CurrentLocationLng == nil {
		return
	}

	if s.redis != nil {
		presence := model.Presence{
			UserID:       session.UserID,
			Lat:          *session.CurrentLocationLat,
			Lng:          *session.CurrentLocationLng,
			SafetyStatus: session.SafetyStatus,
			Timestamp:    time.Now().Unix(),
		}
		if data, err := json.Marshal(presence); err == nil {
			key := fmt.Sprintf(presenceKeyFormat, session.UserID)
			if err := s.redis.Set(ctx, key, data, presenceTTL).Err(); err != nil {
				log.Printf("[Session] Failed to mirror presence for user %d: %v", session.UserID, err)
			}
		}
	}

	if s.nats != nil {
		msg := model.LocationMessage{
			UserID:       session.UserID,
			Lat:          *session.CurrentLocationLat,
			Lng:          *session.CurrentLocationLng,
			SafetyStatus: session.SafetyStatus,
			Timestamp:    time.Now(),
		}
		if data, err := json.Marshal(msg); err == nil {
			subject := fmt.Sprintf("%s%d", SubjectLocationPrefix, session.UserID)
			if err := s.nats.Publish(subject, data); err != nil {
				log.Printf("[Session] Failed to publish location for user %d: %v", session.UserID, err)
			}
			if s.jetstream != nil && s.jetstream.IsEnabled() {
				if err := s.jetstream.PublishLocation(ctx, &msg); err != nil {
					log.Printf("[Session] Failed to persist location for user %d: %v", session.UserID, err)
				}
			}
		}
	}
}
