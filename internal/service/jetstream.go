package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"tourguard/api/internal/model"
)

// Stream names
const (
	StreamLocations = "TOUR_LOCATIONS"
	StreamAlerts    = "TOUR_ALERTS"
)

// JetStreamService persists the location and alert feeds so dashboards can
// replay what happened while they were disconnected.
type JetStreamService struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	enabled bool
}

// NewJetStreamService creates the service and provisions both streams.
// A nil return with an error means JetStream is unavailable; callers treat
// the feature as disabled rather than failing startup.
func NewJetStreamService(nc *nats.Conn) (*JetStreamService, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}

	s := &JetStreamService{nc: nc, js: js, enabled: true}
	if err := s.initStreams(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JetStreamService) initStreams() error {
	streams := []nats.StreamConfig{
		{
			Name:      StreamLocations,
			Subjects:  []string{"tour.location.*"},
			Retention: nats.LimitsPolicy,
			MaxMsgs:   -1,
			MaxBytes:  5 * 1024 * 1024 * 1024,
			MaxAge:    7 * 24 * time.Hour,
			Storage:   nats.FileStorage,
			Replicas:  1,
		},
		{
			Name:      StreamAlerts,
			Subjects:  []string{"tour.alert.*"},
			Retention: nats.LimitsPolicy,
			MaxMsgs:   -1,
			MaxBytes:  1 * 1024 * 1024 * 1024,
			MaxAge:    30 * 24 * time.Hour,
			Storage:   nats.FileStorage,
			Replicas:  1,
		},
	}

	for _, cfg := range streams {
		cfg := cfg
		_, err := s.js.AddStream(&cfg)
		if err != nil {
			if err == nats.ErrStreamNameAlreadyInUse {
				if _, err = s.js.UpdateStream(&cfg); err != nil {
					return fmt.Errorf("failed to update stream %s: %w", cfg.Name, err)
				}
			} else {
				return fmt.Errorf("failed to create stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

// IsEnabled reports whether persistence is available
func (s *JetStreamService) IsEnabled() bool {
	return s != nil && s.enabled
}

// PublishLocation persists a location feed message
func (s *JetStreamService) PublishLocation(ctx context.Context, msg *model.LocationMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("tour.location.%d", msg.UserID)
	_, err = s.js.Publish(subject, data, nats.Context(ctx))
	return err
}

// PublishAlert persists an alert feed message
func (s *JetStreamService) PublishAlert(ctx context.Context, msg *model.AlertMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("tour.alert.%s", msg.AlertType)
	_, err = s.js.Publish(subject, data, nats.Context(ctx))
	return err
}

// ReplayLocations returns persisted location messages in [start, end] for
// one user (or all users when userID is zero), up to batchSize. The second
// return reports whether more messages remain past the batch.
func (s *JetStreamService) ReplayLocations(ctx context.Context, userID uint, start, end time.Time, batchSize int) ([]model.LocationMessage, bool, error) {
	subject := "tour.location.*"
	if userID != 0 {
		subject = fmt.Sprintf("tour.location.%d", userID)
	}

	var out []model.LocationMessage
	hasMore, err := s.replay(ctx, subject, start, end, batchSize, func(data []byte) bool {
		var msg model.LocationMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return false
		}
		if msg.Timestamp.After(end) {
			return false
		}
		out = append(out, msg)
		return true
	})
	return out, hasMore, err
}

// ReplayAlerts returns persisted alert messages in [start, end], up to
// batchSize, optionally filtered to one user.
func (s *JetStreamService) ReplayAlerts(ctx context.Context, userID uint, start, end time.Time, batchSize int) ([]model.AlertMessage, bool, error) {
	var out []model.AlertMessage
	hasMore, err := s.replay(ctx, "tour.alert.*", start, end, batchSize, func(data []byte) bool {
		var msg model.AlertMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return false
		}
		if msg.Timestamp.After(end) {
			return false
		}
		if userID != 0 && msg.UserID != userID {
			return true // skip but keep reading
		}
		out = append(out, msg)
		return true
	})
	return out, hasMore, err
}

// replay walks a stream from start time, invoking accept per message until
// accept declines, the batch fills, or the stream runs dry.
func (s *JetStreamService) replay(ctx context.Context, subject string, start, end time.Time, batchSize int, accept func([]byte) bool) (bool, error) {
	sub, err := s.js.SubscribeSync(subject,
		nats.OrderedConsumer(),
		nats.StartTime(start),
	)
	if err != nil {
		return false, err
	}
	defer sub.Unsubscribe()

	count := 0
	for count < batchSize {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		msg, err := sub.NextMsg(1 * time.Second)
		if err != nil {
			if err == nats.ErrTimeout {
				return false, nil // stream exhausted
			}
			return false, err
		}

		if !accept(msg.Data) {
			return false, nil
		}
		count++
	}

	// batch filled; check whether anything is left
	if msg, err := sub.NextMsg(200 * time.Millisecond); err == nil && msg != nil {
		return true, nil
	}
	return false, nil
}

// GetStreamInfo returns stream state for the health endpoint
func (s *JetStreamService) GetStreamInfo(stream string) (*nats.StreamInfo, error) {
	return s.js.StreamInfo(stream)
}

// Close releases JetStream resources
func (s *JetStreamService) Close() {
	// the NATS connection is owned by main; nothing to release here
}
