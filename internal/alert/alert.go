// internal/alert/alert.go
package alert

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Kinds of operational alert.
const (
	KindNotificationDead    = "notification_dead"
	KindCommissionEscalated = "commission_escalated"
)

// Alert is an operational event that needs a human.
type Alert struct {
	Kind       string    `json:"kind"`
	EntryID    int64     `json:"entry_id"`
	DispatchID int64     `json:"dispatch_id,omitempty"`
	Channel    string    `json:"channel,omitempty"`
	Attempts   int       `json:"attempts"`
	Reason     string    `json:"reason"`
	RaisedAt   time.Time `json:"raised_at"`
}

// Sink receives alerts. Implementations must not fail the caller.
type Sink interface {
	Raise(ctx context.Context, a Alert)
}

// LogSink writes alerts as error logs.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Raise logs a.
func (s *LogSink) Raise(ctx context.Context, a Alert) {
	s.logger.Error("operational alert",
		"kind", a.Kind, "entry_id", a.EntryID, "dispatch_id", a.DispatchID,
		"channel", a.Channel, "attempts", a.Attempts, "reason", a.Reason)
}

// RedisSink logs the alert and pushes it onto a per-kind Redis list
// ("alerts:notification:dead", "alerts:commission:escalated") for operators.
type RedisSink struct {
	client *redis.Client
	log    *LogSink
	logger *slog.Logger
}

// NewRedisSink creates a RedisSink.
func NewRedisSink(client *redis.Client, logger *slog.Logger) *RedisSink {
	return &RedisSink{client: client, log: NewLogSink(logger), logger: logger}
}

// ListName returns the Redis list an alert kind is pushed to.
func ListName(kind string) string {
	switch kind {
	case KindNotificationDead:
		return "alerts:notification:dead"
	case KindCommissionEscalated:
		return "alerts:commission:escalated"
	default:
		return "alerts:" + kind
	}
}

// Raise logs a and appends it to its list.
func (s *RedisSink) Raise(ctx context.Context, a Alert) {
	if a.RaisedAt.IsZero() {
		a.RaisedAt = time.Now().UTC()
	}
	s.log.Raise(ctx, a)

	data, err := json.Marshal(a)
	if err != nil {
		s.logger.Error("failed to marshal alert", "error", err)
		return
	}
	if err := s.client.LPush(ctx, ListName(a.Kind), data).Err(); err != nil {
		s.logger.Error("failed to store alert", "list", ListName(a.Kind), "error", err)
	}
}
