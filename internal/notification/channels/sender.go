// internal/notification/channels/sender.go
package channels

import (
	"context"
	"log/slog"
)

// Sender delivers one payload to one target. A nil error means the provider
// accepted it; any error is a rejection and the reason is recorded.
type Sender interface {
	Send(ctx context.Context, target, payload string) error
}

// LogSender accepts everything and logs it. It stands in for channels whose
// provider is not configured.
type LogSender struct {
	channel string
	logger  *slog.Logger
}

// NewLogSender creates a LogSender for the named channel.
func NewLogSender(channel string, logger *slog.Logger) *LogSender {
	return &LogSender{channel: channel, logger: logger}
}

// Send logs the payload.
func (s *LogSender) Send(ctx context.Context, target, payload string) error {
	s.logger.Info("notification delivered to log", "channel", s.channel, "target", target, "payload", payload)
	return nil
}
