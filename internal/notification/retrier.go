// internal/notification/retrier.go
package notification

import (
	"context"
	"log/slog"
	"time"
)

// Retrier periodically re-attempts FAILED dispatches whose backoff elapsed
// and PENDING ones whose lease expired.
type Retrier struct {
	notifier *Notifier
	interval time.Duration
	logger   *slog.Logger
}

// NewRetrier creates a Retrier polling at the notifier's retry interval.
func NewRetrier(n *Notifier, logger *slog.Logger) *Retrier {
	interval := n.cfg.RetryInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Retrier{notifier: n, interval: interval, logger: logger}
}

// Run polls until ctx is done.
func (r *Retrier) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce drains due rows batch by batch.
func (r *Retrier) RunOnce(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := r.notifier.RetryDue(ctx)
		if err != nil {
			r.logger.Error("notification retry pass failed", "error", err)
			return
		}
		if n < r.notifier.cfg.BatchSize {
			return
		}
	}
}
