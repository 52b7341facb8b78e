// internal/idempotency/guard.go
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/metrics"
	"wallet-ledger/internal/util"
)

// Config tunes record lifetimes and duplicate waiting.
type Config struct {
	Retention    time.Duration // how long DONE results are replayable
	InFlightTTL  time.Duration // lease of an IN_FLIGHT marker if the owner dies
	WaitTimeout  time.Duration // how long a duplicate waits for the in-flight first request
	PollInterval time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Retention:    24 * time.Hour,
		InFlightTTL:  30 * time.Second,
		WaitTimeout:  5 * time.Second,
		PollInterval: 100 * time.Millisecond,
	}
}

// Admission is the guard's decision for a request.
type Admission struct {
	// Fresh means the caller owns the key and must Complete or Release it.
	Fresh bool
	// Prior is the recorded terminal result when Fresh is false.
	Prior *domain.TransactionResult
}

// Guard ensures a caller-supplied key is applied at most once per actor.
type Guard struct {
	store   Store
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewGuard creates a Guard.
func NewGuard(store Store, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Guard {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	return &Guard{store: store, cfg: cfg, metrics: m, logger: logger}
}

func scopedKey(actorID int64, key string) string {
	return fmt.Sprintf("idem:%d:%s", actorID, key)
}

// Admit decides whether the request may execute.
func (g *Guard) Admit(ctx context.Context, actorID int64, key, fingerprint string) (Admission, error) {
	scope := scopedKey(actorID, key)
	deadline := time.Now().Add(g.cfg.WaitTimeout)
	marker := Record{Fingerprint: fingerprint, State: StateInFlight, CreatedAt: time.Now().UTC()}

	for {
		existing, created, err := g.store.Reserve(ctx, scope, marker, g.cfg.InFlightTTL)
		if err != nil {
			return Admission{}, err
		}
		if created {
			g.metrics.Admission("fresh")
			return Admission{Fresh: true}, nil
		}
		if existing != nil {
			if existing.Fingerprint != fingerprint {
				g.metrics.Admission("conflict")
				return Admission{}, fmt.Errorf("idempotency key %q: %w", key, util.ErrConflictingIdempotencyKey)
			}
			if existing.State == StateDone && existing.Result != nil {
				g.metrics.Admission("replay")
				return Admission{Prior: existing.Result}, nil
			}
			if !time.Now().Before(deadline) {
				g.metrics.Admission("in_flight")
				return Admission{}, fmt.Errorf("idempotency key %q still in flight: %w", key, util.ErrDuplicateRequest)
			}
		}
		if err := util.Sleep(ctx, g.cfg.PollInterval); err != nil {
			return Admission{}, fmt.Errorf("idempotency key %q: %w", key, util.ErrDuplicateRequest)
		}
	}
}

// Complete records the terminal result so duplicates replay it.
func (g *Guard) Complete(ctx context.Context, actorID int64, key, fingerprint string, result *domain.TransactionResult) error {
	rec := Record{Fingerprint: fingerprint, State: StateDone, Result: result, CreatedAt: time.Now().UTC()}
	if err := g.store.Put(ctx, scopedKey(actorID, key), rec, g.cfg.Retention); err != nil {
		return fmt.Errorf("idempotency: failed to record result for %q: %w", key, err)
	}
	return nil
}

// Release drops an in-flight marker after a transient failure so a retry
// with the same key executes again.
func (g *Guard) Release(ctx context.Context, actorID int64, key string) {
	if err := g.store.Delete(ctx, scopedKey(actorID, key)); err != nil {
		g.logger.Warn("failed to release idempotency key", "actor_id", actorID, "key", key, "error", err)
	}
}

// Fingerprint hashes the fields that define a request. Amounts are
// normalized so "10", "10.0" and "10.00" fingerprint identically.
func Fingerprint(op domain.TransactionType, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(op))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(strings.TrimSpace(p)))
	}
	return hex.EncodeToString(h.Sum(nil))
}
