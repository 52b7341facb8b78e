// internal/idempotency/store.go
package idempotency

import (
	"context"
	"time"

	"wallet-ledger/internal/domain"
)

// State of an idempotency record.
type State string

const (
	StateInFlight State = "IN_FLIGHT"
	StateDone     State = "DONE"
)

// Record binds a key to the request that first used it and, once done, its result.
type Record struct {
	Fingerprint string                    `json:"fingerprint"`
	State       State                     `json:"state"`
	Result      *domain.TransactionResult `json:"result,omitempty"`
	CreatedAt   time.Time                 `json:"created_at"`
}

// Store persists records with expiry.
type Store interface {
	// Reserve creates rec under key only if the key is absent. When the key
	// exists the stored record is returned with created=false. A nil record
	// with created=false means the key expired mid-call; callers retry.
	Reserve(ctx context.Context, key string, rec Record, ttl time.Duration) (existing *Record, created bool, err error)
	// Get returns the stored record, or nil if absent.
	Get(ctx context.Context, key string) (*Record, error)
	// Put overwrites the record under key.
	Put(ctx context.Context, key string, rec Record, ttl time.Duration) error
	// Delete removes key.
	Delete(ctx context.Context, key string) error
}
