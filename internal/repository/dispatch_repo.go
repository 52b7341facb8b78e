// internal/repository/dispatch_repo.go
package repository

import (
	"context"
	"time"

	"wallet-ledger/internal/domain"
)

// DispatchRepository persists notification delivery state.
type DispatchRepository interface {
	// CreateDispatch inserts a PENDING row. A row for the same
	// (entry, channel, target, event) yields util.ErrDuplicateEntry.
	CreateDispatch(ctx context.Context, q DBExecutor, d *domain.NotificationDispatch) error
	// UpdateDispatch persists d if the stored row is still in status `from`.
	// Otherwise util.ErrConcurrencyConflict.
	UpdateDispatch(ctx context.Context, q DBExecutor, d *domain.NotificationDispatch, from domain.DispatchStatus) error
	// ClaimDueDispatches leases up to limit rows whose next attempt is due:
	// FAILED rows move to PENDING, abandoned PENDING rows are re-leased. The
	// lease pushes next_attempt_at to now+lease so concurrent claimers skip them,
	// and claimed_at records when the lease was taken.
	ClaimDueDispatches(ctx context.Context, q DBExecutor, now time.Time, lease time.Duration, limit int) ([]domain.NotificationDispatch, error)
	// ListDispatchesByEntry returns every dispatch of an entry ordered by ID.
	ListDispatchesByEntry(ctx context.Context, q DBExecutor, entryID int64) ([]domain.NotificationDispatch, error)
}
