// internal/repository/postgres/dispatch_pg.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
)

const dispatchColumns = `id, entry_id, recipient_id, channel, target, event, payload, status, attempts,
	last_error, next_attempt_at, last_attempt_at, claimed_at, sent_at, created_at`

// DispatchRepository implements repository.DispatchRepository for PostgreSQL.
type DispatchRepository struct{}

// NewDispatchRepository creates a new DispatchRepository.
func NewDispatchRepository() *DispatchRepository {
	return &DispatchRepository{}
}

var _ repository.DispatchRepository = (*DispatchRepository)(nil)

// CreateDispatch inserts a dispatch row.
func (r *DispatchRepository) CreateDispatch(ctx context.Context, q repository.DBExecutor, d *domain.NotificationDispatch) error {
	query := `INSERT INTO notification_dispatches (entry_id, recipient_id, channel, target, event, payload, status, attempts, next_attempt_at, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	err := q.GetContext(ctx, &d.ID, query, d.EntryID, d.RecipientID, d.Channel, d.Target, d.Event, d.Payload,
		d.Status, d.Attempts, d.NextAttemptAt, d.CreatedAt)
	if err != nil {
		return mapError(err, "failed to create dispatch for entry %d/%s/%s", d.EntryID, d.Channel, d.Event)
	}
	return nil
}

// UpdateDispatch persists delivery state guarded by the expected prior status.
func (r *DispatchRepository) UpdateDispatch(ctx context.Context, q repository.DBExecutor, d *domain.NotificationDispatch, from domain.DispatchStatus) error {
	query := `UPDATE notification_dispatches
              SET status = $1, attempts = $2, last_error = $3, next_attempt_at = $4, last_attempt_at = $5,
                  claimed_at = $6, sent_at = $7
              WHERE id = $8 AND status = $9`
	result, err := q.ExecContext(ctx, query, d.Status, d.Attempts, d.LastError, d.NextAttemptAt,
		d.LastAttemptAt, d.ClaimedAt, d.SentAt, d.ID, from)
	if err != nil {
		return mapError(err, "failed to update dispatch %d", d.ID)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected updating dispatch %d: %w", d.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("dispatch %d no longer %s: %w", d.ID, from, util.ErrConcurrencyConflict)
	}
	return nil
}

// ClaimDueDispatches leases due rows with SKIP LOCKED so replicas never share work.
func (r *DispatchRepository) ClaimDueDispatches(ctx context.Context, q repository.DBExecutor, now time.Time, lease time.Duration, limit int) ([]domain.NotificationDispatch, error) {
	claimed := []domain.NotificationDispatch{}
	query := `
		UPDATE notification_dispatches
		SET status = $1, next_attempt_at = $2, claimed_at = $4
		WHERE id IN (
		    SELECT id FROM notification_dispatches
		    WHERE status IN ($1, $3) AND next_attempt_at <= $4
		    ORDER BY next_attempt_at
		    LIMIT $5
		    FOR UPDATE SKIP LOCKED)
		RETURNING ` + dispatchColumns
	err := q.SelectContext(ctx, &claimed, query, domain.DispatchStatusPending, now.Add(lease).UTC(),
		domain.DispatchStatusFailed, now.UTC(), limit)
	if err != nil {
		return nil, mapError(err, "failed to claim due dispatches")
	}
	return claimed, nil
}

// ListDispatchesByEntry returns the dispatches of an entry.
func (r *DispatchRepository) ListDispatchesByEntry(ctx context.Context, q repository.DBExecutor, entryID int64) ([]domain.NotificationDispatch, error) {
	out := []domain.NotificationDispatch{}
	if err := q.SelectContext(ctx, &out, `SELECT `+dispatchColumns+` FROM notification_dispatches WHERE entry_id = $1 ORDER BY id`, entryID); err != nil {
		return nil, mapError(err, "failed to list dispatches for entry %d", entryID)
	}
	return out, nil
}
