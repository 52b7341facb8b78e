// internal/repository/memory/dispatch.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
)

// CreateDispatch adds a dispatch, unique per (entry, channel, target, event).
func (s *Store) CreateDispatch(ctx context.Context, q repository.DBExecutor, d *domain.NotificationDispatch) error {
	d.ID = s.nextID("notification_dispatches")
	row := *d
	return s.write(q, operation{
		check: func(st *Store) error {
			for _, x := range st.dispatches {
				if x.EntryID == row.EntryID && x.Channel == row.Channel && x.Target == row.Target && x.Event == row.Event {
					return fmt.Errorf("failed to create dispatch for entry %d/%s/%s: %w", row.EntryID, row.Channel, row.Event, util.ErrDuplicateEntry)
				}
			}
			return nil
		},
		apply: func(st *Store) {
			cp := row
			st.dispatches[row.ID] = &cp
		},
	})
}

// UpdateDispatch persists delivery state guarded by the expected prior status.
func (s *Store) UpdateDispatch(ctx context.Context, q repository.DBExecutor, d *domain.NotificationDispatch, from domain.DispatchStatus) error {
	row := *d
	return s.write(q, operation{
		check: func(st *Store) error {
			cur, ok := st.dispatches[row.ID]
			if !ok {
				return util.ErrNotFound
			}
			if cur.Status != from {
				return fmt.Errorf("dispatch %d no longer %s: %w", row.ID, from, util.ErrConcurrencyConflict)
			}
			return nil
		},
		apply: func(st *Store) {
			cp := row
			st.dispatches[row.ID] = &cp
		},
	})
}

// ClaimDueDispatches leases due rows. Claims always apply immediately, even
// when q is a transaction, matching the autocommit claim in PostgreSQL.
func (s *Store) ClaimDueDispatches(ctx context.Context, q repository.DBExecutor, now time.Time, lease time.Duration, limit int) ([]domain.NotificationDispatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := []*domain.NotificationDispatch{}
	for _, d := range s.dispatches {
		if d.Status != domain.DispatchStatusPending && d.Status != domain.DispatchStatusFailed {
			continue
		}
		if d.NextAttemptAt == nil || d.NextAttemptAt.After(now) {
			continue
		}
		due = append(due, d)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextAttemptAt.Before(*due[j].NextAttemptAt) })
	if len(due) > limit {
		due = due[:limit]
	}

	leaseUntil := now.Add(lease)
	claimed := make([]domain.NotificationDispatch, 0, len(due))
	for _, d := range due {
		cp := *d
		if err := cp.Claim(now, leaseUntil); err != nil {
			return nil, err
		}
		s.dispatches[cp.ID] = &cp
		claimed = append(claimed, cp)
	}
	return claimed, nil
}

// ListDispatchesByEntry returns the dispatches of an entry ordered by ID.
func (s *Store) ListDispatchesByEntry(ctx context.Context, q repository.DBExecutor, entryID int64) ([]domain.NotificationDispatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.NotificationDispatch{}
	for _, d := range s.dispatches {
		if d.EntryID == entryID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
