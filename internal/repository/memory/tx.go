// internal/repository/memory/tx.go
package memory

import (
	"context"
	"database/sql"

	"wallet-ledger/internal/domain"
)

// operation is one buffered write. check validates against committed state
// plus the operations staged before it; apply must not fail.
type operation struct {
	check func(s *Store) error
	apply func(s *Store)
}

// Tx is a unit of work over a Store. Reads see the transaction's own writes.
type Tx struct {
	store *Store
	ops   []operation

	wallets map[int64]*domain.Wallet
	entries map[int64]*domain.Transaction
}

func newTx(s *Store) *Tx {
	return &Tx{
		store:   s,
		wallets: make(map[int64]*domain.Wallet),
		entries: make(map[int64]*domain.Transaction),
	}
}

// stage validates op against committed state early, so callers see
// conflicts at the write like they would in PostgreSQL, and buffers it.
func (tx *Tx) stage(op operation) error {
	tx.store.mu.RLock()
	err := op.check(tx.store)
	tx.store.mu.RUnlock()
	if err != nil {
		return err
	}
	tx.ops = append(tx.ops, op)
	return nil
}

// commit re-validates every staged write under the store lock, then applies
// them all. Either every write lands or none does.
func (tx *Tx) commit() error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	shadow := s.shadow()
	for _, op := range tx.ops {
		if err := op.check(shadow); err != nil {
			return err
		}
		op.apply(shadow)
	}
	for _, op := range tx.ops {
		op.apply(s)
	}
	return nil
}

// shadow copies the table maps so a commit can be validated in sequence
// without touching committed state. Rows are shared: apply functions always
// store a fresh copy instead of mutating a row in place.
func (s *Store) shadow() *Store {
	c := NewStore()
	copyMap(c.users, s.users)
	copyMap(c.wallets, s.wallets)
	copyMap(c.entries, s.entries)
	copyMap(c.rules, s.rules)
	copyMap(c.agents, s.agents)
	copyMap(c.merchants, s.merchants)
	copyMap(c.dispatches, s.dispatches)
	return c
}

func copyMap[V any](dst, src map[int64]V) {
	for k, v := range src {
		dst[k] = v
	}
}

// GetContext is not supported.
func (tx *Tx) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return errNoSQL
}

// SelectContext is not supported.
func (tx *Tx) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return errNoSQL
}

// ExecContext is not supported.
func (tx *Tx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, errNoSQL
}
