// internal/repository/memory/store.go
package memory

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
)

var errNoSQL = errors.New("memory store does not execute SQL")

// Store is an in-process implementation of every repository with the same
// optimistic-version and uniqueness semantics as the PostgreSQL schema.
type Store struct {
	mu sync.RWMutex

	users      map[int64]*domain.User
	wallets    map[int64]*domain.Wallet
	entries    map[int64]*domain.Transaction
	rules      map[int64]*domain.ChargeRule
	agents     map[int64]*domain.AgentProfile
	merchants  map[int64]*domain.MerchantProfile
	dispatches map[int64]*domain.NotificationDispatch

	seq map[string]int64
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		users:      make(map[int64]*domain.User),
		wallets:    make(map[int64]*domain.Wallet),
		entries:    make(map[int64]*domain.Transaction),
		rules:      make(map[int64]*domain.ChargeRule),
		agents:     make(map[int64]*domain.AgentProfile),
		merchants:  make(map[int64]*domain.MerchantProfile),
		dispatches: make(map[int64]*domain.NotificationDispatch),
		seq:        make(map[string]int64),
	}
}

var (
	_ repository.TxManager             = (*Store)(nil)
	_ repository.WalletRepository      = (*Store)(nil)
	_ repository.TransactionRepository = (*Store)(nil)
	_ repository.UserRepository        = (*Store)(nil)
	_ repository.ChargeRuleRepository  = (*Store)(nil)
	_ repository.AgentRepository       = (*Store)(nil)
	_ repository.MerchantRepository    = (*Store)(nil)
	_ repository.DispatchRepository    = (*Store)(nil)
)

// nextID allocates from a per-table sequence. Like BIGSERIAL, IDs consumed by
// a rolled back transaction are not reused.
func (s *Store) nextID(table string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[table]++
	return s.seq[table]
}

// Executor returns the store itself as the non-transactional executor.
func (s *Store) Executor() repository.DBExecutor {
	return s
}

// RunInTx buffers fn's writes and applies them atomically on success.
func (s *Store) RunInTx(ctx context.Context, fn func(q repository.DBExecutor) error) error {
	tx := newTx(s)
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return tx.commit()
}

// write applies op immediately, or buffers it when q is a transaction.
func (s *Store) write(q repository.DBExecutor, op operation) error {
	if tx, ok := q.(*Tx); ok {
		return tx.stage(op)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := op.check(s); err != nil {
		return err
	}
	op.apply(s)
	return nil
}

// GetContext is not supported; repositories never issue SQL against the store.
func (s *Store) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return errNoSQL
}

// SelectContext is not supported.
func (s *Store) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return errNoSQL
}

// ExecContext is not supported.
func (s *Store) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, errNoSQL
}
