// internal/repository/tx_manager.go
package repository

import "context"

// TxManager runs a unit of work atomically. fn receives the executor bound to
// the transaction; a non-nil error from fn, or from commit, rolls back.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(q DBExecutor) error) error
	// Executor returns the non-transactional executor for plain reads.
	Executor() DBExecutor
}
