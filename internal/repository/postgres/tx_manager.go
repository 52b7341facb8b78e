// internal/repository/postgres/tx_manager.go
package postgres

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"wallet-ledger/internal/repository"
	"wallet-ledger/pkg/db"
)

// TxManager implements repository.TxManager over a *sqlx.DB. Transactions run
// at READ COMMITTED; wallet rows are protected by their version column.
type TxManager struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewTxManager(conn *sqlx.DB, logger *slog.Logger) *TxManager {
	return &TxManager{db: conn, logger: logger}
}

// Executor returns the pooled connection for non-transactional reads.
func (m *TxManager) Executor() repository.DBExecutor {
	return m.db
}

func (m *TxManager) RunInTx(ctx context.Context, fn func(q repository.DBExecutor) error) error {
	var fnErr error
	err := db.WithTx(ctx, m.db, nil, m.logger, func(tx *sqlx.Tx) error {
		fnErr = fn(tx)
		return fnErr
	})
	if err != nil && fnErr == nil {
		// begin or commit failed; a serialization failure surfaces here
		return mapError(err, "transaction")
	}
	return err
}
