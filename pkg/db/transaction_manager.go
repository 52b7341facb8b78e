// pkg/db/transaction_manager.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// TxBeginner is satisfied by *sqlx.DB.
type TxBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// WithTx runs fn inside a transaction opened with opts (nil for the driver
// default). An error from fn or a panic rolls back; otherwise the transaction
// is committed and a commit failure is returned wrapped.
func WithTx(ctx context.Context, conn TxBeginner, opts *sql.TxOptions, logger *slog.Logger, fn func(tx *sqlx.Tx) error) error {
	tx, err := conn.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			rollback(tx, logger)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

func rollback(tx *sqlx.Tx, logger *slog.Logger) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("rollback failed", "error", err)
	}
}
