// internal/repository/db_executor.go
package repository

import (
	"context"
	"database/sql"
)

// DBExecutor is the handle a repository call runs against: *sqlx.DB or
// *sqlx.Tx for PostgreSQL, the memory Store or its Tx for the in-memory
// driver. Memory repositories use it only to find the active transaction.
type DBExecutor interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}
