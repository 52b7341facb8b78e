// internal/repository/postgres/errors.go
package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"wallet-ledger/internal/util"
)

// PostgreSQL error codes the ledger reacts to.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// mapError translates driver errors into application sentinels, keeping the
// original as context.
func mapError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return util.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeUniqueViolation:
			return fmt.Errorf("%s: %s: %w", msg, pqErr.Constraint, util.ErrDuplicateEntry)
		case codeCheckViolation:
			return fmt.Errorf("%s: %s: %w", msg, pqErr.Constraint, util.ErrInsufficientFunds)
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%s: %s: %w", msg, pqErr.Message, util.ErrConcurrencyConflict)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
