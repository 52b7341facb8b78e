// internal/util/errors.go
package util

import (
	"errors"
	"fmt"
)

// Common application-specific errors.
var (
	ErrNotFound               = errors.New("resource not found")
	ErrInvalidInput           = errors.New("invalid input provided")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrSameWalletTransfer     = errors.New("cannot transfer to the same wallet")
	ErrWalletNotFound         = errors.New("wallet not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrAgentNotFound          = errors.New("agent not found")
	ErrDuplicateEntry         = errors.New("duplicate entry")
	ErrCurrencyMismatch       = errors.New("wallet currency mismatch")
	ErrWalletDisabled         = errors.New("wallet is disabled")
	ErrForbidden              = errors.New("operation not permitted for actor")
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// Transaction processing taxonomy.
	ErrLimitExceeded              = errors.New("transaction limit exceeded")
	ErrDuplicateRequest           = errors.New("duplicate request")
	ErrConflictingIdempotencyKey  = errors.New("idempotency key reused with a different request")
	ErrInvalidChargeConfiguration = errors.New("invalid charge configuration")
	ErrConcurrencyConflict        = errors.New("concurrent modification conflict")
	ErrChannelDeliveryFailed      = errors.New("channel delivery failed")
)

// IsError reports whether any error in err's chain matches target.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}

// Error kinds are the stable names stored alongside idempotent results and
// returned to API callers.
const (
	KindNone                       = ""
	KindInsufficientFunds          = "INSUFFICIENT_FUNDS"
	KindLimitExceeded              = "LIMIT_EXCEEDED"
	KindDuplicateRequest           = "DUPLICATE_REQUEST"
	KindConflictingIdempotencyKey  = "CONFLICTING_IDEMPOTENCY_KEY"
	KindInvalidChargeConfiguration = "INVALID_CHARGE_CONFIGURATION"
	KindConcurrencyConflict        = "CONCURRENCY_CONFLICT"
	KindInvalidInput               = "INVALID_INPUT"
	KindSameWalletTransfer         = "SAME_WALLET_TRANSFER"
	KindCurrencyMismatch           = "CURRENCY_MISMATCH"
	KindWalletDisabled             = "WALLET_DISABLED"
	KindNotFound                   = "NOT_FOUND"
	KindForbidden                  = "FORBIDDEN"
	KindInvalidStateTransition     = "INVALID_STATE_TRANSITION"
	KindInternal                   = "INTERNAL"
)

var kindTable = []struct {
	kind string
	err  error
}{
	{KindInsufficientFunds, ErrInsufficientFunds},
	{KindLimitExceeded, ErrLimitExceeded},
	{KindDuplicateRequest, ErrDuplicateRequest},
	{KindConflictingIdempotencyKey, ErrConflictingIdempotencyKey},
	{KindInvalidChargeConfiguration, ErrInvalidChargeConfiguration},
	{KindConcurrencyConflict, ErrConcurrencyConflict},
	{KindSameWalletTransfer, ErrSameWalletTransfer},
	{KindCurrencyMismatch, ErrCurrencyMismatch},
	{KindWalletDisabled, ErrWalletDisabled},
	{KindForbidden, ErrForbidden},
	{KindInvalidStateTransition, ErrInvalidStateTransition},
	{KindInvalidInput, ErrInvalidInput},
	{KindNotFound, ErrNotFound},
	{KindNotFound, ErrWalletNotFound},
	{KindNotFound, ErrUserNotFound},
	{KindNotFound, ErrAgentNotFound},
}

// ErrorKind maps err to its stable kind name. Unknown errors are INTERNAL.
func ErrorKind(err error) string {
	if err == nil {
		return KindNone
	}
	for _, k := range kindTable {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// ErrorFromKind rebuilds an error for a recorded kind so a replayed result
// matches errors.Is checks the same way the first response did.
func ErrorFromKind(kind, message string) error {
	if kind == KindNone {
		return nil
	}
	for _, k := range kindTable {
		if k.kind == kind {
			if message == "" || message == k.err.Error() {
				return k.err
			}
			return &replayedError{sentinel: k.err, message: message}
		}
	}
	return fmt.Errorf("%s", message)
}

type replayedError struct {
	sentinel error
	message  string
}

func (e *replayedError) Error() string { return e.message }
func (e *replayedError) Unwrap() error { return e.sentinel }

// IsBusinessRejection reports whether err is a deterministic rule rejection
// whose outcome would be the same on retry, as opposed to a transient or
// infrastructure failure.
func IsBusinessRejection(err error) bool {
	switch ErrorKind(err) {
	case KindInsufficientFunds, KindLimitExceeded, KindInvalidInput, KindSameWalletTransfer,
		KindCurrencyMismatch, KindWalletDisabled, KindNotFound, KindForbidden,
		KindInvalidChargeConfiguration, KindInvalidStateTransition:
		return true
	}
	return false
}
