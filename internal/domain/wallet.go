// internal/domain/wallet.go
package domain

import (
	"time"

	"github.com/shopspring/decimal" // For precise monetary calculations
)

// WalletKind distinguishes customer wallets from agent commission and system fee wallets.
type WalletKind string

const (
	WalletKindPrimary    WalletKind = "PRIMARY"
	WalletKindCommission WalletKind = "COMMISSION"
	WalletKindFee        WalletKind = "FEE"
)

// Wallet represents a balance holder. It is never deleted, only disabled.
type Wallet struct {
	ID        int64           `db:"id" json:"id"`                 // Primary key, BIGSERIAL in DB
	UserID    int64           `db:"user_id" json:"user_id"`       // Foreign key to User
	Kind      WalletKind      `db:"kind" json:"kind"`             // PRIMARY, COMMISSION, FEE
	Currency  string          `db:"currency" json:"currency"`     // ISO code, e.g. "USD"
	Balance   decimal.Decimal `db:"balance" json:"balance"`       // Current balance, NUMERIC(20, 4) in DB
	Version   int64           `db:"version" json:"version"`       // Bumped on every balance mutation
	IsActive  bool            `db:"is_active" json:"is_active"`   // Soft-disable flag
	CreatedAt time.Time       `db:"created_at" json:"created_at"` // Timestamp of creation
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"` // Timestamp of last update
}

// NewWallet creates a new active primary Wallet instance.
func NewWallet(userID int64, currency string) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		UserID:    userID,
		Kind:      WalletKindPrimary,
		Currency:  currency,
		Balance:   decimal.Zero, // Initialize balance to 0
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WalletMutation is a version-checked balance change applied by the ledger.
type WalletMutation struct {
	WalletID        int64
	ExpectedVersion int64
	NewBalance      decimal.Decimal
}
