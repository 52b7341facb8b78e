// internal/repository/wallet_repo.go
package repository

import (
	"context"

	"wallet-ledger/internal/domain"
)

// WalletRepository defines the interface for wallet data operations.
type WalletRepository interface {
	// CreateWallet adds a new wallet and sets its ID.
	CreateWallet(ctx context.Context, q DBExecutor, wallet *domain.Wallet) error
	// GetWalletByID retrieves a wallet by its ID.
	GetWalletByID(ctx context.Context, q DBExecutor, id int64) (*domain.Wallet, error)
	// GetWalletByUserIDAndCurrency retrieves the user's PRIMARY wallet in currency.
	GetWalletByUserIDAndCurrency(ctx context.Context, q DBExecutor, userID int64, currency string) (*domain.Wallet, error)
	// GetFeeWallet retrieves the system fee wallet for currency.
	GetFeeWallet(ctx context.Context, q DBExecutor, currency string) (*domain.Wallet, error)
	// ApplyMutation writes a new balance if the wallet still has the expected
	// version, bumping it. A stale version yields util.ErrConcurrencyConflict.
	ApplyMutation(ctx context.Context, q DBExecutor, m domain.WalletMutation) error
	// SetWalletActive enables or soft-disables a wallet.
	SetWalletActive(ctx context.Context, q DBExecutor, id int64, active bool) error
}
