// internal/repository/postgres/wallet_pg.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
)

const walletColumns = `id, user_id, kind, currency, balance, version, is_active, created_at, updated_at`

// WalletRepository implements repository.WalletRepository for PostgreSQL.
// Methods receive their DBExecutor so they work on a pool or a transaction.
type WalletRepository struct{}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository() *WalletRepository {
	return &WalletRepository{}
}

var _ repository.WalletRepository = (*WalletRepository)(nil)

// CreateWallet inserts a new wallet into the database using the provided DBExecutor.
func (r *WalletRepository) CreateWallet(ctx context.Context, q repository.DBExecutor, wallet *domain.Wallet) error {
	query := `INSERT INTO wallets (user_id, kind, currency, balance, version, is_active, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := q.GetContext(ctx, &wallet.ID, query, wallet.UserID, wallet.Kind, wallet.Currency, wallet.Balance,
		wallet.Version, wallet.IsActive, wallet.CreatedAt, wallet.UpdatedAt)
	if err != nil {
		return mapError(err, "failed to create wallet")
	}
	return nil
}

// GetWalletByID retrieves a wallet by its ID using the provided DBExecutor.
func (r *WalletRepository) GetWalletByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	if err := q.GetContext(ctx, &wallet, query, id); err != nil {
		return nil, mapError(err, "failed to get wallet by ID %d", id)
	}
	return &wallet, nil
}

// GetWalletByUserIDAndCurrency retrieves the user's primary wallet in currency.
func (r *WalletRepository) GetWalletByUserIDAndCurrency(ctx context.Context, q repository.DBExecutor, userID int64, currency string) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 AND currency = $2 AND kind = $3`
	if err := q.GetContext(ctx, &wallet, query, userID, currency, domain.WalletKindPrimary); err != nil {
		return nil, mapError(err, "failed to get wallet by user ID %d and currency %s", userID, currency)
	}
	return &wallet, nil
}

// GetFeeWallet retrieves the system fee wallet for currency.
func (r *WalletRepository) GetFeeWallet(ctx context.Context, q repository.DBExecutor, currency string) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE kind = $1 AND currency = $2`
	if err := q.GetContext(ctx, &wallet, query, domain.WalletKindFee, currency); err != nil {
		return nil, mapError(err, "failed to get fee wallet for %s", currency)
	}
	return &wallet, nil
}

// ApplyMutation sets the balance only if the version still matches.
func (r *WalletRepository) ApplyMutation(ctx context.Context, q repository.DBExecutor, m domain.WalletMutation) error {
	query := `UPDATE wallets SET balance = $1, version = version + 1, updated_at = $2
              WHERE id = $3 AND version = $4`
	result, err := q.ExecContext(ctx, query, m.NewBalance, time.Now().UTC(), m.WalletID, m.ExpectedVersion)
	if err != nil {
		return mapError(err, "failed to update wallet balance for ID %d", m.WalletID)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating wallet balance for ID %d: %w", m.WalletID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("wallet %d changed since version %d: %w", m.WalletID, m.ExpectedVersion, util.ErrConcurrencyConflict)
	}
	return nil
}

// SetWalletActive toggles the soft-disable flag.
func (r *WalletRepository) SetWalletActive(ctx context.Context, q repository.DBExecutor, id int64, active bool) error {
	result, err := q.ExecContext(ctx, `UPDATE wallets SET is_active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now().UTC(), id)
	if err != nil {
		return mapError(err, "failed to set wallet %d active=%t", id, active)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return util.ErrNotFound
	}
	return nil
}
