// internal/repository/transaction_repo.go
package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"wallet-ledger/internal/domain"
)

// TransactionRepository defines the interface for ledger entry operations.
type TransactionRepository interface {
	// CreateTransaction adds a new entry and sets its ID. A second COMPLETED
	// entry for the same (actor, key) or COMMISSION parent yields util.ErrDuplicateEntry.
	CreateTransaction(ctx context.Context, q DBExecutor, transaction *domain.Transaction) error
	// CompletePendingTransaction moves a PENDING entry to its new status with the
	// settled amounts. Entries no longer PENDING yield util.ErrInvalidStateTransition.
	CompletePendingTransaction(ctx context.Context, q DBExecutor, transaction *domain.Transaction) error
	// GetTransactionByID retrieves an entry by its ID.
	GetTransactionByID(ctx context.Context, q DBExecutor, id int64) (*domain.Transaction, error)
	// GetCompletedByIdempotencyKey retrieves the COMPLETED entry bound to (actor, key).
	GetCompletedByIdempotencyKey(ctx context.Context, q DBExecutor, actorID int64, key string) (*domain.Transaction, error)
	// GetCommissionByParent retrieves the COMPLETED COMMISSION entry for parentID.
	GetCommissionByParent(ctx context.Context, q DBExecutor, parentID int64) (*domain.Transaction, error)
	// GetTransactionsByWalletID retrieves a page of a wallet's history and the total count.
	GetTransactionsByWalletID(ctx context.Context, q DBExecutor, walletID int64, limit, offset int) ([]domain.Transaction, int64, error)
	// SumOutgoing totals the gross amount of COMPLETED entries debited from
	// wallets owned by userID within [from, to). COMMISSION entries and agent
	// cash-in DEPOSITs are not the owner's own spending and are left out.
	SumOutgoing(ctx context.Context, q DBExecutor, userID int64, from, to time.Time) (decimal.Decimal, error)
	// ListUnroutedAgentEntries returns COMPLETED agent cash-in/cash-out entries
	// settled since `since` that have no COMPLETED COMMISSION child.
	ListUnroutedAgentEntries(ctx context.Context, q DBExecutor, since time.Time, limit int) ([]domain.Transaction, error)
}
