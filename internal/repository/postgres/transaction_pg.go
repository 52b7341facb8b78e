// internal/repository/postgres/transaction_pg.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
)

const transactionColumns = `id, reference, from_wallet_id, to_wallet_id, actor_id, agent_id, parent_entry_id,
	amount, charge_amount, charge_bearer, net_debit, net_credit, currency, type, status,
	idempotency_key, fingerprint, description, failure_reason, transaction_time, created_at`

// TransactionRepository implements repository.TransactionRepository for PostgreSQL.
type TransactionRepository struct{}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{}
}

var _ repository.TransactionRepository = (*TransactionRepository)(nil)

// CreateTransaction inserts a new ledger entry using the provided DBExecutor.
func (r *TransactionRepository) CreateTransaction(ctx context.Context, q repository.DBExecutor, t *domain.Transaction) error {
	query := `INSERT INTO transactions (reference, from_wallet_id, to_wallet_id, actor_id, agent_id, parent_entry_id,
                  amount, charge_amount, charge_bearer, net_debit, net_credit, currency, type, status,
                  idempotency_key, fingerprint, description, failure_reason, transaction_time, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
              RETURNING id`

	err := q.GetContext(ctx, &t.ID, query,
		t.Reference, t.FromWalletID, t.ToWalletID, t.ActorID, t.AgentID, t.ParentEntryID,
		t.Amount, t.ChargeAmount, t.ChargeBearer, t.NetDebit, t.NetCredit, t.Currency, t.Type, t.Status,
		t.IdempotencyKey, t.Fingerprint, t.Description, t.FailureReason, t.TransactionTime, t.CreatedAt,
	)
	if err != nil {
		return mapError(err, "failed to create transaction")
	}
	return nil
}

// CompletePendingTransaction settles a PENDING entry.
func (r *TransactionRepository) CompletePendingTransaction(ctx context.Context, q repository.DBExecutor, t *domain.Transaction) error {
	query := `UPDATE transactions
              SET status = $1, charge_amount = $2, charge_bearer = $3, net_debit = $4, net_credit = $5,
                  failure_reason = $6, transaction_time = $7, idempotency_key = COALESCE($8, idempotency_key),
                  fingerprint = CASE WHEN $9 = '' THEN fingerprint ELSE $9 END
              WHERE id = $10 AND status = $11`
	result, err := q.ExecContext(ctx, query, t.Status, t.ChargeAmount, t.ChargeBearer, t.NetDebit, t.NetCredit,
		t.FailureReason, t.TransactionTime, t.IdempotencyKey, t.Fingerprint, t.ID, domain.TransactionStatusPending)
	if err != nil {
		return mapError(err, "failed to settle transaction %d", t.ID)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected settling transaction %d: %w", t.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d is not pending: %w", t.ID, util.ErrInvalidStateTransition)
	}
	return nil
}

// GetTransactionByID retrieves an entry by its ID.
func (r *TransactionRepository) GetTransactionByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := q.GetContext(ctx, &t, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id); err != nil {
		return nil, mapError(err, "failed to get transaction %d", id)
	}
	return &t, nil
}

// GetCompletedByIdempotencyKey retrieves the COMPLETED entry bound to (actor, key).
func (r *TransactionRepository) GetCompletedByIdempotencyKey(ctx context.Context, q repository.DBExecutor, actorID int64, key string) (*domain.Transaction, error) {
	var t domain.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions
              WHERE actor_id = $1 AND idempotency_key = $2 AND status = $3`
	if err := q.GetContext(ctx, &t, query, actorID, key, domain.TransactionStatusCompleted); err != nil {
		return nil, mapError(err, "failed to get transaction by key for actor %d", actorID)
	}
	return &t, nil
}

// GetCommissionByParent retrieves the COMPLETED COMMISSION child of parentID.
func (r *TransactionRepository) GetCommissionByParent(ctx context.Context, q repository.DBExecutor, parentID int64) (*domain.Transaction, error) {
	var t domain.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions
              WHERE parent_entry_id = $1 AND type = $2 AND status = $3`
	if err := q.GetContext(ctx, &t, query, parentID, domain.TransactionTypeCommission, domain.TransactionStatusCompleted); err != nil {
		return nil, mapError(err, "failed to get commission for entry %d", parentID)
	}
	return &t, nil
}

// GetTransactionsByWalletID retrieves a paginated list of transactions for a specific wallet.
// It performs two queries: one for the data and one for the total count.
func (r *TransactionRepository) GetTransactionsByWalletID(ctx context.Context, q repository.DBExecutor, walletID int64, limit, offset int) ([]domain.Transaction, int64, error) {
	transactions := []domain.Transaction{}

	// Query 1: the page. A wallet appears on either side of an entry.
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE from_wallet_id = $1 OR to_wallet_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	if err := q.SelectContext(ctx, &transactions, query, walletID, limit, offset); err != nil {
		return nil, 0, mapError(err, "failed to fetch transactions for wallet %d", walletID)
	}

	// Query 2: Get the total count of transactions for the wallet
	var totalCount int64
	countQuery := `
		SELECT COUNT(*)
		FROM transactions
		WHERE from_wallet_id = $1 OR to_wallet_id = $1`
	if err := q.GetContext(ctx, &totalCount, countQuery, walletID); err != nil {
		return nil, 0, mapError(err, "failed to get total transaction count for wallet %d", walletID)
	}

	return transactions, totalCount, nil
}

// SumOutgoing totals COMPLETED debits from the user's wallets in [from, to),
// leaving out commissions and agent cash-ins.
func (r *TransactionRepository) SumOutgoing(ctx context.Context, q repository.DBExecutor, userID int64, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `
		SELECT COALESCE(SUM(t.amount), 0)
		FROM transactions t
		JOIN wallets w ON w.id = t.from_wallet_id
		WHERE w.user_id = $1
		  AND t.status = $2
		  AND t.type <> $3
		  AND NOT (t.type = $4 AND t.agent_id IS NOT NULL)
		  AND t.transaction_time >= $5 AND t.transaction_time < $6`
	err := q.GetContext(ctx, &total, query, userID, domain.TransactionStatusCompleted,
		domain.TransactionTypeCommission, domain.TransactionTypeDeposit, from.UTC(), to.UTC())
	if err != nil {
		return decimal.Zero, mapError(err, "failed to sum outgoing for user %d", userID)
	}
	return total, nil
}

// ListUnroutedAgentEntries finds settled agent entries that still lack a commission.
func (r *TransactionRepository) ListUnroutedAgentEntries(ctx context.Context, q repository.DBExecutor, since time.Time, limit int) ([]domain.Transaction, error) {
	entries := []domain.Transaction{}
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions t
		WHERE t.agent_id IS NOT NULL
		  AND t.status = $1
		  AND t.type IN ($2, $3)
		  AND t.transaction_time >= $4
		  AND NOT EXISTS (
		      SELECT 1 FROM transactions c
		      WHERE c.parent_entry_id = t.id AND c.type = $5 AND c.status = $1)
		ORDER BY t.id
		LIMIT $6`
	err := q.SelectContext(ctx, &entries, query, domain.TransactionStatusCompleted,
		domain.TransactionTypeDeposit, domain.TransactionTypeWithdrawal, since.UTC(),
		domain.TransactionTypeCommission, limit)
	if err != nil {
		return nil, mapError(err, "failed to list unrouted agent entries")
	}
	return entries, nil
}
