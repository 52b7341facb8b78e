// internal/domain/transaction.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal" // For precise monetary calculations

	"wallet-ledger/internal/util"
)

// TransactionType defines the type of a ledger entry.
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
	TransactionTypePayment    TransactionType = "PAYMENT"
	TransactionTypeCommission TransactionType = "COMMISSION"
)

// Valid reports whether t is a known entry type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransfer,
		TransactionTypePayment, TransactionTypeCommission:
		return true
	}
	return false
}

// TransactionStatus defines the status of a ledger entry.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Terminal reports whether no further transition is allowed from s.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

// Transaction is a ledger entry. Once COMPLETED it is never mutated.
type Transaction struct {
	ID              int64             `db:"id" json:"id"`                               // Primary key, BIGSERIAL in DB
	Reference       uuid.UUID         `db:"reference" json:"reference"`                 // Public reference
	FromWalletID    *int64            `db:"from_wallet_id" json:"from_wallet_id"`       // Source wallet ID (nullable for deposits)
	ToWalletID      *int64            `db:"to_wallet_id" json:"to_wallet_id"`           // Destination wallet ID (nullable for withdrawals)
	ActorID         int64             `db:"actor_id" json:"actor_id"`                   // Identity that initiated the operation
	AgentID         *int64            `db:"agent_id" json:"agent_id,omitempty"`         // Set for agent cash-in/cash-out
	ParentEntryID   *int64            `db:"parent_entry_id" json:"parent_entry_id"`     // Set on COMMISSION entries
	Amount          decimal.Decimal   `db:"amount" json:"amount"`                       // Gross amount, NUMERIC(20, 4) in DB
	ChargeAmount    decimal.Decimal   `db:"charge_amount" json:"charge_amount"`         // Fee credited to the system fee wallet
	ChargeBearer    ChargeBearer      `db:"charge_bearer" json:"charge_bearer"`         // SENDER or RECEIVER
	NetDebit        decimal.Decimal   `db:"net_debit" json:"net_debit"`                 // Amount removed from the sender
	NetCredit       decimal.Decimal   `db:"net_credit" json:"net_credit"`               // Amount added to the receiver
	Currency        string            `db:"currency" json:"currency"`                   // Currency of the entry
	Type            TransactionType   `db:"type" json:"type"`                           // DEPOSIT, WITHDRAWAL, TRANSFER, PAYMENT, COMMISSION
	Status          TransactionStatus `db:"status" json:"status"`                       // PENDING, COMPLETED, FAILED
	IdempotencyKey  *string           `db:"idempotency_key" json:"-"`                   // Caller key, unique per actor among COMPLETED
	Fingerprint     string            `db:"fingerprint" json:"-"`                       // Request fingerprint bound to the key
	Description     *string           `db:"description" json:"description"`             // Optional description
	FailureReason   *string           `db:"failure_reason" json:"failure_reason"`       // Set on FAILED entries
	TransactionTime time.Time         `db:"transaction_time" json:"transaction_time"`   // Actual time of the transaction
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`               // Timestamp of record creation
}

// NewTransaction creates a new PENDING entry with zero charge.
func NewTransaction(
	fromWalletID *int64,
	toWalletID *int64,
	amount decimal.Decimal,
	currency string,
	txType TransactionType,
	description *string,
) *Transaction {
	now := time.Now().UTC()
	return &Transaction{
		Reference:       uuid.New(),
		FromWalletID:    fromWalletID,
		ToWalletID:      toWalletID,
		Amount:          amount,
		ChargeAmount:    decimal.Zero,
		ChargeBearer:    ChargeBearerSender,
		NetDebit:        amount,
		NetCredit:       amount,
		Currency:        currency,
		Type:            txType,
		Status:          TransactionStatusPending,
		TransactionTime: now,
		Description:     description,
		CreatedAt:       now,
	}
}

// TransitionTo moves the entry to next. Only PENDING entries may change.
func (t *Transaction) TransitionTo(next TransactionStatus) error {
	if t.Status.Terminal() || next == TransactionStatusPending {
		return fmt.Errorf("entry %d %s -> %s: %w", t.ID, t.Status, next, util.ErrInvalidStateTransition)
	}
	t.Status = next
	t.TransactionTime = time.Now().UTC()
	return nil
}

// MarkFailed transitions the entry to FAILED and records reason.
func (t *Transaction) MarkFailed(reason string) error {
	if err := t.TransitionTo(TransactionStatusFailed); err != nil {
		return err
	}
	t.FailureReason = &reason
	return nil
}

// TransactionResult is the outcome returned to callers and stored by the
// idempotency guard so replays are byte-identical.
type TransactionResult struct {
	EntryID      int64             `json:"entry_id,omitempty"`
	Reference    string            `json:"reference,omitempty"`
	Type         TransactionType   `json:"type"`
	Status       TransactionStatus `json:"status"`
	Amount       decimal.Decimal   `json:"amount"`
	ChargeAmount decimal.Decimal   `json:"charge_amount"`
	ChargeBearer ChargeBearer      `json:"charge_bearer"`
	NetDebit     decimal.Decimal   `json:"net_debit"`
	NetCredit    decimal.Decimal   `json:"net_credit"`
	Currency     string            `json:"currency"`
	ErrorKind    string            `json:"error_kind,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// ResultFromTransaction builds a successful result from a committed entry.
func ResultFromTransaction(tx *Transaction) *TransactionResult {
	return &TransactionResult{
		EntryID:      tx.ID,
		Reference:    tx.Reference.String(),
		Type:         tx.Type,
		Status:       tx.Status,
		Amount:       tx.Amount,
		ChargeAmount: tx.ChargeAmount,
		ChargeBearer: tx.ChargeBearer,
		NetDebit:     tx.NetDebit,
		NetCredit:    tx.NetCredit,
		Currency:     tx.Currency,
	}
}

// RejectedResult records a terminal business rejection.
func RejectedResult(txType TransactionType, amount decimal.Decimal, currency string, err error) *TransactionResult {
	return &TransactionResult{
		Type:         txType,
		Status:       TransactionStatusFailed,
		Amount:       amount,
		ChargeAmount: decimal.Zero,
		ChargeBearer: ChargeBearerSender,
		NetDebit:     decimal.Zero,
		NetCredit:    decimal.Zero,
		Currency:     currency,
		ErrorKind:    util.ErrorKind(err),
		ErrorMessage: err.Error(),
	}
}

// Err returns the error a rejected result represents, or nil.
func (r *TransactionResult) Err() error {
	return util.ErrorFromKind(r.ErrorKind, r.ErrorMessage)
}
