// internal/service/requests.go
package service

import (
	"github.com/shopspring/decimal"

	"wallet-ledger/internal/domain"
)

// Actor is the caller identity as asserted by the identity service.
type Actor struct {
	ID       int64           `validate:"required,gt=0"`
	Role     domain.UserRole `validate:"required"`
	Tier     int             `validate:"gte=0,lte=3"`
	Timezone string
}

// TransferRequest moves money between two customer wallets.
type TransferRequest struct {
	Actor          Actor
	IdempotencyKey string          `validate:"required,max=128"`
	FromWalletID   int64           `validate:"required,gt=0"`
	ToWalletID     int64           `validate:"required,gt=0"`
	Amount         decimal.Decimal `validate:"money"`
	Currency       string          `validate:"required,currency"`
	Description    *string         `validate:"omitempty,max=255"`
}

// PaymentRequest pays a merchant wallet.
type PaymentRequest struct {
	Actor            Actor
	IdempotencyKey   string          `validate:"required,max=128"`
	FromWalletID     int64           `validate:"required,gt=0"`
	MerchantWalletID int64           `validate:"required,gt=0"`
	Amount           decimal.Decimal `validate:"money"`
	Currency         string          `validate:"required,currency"`
	Description      *string         `validate:"omitempty,max=255"`
}

// PaymentRequestRequest is a merchant asking a payer wallet for money.
type PaymentRequestRequest struct {
	Actor          Actor
	IdempotencyKey string          `validate:"required,max=128"`
	PayerWalletID  int64           `validate:"required,gt=0"`
	Amount         decimal.Decimal `validate:"money"`
	Currency       string          `validate:"required,currency"`
	Description    *string         `validate:"omitempty,max=255"`
}

// PaymentDecisionRequest approves or declines a pending payment.
type PaymentDecisionRequest struct {
	Actor          Actor
	IdempotencyKey string `validate:"required,max=128"`
	EntryID        int64  `validate:"required,gt=0"`
}

// CashInRequest credits a customer from the acting agent's float.
type CashInRequest struct {
	Actor            Actor
	IdempotencyKey   string          `validate:"required,max=128"`
	CustomerWalletID int64           `validate:"required,gt=0"`
	Amount           decimal.Decimal `validate:"money"`
	Currency         string          `validate:"required,currency"`
}

// CashOutRequest moves a customer's money to an agent who pays out cash.
type CashOutRequest struct {
	Actor          Actor
	IdempotencyKey string          `validate:"required,max=128"`
	FromWalletID   int64           `validate:"required,gt=0"`
	AgentID        int64           `validate:"required,gt=0"`
	Amount         decimal.Decimal `validate:"money"`
	Currency       string          `validate:"required,currency"`
}

// FundingRequest is an external deposit into, or withdrawal out of, a wallet.
type FundingRequest struct {
	Actor          Actor
	IdempotencyKey string          `validate:"required,max=128"`
	WalletID       int64           `validate:"required,gt=0"`
	Amount         decimal.Decimal `validate:"money"`
	Currency       string          `validate:"required,currency"`
	Description    *string         `validate:"omitempty,max=255"`
}

// QuoteRequest asks what a transaction would cost.
type QuoteRequest struct {
	Type     domain.TransactionType `validate:"required"`
	Role     domain.UserRole        `validate:"required"`
	Amount   decimal.Decimal        `validate:"money"`
	Currency string                 `validate:"required,currency"`
}

// Quote is the charge and net amounts for a prospective transaction.
type Quote struct {
	Type      domain.TransactionType `json:"type"`
	Amount    decimal.Decimal        `json:"amount"`
	Charge    decimal.Decimal        `json:"charge"`
	Bearer    domain.ChargeBearer    `json:"bearer"`
	NetDebit  decimal.Decimal        `json:"net_debit"`
	NetCredit decimal.Decimal        `json:"net_credit"`
	Currency  string                 `json:"currency"`
	RuleID    *int64                 `json:"rule_id,omitempty"`
}
