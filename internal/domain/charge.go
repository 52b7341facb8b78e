// internal/domain/charge.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChargeType is how a rule computes the fee.
type ChargeType string

const (
	ChargeTypePercentage ChargeType = "PERCENTAGE"
	ChargeTypeFixed      ChargeType = "FIXED"
)

// ChargeBearer is the party that pays the fee.
type ChargeBearer string

const (
	ChargeBearerSender   ChargeBearer = "SENDER"
	ChargeBearerReceiver ChargeBearer = "RECEIVER"
)

// ChargeRule is fee configuration for a (transaction type, role) pair.
type ChargeRule struct {
	ID              int64            `db:"id" json:"id"`
	Name            string           `db:"name" json:"name"`
	TransactionType TransactionType  `db:"transaction_type" json:"transaction_type"`
	UserRole        UserRole         `db:"user_role" json:"user_role"`
	ChargeType      ChargeType       `db:"charge_type" json:"charge_type"`
	Value           decimal.Decimal  `db:"value" json:"value"`           // Percent for PERCENTAGE, amount for FIXED
	Bearer          ChargeBearer     `db:"bearer" json:"bearer"`
	MinCharge       decimal.Decimal  `db:"min_charge" json:"min_charge"`
	MaxCharge       *decimal.Decimal `db:"max_charge" json:"max_charge"` // Optional upper clamp
	IsActive        bool             `db:"is_active" json:"is_active"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}

// ChargeOutcome is a resolved fee.
type ChargeOutcome struct {
	Amount decimal.Decimal `json:"amount"`
	Bearer ChargeBearer    `json:"bearer"`
	RuleID *int64          `json:"rule_id,omitempty"`
}

// ZeroCharge is the outcome when no rule applies.
func ZeroCharge() ChargeOutcome {
	return ChargeOutcome{Amount: decimal.Zero, Bearer: ChargeBearerSender}
}
