// internal/domain/limits.go
package domain

import "github.com/shopspring/decimal"

// TierLimits are the outgoing caps for a verification tier.
type TierLimits struct {
	Daily   decimal.Decimal `json:"daily"`
	Monthly decimal.Decimal `json:"monthly"`
}

// DefaultTierLimits returns the built-in tier table.
func DefaultTierLimits() map[int]TierLimits {
	return map[int]TierLimits{
		0: {Daily: decimal.Zero, Monthly: decimal.Zero},
		1: {Daily: decimal.NewFromInt(500), Monthly: decimal.NewFromInt(2000)},
		2: {Daily: decimal.NewFromInt(5000), Monthly: decimal.NewFromInt(20000)},
		3: {Daily: decimal.NewFromInt(20000), Monthly: decimal.NewFromInt(100000)},
	}
}
