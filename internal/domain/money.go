// internal/domain/money.go
package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// minorUnits lists currencies whose minor unit differs from two decimals.
var minorUnits = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"UGX": 0,
	"XAF": 0,
	"XOF": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
}

// MinorUnit returns the number of decimal places of currency's minor unit.
func MinorUnit(currency string) int32 {
	if places, ok := minorUnits[strings.ToUpper(currency)]; ok {
		return places
	}
	return 2
}

// RoundMoney rounds half-up (away from zero) to the currency's minor unit.
func RoundMoney(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(MinorUnit(currency))
}

// IsRounded reports whether amount has no precision beyond the minor unit.
func IsRounded(amount decimal.Decimal, currency string) bool {
	return amount.Equal(RoundMoney(amount, currency))
}
