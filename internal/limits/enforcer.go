// internal/limits/enforcer.go
package limits

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
)

// Window names the period a cap applies to.
type Window string

const (
	WindowDaily   Window = "daily"
	WindowMonthly Window = "monthly"
)

// LimitError describes a denial. It unwraps to util.ErrLimitExceeded.
type LimitError struct {
	Window Window
	Cap    decimal.Decimal
	Used   decimal.Decimal
	Amount decimal.Decimal
	Tier   int
}

func (e *LimitError) Error() string {
	if e.Window == "" {
		return fmt.Sprintf("no limits configured for verification tier %d", e.Tier)
	}
	return fmt.Sprintf("%s limit %s exceeded: %s already used, %s requested", e.Window, e.Cap, e.Used, e.Amount)
}

func (e *LimitError) Unwrap() error { return util.ErrLimitExceeded }

// Enforcer checks outgoing amounts against calendar day and month caps.
// It reads a point-in-time snapshot and holds no locks; the ledger's balance
// check is the authoritative guard.
type Enforcer struct {
	entries repository.TransactionRepository
	txm     repository.TxManager
	tiers   map[int]domain.TierLimits
}

// NewEnforcer creates an Enforcer over the given tier table.
func NewEnforcer(entries repository.TransactionRepository, txm repository.TxManager, tiers map[int]domain.TierLimits) *Enforcer {
	return &Enforcer{entries: entries, txm: txm, tiers: tiers}
}

// Check returns nil to allow, or a *LimitError to deny.
func (e *Enforcer) Check(ctx context.Context, userID int64, tier int, amount decimal.Decimal, now time.Time, loc *time.Location) error {
	caps, ok := e.tiers[tier]
	if !ok {
		return &LimitError{Tier: tier, Amount: amount}
	}
	if loc == nil {
		loc = time.UTC
	}

	dayStart, dayEnd := DayBounds(now, loc)
	monthStart, monthEnd := MonthBounds(now, loc)

	daily, err := e.entries.SumOutgoing(ctx, e.txm.Executor(), userID, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("limits: failed to sum daily outgoing: %w", err)
	}
	if daily.Add(amount).GreaterThan(caps.Daily) {
		return &LimitError{Window: WindowDaily, Cap: caps.Daily, Used: daily, Amount: amount, Tier: tier}
	}

	monthly, err := e.entries.SumOutgoing(ctx, e.txm.Executor(), userID, monthStart, monthEnd)
	if err != nil {
		return fmt.Errorf("limits: failed to sum monthly outgoing: %w", err)
	}
	if monthly.Add(amount).GreaterThan(caps.Monthly) {
		return &LimitError{Window: WindowMonthly, Cap: caps.Monthly, Used: monthly, Amount: amount, Tier: tier}
	}
	return nil
}

// DayBounds returns [start, end) of the calendar day containing now in loc.
func DayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// MonthBounds returns [start, end) of the calendar month containing now in loc.
func MonthBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}
