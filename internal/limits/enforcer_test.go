// internal/limits/enforcer_test.go
package limits

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository/memory"
	"wallet-ledger/internal/util"
)

func seedCompleted(t *testing.T, s *memory.Store, walletID int64, amount string, at time.Time) {
	t.Helper()
	e := domain.NewTransaction(&walletID, nil, decimal.RequireFromString(amount), "USD", domain.TransactionTypeTransfer, nil)
	e.Status = domain.TransactionStatusCompleted
	e.TransactionTime = at
	require.NoError(t, s.CreateTransaction(context.Background(), s, e))
}

func TestTierOneDailyCap(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	w := domain.NewWallet(42, "USD")
	require.NoError(t, store.CreateWallet(ctx, store, w))

	now := time.Date(2026, 5, 14, 15, 0, 0, 0, time.UTC)
	seedCompleted(t, store, w.ID, "200", now.Add(-3*time.Hour))
	seedCompleted(t, store, w.ID, "180", now.Add(-2*time.Hour))
	seedCompleted(t, store, w.ID, "100", now.Add(-time.Hour))

	enforcer := NewEnforcer(store, store, domain.DefaultTierLimits())

	err := enforcer.Check(ctx, 42, 1, decimal.NewFromInt(30), now, time.UTC)
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrLimitExceeded)
	var limitErr *LimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, WindowDaily, limitErr.Window)
	assert.True(t, decimal.NewFromInt(480).Equal(limitErr.Used))

	assert.NoError(t, enforcer.Check(ctx, 42, 1, decimal.NewFromInt(20), now, time.UTC))
}

func TestCalendarDayInActorTimezone(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	w := domain.NewWallet(5, "USD")
	require.NoError(t, store.CreateWallet(ctx, store, w))

	harare, err := time.LoadLocation("Africa/Harare") // UTC+2
	require.NoError(t, err)

	// 23:30 UTC on the 13th is already the 14th in Harare.
	seedCompleted(t, store, w.ID, "490", time.Date(2026, 5, 13, 21, 30, 0, 0, time.UTC))
	now := time.Date(2026, 5, 13, 23, 30, 0, 0, time.UTC)

	enforcer := NewEnforcer(store, store, domain.DefaultTierLimits())
	assert.NoError(t, enforcer.Check(ctx, 5, 1, decimal.NewFromInt(100), now, harare), "prior spend was yesterday locally")
	assert.ErrorIs(t, enforcer.Check(ctx, 5, 1, decimal.NewFromInt(100), now, time.UTC), util.ErrLimitExceeded)
}

func TestMonthlyCapAndUnknownTier(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	w := domain.NewWallet(9, "USD")
	require.NoError(t, store.CreateWallet(ctx, store, w))

	now := time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC)
	for day := 1; day <= 4; day++ {
		seedCompleted(t, store, w.ID, "490", time.Date(2026, 5, day, 10, 0, 0, 0, time.UTC))
	}

	enforcer := NewEnforcer(store, store, domain.DefaultTierLimits())
	err := enforcer.Check(ctx, 9, 1, decimal.NewFromInt(50), now, time.UTC)
	var limitErr *LimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, WindowMonthly, limitErr.Window)

	assert.ErrorIs(t, enforcer.Check(ctx, 9, 7, decimal.NewFromInt(1), now, time.UTC), util.ErrLimitExceeded)
	assert.ErrorIs(t, enforcer.Check(ctx, 9, 0, decimal.NewFromInt(1), now, time.UTC), util.ErrLimitExceeded)
}

func TestBounds(t *testing.T) {
	now := time.Date(2026, 12, 31, 22, 0, 0, 0, time.UTC)
	start, end := MonthBounds(now, time.UTC)
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), end)

	dStart, dEnd := DayBounds(now, time.UTC)
	assert.Equal(t, 24*time.Hour, dEnd.Sub(dStart))
}

func TestAgentCashInDoesNotCount(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	float := domain.NewWallet(9, "USD")
	require.NoError(t, store.CreateWallet(ctx, store, float))

	now := time.Date(2026, 5, 14, 15, 0, 0, 0, time.UTC)
	agentID := int64(9)
	cashIn := domain.NewTransaction(&float.ID, nil, decimal.NewFromInt(450), "USD", domain.TransactionTypeDeposit, nil)
	cashIn.Status = domain.TransactionStatusCompleted
	cashIn.TransactionTime = now.Add(-time.Hour)
	cashIn.AgentID = &agentID
	require.NoError(t, store.CreateTransaction(ctx, store, cashIn))

	enforcer := NewEnforcer(store, store, domain.DefaultTierLimits())
	assert.NoError(t, enforcer.Check(ctx, 9, 1, decimal.NewFromInt(400), now, time.UTC))

	seedCompleted(t, store, float.ID, "150", now.Add(-time.Hour))
	assert.ErrorIs(t, enforcer.Check(ctx, 9, 1, decimal.NewFromInt(400), now, time.UTC), util.ErrLimitExceeded)
}
