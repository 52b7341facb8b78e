// internal/commission/router_test.go
package commission

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-ledger/internal/alert"
	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/ledger"
	"wallet-ledger/internal/repository/memory"
	"wallet-ledger/internal/util"
)

type recordingSink struct {
	mu     sync.Mutex
	alerts []alert.Alert
}

func (s *recordingSink) Raise(_ context.Context, a alert.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
}

type fixture struct {
	store    *memory.Store
	ledger   *ledger.Ledger
	router   *Router
	sink     *recordingSink
	customer *domain.Wallet
	fee      *domain.Wallet
	agentCW  *domain.Wallet
	settled  []*domain.Transaction
}

const agentID int64 = 5

func newFixture(t *testing.T, feeBalance string) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	mk := func(userID int64, kind domain.WalletKind, balance string) *domain.Wallet {
		w := domain.NewWallet(userID, "USD")
		w.Kind = kind
		w.Balance = decimal.RequireFromString(balance)
		require.NoError(t, store.CreateWallet(ctx, store, w))
		return w
	}

	f := &fixture{store: store, sink: &recordingSink{}}
	f.customer = mk(1, domain.WalletKindPrimary, "0")
	f.fee = mk(99, domain.WalletKindFee, feeBalance)
	f.agentCW = mk(agentID, domain.WalletKindCommission, "0")
	require.NoError(t, store.CreateAgentProfile(ctx, store, &domain.AgentProfile{
		UserID: agentID, AgentCode: "AG-005", BusinessName: "Corner Shop",
		CommissionRate: decimal.RequireFromString("1.5"), CommissionWalletID: f.agentCW.ID, IsApproved: true,
	}))

	lcfg := ledger.DefaultConfig()
	lcfg.BaseBackoff, lcfg.MaxBackoff = time.Millisecond, 2*time.Millisecond
	f.ledger = ledger.New(store, store, store, lcfg, nil, util.NewNopLogger())

	cfg := DefaultConfig()
	cfg.MaxAttempts = 3
	cfg.BaseBackoff, cfg.MaxBackoff = time.Millisecond, 2*time.Millisecond
	f.router = NewRouter(store, store, store, store, f.ledger, f.sink, cfg, nil, util.NewNopLogger())
	f.router.OnSettled = func(_ context.Context, e *domain.Transaction) { f.settled = append(f.settled, e) }
	return f
}

func (f *fixture) cashIn(t *testing.T, amount string) *domain.Transaction {
	t.Helper()
	id := agentID
	entry, err := f.ledger.Commit(context.Background(), ledger.CommitRequest{
		Type: domain.TransactionTypeDeposit, ReceiverWalletID: &f.customer.ID,
		Amount: decimal.RequireFromString(amount), Currency: "USD", Charge: domain.ZeroCharge(),
		ActorID: agentID, AgentID: &id,
	})
	require.NoError(t, err)
	return entry
}

func (f *fixture) balance(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	w, err := f.store.GetWalletByID(context.Background(), f.store, id)
	require.NoError(t, err)
	return w.Balance
}

func TestAmount(t *testing.T) {
	assert.Equal(t, "1.5", Amount(decimal.NewFromInt(100), decimal.RequireFromString("1.5"), "USD").String())
	assert.Equal(t, "0.01", Amount(decimal.RequireFromString("0.50"), decimal.RequireFromString("1.5"), "USD").String())
	assert.Equal(t, "15", Amount(decimal.NewFromInt(1000), decimal.RequireFromString("1.5"), "JPY").String())
}

func TestRouteCreditsSeparateCommissionEntry(t *testing.T) {
	f := newFixture(t, "10")
	parent := f.cashIn(t, "100")

	require.NoError(t, f.router.Route(context.Background(), parent))

	child, err := f.store.GetCommissionByParent(context.Background(), f.store, parent.ID)
	require.NoError(t, err)
	assert.NotEqual(t, parent.ID, child.ID)
	assert.Equal(t, domain.TransactionTypeCommission, child.Type)
	assert.True(t, decimal.RequireFromString("1.50").Equal(child.Amount))
	assert.True(t, decimal.RequireFromString("1.50").Equal(f.balance(t, f.agentCW.ID)))
	assert.True(t, decimal.RequireFromString("8.50").Equal(f.balance(t, f.fee.ID)))
	assert.True(t, decimal.NewFromInt(100).Equal(f.balance(t, f.customer.ID)))
	require.Len(t, f.settled, 1)
	assert.Equal(t, child.ID, f.settled[0].ID)

	// A second run is a no-op.
	require.NoError(t, f.router.Route(context.Background(), parent))
	assert.True(t, decimal.RequireFromString("1.50").Equal(f.balance(t, f.agentCW.ID)))
	assert.Len(t, f.settled, 1)
}

func TestRouteFailureEscalatesWithoutRevertingCashIn(t *testing.T) {
	f := newFixture(t, "0")
	parent := f.cashIn(t, "100")

	err := f.router.Route(context.Background(), parent)
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrInsufficientFunds)

	stored, err := f.store.GetTransactionByID(context.Background(), f.store, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, stored.Status)
	assert.True(t, decimal.NewFromInt(100).Equal(f.balance(t, f.customer.ID)))
	assert.True(t, f.balance(t, f.agentCW.ID).IsZero())

	require.Len(t, f.sink.alerts, 1)
	assert.Equal(t, alert.KindCommissionEscalated, f.sink.alerts[0].Kind)
	assert.Equal(t, parent.ID, f.sink.alerts[0].EntryID)
	assert.Equal(t, 3, f.sink.alerts[0].Attempts)
}

func TestRouteSkipsIneligibleEntries(t *testing.T) {
	f := newFixture(t, "10")
	entry, err := f.ledger.Commit(context.Background(), ledger.CommitRequest{
		Type: domain.TransactionTypeDeposit, ReceiverWalletID: &f.customer.ID,
		Amount: decimal.NewFromInt(50), Currency: "USD", Charge: domain.ZeroCharge(), ActorID: 1,
	})
	require.NoError(t, err)

	require.NoError(t, f.router.Route(context.Background(), entry))
	assert.True(t, f.balance(t, f.agentCW.ID).IsZero())
	assert.Empty(t, f.sink.alerts)
}

func TestSweepRoutesMissedEntries(t *testing.T) {
	f := newFixture(t, "10")
	f.cashIn(t, "100")
	f.cashIn(t, "200")

	routed, err := f.router.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, routed)
	assert.True(t, decimal.RequireFromString("4.50").Equal(f.balance(t, f.agentCW.ID)))

	routed, err = f.router.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, routed)
}
