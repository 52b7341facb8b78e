// internal/ledger/ledger_test.go
package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/repository/memory"
	"wallet-ledger/internal/util"
)

type fixture struct {
	store  *memory.Store
	ledger *Ledger
	a, b   *domain.Wallet
	fee    *domain.Wallet
}

func newFixture(t *testing.T, balanceA string) *fixture {
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

	cfg := DefaultConfig()
	cfg.BaseBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	cfg.MaxAttempts = 100

	return &fixture{
		store:  store,
		ledger: New(store, store, store, cfg, nil, util.NewNopLogger()),
		a:      mk(1, domain.WalletKindPrimary, balanceA),
		b:      mk(2, domain.WalletKindPrimary, "0"),
		fee:    mk(99, domain.WalletKindFee, "0"),
	}
}

func (f *fixture) balance(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	w, err := f.store.GetWalletByID(context.Background(), f.store, id)
	require.NoError(t, err)
	return w.Balance
}

func charge(amount string, bearer domain.ChargeBearer) domain.ChargeOutcome {
	return domain.ChargeOutcome{Amount: decimal.RequireFromString(amount), Bearer: bearer}
}

func TestCommitConservesValue(t *testing.T) {
	for _, bearer := range []domain.ChargeBearer{domain.ChargeBearerSender, domain.ChargeBearerReceiver} {
		t.Run(string(bearer), func(t *testing.T) {
			f := newFixture(t, "100")
			entry, err := f.ledger.Commit(context.Background(), CommitRequest{
				Type: domain.TransactionTypeTransfer, SenderWalletID: &f.a.ID, ReceiverWalletID: &f.b.ID,
				Amount: decimal.NewFromInt(40), Currency: "USD", Charge: charge("1.50", bearer), ActorID: 1,
			})
			require.NoError(t, err)
			assert.Equal(t, domain.TransactionStatusCompleted, entry.Status)

			total := f.balance(t, f.a.ID).Add(f.balance(t, f.b.ID)).Add(f.balance(t, f.fee.ID))
			assert.True(t, decimal.NewFromInt(100).Equal(total), "total %s", total)
			assert.True(t, decimal.RequireFromString("1.50").Equal(f.balance(t, f.fee.ID)))

			if bearer == domain.ChargeBearerSender {
				assert.True(t, decimal.RequireFromString("58.50").Equal(f.balance(t, f.a.ID)))
				assert.True(t, decimal.NewFromInt(40).Equal(f.balance(t, f.b.ID)))
			} else {
				assert.True(t, decimal.NewFromInt(60).Equal(f.balance(t, f.a.ID)))
				assert.True(t, decimal.RequireFromString("38.50").Equal(f.balance(t, f.b.ID)))
			}

			a, _ := f.store.GetWalletByID(context.Background(), f.store, f.a.ID)
			assert.Equal(t, int64(1), a.Version)
		})
	}
}

func TestInsufficientFundsLeavesBalancesAndRecordsFailure(t *testing.T) {
	f := newFixture(t, "10")
	key := "k-1"

	_, err := f.ledger.Commit(context.Background(), CommitRequest{
		Type: domain.TransactionTypeTransfer, SenderWalletID: &f.a.ID, ReceiverWalletID: &f.b.ID,
		Amount: decimal.NewFromInt(10), Currency: "USD", Charge: charge("0.50", domain.ChargeBearerSender),
		ActorID: 1, IdempotencyKey: &key,
	})
	require.ErrorIs(t, err, util.ErrInsufficientFunds)

	assert.True(t, decimal.NewFromInt(10).Equal(f.balance(t, f.a.ID)))
	assert.True(t, f.balance(t, f.b.ID).IsZero())
	assert.True(t, f.balance(t, f.fee.ID).IsZero())

	history, total, err := f.store.GetTransactionsByWalletID(context.Background(), f.store, f.a.ID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, domain.TransactionStatusFailed, history[0].Status)
	require.NotNil(t, history[0].FailureReason)
	assert.Contains(t, *history[0].FailureReason, "insufficient funds")
}

func TestRejectedBeforeMutation(t *testing.T) {
	ctx := context.Background()

	t.Run("same wallet", func(t *testing.T) {
		f := newFixture(t, "10")
		_, err := f.ledger.Commit(ctx, CommitRequest{Type: domain.TransactionTypeTransfer, SenderWalletID: &f.a.ID,
			ReceiverWalletID: &f.a.ID, Amount: decimal.NewFromInt(1), Currency: "USD", ActorID: 1})
		assert.ErrorIs(t, err, util.ErrSameWalletTransfer)
	})

	t.Run("currency mismatch", func(t *testing.T) {
		f := newFixture(t, "10")
		eur := domain.NewWallet(3, "EUR")
		require.NoError(t, f.store.CreateWallet(ctx, f.store, eur))
		_, err := f.ledger.Commit(ctx, CommitRequest{Type: domain.TransactionTypeTransfer, SenderWalletID: &f.a.ID,
			ReceiverWalletID: &eur.ID, Amount: decimal.NewFromInt(1), Currency: "USD", ActorID: 1})
		assert.ErrorIs(t, err, util.ErrCurrencyMismatch)
		assert.True(t, decimal.NewFromInt(10).Equal(f.balance(t, f.a.ID)))
	})

	t.Run("disabled wallet", func(t *testing.T) {
		f := newFixture(t, "10")
		require.NoError(t, f.store.SetWalletActive(ctx, f.store, f.b.ID, false))
		_, err := f.ledger.Commit(ctx, CommitRequest{Type: domain.TransactionTypeTransfer, SenderWalletID: &f.a.ID,
			ReceiverWalletID: &f.b.ID, Amount: decimal.NewFromInt(1), Currency: "USD", ActorID: 1})
		assert.ErrorIs(t, err, util.ErrWalletDisabled)
	})

	t.Run("sub-cent amount", func(t *testing.T) {
		f := newFixture(t, "10")
		_, err := f.ledger.Commit(ctx, CommitRequest{Type: domain.TransactionTypeTransfer, SenderWalletID: &f.a.ID,
			ReceiverWalletID: &f.b.ID, Amount: decimal.RequireFromString("1.001"), Currency: "USD", ActorID: 1})
		assert.ErrorIs(t, err, util.ErrInvalidInput)
	})
}

func TestConcurrentTransfersSerialize(t *testing.T) {
	f := newFixture(t, "100")
	const workers = 25

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Commit(context.Background(), CommitRequest{
				Type: domain.TransactionTypeTransfer, SenderWalletID: &f.a.ID, ReceiverWalletID: &f.b.ID,
				Amount: decimal.NewFromInt(10), Currency: "USD", ActorID: 1,
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, util.ErrInsufficientFunds) || errors.Is(err, util.ErrConcurrencyConflict), "unexpected %v", err)
		}()
	}
	wg.Wait()

	a, b := f.balance(t, f.a.ID), f.balance(t, f.b.ID)
	assert.LessOrEqual(t, succeeded, 10)
	assert.False(t, a.IsNegative())
	assert.True(t, decimal.NewFromInt(int64(100-10*succeeded)).Equal(a), "a=%s after %d transfers", a, succeeded)
	assert.True(t, decimal.NewFromInt(int64(10*succeeded)).Equal(b), "b=%s after %d transfers", b, succeeded)
}

// conflictingWallets wraps a repository and fails every mutation with a conflict.
type conflictingWallets struct {
	repository.WalletRepository
	calls int
	mu    sync.Mutex
}

func (c *conflictingWallets) ApplyMutation(ctx context.Context, q repository.DBExecutor, m domain.WalletMutation) error {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return util.ErrConcurrencyConflict
}

func TestConflictRetriesAreBounded(t *testing.T) {
	f := newFixture(t, "100")
	wallets := &conflictingWallets{WalletRepository: f.store}
	cfg := Config{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond, CommitTimeout: time.Second}
	l := New(wallets, f.store, f.store, cfg, nil, util.NewNopLogger())

	_, err := l.Commit(context.Background(), CommitRequest{Type: domain.TransactionTypeTransfer, SenderWalletID: &f.a.ID,
		ReceiverWalletID: &f.b.ID, Amount: decimal.NewFromInt(1), Currency: "USD", ActorID: 1})

	assert.ErrorIs(t, err, util.ErrConcurrencyConflict)
	assert.Equal(t, 3, wallets.calls)
	assert.True(t, decimal.NewFromInt(100).Equal(f.balance(t, f.a.ID)))
}

func TestCommitSurvivesCallerCancellation(t *testing.T) {
	f := newFixture(t, "100")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entry, err := f.ledger.Commit(ctx, CommitRequest{Type: domain.TransactionTypeTransfer, SenderWalletID: &f.a.ID,
		ReceiverWalletID: &f.b.ID, Amount: decimal.NewFromInt(5), Currency: "USD", ActorID: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, entry.Status)
}

func TestSettlePendingEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "100")

	pending := domain.NewTransaction(&f.a.ID, &f.b.ID, decimal.NewFromInt(30), "USD", domain.TransactionTypePayment, nil)
	pending.ActorID = 2
	require.NoError(t, f.store.CreateTransaction(ctx, f.store, pending))

	entry, err := f.ledger.Commit(ctx, CommitRequest{Type: domain.TransactionTypePayment, SenderWalletID: &f.a.ID,
		ReceiverWalletID: &f.b.ID, Amount: decimal.NewFromInt(30), Currency: "USD", ActorID: 1, PendingEntryID: &pending.ID})
	require.NoError(t, err)
	assert.Equal(t, pending.ID, entry.ID)

	stored, err := f.store.GetTransactionByID(ctx, f.store, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, stored.Status)
	assert.True(t, decimal.NewFromInt(70).Equal(f.balance(t, f.a.ID)))

	_, err = f.ledger.Commit(ctx, CommitRequest{Type: domain.TransactionTypePayment, SenderWalletID: &f.a.ID,
		ReceiverWalletID: &f.b.ID, Amount: decimal.NewFromInt(30), Currency: "USD", ActorID: 1, PendingEntryID: &pending.ID})
	assert.ErrorIs(t, err, util.ErrInvalidStateTransition)
	assert.True(t, decimal.NewFromInt(70).Equal(f.balance(t, f.a.ID)))
}

func TestFailPendingEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "100")

	pending := domain.NewTransaction(&f.a.ID, &f.b.ID, decimal.NewFromInt(30), "USD", domain.TransactionTypePayment, nil)
	pending.ActorID = 2
	require.NoError(t, f.store.CreateTransaction(ctx, f.store, pending))

	failed, err := f.ledger.FailPending(ctx, pending.ID, "declined by user 1")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusFailed, failed.Status)
	assert.Equal(t, int64(2), failed.ActorID)

	stored, err := f.store.GetTransactionByID(ctx, f.store, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusFailed, stored.Status)
	require.NotNil(t, stored.FailureReason)
	assert.Equal(t, "declined by user 1", *stored.FailureReason)
	assert.True(t, decimal.NewFromInt(100).Equal(f.balance(t, f.a.ID)))

	_, err = f.ledger.FailPending(ctx, pending.ID, "again")
	assert.ErrorIs(t, err, util.ErrInvalidStateTransition)

	_, err = f.ledger.Commit(ctx, CommitRequest{Type: domain.TransactionTypePayment, SenderWalletID: &f.a.ID,
		ReceiverWalletID: &f.b.ID, Amount: decimal.NewFromInt(30), Currency: "USD", ActorID: 1, PendingEntryID: &pending.ID})
	assert.ErrorIs(t, err, util.ErrInvalidStateTransition)
	assert.True(t, decimal.NewFromInt(100).Equal(f.balance(t, f.a.ID)))
}

func TestFailPendingUnknownEntry(t *testing.T) {
	f := newFixture(t, "100")
	_, err := f.ledger.FailPending(context.Background(), 4040, "gone")
	assert.ErrorIs(t, err, util.ErrNotFound)
}
