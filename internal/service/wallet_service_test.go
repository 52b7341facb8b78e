// internal/service/wallet_service_test.go
package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wallet-ledger/internal/alert"
	"wallet-ledger/internal/charge"
	"wallet-ledger/internal/commission"
	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/idempotency"
	"wallet-ledger/internal/ledger"
	"wallet-ledger/internal/limits"
	"wallet-ledger/internal/repository/memory"
	"wallet-ledger/internal/util"
	"wallet-ledger/internal/worker"
)

// inlineJobs runs post-commit jobs on the caller's goroutine.
type inlineJobs struct {
	ran []string
}

func (j *inlineJobs) Submit(job worker.Job) error {
	j.ran = append(j.ran, job.Name)
	return job.Run(context.Background())
}

type recordingNotifier struct {
	entries []*domain.Transaction
}

func (n *recordingNotifier) Dispatch(_ context.Context, entry *domain.Transaction) error {
	n.entries = append(n.entries, entry)
	return nil
}

// MockCommitter is a mock implementation of Committer.
type MockCommitter struct {
	mock.Mock
}

func (m *MockCommitter) Commit(ctx context.Context, req ledger.CommitRequest) (*domain.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockCommitter) FailPending(ctx context.Context, entryID int64, reason string) (*domain.Transaction, error) {
	args := m.Called(ctx, entryID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

type fixture struct {
	store    *memory.Store
	idem     *idempotency.MemoryStore
	ledger   *ledger.Ledger
	svc      WalletService
	jobs     *inlineJobs
	notifier *recordingNotifier

	alice, bob, agent, merchant     *domain.User
	aliceW, bobW, agentW, merchantW *domain.Wallet
	agentCommission, fee            *domain.Wallet
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	f := &fixture{store: store, idem: idempotency.NewMemoryStore(), jobs: &inlineJobs{}, notifier: &recordingNotifier{}}

	mkUser := func(name string, role domain.UserRole, tier int) *domain.User {
		u := domain.NewUser(name)
		u.Role = role
		u.VerificationLevel = tier
		require.NoError(t, store.CreateUser(ctx, store, u))
		return u
	}
	mkWallet := func(userID int64, kind domain.WalletKind, balance string) *domain.Wallet {
		w := domain.NewWallet(userID, "USD")
		w.Kind = kind
		w.Balance = dec(balance)
		require.NoError(t, store.CreateWallet(ctx, store, w))
		return w
	}

	system := mkUser("system", domain.RoleSystem, 3)
	f.fee = mkWallet(system.ID, domain.WalletKindFee, "100")
	f.alice = mkUser("alice", domain.RoleCustomer, 1)
	f.aliceW = mkWallet(f.alice.ID, domain.WalletKindPrimary, "1000")
	f.bob = mkUser("bob", domain.RoleCustomer, 1)
	f.bobW = mkWallet(f.bob.ID, domain.WalletKindPrimary, "0")
	f.agent = mkUser("agent", domain.RoleAgent, 3)
	f.agentW = mkWallet(f.agent.ID, domain.WalletKindPrimary, "5000")
	f.agentCommission = mkWallet(f.agent.ID, domain.WalletKindCommission, "0")
	require.NoError(t, store.CreateAgentProfile(ctx, store, &domain.AgentProfile{
		UserID: f.agent.ID, AgentCode: "AG-1", CommissionRate: dec("1.5"),
		CommissionWalletID: f.agentCommission.ID, IsApproved: true,
	}))
	f.merchant = mkUser("shop", domain.RoleMerchant, 3)
	f.merchantW = mkWallet(f.merchant.ID, domain.WalletKindPrimary, "0")

	maxCharge := dec("5.00")
	require.NoError(t, store.CreateChargeRule(ctx, store, &domain.ChargeRule{
		Name: "transfer", TransactionType: domain.TransactionTypeTransfer, UserRole: domain.RoleCustomer,
		ChargeType: domain.ChargeTypePercentage, Value: dec("1"), Bearer: domain.ChargeBearerSender,
		MinCharge: dec("0.10"), MaxCharge: &maxCharge, IsActive: true,
	}))

	logger := util.NewNopLogger()
	lcfg := ledger.DefaultConfig()
	lcfg.BaseBackoff, lcfg.MaxBackoff = time.Millisecond, 2*time.Millisecond
	f.ledger = ledger.New(store, store, store, lcfg, nil, logger)

	ccfg := commission.DefaultConfig()
	ccfg.MaxAttempts = 1
	router := commission.NewRouter(store, store, store, store, f.ledger, alert.NewLogSink(logger), ccfg, nil, logger)

	f.svc = f.newService(router, f.ledger)
	return f
}

func (f *fixture) newService(router CommissionRouter, committer Committer) WalletService {
	logger := util.NewNopLogger()
	icfg := idempotency.DefaultConfig()
	icfg.WaitTimeout = 50 * time.Millisecond
	icfg.PollInterval = 5 * time.Millisecond
	return NewWalletService(Dependencies{
		TxManager:    f.store,
		Users:        f.store,
		Wallets:      f.store,
		Transactions: f.store,
		Agents:       f.store,
		Merchants:    f.store,
		Guard:        idempotency.NewGuard(f.idem, icfg, nil, logger),
		Limits:       limits.NewEnforcer(f.store, f.store, domain.DefaultTierLimits()),
		Charges:      charge.NewResolver(f.store, f.store, nil, time.Minute, logger),
		Ledger:       committer,
		Notifier:     f.notifier,
		Commission:   router,
		Jobs:         f.jobs,
		Logger:       logger,
	}, Config{ProcessingTimeout: 5 * time.Second, DefaultTimezone: "UTC"})
}

func (f *fixture) balance(t *testing.T, w *domain.Wallet) decimal.Decimal {
	t.Helper()
	got, err := f.store.GetWalletByID(context.Background(), f.store, w.ID)
	require.NoError(t, err)
	return got.Balance
}

func (f *fixture) customer(u *domain.User) Actor {
	return Actor{ID: u.ID, Role: u.Role, Tier: u.VerificationLevel, Timezone: "UTC"}
}

func (f *fixture) transfer(key, amount string) TransferRequest {
	return TransferRequest{
		Actor: f.customer(f.alice), IdempotencyKey: key,
		FromWalletID: f.aliceW.ID, ToWalletID: f.bobW.ID, Amount: dec(amount), Currency: "USD",
	}
}

func TestTransferAppliesChargeAndNotifies(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Transfer(context.Background(), f.transfer("k1", "100"))
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, res.Status)
	assert.True(t, dec("1.00").Equal(res.ChargeAmount))
	assert.True(t, dec("101").Equal(res.NetDebit))

	assert.True(t, dec("899").Equal(f.balance(t, f.aliceW)))
	assert.True(t, dec("100").Equal(f.balance(t, f.bobW)))
	assert.True(t, dec("101").Equal(f.balance(t, f.fee)))
	require.Len(t, f.notifier.entries, 1)
	assert.Equal(t, res.EntryID, f.notifier.entries[0].ID)
}

func TestTransferIdempotentRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Transfer(ctx, f.transfer("same", "10"))
	require.NoError(t, err)
	second, err := f.svc.Transfer(ctx, f.transfer("same", "10.00"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, dec("10").Equal(f.balance(t, f.bobW)))
	assert.Len(t, f.notifier.entries, 1)
}

func TestTransferConflictingRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Transfer(ctx, f.transfer("k", "10"))
	require.NoError(t, err)
	_, err = f.svc.Transfer(ctx, f.transfer("k", "11"))
	assert.ErrorIs(t, err, util.ErrConflictingIdempotencyKey)
	assert.True(t, dec("10").Equal(f.balance(t, f.bobW)))
}

func TestLimitRejectionIsRecorded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Tier 1 daily cap is 500; 480 gross has already gone out today.
	_, err := f.svc.Transfer(ctx, f.transfer("a", "480"))
	require.NoError(t, err)

	res, err := f.svc.Transfer(ctx, f.transfer("b", "30"))
	require.ErrorIs(t, err, util.ErrLimitExceeded)
	require.NotNil(t, res)
	assert.Equal(t, util.KindLimitExceeded, res.ErrorKind)
	assert.Equal(t, domain.TransactionStatusFailed, res.Status)

	replay, err := f.svc.Transfer(ctx, f.transfer("b", "30"))
	assert.ErrorIs(t, err, util.ErrLimitExceeded)
	assert.Equal(t, res, replay)

	_, err = f.svc.Transfer(ctx, f.transfer("c", "20"))
	assert.NoError(t, err)
}

func TestInsufficientFundsReplaysAfterFunding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := TransferRequest{
		Actor: f.customer(f.bob), IdempotencyKey: "poor",
		FromWalletID: f.bobW.ID, ToWalletID: f.aliceW.ID, Amount: dec("50"), Currency: "USD",
	}

	_, err := f.svc.Transfer(ctx, req)
	require.ErrorIs(t, err, util.ErrInsufficientFunds)

	_, err = f.svc.Deposit(ctx, FundingRequest{
		Actor: f.customer(f.bob), IdempotencyKey: "topup", WalletID: f.bobW.ID, Amount: dec("100"), Currency: "USD",
	})
	require.NoError(t, err)

	_, err = f.svc.Transfer(ctx, req)
	assert.ErrorIs(t, err, util.ErrInsufficientFunds)
	assert.True(t, dec("100").Equal(f.balance(t, f.bobW)))
}

func TestTransferRejectsForeignWallet(t *testing.T) {
	f := newFixture(t)
	req := f.transfer("steal", "10")
	req.Actor = f.customer(f.bob)

	_, err := f.svc.Transfer(context.Background(), req)
	assert.ErrorIs(t, err, util.ErrForbidden)
	assert.True(t, dec("1000").Equal(f.balance(t, f.aliceW)))
}

func TestTransferValidation(t *testing.T) {
	f := newFixture(t)
	req := f.transfer("", "10")
	_, err := f.svc.Transfer(context.Background(), req)
	assert.ErrorIs(t, err, util.ErrInvalidInput)

	req = f.transfer("neg", "-1")
	_, err = f.svc.Transfer(context.Background(), req)
	assert.ErrorIs(t, err, util.ErrInvalidInput)
}

func TestLostGuardStateFallsBackToLedgerKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.transfer("k", "10")
	req.Actor.Tier = 3

	first, err := f.svc.Transfer(ctx, req)
	require.NoError(t, err)

	f.idem = idempotency.NewMemoryStore()
	svc := f.newService(nil, f.ledger)
	second, err := svc.Transfer(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.EntryID, second.EntryID)
	assert.True(t, dec("10").Equal(f.balance(t, f.bobW)))

	req.Amount = dec("12")
	_, err = svc.Transfer(ctx, req)
	assert.ErrorIs(t, err, util.ErrConflictingIdempotencyKey)
}

func TestTransientFailureReleasesKey(t *testing.T) {
	f := newFixture(t)
	committer := new(MockCommitter)
	svc := f.newService(nil, committer)
	entry := domain.NewTransaction(&f.aliceW.ID, &f.bobW.ID, dec("10"), "USD", domain.TransactionTypeTransfer, nil)
	entry.ID = 77
	require.NoError(t, entry.TransitionTo(domain.TransactionStatusCompleted))

	committer.On("Commit", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("ledger: %w", util.ErrConcurrencyConflict)).Once()
	committer.On("Commit", mock.Anything, mock.Anything).Return(entry, nil).Once()

	_, err := svc.Transfer(context.Background(), f.transfer("retry", "10"))
	require.ErrorIs(t, err, util.ErrConcurrencyConflict)

	res, err := svc.Transfer(context.Background(), f.transfer("retry", "10"))
	require.NoError(t, err)
	assert.Equal(t, int64(77), res.EntryID)
	committer.AssertExpectations(t)
}

func TestCashInRoutesCommission(t *testing.T) {
	f := newFixture(t)
	actor := Actor{ID: f.agent.ID, Role: domain.RoleAgent, Tier: 3}

	res, err := f.svc.CashIn(context.Background(), CashInRequest{
		Actor: actor, IdempotencyKey: "ci-1", CustomerWalletID: f.bobW.ID, Amount: dec("100"), Currency: "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeDeposit, res.Type)

	assert.True(t, dec("100").Equal(f.balance(t, f.bobW)))
	assert.True(t, dec("4900").Equal(f.balance(t, f.agentW)))
	assert.True(t, dec("1.50").Equal(f.balance(t, f.agentCommission)))
	assert.True(t, dec("98.50").Equal(f.balance(t, f.fee)))
	assert.Equal(t, []string{"commission", "notify"}, f.jobs.ran)

	_, err = f.svc.CashIn(context.Background(), CashInRequest{
		Actor: f.customer(f.alice), IdempotencyKey: "ci-2", CustomerWalletID: f.bobW.ID, Amount: dec("1"), Currency: "USD",
	})
	assert.ErrorIs(t, err, util.ErrForbidden)
}

func TestCashOutToAgent(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.CashOut(context.Background(), CashOutRequest{
		Actor: f.customer(f.alice), IdempotencyKey: "co-1", FromWalletID: f.aliceW.ID,
		AgentID: f.agent.ID, Amount: dec("200"), Currency: "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeWithdrawal, res.Type)
	assert.True(t, dec("800").Equal(f.balance(t, f.aliceW)))
	assert.True(t, dec("5200").Equal(f.balance(t, f.agentW)))
	assert.True(t, dec("3.00").Equal(f.balance(t, f.agentCommission)))

	_, err = f.svc.CashOut(context.Background(), CashOutRequest{
		Actor: f.customer(f.alice), IdempotencyKey: "co-2", FromWalletID: f.aliceW.ID,
		AgentID: f.bob.ID, Amount: dec("1"), Currency: "USD",
	})
	assert.ErrorIs(t, err, util.ErrAgentNotFound)
}

func TestPaymentRequestLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	merchant := Actor{ID: f.merchant.ID, Role: domain.RoleMerchant, Tier: 3}

	requested, err := f.svc.RequestPayment(ctx, PaymentRequestRequest{
		Actor: merchant, IdempotencyKey: "inv-1", PayerWalletID: f.aliceW.ID, Amount: dec("25"), Currency: "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPending, requested.Status)
	assert.True(t, dec("1000").Equal(f.balance(t, f.aliceW)))

	_, err = f.svc.ApprovePayment(ctx, PaymentDecisionRequest{
		Actor: f.customer(f.bob), IdempotencyKey: "ap-x", EntryID: requested.EntryID,
	})
	assert.ErrorIs(t, err, util.ErrForbidden)

	approved, err := f.svc.ApprovePayment(ctx, PaymentDecisionRequest{
		Actor: f.customer(f.alice), IdempotencyKey: "ap-1", EntryID: requested.EntryID,
	})
	require.NoError(t, err)
	assert.Equal(t, requested.EntryID, approved.EntryID)
	assert.Equal(t, domain.TransactionStatusCompleted, approved.Status)
	assert.True(t, dec("975").Equal(f.balance(t, f.aliceW)))
	assert.True(t, dec("25").Equal(f.balance(t, f.merchantW)))

	_, err = f.svc.DeclinePayment(ctx, PaymentDecisionRequest{
		Actor: f.customer(f.alice), IdempotencyKey: "dc-1", EntryID: requested.EntryID,
	})
	assert.ErrorIs(t, err, util.ErrInvalidStateTransition)
}

func TestDeclinePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	merchant := Actor{ID: f.merchant.ID, Role: domain.RoleMerchant, Tier: 3}

	requested, err := f.svc.RequestPayment(ctx, PaymentRequestRequest{
		Actor: merchant, IdempotencyKey: "inv-2", PayerWalletID: f.aliceW.ID, Amount: dec("40"), Currency: "USD",
	})
	require.NoError(t, err)

	declined, err := f.svc.DeclinePayment(ctx, PaymentDecisionRequest{
		Actor: f.customer(f.alice), IdempotencyKey: "dc-2", EntryID: requested.EntryID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusFailed, declined.Status)

	_, err = f.svc.ApprovePayment(ctx, PaymentDecisionRequest{
		Actor: f.customer(f.alice), IdempotencyKey: "ap-2", EntryID: requested.EntryID,
	})
	assert.ErrorIs(t, err, util.ErrInvalidStateTransition)
	assert.True(t, dec("1000").Equal(f.balance(t, f.aliceW)))
}

func TestDeclineNotifiesMerchant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	merchant := Actor{ID: f.merchant.ID, Role: domain.RoleMerchant, Tier: 3}

	requested, err := f.svc.RequestPayment(ctx, PaymentRequestRequest{
		Actor: merchant, IdempotencyKey: "inv-3", PayerWalletID: f.aliceW.ID, Amount: dec("15"), Currency: "USD",
	})
	require.NoError(t, err)
	_, err = f.svc.DeclinePayment(ctx, PaymentDecisionRequest{
		Actor: f.customer(f.alice), IdempotencyKey: "dc-3", EntryID: requested.EntryID,
	})
	require.NoError(t, err)

	require.Len(t, f.notifier.entries, 2)
	assert.Equal(t, domain.TransactionStatusPending, f.notifier.entries[0].Status)
	declined := f.notifier.entries[1]
	assert.Equal(t, requested.EntryID, declined.ID)
	assert.Equal(t, domain.TransactionStatusFailed, declined.Status)
	assert.Equal(t, f.merchant.ID, declined.ActorID)
	assert.NotContains(t, f.jobs.ran, "commission")
}

func TestApproveOverLimitFailsRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	merchant := Actor{ID: f.merchant.ID, Role: domain.RoleMerchant, Tier: 3}

	// Tier 1 daily cap is 500.
	requested, err := f.svc.RequestPayment(ctx, PaymentRequestRequest{
		Actor: merchant, IdempotencyKey: "inv-big", PayerWalletID: f.aliceW.ID, Amount: dec("600"), Currency: "USD",
	})
	require.NoError(t, err)

	res, err := f.svc.ApprovePayment(ctx, PaymentDecisionRequest{
		Actor: f.customer(f.alice), IdempotencyKey: "ap-big", EntryID: requested.EntryID,
	})
	require.ErrorIs(t, err, util.ErrLimitExceeded)
	require.NotNil(t, res)
	assert.Equal(t, util.KindLimitExceeded, res.ErrorKind)

	stored, err := f.store.GetTransactionByID(ctx, f.store, requested.EntryID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusFailed, stored.Status)
	require.NotNil(t, stored.FailureReason)
	assert.Contains(t, *stored.FailureReason, "limit")
	assert.True(t, dec("1000").Equal(f.balance(t, f.aliceW)))
	assert.True(t, dec("0").Equal(f.balance(t, f.merchantW)))

	require.Len(t, f.notifier.entries, 2)
	assert.Equal(t, domain.TransactionStatusFailed, f.notifier.entries[1].Status)

	_, err = f.svc.ApprovePayment(ctx, PaymentDecisionRequest{
		Actor: f.customer(f.alice), IdempotencyKey: "ap-big-2", EntryID: requested.EntryID,
	})
	assert.ErrorIs(t, err, util.ErrInvalidStateTransition)
}

func TestApproveWithoutFundsFailsRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	merchant := Actor{ID: f.merchant.ID, Role: domain.RoleMerchant, Tier: 3}

	requested, err := f.svc.RequestPayment(ctx, PaymentRequestRequest{
		Actor: merchant, IdempotencyKey: "inv-poor", PayerWalletID: f.bobW.ID, Amount: dec("50"), Currency: "USD",
	})
	require.NoError(t, err)

	_, err = f.svc.ApprovePayment(ctx, PaymentDecisionRequest{
		Actor: f.customer(f.bob), IdempotencyKey: "ap-poor", EntryID: requested.EntryID,
	})
	require.ErrorIs(t, err, util.ErrInsufficientFunds)

	stored, err := f.store.GetTransactionByID(ctx, f.store, requested.EntryID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusFailed, stored.Status)
	require.Len(t, f.notifier.entries, 2)
	assert.Equal(t, domain.TransactionStatusFailed, f.notifier.entries[1].Status)
}

func TestPaymentRequiresMerchantWallet(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Payment(context.Background(), PaymentRequest{
		Actor: f.customer(f.alice), IdempotencyKey: "p-1", FromWalletID: f.aliceW.ID,
		MerchantWalletID: f.bobW.ID, Amount: dec("5"), Currency: "USD",
	})
	assert.ErrorIs(t, err, util.ErrInvalidInput)

	res, err := f.svc.Payment(context.Background(), PaymentRequest{
		Actor: f.customer(f.alice), IdempotencyKey: "p-2", FromWalletID: f.aliceW.ID,
		MerchantWalletID: f.merchantW.ID, Amount: dec("5"), Currency: "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypePayment, res.Type)
}

func TestQuoteCharge(t *testing.T) {
	f := newFixture(t)
	q, err := f.svc.QuoteCharge(context.Background(), QuoteRequest{
		Type: domain.TransactionTypeTransfer, Role: domain.RoleCustomer, Amount: dec("1000"), Currency: "USD",
	})
	require.NoError(t, err)
	assert.True(t, dec("5.00").Equal(q.Charge))
	assert.True(t, dec("1005").Equal(q.NetDebit))
	assert.True(t, dec("1000").Equal(q.NetCredit))
}

func TestCreateUserAndWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, wallet, err := f.svc.CreateUserAndWallet(ctx, "carol", "USD")
	require.NoError(t, err)
	assert.Equal(t, user.ID, wallet.UserID)
	assert.True(t, wallet.Balance.IsZero())

	_, _, err = f.svc.CreateUserAndWallet(ctx, "carol", "USD")
	assert.ErrorIs(t, err, util.ErrDuplicateEntry)
}

func TestHistoryAndBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Transfer(ctx, f.transfer("h1", "10"))
	require.NoError(t, err)

	wallet, err := f.svc.GetBalance(ctx, f.bobW.ID)
	require.NoError(t, err)
	assert.True(t, dec("10").Equal(wallet.Balance))

	entries, total, err := f.svc.GetTransactionHistory(ctx, f.bobW.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)

	_, _, err = f.svc.GetTransactionHistory(ctx, 9999, 10, 0)
	assert.ErrorIs(t, err, util.ErrWalletNotFound)
}
