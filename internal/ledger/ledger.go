// internal/ledger/ledger.go
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/metrics"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
)

// Config bounds the commit retry loop.
type Config struct {
	MaxAttempts   int
	BaseBackoff   time.Duration
	MaxBackoff    time.Duration
	CommitTimeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   5,
		BaseBackoff:   10 * time.Millisecond,
		MaxBackoff:    200 * time.Millisecond,
		CommitTimeout: 10 * time.Second,
	}
}

// CommitRequest describes one balance movement. A nil side is the outside
// world (external funding or payout).
type CommitRequest struct {
	Type             domain.TransactionType
	SenderWalletID   *int64
	ReceiverWalletID *int64
	Amount           decimal.Decimal
	Currency         string
	Charge           domain.ChargeOutcome
	ActorID          int64
	AgentID          *int64
	ParentEntryID    *int64
	IdempotencyKey   *string
	Fingerprint      string
	Description      *string
	// PendingEntryID settles an existing PENDING entry instead of inserting one.
	PendingEntryID *int64
}

// Ledger is the only component that mutates wallet balances.
type Ledger struct {
	wallets repository.WalletRepository
	entries repository.TransactionRepository
	txm     repository.TxManager
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Ledger.
func New(wallets repository.WalletRepository, entries repository.TransactionRepository, txm repository.TxManager,
	cfg Config, m *metrics.Metrics, logger *slog.Logger) *Ledger {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Ledger{wallets: wallets, entries: entries, txm: txm, cfg: cfg, metrics: m, logger: logger}
}

// Commit atomically applies req. Concurrent modifications are retried from a
// fresh read up to MaxAttempts. Once started, the commit is not cancelled by
// the caller; it is bounded by CommitTimeout instead.
func (l *Ledger) Commit(ctx context.Context, req CommitRequest) (*domain.Transaction, error) {
	if err := normalize(&req); err != nil {
		l.metrics.Commit(string(req.Type), "rejected")
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.cfg.CommitTimeout)
	defer cancel()

	var err error
	for attempt := 1; ; attempt++ {
		var entry *domain.Transaction
		entry, err = l.commitOnce(ctx, req)
		if err == nil {
			l.metrics.Commit(string(entry.Type), "completed")
			return entry, nil
		}
		if !errors.Is(err, util.ErrConcurrencyConflict) || attempt >= l.cfg.MaxAttempts {
			break
		}
		l.metrics.ConflictRetry()
		l.logger.Debug("ledger commit conflict, retrying", "type", req.Type, "attempt", attempt, "error", err)
		if sleepErr := util.Sleep(ctx, util.Jitter(util.Backoff(l.cfg.BaseBackoff, l.cfg.MaxBackoff, attempt))); sleepErr != nil {
			err = fmt.Errorf("ledger: commit timed out after %d attempts: %w", attempt, err)
			break
		}
	}

	l.metrics.Commit(string(req.Type), util.ErrorKind(err))
	l.recordFailure(ctx, req, err)
	return nil, err
}

// normalize validates req before any storage access.
func normalize(req *CommitRequest) error {
	if !req.Type.Valid() {
		return fmt.Errorf("ledger: unknown entry type %q: %w", req.Type, util.ErrInvalidInput)
	}
	if req.SenderWalletID == nil && req.ReceiverWalletID == nil {
		return fmt.Errorf("ledger: entry needs a sender or a receiver: %w", util.ErrInvalidInput)
	}
	if req.SenderWalletID != nil && req.ReceiverWalletID != nil && *req.SenderWalletID == *req.ReceiverWalletID {
		return fmt.Errorf("ledger: wallet %d: %w", *req.SenderWalletID, util.ErrSameWalletTransfer)
	}
	if !req.Amount.IsPositive() {
		return fmt.Errorf("ledger: amount must be positive: %w", util.ErrInvalidInput)
	}
	if !domain.IsRounded(req.Amount, req.Currency) {
		return fmt.Errorf("ledger: amount %s exceeds %s precision: %w", req.Amount, req.Currency, util.ErrInvalidInput)
	}
	if req.Charge.Amount.IsNegative() {
		return fmt.Errorf("ledger: negative charge %s: %w", req.Charge.Amount, util.ErrInvalidChargeConfiguration)
	}
	if req.Charge.Bearer == "" {
		req.Charge.Bearer = domain.ChargeBearerSender
	}
	// The outside world pays nothing: the charge falls on the internal side.
	if req.SenderWalletID == nil {
		req.Charge.Bearer = domain.ChargeBearerReceiver
	}
	if req.ReceiverWalletID == nil {
		req.Charge.Bearer = domain.ChargeBearerSender
	}
	if req.Charge.Bearer == domain.ChargeBearerReceiver && req.Charge.Amount.GreaterThan(req.Amount) {
		return fmt.Errorf("ledger: charge %s exceeds amount %s: %w", req.Charge.Amount, req.Amount, util.ErrInvalidChargeConfiguration)
	}
	return nil
}

// NetAmounts computes what leaves the sender and what reaches the receiver.
func NetAmounts(gross decimal.Decimal, charge domain.ChargeOutcome) (netDebit, netCredit decimal.Decimal) {
	netDebit, netCredit = gross, gross
	if charge.Bearer == domain.ChargeBearerReceiver {
		netCredit = gross.Sub(charge.Amount)
	} else {
		netDebit = gross.Add(charge.Amount)
	}
	return netDebit, netCredit
}

func (l *Ledger) commitOnce(ctx context.Context, req CommitRequest) (*domain.Transaction, error) {
	var committed *domain.Transaction
	err := l.txm.RunInTx(ctx, func(q repository.DBExecutor) error {
		loaded := make(map[int64]*domain.Wallet, 3)

		var sender, receiver *domain.Wallet
		var err error
		if req.SenderWalletID != nil {
			if sender, err = l.loadWallet(ctx, q, *req.SenderWalletID, req.Currency); err != nil {
				return err
			}
			loaded[sender.ID] = sender
		}
		if req.ReceiverWalletID != nil {
			if receiver, err = l.loadWallet(ctx, q, *req.ReceiverWalletID, req.Currency); err != nil {
				return err
			}
			loaded[receiver.ID] = receiver
		}

		netDebit, netCredit := NetAmounts(req.Amount, req.Charge)
		deltas := make(map[int64]decimal.Decimal, 3)
		if sender != nil {
			if sender.Balance.LessThan(netDebit) {
				return fmt.Errorf("ledger: wallet %d has %s, needs %s: %w", sender.ID, sender.Balance, netDebit, util.ErrInsufficientFunds)
			}
			deltas[sender.ID] = deltas[sender.ID].Sub(netDebit)
		}
		if receiver != nil {
			deltas[receiver.ID] = deltas[receiver.ID].Add(netCredit)
		}
		if req.Charge.Amount.IsPositive() {
			fee, err := l.wallets.GetFeeWallet(ctx, q, req.Currency)
			if err != nil {
				return fmt.Errorf("ledger: no fee wallet for %s: %w", req.Currency, wrapNotFound(err))
			}
			if _, ok := loaded[fee.ID]; !ok {
				loaded[fee.ID] = fee
			}
			deltas[fee.ID] = deltas[fee.ID].Add(req.Charge.Amount)
		}

		// Deterministic order keeps lock acquisition consistent across commits.
		ids := make([]int64, 0, len(deltas))
		for id := range deltas {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			w := loaded[id]
			m := domain.WalletMutation{WalletID: id, ExpectedVersion: w.Version, NewBalance: w.Balance.Add(deltas[id])}
			if m.NewBalance.IsNegative() {
				return fmt.Errorf("ledger: wallet %d would go negative: %w", id, util.ErrInsufficientFunds)
			}
			if err := l.wallets.ApplyMutation(ctx, q, m); err != nil {
				return err
			}
		}

		entry, err := l.buildEntry(ctx, q, req, netDebit, netCredit)
		if err != nil {
			return err
		}
		if req.PendingEntryID != nil {
			err = l.entries.CompletePendingTransaction(ctx, q, entry)
		} else {
			err = l.entries.CreateTransaction(ctx, q, entry)
		}
		if err != nil {
			return err
		}
		committed = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (l *Ledger) loadWallet(ctx context.Context, q repository.DBExecutor, id int64, currency string) (*domain.Wallet, error) {
	w, err := l.wallets.GetWalletByID(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("ledger: wallet %d: %w", id, wrapNotFound(err))
	}
	if !w.IsActive {
		return nil, fmt.Errorf("ledger: wallet %d: %w", id, util.ErrWalletDisabled)
	}
	if w.Currency != currency {
		return nil, fmt.Errorf("ledger: wallet %d holds %s, entry is %s: %w", id, w.Currency, currency, util.ErrCurrencyMismatch)
	}
	return w, nil
}

func (l *Ledger) buildEntry(ctx context.Context, q repository.DBExecutor, req CommitRequest, netDebit, netCredit decimal.Decimal) (*domain.Transaction, error) {
	var entry *domain.Transaction
	if req.PendingEntryID != nil {
		pending, err := l.entries.GetTransactionByID(ctx, q, *req.PendingEntryID)
		if err != nil {
			return nil, fmt.Errorf("ledger: pending entry %d: %w", *req.PendingEntryID, err)
		}
		if pending.Type != req.Type {
			return nil, fmt.Errorf("ledger: pending entry %d is %s, not %s: %w", pending.ID, pending.Type, req.Type, util.ErrInvalidInput)
		}
		entry = pending
	} else {
		entry = domain.NewTransaction(req.SenderWalletID, req.ReceiverWalletID, req.Amount, req.Currency, req.Type, req.Description)
		entry.ActorID = req.ActorID
		entry.AgentID = req.AgentID
		entry.ParentEntryID = req.ParentEntryID
	}

	entry.ChargeAmount = req.Charge.Amount
	entry.ChargeBearer = req.Charge.Bearer
	entry.NetDebit = netDebit
	entry.NetCredit = netCredit
	if req.IdempotencyKey != nil {
		entry.IdempotencyKey = req.IdempotencyKey
		entry.Fingerprint = req.Fingerprint
	}
	if err := entry.TransitionTo(domain.TransactionStatusCompleted); err != nil {
		return nil, err
	}
	return entry, nil
}

// recordFailure writes a FAILED entry with no balance effect, or fails the
// PENDING entry being settled. Input validation and lookup failures are not
// recorded: there is no valid entry to write.
func (l *Ledger) recordFailure(ctx context.Context, req CommitRequest, cause error) {
	switch util.ErrorKind(cause) {
	case util.KindInvalidInput, util.KindNotFound, util.KindSameWalletTransfer, util.KindInvalidStateTransition:
		return
	}
	if errors.Is(cause, util.ErrDuplicateEntry) {
		return
	}
	reason := cause.Error()

	err := l.txm.RunInTx(ctx, func(q repository.DBExecutor) error {
		if req.PendingEntryID != nil {
			_, err := l.failPending(ctx, q, *req.PendingEntryID, reason)
			return err
		}

		netDebit, netCredit := NetAmounts(req.Amount, req.Charge)
		entry := domain.NewTransaction(req.SenderWalletID, req.ReceiverWalletID, req.Amount, req.Currency, req.Type, req.Description)
		entry.ActorID = req.ActorID
		entry.AgentID = req.AgentID
		entry.ParentEntryID = req.ParentEntryID
		entry.IdempotencyKey = req.IdempotencyKey
		entry.Fingerprint = req.Fingerprint
		entry.ChargeAmount = req.Charge.Amount
		entry.ChargeBearer = req.Charge.Bearer
		entry.NetDebit = netDebit
		entry.NetCredit = netCredit
		if err := entry.MarkFailed(reason); err != nil {
			return err
		}
		return l.entries.CreateTransaction(ctx, q, entry)
	})
	if err != nil {
		l.logger.Error("failed to record failed ledger entry", "type", req.Type, "cause", reason, "error", err)
	}
}

// FailPending moves a PENDING entry to FAILED with reason and returns it. No
// balance moves. An entry already COMPLETED or FAILED yields
// ErrInvalidStateTransition.
func (l *Ledger) FailPending(ctx context.Context, entryID int64, reason string) (*domain.Transaction, error) {
	var failed *domain.Transaction
	err := l.txm.RunInTx(ctx, func(q repository.DBExecutor) error {
		entry, err := l.failPending(ctx, q, entryID, reason)
		failed = entry
		return err
	})
	if err != nil {
		return nil, err
	}
	l.logger.Info("pending entry failed", "entry_id", failed.ID, "reference", failed.Reference, "reason", reason)
	return failed, nil
}

func (l *Ledger) failPending(ctx context.Context, q repository.DBExecutor, entryID int64, reason string) (*domain.Transaction, error) {
	entry, err := l.entries.GetTransactionByID(ctx, q, entryID)
	if err != nil {
		return nil, fmt.Errorf("ledger: pending entry %d: %w", entryID, err)
	}
	if err := entry.MarkFailed(reason); err != nil {
		return nil, err
	}
	if err := l.entries.CompletePendingTransaction(ctx, q, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func wrapNotFound(err error) error {
	if errors.Is(err, util.ErrNotFound) {
		return util.ErrWalletNotFound
	}
	return err
}
