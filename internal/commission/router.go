// internal/commission/router.go
package commission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"wallet-ledger/internal/alert"
	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/ledger"
	"wallet-ledger/internal/metrics"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
)

var hundred = decimal.NewFromInt(100)

// Config bounds commission retries and the reconciliation sweep.
type Config struct {
	MaxAttempts   int
	BaseBackoff   time.Duration
	MaxBackoff    time.Duration
	SweepLookback time.Duration
	SweepBatch    int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   5,
		BaseBackoff:   500 * time.Millisecond,
		MaxBackoff:    30 * time.Second,
		SweepLookback: 7 * 24 * time.Hour,
		SweepBatch:    100,
	}
}

// Committer is the slice of the ledger the router needs.
type Committer interface {
	Commit(ctx context.Context, req ledger.CommitRequest) (*domain.Transaction, error)
}

// Router credits agents their commission as a separate COMMISSION entry
// after a cash-in or cash-out settles.
type Router struct {
	agents  repository.AgentRepository
	wallets repository.WalletRepository
	entries repository.TransactionRepository
	txm     repository.TxManager
	ledger  Committer
	alerts  alert.Sink
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger

	// OnSettled is invoked with each committed COMMISSION entry.
	OnSettled func(ctx context.Context, entry *domain.Transaction)
}

// NewRouter creates a Router.
func NewRouter(agents repository.AgentRepository, wallets repository.WalletRepository, entries repository.TransactionRepository,
	txm repository.TxManager, l Committer, alerts alert.Sink, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Router {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Router{agents: agents, wallets: wallets, entries: entries, txm: txm, ledger: l,
		alerts: alerts, cfg: cfg, metrics: m, logger: logger}
}

// Amount is gross × rate / 100, rounded once to the currency's minor unit.
func Amount(gross, ratePercent decimal.Decimal, currency string) decimal.Decimal {
	return domain.RoundMoney(gross.Mul(ratePercent).Div(hundred), currency)
}

// Eligible reports whether entry earns an agent commission.
func Eligible(entry *domain.Transaction) bool {
	if entry.AgentID == nil || entry.Status != domain.TransactionStatusCompleted {
		return false
	}
	return entry.Type == domain.TransactionTypeDeposit || entry.Type == domain.TransactionTypeWithdrawal
}

// Route issues the commission for entry, retrying with backoff. When retries
// are exhausted the failure is escalated; the settled entry is never touched.
func (r *Router) Route(ctx context.Context, entry *domain.Transaction) error {
	if !Eligible(entry) {
		return nil
	}
	exec := r.txm.Executor()

	if _, err := r.entries.GetCommissionByParent(ctx, exec, entry.ID); err == nil {
		return nil
	} else if !errors.Is(err, util.ErrNotFound) {
		return fmt.Errorf("commission: entry %d: %w", entry.ID, err)
	}

	// Read at settlement time so rate changes apply to new entries only.
	profile, err := r.agents.GetAgentProfile(ctx, exec, *entry.AgentID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			err = util.ErrAgentNotFound
		}
		r.escalate(ctx, entry, 0, err)
		return fmt.Errorf("commission: agent %d: %w", *entry.AgentID, err)
	}

	amount := Amount(entry.Amount, profile.CommissionRate, entry.Currency)
	if !amount.IsPositive() {
		r.metrics.Commission("skipped")
		return nil
	}

	fee, err := r.wallets.GetFeeWallet(ctx, exec, entry.Currency)
	if err != nil {
		r.escalate(ctx, entry, 0, err)
		return fmt.Errorf("commission: fee wallet for %s: %w", entry.Currency, err)
	}

	key := fmt.Sprintf("commission:%d", entry.ID)
	desc := fmt.Sprintf("Commission for %s %s", entry.Type, entry.Reference)
	req := ledger.CommitRequest{
		Type:             domain.TransactionTypeCommission,
		SenderWalletID:   &fee.ID,
		ReceiverWalletID: &profile.CommissionWalletID,
		Amount:           amount,
		Currency:         entry.Currency,
		Charge:           domain.ZeroCharge(),
		ActorID:          fee.UserID,
		AgentID:          entry.AgentID,
		ParentEntryID:    &entry.ID,
		IdempotencyKey:   &key,
		Description:      &desc,
	}

	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		committed, err := r.ledger.Commit(ctx, req)
		if err == nil {
			r.metrics.Commission("credited")
			r.logger.Info("commission credited", "entry_id", entry.ID, "commission_entry_id", committed.ID,
				"agent_id", *entry.AgentID, "amount", amount.String())
			if r.OnSettled != nil {
				r.OnSettled(ctx, committed)
			}
			return nil
		}
		if errors.Is(err, util.ErrDuplicateEntry) {
			// Another worker or the sweep already credited it.
			return nil
		}
		lastErr = err
		r.logger.Warn("commission attempt failed", "entry_id", entry.ID, "attempt", attempt, "error", err)
		if attempt < r.cfg.MaxAttempts {
			if err := util.Sleep(ctx, util.Jitter(util.Backoff(r.cfg.BaseBackoff, r.cfg.MaxBackoff, attempt))); err != nil {
				lastErr = err
				break
			}
		}
	}

	r.metrics.Commission("escalated")
	r.escalate(ctx, entry, r.cfg.MaxAttempts, lastErr)
	return fmt.Errorf("commission: entry %d not credited: %w", entry.ID, lastErr)
}

func (r *Router) escalate(ctx context.Context, entry *domain.Transaction, attempts int, cause error) {
	r.alerts.Raise(ctx, alert.Alert{
		Kind:     alert.KindCommissionEscalated,
		EntryID:  entry.ID,
		Attempts: attempts,
		Reason:   cause.Error(),
	})
}

// Sweep routes settled agent entries that have no commission yet, covering
// jobs lost to a full queue or a crash. It returns how many were credited.
func (r *Router) Sweep(ctx context.Context) (int, error) {
	since := time.Now().Add(-r.cfg.SweepLookback)
	pending, err := r.entries.ListUnroutedAgentEntries(ctx, r.txm.Executor(), since, r.cfg.SweepBatch)
	if err != nil {
		return 0, fmt.Errorf("commission: sweep: %w", err)
	}
	routed := 0
	for i := range pending {
		entry := &pending[i]
		if err := r.Route(ctx, entry); err != nil {
			r.logger.Warn("commission sweep failed for entry", "entry_id", entry.ID, "error", err)
			continue
		}
		routed++
	}
	return routed, nil
}
