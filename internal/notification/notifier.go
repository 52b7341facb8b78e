// internal/notification/notifier.go
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"wallet-ledger/internal/alert"
	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/metrics"
	"wallet-ledger/internal/notification/channels"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
)

// Config bounds delivery attempts.
type Config struct {
	MaxAttempts    int
	BaseBackoff    time.Duration
	MaxBackoff     time.Duration
	Lease          time.Duration // how long an in-flight attempt holds its row
	AttemptTimeout time.Duration
	RetryInterval  time.Duration
	BatchSize      int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    5,
		BaseBackoff:    30 * time.Second,
		MaxBackoff:     30 * time.Minute,
		Lease:          2 * time.Minute,
		AttemptTimeout: 15 * time.Second,
		RetryInterval:  10 * time.Second,
		BatchSize:      50,
	}
}

// Payload is the JSON body delivered on every channel.
type Payload struct {
	Event     string `json:"event"`
	EntryID   int64  `json:"entry_id"`
	Reference string `json:"reference"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Direction string `json:"direction"`
	Amount    string `json:"amount"`
	Charge    string `json:"charge"`
	Currency  string `json:"currency"`
	Message   string `json:"message"`
	Time      string `json:"time"`
}

// Notifier fans a settled entry out to its parties over every channel they
// can be reached on. Channels are attempted independently; one failing
// channel never blocks another, and nothing here affects the entry.
type Notifier struct {
	wallets    repository.WalletRepository
	users      repository.UserRepository
	merchants  repository.MerchantRepository
	dispatches repository.DispatchRepository
	txm        repository.TxManager
	senders    map[domain.Channel]channels.Sender
	alerts     alert.Sink
	cfg        Config
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewNotifier creates a Notifier. Channels without a sender fail every attempt.
func NewNotifier(wallets repository.WalletRepository, users repository.UserRepository, merchants repository.MerchantRepository,
	dispatches repository.DispatchRepository, txm repository.TxManager, senders map[domain.Channel]channels.Sender,
	alerts alert.Sink, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Notifier {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Notifier{
		wallets: wallets, users: users, merchants: merchants, dispatches: dispatches, txm: txm,
		senders: senders, alerts: alerts, cfg: cfg, metrics: m, logger: logger,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Backoff is the delay before retry number attempt: base·2^(attempt-1), capped.
func (n *Notifier) Backoff(attempt int) time.Duration {
	return util.Backoff(n.cfg.BaseBackoff, n.cfg.MaxBackoff, attempt)
}

// Dispatch records one PENDING row per (recipient, channel) for the entry's
// current event and attempts them. Rows that already exist are left to the
// retrier.
func (n *Notifier) Dispatch(ctx context.Context, entry *domain.Transaction) error {
	planned, err := n.plan(ctx, entry)
	if err != nil {
		return fmt.Errorf("notification: plan entry %d: %w", entry.ID, err)
	}
	if len(planned) == 0 {
		return nil
	}

	exec := n.txm.Executor()
	leaseUntil := n.now().Add(n.cfg.Lease)
	created := make([]*domain.NotificationDispatch, 0, len(planned))
	for _, d := range planned {
		d.NextAttemptAt = &leaseUntil
		if err := n.dispatches.CreateDispatch(ctx, exec, d); err != nil {
			if errors.Is(err, util.ErrDuplicateEntry) {
				continue
			}
			n.logger.Error("failed to record dispatch", "entry_id", entry.ID, "channel", d.Channel, "error", err)
			continue
		}
		created = append(created, d)
	}
	n.attemptAll(ctx, created)
	return nil
}

func (n *Notifier) attemptAll(ctx context.Context, ds []*domain.NotificationDispatch) {
	var g errgroup.Group
	for _, d := range ds {
		g.Go(func() error {
			n.attempt(ctx, d)
			return nil
		})
	}
	_ = g.Wait()
}

// attempt delivers a PENDING dispatch once and persists the outcome.
func (n *Notifier) attempt(ctx context.Context, d *domain.NotificationDispatch) {
	var sendErr error
	sender, ok := n.senders[d.Channel]
	if !ok {
		sendErr = fmt.Errorf("no sender for channel %s: %w", d.Channel, util.ErrChannelDeliveryFailed)
	} else {
		actx, cancel := context.WithTimeout(ctx, n.cfg.AttemptTimeout)
		sendErr = sender.Send(actx, d.Target, d.Payload)
		cancel()
	}

	now := n.now()
	var err error
	if sendErr == nil {
		err = d.MarkSent(now)
	} else {
		n.logger.Warn("notification attempt rejected", "entry_id", d.EntryID, "dispatch_id", d.ID,
			"channel", d.Channel, "attempt", d.Attempts+1, "error", sendErr)
		err = d.MarkFailed(now, sendErr.Error(), n.cfg.MaxAttempts, n.Backoff)
	}
	if err != nil {
		n.logger.Error("dispatch state change rejected", "dispatch_id", d.ID, "error", err)
		return
	}

	if err := n.dispatches.UpdateDispatch(ctx, n.txm.Executor(), d, domain.DispatchStatusPending); err != nil {
		// Lease expired and another worker claimed the row; it owns the outcome now.
		n.logger.Warn("failed to persist dispatch outcome", "dispatch_id", d.ID, "status", d.Status, "error", err)
		return
	}
	n.metrics.Dispatch(string(d.Channel), string(d.Status))

	if d.Status == domain.DispatchStatusDead {
		reason := ""
		if d.LastError != nil {
			reason = *d.LastError
		}
		n.alerts.Raise(ctx, alert.Alert{
			Kind:       alert.KindNotificationDead,
			EntryID:    d.EntryID,
			DispatchID: d.ID,
			Channel:    string(d.Channel),
			Attempts:   d.Attempts,
			Reason:     reason,
		})
	}
}

// RetryDue claims due rows and re-attempts them. It returns how many it claimed.
func (n *Notifier) RetryDue(ctx context.Context) (int, error) {
	claimed, err := n.dispatches.ClaimDueDispatches(ctx, n.txm.Executor(), n.now(), n.cfg.Lease, n.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("notification: claim due dispatches: %w", err)
	}
	ds := make([]*domain.NotificationDispatch, len(claimed))
	for i := range claimed {
		ds[i] = &claimed[i]
	}
	n.attemptAll(ctx, ds)
	return len(ds), nil
}

type recipient struct {
	user      *domain.User
	direction string
}

const (
	directionDebit    = "debit"
	directionCredit   = "credit"
	directionRequest  = "request"
	directionDeclined = "declined"
)

// plan builds the dispatch rows for entry without persisting them. A settled
// entry notifies both parties, a payment request notifies the payer, and a
// request that ends FAILED notifies the merchant who raised it.
func (n *Notifier) plan(ctx context.Context, entry *domain.Transaction) ([]*domain.NotificationDispatch, error) {
	exec := n.txm.Executor()

	var parties []recipient
	var merchantID int64
	webhookDirection := directionCredit
	switch {
	case entry.Status == domain.TransactionStatusCompleted:
		if entry.FromWalletID != nil {
			u, err := n.walletOwner(ctx, exec, *entry.FromWalletID)
			if err != nil {
				return nil, err
			}
			parties = append(parties, recipient{user: u, direction: directionDebit})
		}
		if entry.ToWalletID != nil {
			u, err := n.walletOwner(ctx, exec, *entry.ToWalletID)
			if err != nil {
				return nil, err
			}
			parties = append(parties, recipient{user: u, direction: directionCredit})
			if entry.Type == domain.TransactionTypePayment {
				merchantID = u.ID
			}
		}
	case isPaymentRequest(entry) && entry.Status == domain.TransactionStatusPending:
		u, err := n.walletOwner(ctx, exec, *entry.FromWalletID)
		if err != nil {
			return nil, err
		}
		parties = append(parties, recipient{user: u, direction: directionRequest})
	case isPaymentRequest(entry) && entry.Status == domain.TransactionStatusFailed:
		u, err := n.walletOwner(ctx, exec, *entry.ToWalletID)
		if err != nil {
			return nil, err
		}
		// A direct payment that failed was raised by the payer, who already
		// got the rejection synchronously.
		if u.ID != entry.ActorID {
			return nil, nil
		}
		parties = append(parties, recipient{user: u, direction: directionDeclined})
		merchantID = u.ID
		webhookDirection = directionDeclined
	default:
		return nil, nil
	}

	event := domain.EntryEvent(entry.Status)
	var out []*domain.NotificationDispatch
	for _, p := range parties {
		if p.user.Role == domain.RoleSystem {
			continue
		}
		body, err := encode(entry, p.direction)
		if err != nil {
			return nil, err
		}
		uid := p.user.ID
		out = append(out, domain.NewNotificationDispatch(entry.ID, &uid, domain.ChannelInApp, strconv.FormatInt(uid, 10), event, body))
		if p.user.PhoneNumber != nil && *p.user.PhoneNumber != "" {
			out = append(out, domain.NewNotificationDispatch(entry.ID, &uid, domain.ChannelMessage, *p.user.PhoneNumber, event, body))
		}
		if p.user.Email != nil && *p.user.Email != "" {
			out = append(out, domain.NewNotificationDispatch(entry.ID, &uid, domain.ChannelEmail, *p.user.Email, event, body))
		}
	}

	if merchantID != 0 {
		m, err := n.merchants.GetMerchantProfile(ctx, exec, merchantID)
		switch {
		case err == nil && m.WebhookURL != nil && *m.WebhookURL != "":
			body, err := encode(entry, webhookDirection)
			if err != nil {
				return nil, err
			}
			uid := m.UserID
			out = append(out, domain.NewNotificationDispatch(entry.ID, &uid, domain.ChannelWebhook, strconv.FormatInt(uid, 10), event, body))
		case err != nil && !errors.Is(err, util.ErrNotFound):
			return nil, err
		}
	}
	return out, nil
}

// isPaymentRequest reports whether entry is a wallet-to-wallet payment, the
// only kind that can sit PENDING awaiting the payer.
func isPaymentRequest(entry *domain.Transaction) bool {
	return entry.Type == domain.TransactionTypePayment && entry.FromWalletID != nil && entry.ToWalletID != nil
}

func (n *Notifier) walletOwner(ctx context.Context, q repository.DBExecutor, walletID int64) (*domain.User, error) {
	w, err := n.wallets.GetWalletByID(ctx, q, walletID)
	if err != nil {
		return nil, fmt.Errorf("wallet %d: %w", walletID, err)
	}
	u, err := n.users.GetUserByID(ctx, q, w.UserID)
	if err != nil {
		return nil, fmt.Errorf("owner of wallet %d: %w", walletID, err)
	}
	return u, nil
}

func encode(entry *domain.Transaction, direction string) (string, error) {
	p := Payload{
		Event:     domain.EntryEvent(entry.Status),
		EntryID:   entry.ID,
		Reference: entry.Reference.String(),
		Type:      string(entry.Type),
		Status:    string(entry.Status),
		Direction: direction,
		Amount:    entry.Amount.StringFixed(domain.MinorUnit(entry.Currency)),
		Charge:    entry.ChargeAmount.StringFixed(domain.MinorUnit(entry.Currency)),
		Currency:  entry.Currency,
		Time:      entry.TransactionTime.UTC().Format(time.RFC3339),
	}
	p.Message = message(p)
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(data), nil
}

func message(p Payload) string {
	switch p.Direction {
	case directionCredit:
		return fmt.Sprintf("You received %s %s (%s)", p.Amount, p.Currency, p.Type)
	case directionRequest:
		return fmt.Sprintf("Payment of %s %s requested, ref %s", p.Amount, p.Currency, p.Reference)
	case directionDeclined:
		return fmt.Sprintf("Payment request of %s %s was not paid, ref %s", p.Amount, p.Currency, p.Reference)
	default:
		return fmt.Sprintf("You sent %s %s (%s), charge %s", p.Amount, p.Currency, p.Type, p.Charge)
	}
}
