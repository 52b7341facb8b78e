// internal/domain/notification.go
package domain

import (
	"fmt"
	"time"

	"wallet-ledger/internal/util"
)

// Channel is a notification delivery channel.
type Channel string

const (
	ChannelInApp   Channel = "IN_APP"
	ChannelMessage Channel = "MESSAGE"
	ChannelEmail   Channel = "EMAIL"
	ChannelWebhook Channel = "WEBHOOK"
)

// DispatchStatus is the delivery state of one (entry, channel, target, event).
type DispatchStatus string

const (
	DispatchStatusPending DispatchStatus = "PENDING"
	DispatchStatusSent    DispatchStatus = "SENT"
	DispatchStatusFailed  DispatchStatus = "FAILED"
	DispatchStatusDead    DispatchStatus = "DEAD"
)

var dispatchTransitions = map[DispatchStatus][]DispatchStatus{
	DispatchStatusPending: {DispatchStatusSent, DispatchStatusFailed},
	DispatchStatusFailed:  {DispatchStatusPending, DispatchStatusDead},
}

// CanTransition reports whether from -> to is a legal dispatch transition.
func CanTransition(from, to DispatchStatus) bool {
	for _, next := range dispatchTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NotificationDispatch tracks delivery of one payload over one channel.
type NotificationDispatch struct {
	ID            int64          `db:"id" json:"id"`
	EntryID       int64          `db:"entry_id" json:"entry_id"`
	RecipientID   *int64         `db:"recipient_id" json:"recipient_id,omitempty"`
	Channel       Channel        `db:"channel" json:"channel"`
	Target        string         `db:"target" json:"target"` // user id, phone, email, or URL
	Event         string         `db:"event" json:"event"`   // entry lifecycle event, e.g. ledger.entry.COMPLETED
	Payload       string         `db:"payload" json:"payload"`
	Status        DispatchStatus `db:"status" json:"status"`
	Attempts      int            `db:"attempts" json:"attempts"`
	LastError     *string        `db:"last_error" json:"last_error,omitempty"`
	NextAttemptAt *time.Time     `db:"next_attempt_at" json:"next_attempt_at,omitempty"`
	LastAttemptAt *time.Time     `db:"last_attempt_at" json:"last_attempt_at,omitempty"`
	ClaimedAt     *time.Time     `db:"claimed_at" json:"claimed_at,omitempty"`
	SentAt        *time.Time     `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// EntryEvent names the lifecycle event of an entry in a given status.
func EntryEvent(status TransactionStatus) string {
	return "ledger.entry." + string(status)
}

// NewNotificationDispatch creates a PENDING dispatch. An entry notifies once
// per event, so the same target can hear about a request and its settlement.
func NewNotificationDispatch(entryID int64, recipientID *int64, channel Channel, target, event, payload string) *NotificationDispatch {
	return &NotificationDispatch{
		EntryID:     entryID,
		RecipientID: recipientID,
		Channel:     channel,
		Target:      target,
		Event:       event,
		Payload:     payload,
		Status:      DispatchStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}

// Transition moves the dispatch to next or returns ErrInvalidStateTransition.
func (d *NotificationDispatch) Transition(next DispatchStatus) error {
	if !CanTransition(d.Status, next) {
		return fmt.Errorf("dispatch %d %s -> %s: %w", d.ID, d.Status, next, util.ErrInvalidStateTransition)
	}
	d.Status = next
	return nil
}

// Claim leases the dispatch for another attempt until leaseUntil. A FAILED
// row moves back to PENDING; a PENDING row whose lease ran out is re-leased.
func (d *NotificationDispatch) Claim(now, leaseUntil time.Time) error {
	if d.Status != DispatchStatusPending {
		if err := d.Transition(DispatchStatusPending); err != nil {
			return err
		}
	}
	d.ClaimedAt = &now
	d.NextAttemptAt = &leaseUntil
	return nil
}

// MarkSent records a successful attempt.
func (d *NotificationDispatch) MarkSent(now time.Time) error {
	if err := d.Transition(DispatchStatusSent); err != nil {
		return err
	}
	d.Attempts++
	d.LastAttemptAt = &now
	d.SentAt = &now
	d.NextAttemptAt = nil
	d.LastError = nil
	return nil
}

// MarkFailed records a rejected attempt and schedules the next one.
// When the attempt ceiling is reached the dispatch becomes DEAD instead.
func (d *NotificationDispatch) MarkFailed(now time.Time, reason string, maxAttempts int, backoff func(attempt int) time.Duration) error {
	if err := d.Transition(DispatchStatusFailed); err != nil {
		return err
	}
	d.Attempts++
	d.LastAttemptAt = &now
	d.LastError = &reason
	if d.Attempts >= maxAttempts {
		d.NextAttemptAt = nil
		return d.Transition(DispatchStatusDead)
	}
	next := now.Add(backoff(d.Attempts))
	d.NextAttemptAt = &next
	return nil
}
