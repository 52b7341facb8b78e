// internal/repository/memory/transaction.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
)

func (s *Store) entriesView(q repository.DBExecutor) []domain.Transaction {
	s.mu.RLock()
	merged := make(map[int64]domain.Transaction, len(s.entries))
	for id, e := range s.entries {
		merged[id] = *e
	}
	s.mu.RUnlock()
	if tx, ok := q.(*Tx); ok {
		for id, e := range tx.entries {
			merged[id] = *e
		}
	}
	out := make([]domain.Transaction, 0, len(merged))
	for _, e := range merged {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// checkEntryUnique mirrors the partial unique indexes of the schema.
func checkEntryUnique(st *Store, row *domain.Transaction) error {
	if row.Status != domain.TransactionStatusCompleted {
		return nil
	}
	for _, e := range st.entries {
		if e.ID == row.ID || e.Status != domain.TransactionStatusCompleted {
			continue
		}
		if row.IdempotencyKey != nil && e.IdempotencyKey != nil &&
			e.ActorID == row.ActorID && *e.IdempotencyKey == *row.IdempotencyKey {
			return fmt.Errorf("transactions_actor_key_completed: %w", util.ErrDuplicateEntry)
		}
		if row.Type == domain.TransactionTypeCommission && e.Type == domain.TransactionTypeCommission &&
			row.ParentEntryID != nil && e.ParentEntryID != nil && *row.ParentEntryID == *e.ParentEntryID {
			return fmt.Errorf("transactions_single_commission: %w", util.ErrDuplicateEntry)
		}
	}
	return nil
}

// CreateTransaction adds an entry, enforcing the completed-entry unique keys.
func (s *Store) CreateTransaction(ctx context.Context, q repository.DBExecutor, t *domain.Transaction) error {
	t.ID = s.nextID("transactions")
	row := *t
	err := s.write(q, operation{
		check: func(st *Store) error {
			if !row.Amount.IsPositive() {
				return fmt.Errorf("failed to create transaction: amount must be positive: %w", util.ErrInvalidInput)
			}
			return checkEntryUnique(st, &row)
		},
		apply: func(st *Store) {
			cp := row
			st.entries[row.ID] = &cp
		},
	})
	if err != nil {
		return err
	}
	if tx, ok := q.(*Tx); ok {
		cp := row
		tx.entries[row.ID] = &cp
	}
	return nil
}

// CompletePendingTransaction settles a PENDING entry.
func (s *Store) CompletePendingTransaction(ctx context.Context, q repository.DBExecutor, t *domain.Transaction) error {
	settled := *t
	merge := func(stored domain.Transaction) domain.Transaction {
		stored.Status = settled.Status
		stored.ChargeAmount = settled.ChargeAmount
		stored.ChargeBearer = settled.ChargeBearer
		stored.NetDebit = settled.NetDebit
		stored.NetCredit = settled.NetCredit
		stored.FailureReason = settled.FailureReason
		stored.TransactionTime = settled.TransactionTime
		if settled.IdempotencyKey != nil {
			stored.IdempotencyKey = settled.IdempotencyKey
		}
		if settled.Fingerprint != "" {
			stored.Fingerprint = settled.Fingerprint
		}
		return stored
	}
	err := s.write(q, operation{
		check: func(st *Store) error {
			e, ok := st.entries[settled.ID]
			if !ok {
				return util.ErrNotFound
			}
			if e.Status != domain.TransactionStatusPending {
				return fmt.Errorf("transaction %d is not pending: %w", settled.ID, util.ErrInvalidStateTransition)
			}
			next := merge(*e)
			return checkEntryUnique(st, &next)
		},
		apply: func(st *Store) {
			next := merge(*st.entries[settled.ID])
			st.entries[settled.ID] = &next
		},
	})
	if err != nil {
		return err
	}
	if tx, ok := q.(*Tx); ok {
		stored, err := s.GetTransactionByID(ctx, q, settled.ID)
		if err != nil {
			return err
		}
		next := merge(*stored)
		tx.entries[settled.ID] = &next
	}
	return nil
}

func (s *Store) findEntry(q repository.DBExecutor, match func(e *domain.Transaction) bool) (*domain.Transaction, error) {
	for _, e := range s.entriesView(q) {
		if match(&e) {
			return &e, nil
		}
	}
	return nil, util.ErrNotFound
}

// GetTransactionByID retrieves an entry by its ID.
func (s *Store) GetTransactionByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Transaction, error) {
	return s.findEntry(q, func(e *domain.Transaction) bool { return e.ID == id })
}

// GetCompletedByIdempotencyKey retrieves the COMPLETED entry bound to (actor, key).
func (s *Store) GetCompletedByIdempotencyKey(ctx context.Context, q repository.DBExecutor, actorID int64, key string) (*domain.Transaction, error) {
	return s.findEntry(q, func(e *domain.Transaction) bool {
		return e.ActorID == actorID && e.IdempotencyKey != nil && *e.IdempotencyKey == key &&
			e.Status == domain.TransactionStatusCompleted
	})
}

// GetCommissionByParent retrieves the COMPLETED COMMISSION child of parentID.
func (s *Store) GetCommissionByParent(ctx context.Context, q repository.DBExecutor, parentID int64) (*domain.Transaction, error) {
	return s.findEntry(q, func(e *domain.Transaction) bool {
		return e.Type == domain.TransactionTypeCommission && e.Status == domain.TransactionStatusCompleted &&
			e.ParentEntryID != nil && *e.ParentEntryID == parentID
	})
}

// GetTransactionsByWalletID returns a newest-first page and the total count.
func (s *Store) GetTransactionsByWalletID(ctx context.Context, q repository.DBExecutor, walletID int64, limit, offset int) ([]domain.Transaction, int64, error) {
	var matched []domain.Transaction
	for _, e := range s.entriesView(q) {
		if (e.FromWalletID != nil && *e.FromWalletID == walletID) || (e.ToWalletID != nil && *e.ToWalletID == walletID) {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	total := int64(len(matched))
	page := []domain.Transaction{}
	if offset < len(matched) {
		end := offset + limit
		if end > len(matched) {
			end = len(matched)
		}
		page = append(page, matched[offset:end]...)
	}
	return page, total, nil
}

// SumOutgoing totals COMPLETED debits from the user's wallets in [from, to),
// leaving out commissions and agent cash-ins.
func (s *Store) SumOutgoing(ctx context.Context, q repository.DBExecutor, userID int64, from, to time.Time) (decimal.Decimal, error) {
	owned := make(map[int64]bool)
	for _, w := range s.walletsView(q) {
		if w.UserID == userID {
			owned[w.ID] = true
		}
	}
	total := decimal.Zero
	for _, e := range s.entriesView(q) {
		if e.FromWalletID == nil || !owned[*e.FromWalletID] {
			continue
		}
		if e.Status != domain.TransactionStatusCompleted || e.Type == domain.TransactionTypeCommission {
			continue
		}
		// Cash-in pays out of the agent's float on a customer's behalf.
		if e.Type == domain.TransactionTypeDeposit && e.AgentID != nil {
			continue
		}
		if e.TransactionTime.Before(from) || !e.TransactionTime.Before(to) {
			continue
		}
		total = total.Add(e.Amount)
	}
	return total, nil
}

// ListUnroutedAgentEntries finds settled agent entries that still lack a commission.
func (s *Store) ListUnroutedAgentEntries(ctx context.Context, q repository.DBExecutor, since time.Time, limit int) ([]domain.Transaction, error) {
	entries := s.entriesView(q)
	routed := make(map[int64]bool)
	for _, e := range entries {
		if e.Type == domain.TransactionTypeCommission && e.Status == domain.TransactionStatusCompleted && e.ParentEntryID != nil {
			routed[*e.ParentEntryID] = true
		}
	}
	out := []domain.Transaction{}
	for _, e := range entries {
		if len(out) >= limit {
			break
		}
		if e.AgentID == nil || e.Status != domain.TransactionStatusCompleted || routed[e.ID] {
			continue
		}
		if e.Type != domain.TransactionTypeDeposit && e.Type != domain.TransactionTypeWithdrawal {
			continue
		}
		if e.TransactionTime.Before(since) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
