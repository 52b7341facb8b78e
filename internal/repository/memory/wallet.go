// internal/repository/memory/wallet.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
)

// walletsView returns copies of every wallet visible to q, ordered by ID.
func (s *Store) walletsView(q repository.DBExecutor) []domain.Wallet {
	s.mu.RLock()
	merged := make(map[int64]domain.Wallet, len(s.wallets))
	for id, w := range s.wallets {
		merged[id] = *w
	}
	s.mu.RUnlock()
	if tx, ok := q.(*Tx); ok {
		for id, w := range tx.wallets {
			merged[id] = *w
		}
	}
	out := make([]domain.Wallet, 0, len(merged))
	for _, w := range merged {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) findWallet(q repository.DBExecutor, match func(w *domain.Wallet) bool) (*domain.Wallet, error) {
	for _, w := range s.walletsView(q) {
		if match(&w) {
			return &w, nil
		}
	}
	return nil, util.ErrNotFound
}

// CreateWallet adds a wallet, enforcing one wallet per (user, kind, currency)
// and a single fee wallet per currency.
func (s *Store) CreateWallet(ctx context.Context, q repository.DBExecutor, wallet *domain.Wallet) error {
	wallet.ID = s.nextID("wallets")
	row := *wallet
	err := s.write(q, operation{
		check: func(st *Store) error {
			for _, w := range st.wallets {
				sameSlot := w.UserID == row.UserID && w.Kind == row.Kind && w.Currency == row.Currency
				secondFee := row.Kind == domain.WalletKindFee && w.Kind == domain.WalletKindFee && w.Currency == row.Currency
				if sameSlot || secondFee {
					return fmt.Errorf("failed to create wallet: %w", util.ErrDuplicateEntry)
				}
			}
			return nil
		},
		apply: func(st *Store) {
			cp := row
			st.wallets[row.ID] = &cp
		},
	})
	if err != nil {
		return err
	}
	if tx, ok := q.(*Tx); ok {
		cp := row
		tx.wallets[row.ID] = &cp
	}
	return nil
}

// GetWalletByID retrieves a wallet by its ID.
func (s *Store) GetWalletByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Wallet, error) {
	return s.findWallet(q, func(w *domain.Wallet) bool { return w.ID == id })
}

// GetWalletByUserIDAndCurrency retrieves the user's primary wallet in currency.
func (s *Store) GetWalletByUserIDAndCurrency(ctx context.Context, q repository.DBExecutor, userID int64, currency string) (*domain.Wallet, error) {
	return s.findWallet(q, func(w *domain.Wallet) bool {
		return w.UserID == userID && w.Currency == currency && w.Kind == domain.WalletKindPrimary
	})
}

// GetFeeWallet retrieves the system fee wallet for currency.
func (s *Store) GetFeeWallet(ctx context.Context, q repository.DBExecutor, currency string) (*domain.Wallet, error) {
	return s.findWallet(q, func(w *domain.Wallet) bool {
		return w.Kind == domain.WalletKindFee && w.Currency == currency
	})
}

// ApplyMutation sets the balance only if the version still matches.
func (s *Store) ApplyMutation(ctx context.Context, q repository.DBExecutor, m domain.WalletMutation) error {
	now := time.Now().UTC()
	err := s.write(q, operation{
		check: func(st *Store) error {
			w, ok := st.wallets[m.WalletID]
			if !ok {
				return util.ErrNotFound
			}
			if w.Version != m.ExpectedVersion {
				return fmt.Errorf("wallet %d changed since version %d: %w", m.WalletID, m.ExpectedVersion, util.ErrConcurrencyConflict)
			}
			if m.NewBalance.IsNegative() {
				return fmt.Errorf("wallet %d balance would go negative: %w", m.WalletID, util.ErrInsufficientFunds)
			}
			return nil
		},
		apply: func(st *Store) {
			cp := *st.wallets[m.WalletID]
			cp.Balance = m.NewBalance
			cp.Version++
			cp.UpdatedAt = now
			st.wallets[m.WalletID] = &cp
		},
	})
	if err != nil {
		return err
	}
	if tx, ok := q.(*Tx); ok {
		w, err := s.GetWalletByID(ctx, q, m.WalletID)
		if err != nil {
			return err
		}
		w.Balance = m.NewBalance
		w.Version = m.ExpectedVersion + 1
		w.UpdatedAt = now
		tx.wallets[m.WalletID] = w
	}
	return nil
}

// SetWalletActive toggles the soft-disable flag.
func (s *Store) SetWalletActive(ctx context.Context, q repository.DBExecutor, id int64, active bool) error {
	return s.write(q, operation{
		check: func(st *Store) error {
			if _, ok := st.wallets[id]; !ok {
				return util.ErrNotFound
			}
			return nil
		},
		apply: func(st *Store) {
			cp := *st.wallets[id]
			cp.IsActive = active
			cp.UpdatedAt = time.Now().UTC()
			st.wallets[id] = &cp
		},
	})
}
