// internal/repository/memory/reference.go
package memory

import (
	"context"
	"fmt"
	"sort"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
)

// CreateChargeRule adds a rule.
func (s *Store) CreateChargeRule(ctx context.Context, q repository.DBExecutor, rule *domain.ChargeRule) error {
	rule.ID = s.nextID("charge_rules")
	row := *rule
	return s.write(q, operation{
		check: func(*Store) error { return nil },
		apply: func(st *Store) {
			cp := row
			st.rules[row.ID] = &cp
		},
	})
}

// GetActiveRules returns active rules for the pair, lowest ID first.
func (s *Store) GetActiveRules(ctx context.Context, q repository.DBExecutor, txType domain.TransactionType, role domain.UserRole) ([]domain.ChargeRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rules := []domain.ChargeRule{}
	for _, r := range s.rules {
		if r.IsActive && r.TransactionType == txType && r.UserRole == role {
			rules = append(rules, *r)
		}
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules, nil
}

// CreateAgentProfile adds an agent profile keyed by user.
func (s *Store) CreateAgentProfile(ctx context.Context, q repository.DBExecutor, p *domain.AgentProfile) error {
	row := *p
	return s.write(q, operation{
		check: func(st *Store) error {
			if _, ok := st.agents[row.UserID]; ok {
				return fmt.Errorf("failed to create agent profile for user %d: %w", row.UserID, util.ErrDuplicateEntry)
			}
			return nil
		},
		apply: func(st *Store) {
			cp := row
			st.agents[row.UserID] = &cp
		},
	})
}

// GetAgentProfile retrieves the profile of agent userID.
func (s *Store) GetAgentProfile(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.AgentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.agents[userID]
	if !ok {
		return nil, util.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// CreateMerchantProfile adds a merchant profile keyed by user.
func (s *Store) CreateMerchantProfile(ctx context.Context, q repository.DBExecutor, p *domain.MerchantProfile) error {
	row := *p
	return s.write(q, operation{
		check: func(st *Store) error {
			if _, ok := st.merchants[row.UserID]; ok {
				return fmt.Errorf("failed to create merchant profile for user %d: %w", row.UserID, util.ErrDuplicateEntry)
			}
			return nil
		},
		apply: func(st *Store) {
			cp := row
			st.merchants[row.UserID] = &cp
		},
	})
}

// GetMerchantProfile retrieves the profile of merchant userID.
func (s *Store) GetMerchantProfile(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.MerchantProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.merchants[userID]
	if !ok {
		return nil, util.ErrNotFound
	}
	cp := *p
	return &cp, nil
}
