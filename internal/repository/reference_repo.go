// internal/repository/reference_repo.go
package repository

import (
	"context"

	"wallet-ledger/internal/domain"
)

// ChargeRuleRepository reads fee configuration. The engine never mutates rules;
// CreateChargeRule exists for seeding.
type ChargeRuleRepository interface {
	CreateChargeRule(ctx context.Context, q DBExecutor, rule *domain.ChargeRule) error
	// GetActiveRules returns active rules for (txType, role) ordered by ID.
	GetActiveRules(ctx context.Context, q DBExecutor, txType domain.TransactionType, role domain.UserRole) ([]domain.ChargeRule, error)
}

// AgentRepository reads agent profiles.
type AgentRepository interface {
	CreateAgentProfile(ctx context.Context, q DBExecutor, profile *domain.AgentProfile) error
	GetAgentProfile(ctx context.Context, q DBExecutor, userID int64) (*domain.AgentProfile, error)
}

// MerchantRepository reads merchant profiles.
type MerchantRepository interface {
	CreateMerchantProfile(ctx context.Context, q DBExecutor, profile *domain.MerchantProfile) error
	GetMerchantProfile(ctx context.Context, q DBExecutor, userID int64) (*domain.MerchantProfile, error)
}
