// internal/repository/postgres/reference_pg.go
package postgres

import (
	"context"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
)

// ChargeRuleRepository implements repository.ChargeRuleRepository for PostgreSQL.
type ChargeRuleRepository struct{}

// NewChargeRuleRepository creates a new ChargeRuleRepository.
func NewChargeRuleRepository() *ChargeRuleRepository {
	return &ChargeRuleRepository{}
}

var _ repository.ChargeRuleRepository = (*ChargeRuleRepository)(nil)

// CreateChargeRule inserts a rule.
func (r *ChargeRuleRepository) CreateChargeRule(ctx context.Context, q repository.DBExecutor, rule *domain.ChargeRule) error {
	query := `INSERT INTO charge_rules (name, transaction_type, user_role, charge_type, value, bearer, min_charge, max_charge, is_active, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	err := q.GetContext(ctx, &rule.ID, query, rule.Name, rule.TransactionType, rule.UserRole, rule.ChargeType,
		rule.Value, rule.Bearer, rule.MinCharge, rule.MaxCharge, rule.IsActive, rule.CreatedAt)
	if err != nil {
		return mapError(err, "failed to create charge rule")
	}
	return nil
}

// GetActiveRules returns active rules for the pair, lowest ID first.
func (r *ChargeRuleRepository) GetActiveRules(ctx context.Context, q repository.DBExecutor, txType domain.TransactionType, role domain.UserRole) ([]domain.ChargeRule, error) {
	rules := []domain.ChargeRule{}
	query := `SELECT id, name, transaction_type, user_role, charge_type, value, bearer, min_charge, max_charge, is_active, created_at
              FROM charge_rules
              WHERE transaction_type = $1 AND user_role = $2 AND is_active
              ORDER BY id`
	if err := q.SelectContext(ctx, &rules, query, txType, role); err != nil {
		return nil, mapError(err, "failed to load charge rules for %s/%s", txType, role)
	}
	return rules, nil
}

// AgentRepository implements repository.AgentRepository for PostgreSQL.
type AgentRepository struct{}

// NewAgentRepository creates a new AgentRepository.
func NewAgentRepository() *AgentRepository {
	return &AgentRepository{}
}

var _ repository.AgentRepository = (*AgentRepository)(nil)

// CreateAgentProfile inserts an agent profile.
func (r *AgentRepository) CreateAgentProfile(ctx context.Context, q repository.DBExecutor, p *domain.AgentProfile) error {
	query := `INSERT INTO agent_profiles (user_id, agent_code, business_name, commission_rate, tier, commission_wallet_id, is_approved, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := q.ExecContext(ctx, query, p.UserID, p.AgentCode, p.BusinessName, p.CommissionRate, p.Tier,
		p.CommissionWalletID, p.IsApproved, p.CreatedAt)
	return mapError(err, "failed to create agent profile for user %d", p.UserID)
}

// GetAgentProfile retrieves the profile of agent userID.
func (r *AgentRepository) GetAgentProfile(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.AgentProfile, error) {
	var p domain.AgentProfile
	query := `SELECT user_id, agent_code, business_name, commission_rate, tier, commission_wallet_id, is_approved, created_at
              FROM agent_profiles WHERE user_id = $1`
	if err := q.GetContext(ctx, &p, query, userID); err != nil {
		return nil, mapError(err, "failed to get agent profile %d", userID)
	}
	return &p, nil
}

// MerchantRepository implements repository.MerchantRepository for PostgreSQL.
type MerchantRepository struct{}

// NewMerchantRepository creates a new MerchantRepository.
func NewMerchantRepository() *MerchantRepository {
	return &MerchantRepository{}
}

var _ repository.MerchantRepository = (*MerchantRepository)(nil)

// CreateMerchantProfile inserts a merchant profile.
func (r *MerchantRepository) CreateMerchantProfile(ctx context.Context, q repository.DBExecutor, p *domain.MerchantProfile) error {
	query := `INSERT INTO merchant_profiles (user_id, business_name, webhook_url, webhook_secret, created_at)
              VALUES ($1, $2, $3, $4, $5)`
	_, err := q.ExecContext(ctx, query, p.UserID, p.BusinessName, p.WebhookURL, p.WebhookSecret, p.CreatedAt)
	return mapError(err, "failed to create merchant profile for user %d", p.UserID)
}

// GetMerchantProfile retrieves the profile of merchant userID.
func (r *MerchantRepository) GetMerchantProfile(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.MerchantProfile, error) {
	var p domain.MerchantProfile
	query := `SELECT user_id, business_name, webhook_url, webhook_secret, created_at FROM merchant_profiles WHERE user_id = $1`
	if err := q.GetContext(ctx, &p, query, userID); err != nil {
		return nil, mapError(err, "failed to get merchant profile %d", userID)
	}
	return &p, nil
}
