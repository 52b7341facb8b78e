// internal/charge/resolver.go
package charge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
	"wallet-ledger/pkg/cache"
)

var hundred = decimal.NewFromInt(100)

// Resolver computes the fee for a (transaction type, role, amount) from the
// active charge rules. Rules are read-only reference data and cached briefly.
type Resolver struct {
	rules  repository.ChargeRuleRepository
	txm    repository.TxManager
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewResolver creates a Resolver. A nil cache disables caching.
func NewResolver(rules repository.ChargeRuleRepository, txm repository.TxManager, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Resolver {
	if c == nil {
		c = cache.Nop{}
	}
	return &Resolver{rules: rules, txm: txm, cache: c, ttl: ttl, logger: logger}
}

// Resolve returns the charge for amount. No active rule is a free
// transaction, not an error.
func (r *Resolver) Resolve(ctx context.Context, txType domain.TransactionType, role domain.UserRole, amount decimal.Decimal, currency string) (domain.ChargeOutcome, error) {
	rules, err := r.activeRules(ctx, txType, role)
	if err != nil {
		return domain.ChargeOutcome{}, fmt.Errorf("charge: failed to load rules: %w", err)
	}
	if len(rules) == 0 {
		return domain.ZeroCharge(), nil
	}
	if len(rules) > 1 {
		r.logger.Warn("multiple active charge rules, using lowest id",
			"transaction_type", txType, "role", role, "rule_id", rules[0].ID, "count", len(rules))
	}
	return Compute(rules[0], amount, currency)
}

func (r *Resolver) activeRules(ctx context.Context, txType domain.TransactionType, role domain.UserRole) ([]domain.ChargeRule, error) {
	key := fmt.Sprintf("charge_rules:%s:%s", txType, role)

	var rules []domain.ChargeRule
	err := r.cache.Get(ctx, key, &rules)
	if err == nil {
		return rules, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		r.logger.Warn("charge rule cache read failed", "key", key, "error", err)
	}

	rules, err = r.rules.GetActiveRules(ctx, r.txm.Executor(), txType, role)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, key, rules, r.ttl); err != nil {
		r.logger.Warn("charge rule cache write failed", "key", key, "error", err)
	}
	return rules, nil
}

// Validate rejects rules whose clamp range or value is unusable.
func Validate(rule domain.ChargeRule) error {
	switch {
	case rule.Value.IsNegative():
		return fmt.Errorf("rule %d: negative value %s: %w", rule.ID, rule.Value, util.ErrInvalidChargeConfiguration)
	case rule.MinCharge.IsNegative():
		return fmt.Errorf("rule %d: negative min charge %s: %w", rule.ID, rule.MinCharge, util.ErrInvalidChargeConfiguration)
	case rule.MaxCharge != nil && rule.MaxCharge.LessThan(rule.MinCharge):
		return fmt.Errorf("rule %d: max charge %s below min %s: %w", rule.ID, rule.MaxCharge, rule.MinCharge, util.ErrInvalidChargeConfiguration)
	case rule.ChargeType != domain.ChargeTypePercentage && rule.ChargeType != domain.ChargeTypeFixed:
		return fmt.Errorf("rule %d: unknown charge type %q: %w", rule.ID, rule.ChargeType, util.ErrInvalidChargeConfiguration)
	case rule.Bearer != domain.ChargeBearerSender && rule.Bearer != domain.ChargeBearerReceiver:
		return fmt.Errorf("rule %d: unknown bearer %q: %w", rule.ID, rule.Bearer, util.ErrInvalidChargeConfiguration)
	}
	return nil
}

// Compute applies rule to amount. The raw charge is clamped to
// [min, max] at full precision and rounded once, half-up, to the minor unit.
func Compute(rule domain.ChargeRule, amount decimal.Decimal, currency string) (domain.ChargeOutcome, error) {
	if err := Validate(rule); err != nil {
		return domain.ChargeOutcome{}, err
	}

	var raw decimal.Decimal
	if rule.ChargeType == domain.ChargeTypePercentage {
		raw = amount.Mul(rule.Value).Div(hundred)
	} else {
		raw = rule.Value
	}

	if raw.LessThan(rule.MinCharge) {
		raw = rule.MinCharge
	}
	if rule.MaxCharge != nil && raw.GreaterThan(*rule.MaxCharge) {
		raw = *rule.MaxCharge
	}

	id := rule.ID
	return domain.ChargeOutcome{
		Amount: domain.RoundMoney(raw, currency),
		Bearer: rule.Bearer,
		RuleID: &id,
	}, nil
}
