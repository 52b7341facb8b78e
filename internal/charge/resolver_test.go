// internal/charge/resolver_test.go
package charge

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/repository/memory"
	"wallet-ledger/internal/util"
	"wallet-ledger/pkg/cache"
)

// MockChargeRuleRepository is a mock implementation of repository.ChargeRuleRepository.
type MockChargeRuleRepository struct {
	mock.Mock
}

func (m *MockChargeRuleRepository) CreateChargeRule(ctx context.Context, q repository.DBExecutor, rule *domain.ChargeRule) error {
	return m.Called(ctx, q, rule).Error(0)
}

func (m *MockChargeRuleRepository) GetActiveRules(ctx context.Context, q repository.DBExecutor, txType domain.TransactionType, role domain.UserRole) ([]domain.ChargeRule, error) {
	args := m.Called(ctx, q, txType, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChargeRule), args.Error(1)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func percentRule(id int64, value, min string, max *decimal.Decimal) domain.ChargeRule {
	return domain.ChargeRule{
		ID: id, TransactionType: domain.TransactionTypeTransfer, UserRole: domain.RoleCustomer,
		ChargeType: domain.ChargeTypePercentage, Value: dec(value), Bearer: domain.ChargeBearerSender,
		MinCharge: dec(min), MaxCharge: max, IsActive: true,
	}
}

func TestComputeClamp(t *testing.T) {
	rule := percentRule(1, "2", "0.10", decPtr("5.00"))

	tests := []struct {
		name   string
		amount string
		want   string
	}{
		{"floor applied", "1.00", "0.10"},
		{"ceiling applied", "1000", "5.00"},
		{"within range", "100", "2.00"},
		{"single half-up rounding", "10.125", "0.20"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Compute(rule, dec(tt.amount), "USD")
			require.NoError(t, err)
			assert.True(t, dec(tt.want).Equal(out.Amount), "got %s want %s", out.Amount, tt.want)
			assert.Equal(t, domain.ChargeBearerSender, out.Bearer)
		})
	}
}

func TestComputeFixedAndMinorUnit(t *testing.T) {
	fixed := domain.ChargeRule{ID: 2, ChargeType: domain.ChargeTypeFixed, Value: dec("0.50"),
		Bearer: domain.ChargeBearerReceiver, MinCharge: decimal.Zero}
	out, err := Compute(fixed, dec("12345"), "USD")
	require.NoError(t, err)
	assert.True(t, dec("0.50").Equal(out.Amount))
	assert.Equal(t, domain.ChargeBearerReceiver, out.Bearer)

	yen := percentRule(3, "1.5", "0", nil)
	out, err = Compute(yen, dec("1030"), "JPY")
	require.NoError(t, err)
	assert.True(t, dec("15").Equal(out.Amount), "15.45 rounds to 15 yen, got %s", out.Amount)
}

func TestValidateRejectsBadConfiguration(t *testing.T) {
	bad := []domain.ChargeRule{
		percentRule(1, "-1", "0", nil),
		percentRule(2, "1", "-0.01", nil),
		percentRule(3, "1", "5", decPtr("1")),
	}
	for _, rule := range bad {
		_, err := Compute(rule, dec("10"), "USD")
		assert.ErrorIs(t, err, util.ErrInvalidChargeConfiguration, "rule %d", rule.ID)
	}
}

func TestResolveNoRuleIsFree(t *testing.T) {
	repo := new(MockChargeRuleRepository)
	store := memory.NewStore()
	repo.On("GetActiveRules", mock.Anything, mock.Anything, domain.TransactionTypePayment, domain.RoleCustomer).
		Return([]domain.ChargeRule{}, nil)

	r := NewResolver(repo, store, nil, time.Minute, util.NewNopLogger())
	out, err := r.Resolve(context.Background(), domain.TransactionTypePayment, domain.RoleCustomer, dec("50"), "USD")

	require.NoError(t, err)
	assert.True(t, out.Amount.IsZero())
	assert.Equal(t, domain.ChargeBearerSender, out.Bearer)
	assert.Nil(t, out.RuleID)
	repo.AssertExpectations(t)
}

func TestResolveLowestIDWinsAndCaches(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := cache.NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "ledger:")

	repo := new(MockChargeRuleRepository)
	store := memory.NewStore()
	repo.On("GetActiveRules", mock.Anything, mock.Anything, domain.TransactionTypeTransfer, domain.RoleCustomer).
		Return([]domain.ChargeRule{percentRule(4, "1", "0", nil), percentRule(9, "3", "0", nil)}, nil).Once()

	r := NewResolver(repo, store, rc, time.Minute, util.NewNopLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		out, err := r.Resolve(ctx, domain.TransactionTypeTransfer, domain.RoleCustomer, dec("200"), "USD")
		require.NoError(t, err)
		assert.True(t, dec("2.00").Equal(out.Amount))
		require.NotNil(t, out.RuleID)
		assert.Equal(t, int64(4), *out.RuleID)
	}
	repo.AssertExpectations(t)
	assert.True(t, mr.Exists("ledger:charge_rules:TRANSFER:CUSTOMER"))
}
