// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-ledger/internal/domain"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, 15*time.Second, cfg.ProcessingTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.False(t, cfg.RedisEnabled())
	assert.Equal(t, 5, cfg.Notification.MaxAttempts)
	require.NotNil(t, cfg.Reference)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "DB_PORT")

	t.Setenv("DB_PORT", "5432")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "STORAGE_DRIVER")
}

func TestDefaultReference(t *testing.T) {
	ref, err := LoadReference("")
	require.NoError(t, err)

	require.Contains(t, ref.Tiers, 1)
	assert.True(t, decimal.NewFromInt(500).Equal(ref.Tiers[1].Daily))
	assert.True(t, decimal.NewFromInt(2000).Equal(ref.Tiers[1].Monthly))
	assert.True(t, ref.Tiers[0].Daily.IsZero())

	require.Len(t, ref.ChargeRules, 3)
	transfer := ref.ChargeRules[0]
	assert.Equal(t, domain.TransactionTypeTransfer, transfer.TransactionType)
	assert.True(t, decimal.RequireFromString("0.10").Equal(transfer.MinCharge))
	require.NotNil(t, transfer.MaxCharge)
	assert.True(t, decimal.RequireFromString("5.00").Equal(*transfer.MaxCharge))

	var agent, system *SeedUser
	for i := range ref.Users {
		switch ref.Users[i].User.Role {
		case domain.RoleAgent:
			agent = &ref.Users[i]
		case domain.RoleSystem:
			system = &ref.Users[i]
		}
	}
	require.NotNil(t, agent)
	require.NotNil(t, agent.Agent)
	assert.True(t, decimal.RequireFromString("1.5").Equal(agent.Agent.CommissionRate))
	require.NotNil(t, system)
	assert.Equal(t, domain.WalletKindFee, system.WalletKind)
}

func TestReferenceFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
tiers:
  "1": { daily: "750.00", monthly: "3000.00" }
charge_rules:
  - name: "flat transfer"
    transaction_type: "TRANSFER"
    user_role: "CUSTOMER"
    charge_type: "FIXED"
    value: "0.25"
    bearer: "SENDER"
`), 0o600))

	ref, err := LoadReference(path)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(750).Equal(ref.Tiers[1].Daily))
	assert.True(t, decimal.NewFromInt(5000).Equal(ref.Tiers[2].Daily))
	require.Len(t, ref.ChargeRules, 1)
	assert.Equal(t, domain.ChargeTypeFixed, ref.ChargeRules[0].ChargeType)
	assert.Nil(t, ref.ChargeRules[0].MaxCharge)
}

func TestReferenceRejectsBadAmounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
tiers:
  "1": { daily: "lots", monthly: "3000.00" }
`), 0o600))

	_, err := LoadReference(path)
	assert.ErrorContains(t, err, "tier 1 daily")
}
