// internal/idempotency/guard_test.go
package idempotency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/util"
)

func testConfig() Config {
	return Config{
		Retention:    time.Hour,
		InFlightTTL:  time.Minute,
		WaitTimeout:  50 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	}
}

func stores(t *testing.T) map[string]Store {
	mr := miniredis.RunT(t)
	return map[string]Store{
		"redis":  NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()})),
		"memory": NewMemoryStore(),
	}
}

func TestGuardLifecycle(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := NewGuard(store, testConfig(), nil, util.NewNopLogger())
			fp := Fingerprint(domain.TransactionTypeTransfer, "1", "2", "10", "USD")

			adm, err := g.Admit(ctx, 7, "key-1", fp)
			require.NoError(t, err)
			assert.True(t, adm.Fresh)

			_, err = g.Admit(ctx, 7, "key-1", fp)
			assert.ErrorIs(t, err, util.ErrDuplicateRequest, "in-flight duplicate after wait")

			result := &domain.TransactionResult{EntryID: 11, Status: domain.TransactionStatusCompleted,
				Amount: decimal.NewFromInt(10), Currency: "USD"}
			require.NoError(t, g.Complete(ctx, 7, "key-1", fp, result))

			adm, err = g.Admit(ctx, 7, "key-1", fp)
			require.NoError(t, err)
			assert.False(t, adm.Fresh)
			require.NotNil(t, adm.Prior)
			assert.Equal(t, int64(11), adm.Prior.EntryID)

			other := Fingerprint(domain.TransactionTypeTransfer, "1", "2", "11", "USD")
			_, err = g.Admit(ctx, 7, "key-1", other)
			assert.ErrorIs(t, err, util.ErrConflictingIdempotencyKey)

			adm, err = g.Admit(ctx, 8, "key-1", other)
			require.NoError(t, err)
			assert.True(t, adm.Fresh, "keys are scoped per actor")
		})
	}
}

func TestGuardReleaseAllowsRetry(t *testing.T) {
	ctx := context.Background()
	g := NewGuard(NewMemoryStore(), testConfig(), nil, util.NewNopLogger())

	adm, err := g.Admit(ctx, 1, "k", "fp")
	require.NoError(t, err)
	require.True(t, adm.Fresh)

	g.Release(ctx, 1, "k")

	adm, err = g.Admit(ctx, 1, "k", "fp")
	require.NoError(t, err)
	assert.True(t, adm.Fresh)
}

func TestGuardWaitsForInFlightFirstRequest(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.WaitTimeout = time.Second
	g := NewGuard(NewMemoryStore(), cfg, nil, util.NewNopLogger())

	adm, err := g.Admit(ctx, 1, "k", "fp")
	require.NoError(t, err)
	require.True(t, adm.Fresh)

	var wg sync.WaitGroup
	wg.Add(1)
	var dup Admission
	var dupErr error
	go func() {
		defer wg.Done()
		dup, dupErr = g.Admit(ctx, 1, "k", "fp")
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, g.Complete(ctx, 1, "k", "fp", &domain.TransactionResult{EntryID: 3}))
	wg.Wait()

	require.NoError(t, dupErr)
	require.NotNil(t, dup.Prior)
	assert.Equal(t, int64(3), dup.Prior.EntryID)
}

func TestRecordsExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	g := NewGuard(store, testConfig(), nil, util.NewNopLogger())
	ctx := context.Background()

	_, err := g.Admit(ctx, 1, "k", "fp")
	require.NoError(t, err)
	require.NoError(t, g.Complete(ctx, 1, "k", "fp", &domain.TransactionResult{EntryID: 1}))

	mr.FastForward(2 * time.Hour)

	adm, err := g.Admit(ctx, 1, "k", "fp")
	require.NoError(t, err)
	assert.True(t, adm.Fresh)
}

func TestFingerprintNormalizesAmounts(t *testing.T) {
	a := Fingerprint(domain.TransactionTypeTransfer, "1", "2", decimal.RequireFromString("10.00").String(), "USD")
	b := Fingerprint(domain.TransactionTypeTransfer, "1", "2", decimal.RequireFromString("10").String(), "USD")
	c := Fingerprint(domain.TransactionTypePayment, "1", "2", "10", "USD")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
