// internal/util/errors_test.go
package util

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorKind(t *testing.T) {
	assert.Equal(t, KindNone, ErrorKind(nil))
	assert.Equal(t, KindInsufficientFunds, ErrorKind(fmt.Errorf("commit: %w", ErrInsufficientFunds)))
	assert.Equal(t, KindNotFound, ErrorKind(ErrWalletNotFound))
	assert.Equal(t, KindInternal, ErrorKind(errors.New("boom")))
}

func TestErrorFromKindRoundTrip(t *testing.T) {
	wrapped := fmt.Errorf("limits: daily cap reached: %w", ErrLimitExceeded)

	replayed := ErrorFromKind(ErrorKind(wrapped), wrapped.Error())

	assert.ErrorIs(t, replayed, ErrLimitExceeded)
	assert.Equal(t, wrapped.Error(), replayed.Error())
	assert.Same(t, ErrInsufficientFunds, ErrorFromKind(KindInsufficientFunds, ""))
	assert.NoError(t, ErrorFromKind(KindNone, "ignored"))
}

func TestIsBusinessRejection(t *testing.T) {
	assert.True(t, IsBusinessRejection(ErrInsufficientFunds))
	assert.True(t, IsBusinessRejection(fmt.Errorf("x: %w", ErrLimitExceeded)))
	assert.False(t, IsBusinessRejection(ErrConcurrencyConflict))
	assert.False(t, IsBusinessRejection(errors.New("connection reset")))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	assert.Equal(t, base, Backoff(base, time.Second, 1))
	assert.Equal(t, 400*time.Millisecond, Backoff(base, time.Second, 3))
	assert.Equal(t, time.Second, Backoff(base, time.Second, 10))

	for i := 0; i < 50; i++ {
		j := Jitter(base)
		assert.GreaterOrEqual(t, j, base/2)
		assert.Less(t, j, base)
	}
}
