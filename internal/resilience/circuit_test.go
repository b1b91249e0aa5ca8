package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errTransient = NewTransientError(errors.New("503"), 503)

func failing(_ context.Context) error { return errTransient }
func passing(_ context.Context) error { return nil }

func newTestBreaker(now *time.Time) *Breaker {
	b := NewBreaker(BreakerConfig{Name: "salesforce", FailureThreshold: 2, Cooldown: time.Minute})
	b.now = func() time.Time { return *now }
	return b
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newTestBreaker(&now)
	ctx := context.Background()

	assert.ErrorIs(t, b.Execute(ctx, failing), errTransient)
	assert.Equal(t, CircuitClosed, b.State())
	assert.ErrorIs(t, b.Execute(ctx, failing), errTransient)
	assert.Equal(t, CircuitOpen, b.State())

	called := false
	err := b.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerTrialCallCloses(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newTestBreaker(&now)
	ctx := context.Background()

	_ = b.Execute(ctx, failing)
	_ = b.Execute(ctx, failing)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, CircuitHalfOpen, b.State())
	assert.NoError(t, b.Execute(ctx, passing))
	assert.Equal(t, CircuitClosed, b.State())
}

func TestBreakerTrialFailureReopens(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newTestBreaker(&now)
	ctx := context.Background()

	_ = b.Execute(ctx, failing)
	_ = b.Execute(ctx, failing)
	now = now.Add(2 * time.Minute)

	assert.Error(t, b.Execute(ctx, failing))
	assert.Equal(t, CircuitOpen, b.State())
	assert.ErrorIs(t, b.Execute(ctx, passing), ErrCircuitOpen)
}

func TestBreakerIgnoresPermanentErrors(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newTestBreaker(&now)
	bad := errors.New("INVALID_FIELD")

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, b.Execute(context.Background(), func(context.Context) error { return bad }), bad)
	}
	assert.Equal(t, CircuitClosed, b.State())
}

func TestCircuitStateString(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(9).String())
}
