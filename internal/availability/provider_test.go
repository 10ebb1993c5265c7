package availability

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Lookup(t *testing.T) {
	google := NewStaticProvider("google")
	graph := NewStaticProvider("graph")
	special := NewStaticProvider("special")

	r := NewRegistry()
	r.RegisterDomain("@Outlook.com", graph)
	r.RegisterParticipant("VIP@outlook.com", special)

	_, ok := r.Lookup("alice@example.com")
	assert.False(t, ok, "no default registered yet")

	r.SetDefault(google)

	tests := []struct {
		participant string
		want        Provider
	}{
		{"alice@example.com", google},
		{"bob@outlook.com", graph},
		{"BOB@OUTLOOK.COM", graph},
		{" vip@outlook.com ", special},
		{"no-domain", google},
	}
	for _, tt := range tests {
		t.Run(tt.participant, func(t *testing.T) {
			p, ok := r.Lookup(tt.participant)
			require.True(t, ok)
			assert.Same(t, tt.want, p)
		})
	}
}

func TestRetryRateLimited(t *testing.T) {
	ctx := context.Background()

	t.Run("retries until success", func(t *testing.T) {
		calls := 0
		v, err := RetryRateLimited(ctx, 3, func() (string, error) {
			calls++
			if calls < 2 {
				return "", fmt.Errorf("google: %w", ErrRateLimited)
			}
			return "done", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "done", v)
		assert.Equal(t, 2, calls)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		calls := 0
		_, err := RetryRateLimited(ctx, 3, func() (int, error) {
			calls++
			return 0, ErrProviderDeniedAccess
		})
		assert.ErrorIs(t, err, ErrProviderDeniedAccess)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max tries", func(t *testing.T) {
		calls := 0
		_, err := RetryRateLimited(ctx, 2, func() (int, error) {
			calls++
			return 0, ErrRateLimited
		})
		assert.ErrorIs(t, err, ErrRateLimited)
		assert.Equal(t, 2, calls)
	})

	t.Run("stops when context is canceled", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := RetryRateLimited(canceled, 5, func() (int, error) {
			return 0, ErrRateLimited
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestThrottledProvider(t *testing.T) {
	inner := NewStaticProvider("google").SetBusy("a@example.com", span(10, 0, 11, 0))
	throttled := Throttle(inner, 1000, 1)

	busy := throttled.FetchBusy(context.Background(), "a@example.com", span(9, 0, 18, 0))
	assert.Equal(t, StatusOK, busy.Status)
	assert.Len(t, busy.Intervals, 1)
	assert.Equal(t, "google", throttled.Name())
}

func TestThrottledProvider_WaitCanceled(t *testing.T) {
	inner := NewStaticProvider("slow")
	throttled := Throttle(inner, 0.001, 1)
	window := span(9, 0, 18, 0)

	// The first call takes the only token.
	require.Equal(t, StatusOK, throttled.FetchBusy(context.Background(), "a", window).Status)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	busy := throttled.FetchBusy(ctx, "b", window)
	assert.Equal(t, StatusUnknown, busy.Status)
	assert.True(t, errors.Is(busy.Err, ErrDeadlineExceeded))
	assert.Equal(t, 1, inner.Calls())
}

func TestUnconfigured(t *testing.T) {
	p := Unconfigured("graph")
	busy := p.FetchBusy(context.Background(), "bob@outlook.com", span(9, 0, 18, 0))
	assert.Equal(t, "graph", p.Name())
	assert.Equal(t, StatusUnknown, busy.Status)
	assert.ErrorIs(t, busy.Err, ErrProviderUnavailable)
	assert.Contains(t, busy.Err.Error(), "graph")
}

func TestRegistry_Backends(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Backends())

	google := NewStaticProvider("google")
	r.SetDefault(google)
	r.RegisterDomain("outlook.com", Unconfigured("graph"))
	r.RegisterParticipant("vip@example.com", Throttle(google, 10, 1))
	r.RegisterParticipant("boss@outlook.com", Throttle(Unconfigured("graph"), 10, 1))

	assert.Equal(t, []Backend{
		{Name: "google", Configured: true},
		{Name: "graph", Configured: false},
	}, r.Backends())

	assert.Equal(t, r.Backends(), NewEngine(r).Backends())
}
