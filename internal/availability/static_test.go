package availability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider_FetchBusy(t *testing.T) {
	p := NewStaticProvider("")
	p.SetBusy("Alice@example.com", span(8, 0, 8, 30), span(10, 0, 11, 0))
	p.SetFailure("bob@example.com", ErrProviderDeniedAccess)

	window := span(9, 0, 18, 0)
	ctx := context.Background()

	alice := p.FetchBusy(ctx, "alice@example.com", window)
	assert.Equal(t, StatusOK, alice.Status)
	require.Len(t, alice.Intervals, 1, "intervals outside the window are not returned")
	assert.True(t, alice.Intervals[0].Start.Equal(at(10, 0)))

	bob := p.FetchBusy(ctx, "bob@example.com", window)
	assert.Equal(t, StatusUnknown, bob.Status)
	assert.ErrorIs(t, bob.Err, ErrProviderDeniedAccess)
	assert.Empty(t, bob.Intervals)

	carol := p.FetchBusy(ctx, "carol@example.com", window)
	assert.Equal(t, StatusOK, carol.Status)
	assert.Empty(t, carol.Intervals)

	assert.Equal(t, "static", p.Name())
	assert.Equal(t, 3, p.Calls())
}

func TestStaticProvider_DelayHonoursContext(t *testing.T) {
	p := NewStaticProvider("slow").SetDelay(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	busy := p.FetchBusy(ctx, "a@example.com", span(9, 0, 18, 0))
	assert.Equal(t, StatusUnknown, busy.Status)
	assert.True(t, errors.Is(busy.Err, ErrDeadlineExceeded))
}

func TestLoadStaticProvider(t *testing.T) {
	input := `
timezone: UTC
participants:
  alice@example.com:
    busy:
      - {start: "2026-10-19T07:00:00", end: "2026-10-19T08:00:00"}
      - {start: "2026-10-19T13:00:00+03:00", end: "2026-10-19T14:00:00+03:00"}
  bob@example.com:
    status: unknown
`
	p, err := LoadStaticProvider(strings.NewReader(input), testZone)
	require.NoError(t, err)
	assert.Equal(t, "file", p.Name())

	window := span(9, 0, 18, 0)
	alice := p.FetchBusy(context.Background(), "alice@example.com", window)
	require.Len(t, alice.Intervals, 2)
	assert.True(t, alice.Intervals[0].Start.Equal(at(10, 0)))
	assert.True(t, alice.Intervals[1].Start.Equal(at(13, 0)))

	bob := p.FetchBusy(context.Background(), "bob@example.com", window)
	assert.Equal(t, StatusUnknown, bob.Status)
	assert.ErrorIs(t, bob.Err, ErrProviderUnavailable)
}

func TestLoadStaticProvider_Errors(t *testing.T) {
	_, err := LoadStaticProvider(strings.NewReader("participants: ["), testZone)
	assert.Error(t, err)

	bad := `
participants:
  alice@example.com:
    busy:
      - {start: "2026-10-19T08:00:00Z", end: "2026-10-19T07:00:00Z"}
`
	_, err = LoadStaticProvider(strings.NewReader(bad), testZone)
	assert.ErrorContains(t, err, "alice@example.com")

	p, err := LoadStaticProvider(strings.NewReader(""), testZone)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, p.FetchBusy(context.Background(), "x", span(9, 0, 18, 0)).Status)
}
