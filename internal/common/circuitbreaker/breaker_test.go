package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(t *testing.T, maxFailures int) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := New("pbs", Settings{MaxFailures: maxFailures, ResetTimeout: time.Second}, zaptest.NewLogger(t))
	b.now = clock.Now
	return b, clock
}

var errUpstream = errors.New("upstream 503")

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Execute(ctx, func() error { return errUpstream }), errUpstream)
	}
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Available())

	called := false
	err := b.Execute(ctx, func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(t, 2)
	ctx := context.Background()

	_ = b.Execute(ctx, func() error { return errUpstream })
	require.NoError(t, b.Execute(ctx, func() error { return nil }))
	_ = b.Execute(ctx, func() error { return errUpstream })

	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b, clock := newTestBreaker(t, 1)
	ctx := context.Background()

	_ = b.Execute(ctx, func() error { return errUpstream })
	require.Equal(t, StateOpen, b.State())

	clock.Advance(2 * time.Second)
	assert.Equal(t, StateHalfOpen, b.State())
	assert.True(t, b.Available())

	require.NoError(t, b.Execute(ctx, func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	b, clock := newTestBreaker(t, 1)
	ctx := context.Background()

	_ = b.Execute(ctx, func() error { return errUpstream })
	clock.Advance(2 * time.Second)

	_ = b.Execute(ctx, func() error { return errUpstream })
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_CallerCancellationIsNotAFailure(t *testing.T) {
	b, _ := newTestBreaker(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Execute(ctx, func() error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_StateChangeHook(t *testing.T) {
	var transitions []string
	b := New("web", Settings{
		MaxFailures: 1,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	}, nil)

	_ = b.Execute(context.Background(), func() error { return errUpstream })
	assert.Equal(t, []string{"web:closed->open"}, transitions)
}
