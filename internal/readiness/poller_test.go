package readiness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errProbeDown = errors.New("connection refused")

// TestWaitSucceedsImmediately terminates on the first successful probe.
func TestWaitSucceedsImmediately(t *testing.T) {
	t.Parallel()

	p := Poller{Interval: time.Hour, MaxAttempts: 30}

	attempts := 0
	err := p.Wait(context.Background(), func(context.Context) error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, attempts)
}

// TestWaitSucceedsMidway stops polling the instant the probe first reports ready.
func TestWaitSucceedsMidway(t *testing.T) {
	t.Parallel()

	p := Poller{Interval: time.Millisecond, MaxAttempts: 30}

	attempts := 0
	err := p.Wait(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 4 {
			return errProbeDown
		}

		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 4, attempts)
}

// TestWaitFailsAtAttemptBound runs the probe exactly MaxAttempts times when it never succeeds.
func TestWaitFailsAtAttemptBound(t *testing.T) {
	t.Parallel()

	p := Poller{Interval: time.Millisecond, MaxAttempts: 30}

	attempts := 0
	err := p.Wait(context.Background(), func(context.Context) error {
		attempts++
		return errProbeDown
	})
	require.ErrorIs(t, err, ErrNotReady)
	require.Equal(t, 30, attempts)
}

// TestWaitRejectsNonPositiveBound fails fast instead of reporting a zero-attempt miss.
func TestWaitRejectsNonPositiveBound(t *testing.T) {
	t.Parallel()

	for _, bound := range []int{0, -1} {
		p := Poller{Interval: time.Millisecond, MaxAttempts: bound}

		attempts := 0
		err := p.Wait(context.Background(), func(context.Context) error {
			attempts++
			return nil
		})
		require.ErrorIs(t, err, ErrNotReady)
		require.Zero(t, attempts)
	}
}

// TestWaitHonorsCancellation aborts between attempts when the context is canceled.
func TestWaitHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := Poller{Interval: time.Hour, MaxAttempts: 30}

	done := make(chan error, 1)
	go func() {
		done <- p.Wait(ctx, func(context.Context) error {
			return errProbeDown
		})
	}()

	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not react to cancellation")
	}
}
