// Package readiness implements the bounded fixed-interval retry loop used to
// wait for dependent services (the database container) after startup.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/semenovdl/review-stand/internal/logger"
)

// ErrNotReady reports that the probe never succeeded within the attempt bound.
var ErrNotReady = errors.New("service not ready within attempt bound")

// Probe checks a dependent service once, returning nil when it is ready.
type Probe func(ctx context.Context) error

// Poller repeatedly runs a probe at a fixed interval.
// The interval and attempt count are part of the observable contract:
// the defaults (2s, 30 attempts) give roughly a one-minute budget.
type Poller struct {
	// Interval is the fixed delay between attempts. No backoff is applied.
	Interval time.Duration
	// MaxAttempts bounds the loop; exceeding it is fatal to the workflow.
	MaxAttempts int
}

// Wait polls until the probe first succeeds, the attempt bound is exceeded,
// or the context is canceled. It returns immediately on the first success.
func (p Poller) Wait(ctx context.Context, probe Probe) error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: attempt bound must be positive, got %d", ErrNotReady, p.MaxAttempts)
	}

	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = probe(ctx)
		if lastErr == nil {
			logger.InfoKV(ctx, "Service is ready", "attempt", attempt)
			return nil
		}

		logger.DebugKV(ctx, "Service not ready yet",
			"attempt", attempt, "max_attempts", p.MaxAttempts, "error", lastErr)

		if attempt == p.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Interval):
		}
	}

	return fmt.Errorf("%w after %d attempts: %s", ErrNotReady, p.MaxAttempts, lastErr)
}
