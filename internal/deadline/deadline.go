// Package deadline races bounded computations against a timer.
//
// A call that misses its deadline is abandoned, not cancelled: the function
// keeps running in its goroutine and its result is discarded. Callers are
// expected to substitute a deterministic fallback value.
package deadline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/metrics"
	"github.com/rs/zerolog"
)

// DefaultBudget bounds scorer and optimizer calls.
const DefaultBudget = 1500 * time.Millisecond

// Executor carries the logger and metrics used to report abandoned calls.
type Executor struct {
	logger  zerolog.Logger
	metrics *metrics.EngineMetrics
}

// NewExecutor creates an Executor. m may be nil.
func NewExecutor(logger zerolog.Logger, m *metrics.EngineMetrics) *Executor {
	return &Executor{
		logger:  logger.With().Str("component", "deadline").Logger(),
		metrics: m,
	}
}

// Run calls fn and waits at most budget for it to return. On timeout it logs
// a warning and returns an error wrapping ErrDeadlineExceeded. If ctx ends
// first, ctx.Err() is returned. A panic in fn is returned as an error.
// A non-positive budget means DefaultBudget. exec may be nil.
func Run[T any](
	ctx context.Context,
	exec *Executor,
	budget time.Duration,
	tenantID uuid.UUID,
	operation string,
	fn func(context.Context) (T, error),
) (T, error) {
	if budget <= 0 {
		budget = DefaultBudget
	}

	type outcome struct {
		value T
		err   error
	}
	// buffered so an abandoned fn can always finish its send and exit
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%s panicked: %v", operation, r)}
			}
		}()
		v, err := fn(ctx)
		done <- outcome{value: v, err: err}
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	var zero T
	select {
	case out := <-done:
		return out.value, out.err
	case <-timer.C:
		exec.reportTimeout(tenantID, operation, budget)
		return zero, fmt.Errorf("%s after %s: %w", operation, budget, ErrDeadlineExceeded)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (e *Executor) reportTimeout(tenantID uuid.UUID, operation string, budget time.Duration) {
	if e == nil {
		return
	}
	e.logger.Warn().
		Str("tenant_id", tenantID.String()).
		Str("operation", operation).
		Dur("budget", budget).
		Msg("operation exceeded deadline, using fallback")
	e.metrics.IncDeadlineExceeded(operation)
}
