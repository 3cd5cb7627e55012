package steps

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/log"

	"github.com/yourorg/motor-stats/internal/classify"
	msmetrics "github.com/yourorg/motor-stats/internal/metrics"
)

// Overridden in tests, where there is no activity context.
var (
	attemptOf = func(ctx context.Context) int { return int(activity.GetInfo(ctx).Attempt) }
	loggerOf  = func(ctx context.Context) log.Logger { return activity.GetLogger(ctx) }
)

// Guard runs fn as step d. Errors and panics are classified under d.Category
// and returned as runtime errors carrying the retry decision. label tags the
// message, normally the dataset name.
func Guard[T any](ctx context.Context, d Descriptor, label string, fn func(context.Context) (T, error)) (out T, err error) {
	attempt := attemptOf(ctx)
	logger := loggerOf(ctx)
	defer func() {
		if r := recover(); r != nil {
			se := classify.Panic(r, d.Category, attempt, label)
			logger.Error("step panicked", "step", d.Short(), "attempt", attempt, "error", se.Message)
			msmetrics.StepOutcomes.WithLabelValues(d.Short(), outcome(se)).Inc()
			var zero T
			out, err = zero, se.Temporal()
		}
	}()

	out, err = fn(ctx)
	if err != nil {
		se := classify.Classify(fmt.Errorf("%s: %w", d.Short(), err), d.Category, attempt, label)
		logger.Warn("step failed", "step", d.Short(), "attempt", attempt,
			"retryable", se.Retryable, "retryAfter", se.RetryAfter, "error", se.Message)
		msmetrics.StepOutcomes.WithLabelValues(d.Short(), outcome(se)).Inc()
		return out, se.Temporal()
	}
	msmetrics.StepOutcomes.WithLabelValues(d.Short(), "ok").Inc()
	return out, nil
}

func outcome(se *classify.StepError) string {
	if se.Retryable {
		return "retryable"
	}
	return "fatal"
}
