package middleware

import (
	"context"
	"log/slog"

	"github.com/xraph/continuum/run"
)

// Timeout returns middleware that enforces the run's dispatch deadline.
// If the run has a non-zero Options.Timeout, a context.WithTimeout wraps
// the handler call. When the deadline is exceeded the context is cancelled
// and the handler should return context.DeadlineExceeded.
func Timeout(logger *slog.Logger) Middleware {
	return func(ctx context.Context, r *run.Run, next Handler) error {
		if r.Options.Timeout > 0 {
			logger.Debug("dispatch timeout set",
				slog.String("run_id", r.ID.String()),
				slog.Duration("timeout", r.Options.Timeout),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.Options.Timeout)
			defer cancel()
		}
		return next(ctx)
	}
}
