package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/continuum/run"
)

// Recover returns middleware that recovers from panics in the handler chain.
// Panics are converted to errors and logged with a stack trace.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, r *run.Run, next Handler) (retErr error) {
		defer func() {
			if rec := recover(); rec != nil {
				stack := string(debug.Stack())
				logger.Error("dispatch handler panicked",
					slog.String("run_id", r.ID.String()),
					slog.String("session_id", r.SessionID.String()),
					slog.Any("panic", rec),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic in dispatch for run %s: %v", r.ID, rec)
			}
		}()
		return next(ctx)
	}
}
