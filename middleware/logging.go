package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/continuum/run"
)

// Logging returns middleware that logs dispatch start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, r *run.Run, next Handler) error {
		logger.Info("dispatch started",
			slog.String("run_id", r.ID.String()),
			slog.String("session_id", r.SessionID.String()),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("dispatch failed",
				slog.String("run_id", r.ID.String()),
				slog.String("session_id", r.SessionID.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("dispatch completed",
				slog.String("run_id", r.ID.String()),
				slog.String("session_id", r.SessionID.String()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
