package session

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/xraph/continuum"
	"github.com/xraph/continuum/id"
)

// ExecuteFunc dispatches one message for a session. The drainer calls it
// once per queued message, in submission order.
type ExecuteFunc func(ctx context.Context, sessionID id.SessionID, message string, attachments []continuum.Attachment) error

// Drainer processes messages that were queued while a session's run was
// busy. Draining is strictly FIFO and synchronous: the caller awaits it
// before the run cycle is considered complete, so queued follow-ups are
// observed in submission order.
type Drainer struct {
	store   Store
	exec    ExecuteFunc
	limiter *rate.Limiter
	logger  *slog.Logger
}

// DrainerOption configures a Drainer.
type DrainerOption func(*Drainer)

// WithRateLimit paces dispatches at messagesPerSecond with the given
// burst. Zero disables pacing.
func WithRateLimit(messagesPerSecond float64, burst int) DrainerOption {
	return func(d *Drainer) {
		if messagesPerSecond > 0 {
			if burst <= 0 {
				burst = 1
			}
			d.limiter = rate.NewLimiter(rate.Limit(messagesPerSecond), burst)
		}
	}
}

// WithLogger sets the structured logger for the drainer.
func WithLogger(logger *slog.Logger) DrainerOption {
	return func(d *Drainer) {
		d.logger = logger
	}
}

// NewDrainer creates a queue drainer that dispatches through exec.
func NewDrainer(store Store, exec ExecuteFunc, opts ...DrainerOption) *Drainer {
	d := &Drainer{
		store:  store,
		exec:   exec,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ProcessMessageQueue drains the session's queue in submission order,
// dispatching each message through the execute function. The first
// dispatch error stops the drain and is returned; already-dispatched
// messages are not re-queued.
func (d *Drainer) ProcessMessageQueue(ctx context.Context, sessionID id.SessionID) error {
	msgs, err := d.store.DrainQueue(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("drain queue: %w", err)
	}
	if len(msgs) == 0 {
		return nil
	}

	d.logger.Info("draining message queue",
		slog.String("session_id", sessionID.String()),
		slog.Int("count", len(msgs)),
	)

	for _, msg := range msgs {
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		if err := d.exec(ctx, sessionID, msg.Text, msg.Attachments); err != nil {
			d.logger.Error("queued message dispatch failed",
				slog.String("session_id", sessionID.String()),
				slog.String("message_id", msg.ID.String()),
				slog.String("error", err.Error()),
			)
			return err
		}
	}

	return nil
}
