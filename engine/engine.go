package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/continuum"
	"github.com/xraph/continuum/branch"
	"github.com/xraph/continuum/id"
	"github.com/xraph/continuum/middleware"
	"github.com/xraph/continuum/session"
	"github.com/xraph/continuum/store"
)

const tracerName = "github.com/xraph/continuum/engine"

// ─────────────────────────────────────────────────────────────────────────────
// Executor and drainer contracts
// ─────────────────────────────────────────────────────────────────────────────

// Executor carries a single message through the underlying agent loop.
// Implementations own the model conversation; the engine owns durability
// around it. A returned error marks the run failed and is propagated to
// the caller unchanged.
type Executor interface {
	ExecuteMessage(ctx context.Context, sessionID id.SessionID, message string, attachments []continuum.Attachment, maxTurns int) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, sessionID id.SessionID, message string, attachments []continuum.Attachment, maxTurns int) error

func (f ExecutorFunc) ExecuteMessage(ctx context.Context, sessionID id.SessionID, message string, attachments []continuum.Attachment, maxTurns int) error {
	return f(ctx, sessionID, message, attachments, maxTurns)
}

// QueueDrainer empties a session's pending message queue. The engine awaits
// the drain before it considers a run cycle complete.
type QueueDrainer interface {
	ProcessMessageQueue(ctx context.Context, sessionID id.SessionID) error
}

// ─────────────────────────────────────────────────────────────────────────────
// Configuration
// ─────────────────────────────────────────────────────────────────────────────

// Config holds run defaults applied when StartRun creates a new run.
type Config struct {
	// DefaultMaxTurns bounds the agent loop for runs started without an
	// explicit override.
	DefaultMaxTurns int

	// DefaultTimeout bounds a single dispatch cycle. Zero means no timeout.
	DefaultTimeout time.Duration
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{DefaultMaxTurns: 25}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithConfig overrides the run defaults.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.config = cfg }
}

// WithDefaultMaxTurns sets the turn budget applied to new runs.
func WithDefaultMaxTurns(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.config.DefaultMaxTurns = n
		}
	}
}

// WithMiddleware appends middleware to the dispatch chain. Middleware wraps
// every executor invocation, both fresh dispatches and resumes.
func WithMiddleware(mw ...middleware.Middleware) Option {
	return func(e *Engine) { e.mws = append(e.mws, mw...) }
}

// WithDrainer replaces the default queue drainer.
func WithDrainer(d QueueDrainer) Option {
	return func(e *Engine) {
		if d != nil {
			e.drainer = d
		}
	}
}

// WithTracerProvider sets the tracer provider used for engine spans.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Engine
// ─────────────────────────────────────────────────────────────────────────────

// Engine coordinates durable runs: it starts them, checkpoints them around
// every dispatch, resumes them from their latest checkpoint after a crash,
// and drains messages that queued up while a run held the session.
type Engine struct {
	store    store.Store
	executor Executor
	drainer  QueueDrainer
	branches *branch.Service
	mws      []middleware.Middleware
	dispatch middleware.Middleware
	logger   *slog.Logger
	tracer   trace.Tracer
	config   Config
}

// New creates an Engine backed by the given store and executor.
func New(s store.Store, executor Executor, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, continuum.ErrNoStore
	}
	if executor == nil {
		return nil, errors.New("continuum: engine requires an executor")
	}

	e := &Engine{
		store:    s,
		executor: executor,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
		config:   DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.branches = branch.NewService(s, e.logger)
	if e.drainer == nil {
		e.drainer = session.NewDrainer(s, e.drainExec(), session.WithLogger(e.logger))
	}
	e.dispatch = middleware.Chain(e.mws...)
	return e, nil
}

// drainExec adapts the executor for queued messages, which run outside a
// tracked run and use the engine's default turn budget.
func (e *Engine) drainExec() session.ExecuteFunc {
	return func(ctx context.Context, sessionID id.SessionID, message string, attachments []continuum.Attachment) error {
		return e.executor.ExecuteMessage(ctx, sessionID, message, attachments, e.config.DefaultMaxTurns)
	}
}

// Branches exposes the branch service for callers that need the full
// branching surface.
func (e *Engine) Branches() *branch.Service {
	return e.branches
}
