package engine

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/continuum"
	"github.com/xraph/continuum/checkpoint"
	"github.com/xraph/continuum/id"
	"github.com/xraph/continuum/run"
	"github.com/xraph/continuum/session"
)

// StartResult is the outcome of StartRun. Exactly one of Run and Queued is
// meaningful: a busy session queues the content instead of starting a run.
type StartResult struct {
	Run    *run.Run
	Queued bool
}

// RunStatusResult reports a run's status after a lifecycle operation.
type RunStatusResult struct {
	RunID     id.RunID
	SessionID id.SessionID
	Status    run.Status
}

// StartRun begins a new run for the session with the given content.
//
// The session's active-run index is the concurrency gate: if the session
// already has a non-terminal active run, the content is enqueued and a
// Queued result is returned instead of an error. Otherwise the engine
// captures the session's active branch, creates the run, records the user
// message on the timeline, checkpoints the dispatch payload before invoking
// the executor, and on success checkpoints completion and drains any
// messages that queued up during execution.
func (e *Engine) StartRun(ctx context.Context, sessionID id.SessionID, content continuum.Content) (*StartResult, error) {
	ctx, span := e.tracer.Start(ctx, "continuum.start_run",
		trace.WithAttributes(attribute.String("continuum.session.id", sessionID.String())),
	)
	defer span.End()

	active, err := e.store.ActiveRun(ctx, sessionID)
	if err != nil {
		err = fmt.Errorf("resolve active run: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if active != nil && !active.Status.Terminal() {
		msg := session.NewQueuedMessage(sessionID, content)
		if err := e.store.EnqueueMessage(ctx, msg); err != nil {
			err = fmt.Errorf("enqueue message: %w", err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		span.SetAttributes(attribute.Bool("continuum.queued", true))
		e.logger.Info("session busy, message queued",
			slog.String("session_id", sessionID.String()),
			slog.String("active_run_id", active.ID.String()),
			slog.String("message_id", msg.ID.String()),
		)
		return &StartResult{Queued: true}, nil
	}

	// The branch is captured once, here. Every checkpoint of this run
	// carries it even if the session switches branches mid-run.
	branchID, err := e.branches.ActiveBranchID(ctx, sessionID)
	if err != nil {
		err = fmt.Errorf("resolve active branch: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	r := run.New(sessionID, run.Options{
		MaxTurns: e.config.DefaultMaxTurns,
		Timeout:  e.config.DefaultTimeout,
	})
	if err := e.store.CreateRun(ctx, r); err != nil {
		err = fmt.Errorf("create run: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := e.store.SetActiveRun(ctx, sessionID, r.ID); err != nil {
		err = fmt.Errorf("set active run: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("continuum.run.id", r.ID.String()))

	if err := r.Transition(run.StatusRunning); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	r, err = e.store.UpdateRun(ctx, r)
	if err != nil {
		err = fmt.Errorf("update run: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	item := session.NewItem(sessionID, session.KindUserMessage, content.Text, content.Attachments)
	if err := e.store.AppendItem(ctx, item); err != nil {
		err = fmt.Errorf("append timeline item: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	before := checkpoint.New(r.ID, sessionID, branchID, checkpoint.StageBeforeSend, checkpoint.State{
		RunStatus: run.StatusRunning,
		Dispatch: &checkpoint.Dispatch{
			Message:     content.Text,
			Attachments: content.Attachments,
		},
	})
	if _, err := e.store.AppendCheckpoint(ctx, before); err != nil {
		err = fmt.Errorf("append checkpoint: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	e.logger.Info("run started",
		slog.String("session_id", sessionID.String()),
		slog.String("run_id", r.ID.String()),
		slog.String("branch_id", branchID.String()),
	)

	if err := e.invoke(ctx, r, content.Text, content.Attachments); err != nil {
		span.SetStatus(codes.Error, err.Error())
		e.failRun(ctx, r)
		return nil, err
	}

	r, err = e.finishRun(ctx, r, branchID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &StartResult{Run: r}, nil
}

// CancelRun stops a run from outside. Cancelling an already-terminal run
// fails with continuum.ErrInvalidState.
func (e *Engine) CancelRun(ctx context.Context, sessionID id.SessionID, runID id.RunID) (*RunStatusResult, error) {
	r, err := e.loadRun(ctx, sessionID, runID)
	if err != nil {
		return nil, err
	}

	if err := r.Transition(run.StatusCancelled); err != nil {
		return nil, err
	}
	r, err = e.store.UpdateRun(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("update run: %w", err)
	}
	if err := e.store.ClearActiveRun(ctx, sessionID, runID); err != nil {
		return nil, fmt.Errorf("clear active run: %w", err)
	}

	e.logger.Info("run cancelled",
		slog.String("session_id", sessionID.String()),
		slog.String("run_id", runID.String()),
	)

	return e.statusResult(r), nil
}

// PauseForInput transitions a running run to waiting_input and checkpoints
// the in-flight dispatch payload so a later resume reproduces it verbatim.
func (e *Engine) PauseForInput(ctx context.Context, sessionID id.SessionID, runID id.RunID, dispatch *checkpoint.Dispatch) (*RunStatusResult, error) {
	if dispatch == nil || dispatch.Message == "" {
		return nil, fmt.Errorf("continuum: pause requires the in-flight dispatch payload")
	}

	r, err := e.loadRun(ctx, sessionID, runID)
	if err != nil {
		return nil, err
	}

	if err := r.Transition(run.StatusWaitingInput); err != nil {
		return nil, err
	}
	r, err = e.store.UpdateRun(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("update run: %w", err)
	}

	branchID := id.Nil
	latest, err := e.store.LatestCheckpoint(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("resolve branch from latest checkpoint: %w", err)
	}
	if latest != nil {
		branchID = latest.BranchID
	}

	cp := checkpoint.New(runID, sessionID, branchID, checkpoint.StagePermissionRequest, checkpoint.State{
		RunStatus: run.StatusWaitingInput,
		Dispatch:  dispatch,
	})
	if _, err := e.store.AppendCheckpoint(ctx, cp); err != nil {
		return nil, fmt.Errorf("append checkpoint: %w", err)
	}

	e.logger.Info("run paused for input",
		slog.String("session_id", sessionID.String()),
		slog.String("run_id", runID.String()),
	)

	return e.statusResult(r), nil
}

// invoke runs the executor through the middleware chain.
func (e *Engine) invoke(ctx context.Context, r *run.Run, message string, attachments []continuum.Attachment) error {
	return e.dispatch(ctx, r, func(ctx context.Context) error {
		return e.executor.ExecuteMessage(ctx, r.SessionID, message, attachments, r.Options.MaxTurns)
	})
}

// finishRun completes a run cycle: terminal transition, completion
// checkpoint, queue drain, and release of the active-run index. The queue
// drain is awaited; a cycle is not complete while queued messages wait.
func (e *Engine) finishRun(ctx context.Context, r *run.Run, branchID id.BranchID) (*run.Run, error) {
	if err := r.Transition(run.StatusCompleted); err != nil {
		return nil, err
	}
	r, err := e.store.UpdateRun(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("update run: %w", err)
	}

	after := checkpoint.New(r.ID, r.SessionID, branchID, checkpoint.StageAfterSend, checkpoint.State{
		RunStatus: run.StatusCompleted,
	})
	if _, err := e.store.AppendCheckpoint(ctx, after); err != nil {
		return nil, fmt.Errorf("append checkpoint: %w", err)
	}

	if err := e.store.ClearActiveRun(ctx, r.SessionID, r.ID); err != nil {
		return nil, fmt.Errorf("clear active run: %w", err)
	}

	if err := e.drainer.ProcessMessageQueue(ctx, r.SessionID); err != nil {
		return nil, fmt.Errorf("drain message queue: %w", err)
	}

	e.logger.Info("run completed",
		slog.String("session_id", r.SessionID.String()),
		slog.String("run_id", r.ID.String()),
	)

	return r, nil
}

// failRun marks the run failed and releases the session. The executor's
// error is what the caller sees; bookkeeping failures here are only logged.
func (e *Engine) failRun(ctx context.Context, r *run.Run) {
	if err := r.Transition(run.StatusFailed); err != nil {
		e.logger.Error("mark run failed", slog.String("run_id", r.ID.String()), slog.Any("error", err))
		return
	}
	if _, err := e.store.UpdateRun(ctx, r); err != nil {
		e.logger.Error("persist failed run", slog.String("run_id", r.ID.String()), slog.Any("error", err))
	}
	if err := e.store.ClearActiveRun(ctx, r.SessionID, r.ID); err != nil {
		e.logger.Error("clear active run", slog.String("run_id", r.ID.String()), slog.Any("error", err))
	}
}

// loadRun fetches a run and verifies session ownership. A run belonging to
// a different session is indistinguishable from a missing one.
func (e *Engine) loadRun(ctx context.Context, sessionID id.SessionID, runID id.RunID) (*run.Run, error) {
	r, err := e.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if r.SessionID.String() != sessionID.String() {
		return nil, continuum.ErrRunNotFound
	}
	return r, nil
}

func (e *Engine) statusResult(r *run.Run) *RunStatusResult {
	return &RunStatusResult{RunID: r.ID, SessionID: r.SessionID, Status: r.Status}
}
