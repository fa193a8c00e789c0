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

// ResumeRunFromCheckpoint restores an interrupted run from its latest
// checkpoint and re-dispatches it.
//
// The latest checkpoint is the sole resume source. If it preserved an
// in-flight dispatch payload, that payload is replayed verbatim; otherwise
// the most recent user_message on the session timeline is dispatched
// instead. Resuming a terminal run performs no execution and only appends a
// resume_noop audit checkpoint.
//
// Delivery is at-least-once: the resume checkpoint is durably written
// before the executor is invoked, so a crash mid-resume replays the same
// content on the next attempt.
func (e *Engine) ResumeRunFromCheckpoint(ctx context.Context, sessionID id.SessionID, runID id.RunID) (*RunStatusResult, error) {
	ctx, span := e.tracer.Start(ctx, "continuum.resume_run",
		trace.WithAttributes(
			attribute.String("continuum.session.id", sessionID.String()),
			attribute.String("continuum.run.id", runID.String()),
		),
	)
	defer span.End()

	r, err := e.loadRun(ctx, sessionID, runID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	latest, err := e.store.LatestCheckpoint(ctx, runID)
	if err != nil {
		err = fmt.Errorf("load latest checkpoint: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if latest == nil {
		span.SetStatus(codes.Error, continuum.ErrNoCheckpointAvailable.Error())
		return nil, continuum.ErrNoCheckpointAvailable
	}

	// A terminal run is never re-executed. The checkpointed status is
	// authoritative when present; the run record covers checkpoints written
	// before the final transition landed.
	status := latest.State.RunStatus
	if status == "" {
		status = r.Status
	}
	if status.Terminal() || r.Status.Terminal() {
		noop := checkpoint.New(runID, sessionID, latest.BranchID, checkpoint.StageResumeNoop, checkpoint.State{
			RunStatus: r.Status,
		})
		if _, err := e.store.AppendCheckpoint(ctx, noop); err != nil {
			err = fmt.Errorf("append checkpoint: %w", err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		span.SetAttributes(attribute.Bool("continuum.resume.noop", true))
		e.logger.Info("resume skipped, run already terminal",
			slog.String("session_id", sessionID.String()),
			slog.String("run_id", runID.String()),
			slog.String("status", string(r.Status)),
		)
		return e.statusResult(r), nil
	}

	message, attachments, source, err := e.resumeContent(ctx, sessionID, latest)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if r.Status != run.StatusRunning {
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
	}
	if err := e.store.SetActiveRun(ctx, sessionID, runID); err != nil {
		err = fmt.Errorf("set active run: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Written before execution: the durability point of the resume.
	resume := checkpoint.New(runID, sessionID, latest.BranchID, checkpoint.StageResume, checkpoint.State{
		RunStatus:    run.StatusRunning,
		Dispatch:     &checkpoint.Dispatch{Message: message, Attachments: attachments},
		ResumeSource: source,
	})
	if _, err := e.store.AppendCheckpoint(ctx, resume); err != nil {
		err = fmt.Errorf("append checkpoint: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	e.logger.Info("resuming run",
		slog.String("session_id", sessionID.String()),
		slog.String("run_id", runID.String()),
		slog.String("resume_source", string(source)),
		slog.Int("from_index", latest.Index),
	)

	if err := e.invoke(ctx, r, message, attachments); err != nil {
		span.SetStatus(codes.Error, err.Error())
		e.failRun(ctx, r)
		return nil, err
	}

	r, err = e.finishRun(ctx, r, latest.BranchID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return e.statusResult(r), nil
}

// resumeContent resolves what to dispatch on resume. The checkpointed
// dispatch payload wins; the latest user_message timeline item is the
// fallback. No payload and no user message means the run cannot be resumed.
func (e *Engine) resumeContent(ctx context.Context, sessionID id.SessionID, latest *checkpoint.Checkpoint) (string, []continuum.Attachment, checkpoint.ResumeSource, error) {
	if d := latest.State.Dispatch; d != nil && d.Message != "" {
		return d.Message, d.Attachments, checkpoint.ResumeSourceCheckpoint, nil
	}

	item, err := e.store.LatestItem(ctx, sessionID, session.KindUserMessage)
	if err != nil {
		return "", nil, "", fmt.Errorf("load latest user message: %w", err)
	}
	if item == nil {
		return "", nil, "", continuum.ErrNoResumableContent
	}
	// Text only. Attachments are not replayed from the timeline; only a
	// checkpointed dispatch reproduces them.
	return item.Text, nil, checkpoint.ResumeSourceLatestUserMessage, nil
}
