// Package run defines the run record, its status state machine, and the
// run store interface including the session → active-run index.
package run

import (
	"fmt"
	"time"

	"github.com/xraph/continuum"
	"github.com/xraph/continuum/id"
)

// Status represents the lifecycle status of a run.
type Status string

const (
	// StatusPending means the run has been created but not yet dispatched.
	StatusPending Status = "pending"
	// StatusRunning means the executor is currently working the run.
	StatusRunning Status = "running"
	// StatusWaitingInput means the run is paused for a user answer or a
	// permission decision.
	StatusWaitingInput Status = "waiting_input"
	// StatusCompleted means the run finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed means the run failed terminally.
	StatusFailed Status = "failed"
	// StatusCancelled means the run was stopped by an external signal.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final. A terminal run is never
// resurrected, only superseded by a new run.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// transitions enumerates the legal status moves. Statuses only move toward
// a terminal value; there is no path out of completed, failed, or cancelled.
var transitions = map[Status][]Status{
	StatusPending:      {StatusRunning, StatusCancelled, StatusFailed},
	StatusRunning:      {StatusWaitingInput, StatusCompleted, StatusFailed, StatusCancelled},
	StatusWaitingInput: {StatusRunning, StatusCancelled},
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Options are the caller-supplied execution bounds captured at dispatch.
type Options struct {
	// MaxTurns bounds the number of agent turns in one run. Zero means
	// the executor's default.
	MaxTurns int `json:"max_turns,omitempty"`

	// Timeout bounds wall-clock execution of one dispatch cycle. Zero
	// means no deadline.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Transition is one entry in a run's status timeline.
type Transition struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
}

// Run represents one execution attempt of an agent turn sequence for a
// session. Runs are retained forever as an audit record; a finished run is
// superseded by a new one, never reused.
type Run struct {
	continuum.Entity

	ID              id.RunID     `json:"id"`
	SessionID       id.SessionID `json:"session_id"`
	Status          Status       `json:"status"`
	Options         Options      `json:"options"`
	CheckpointCount int          `json:"checkpoint_count"`
	Timeline        []Transition `json:"timeline,omitempty"`
}

// New creates a pending run for the given session.
func New(sessionID id.SessionID, opts Options) *Run {
	r := &Run{
		Entity:    continuum.NewEntity(),
		ID:        id.NewRunID(),
		SessionID: sessionID,
		Status:    StatusPending,
		Options:   opts,
	}
	r.Timeline = append(r.Timeline, Transition{Status: StatusPending, At: r.CreatedAt})
	return r
}

// Transition moves the run to next, validating the move and recording it
// on the timeline. Returns continuum.ErrInvalidState for an illegal move.
func (r *Run) Transition(next Status) error {
	if !r.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s → %s", continuum.ErrInvalidState, r.Status, next)
	}

	now := time.Now().UTC()
	r.Status = next
	r.Timeline = append(r.Timeline, Transition{Status: next, At: now})
	r.UpdatedAt = now
	return nil
}
