package run

import (
	"context"

	"github.com/xraph/continuum/id"
)

// Store defines the persistence contract for runs, including the
// session → active-run index. The index is the natural per-session lock:
// a session with a non-nil active run must not accept a second concurrent
// dispatch.
type Store interface {
	// CreateRun persists a new run.
	CreateRun(ctx context.Context, r *Run) error

	// GetRun retrieves a run by ID. Returns continuum.ErrRunNotFound if
	// no such run exists.
	GetRun(ctx context.Context, runID id.RunID) (*Run, error)

	// UpdateRun persists changes to an existing run and returns the
	// post-write snapshot.
	UpdateRun(ctx context.Context, r *Run) (*Run, error)

	// ListRunsBySession returns all runs for a session, oldest first.
	ListRunsBySession(ctx context.Context, sessionID id.SessionID) ([]*Run, error)

	// ActiveRun returns the session's active run, or nil if the session
	// has none. A nil result is not an error.
	ActiveRun(ctx context.Context, sessionID id.SessionID) (*Run, error)

	// SetActiveRun points the session's active-run index at runID.
	SetActiveRun(ctx context.Context, sessionID id.SessionID, runID id.RunID) error

	// ClearActiveRun clears the session's active-run index, but only if it
	// currently points at runID. Clearing an index owned by another run is
	// a silent no-op.
	ClearActiveRun(ctx context.Context, sessionID id.SessionID, runID id.RunID) error
}
