package checkpoint

import (
	"context"

	"github.com/xraph/continuum/id"
)

// Store defines the persistence contract for checkpoints. Checkpoints are
// append-only: nothing updates or deletes one.
type Store interface {
	// AppendCheckpoint assigns the next per-run index to cp, persists it,
	// increments the owning run's CheckpointCount, and returns the
	// post-write snapshot. Appending an ID that already exists is an
	// idempotent no-op returning the stored copy, without re-bumping the
	// count.
	AppendCheckpoint(ctx context.Context, cp *Checkpoint) (*Checkpoint, error)

	// LatestCheckpoint returns the checkpoint with the highest index for
	// the run, or nil if the run has none. A nil result is not an error:
	// callers treat it as "nothing to resume from".
	LatestCheckpoint(ctx context.Context, runID id.RunID) (*Checkpoint, error)

	// ListCheckpoints returns the run's full history in ascending index
	// order.
	ListCheckpoints(ctx context.Context, runID id.RunID) ([]*Checkpoint, error)
}
