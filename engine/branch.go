package engine

import (
	"context"

	"github.com/xraph/continuum/branch"
	"github.com/xraph/continuum/id"
)

// CreateSessionBranch forks a new branch off the session's currently active
// branch (or the unscoped main line) and activates it.
func (e *Engine) CreateSessionBranch(ctx context.Context, sessionID id.SessionID, name string) (*branch.Branch, error) {
	return e.branches.Create(ctx, sessionID, name, id.Nil)
}

// SetActiveSessionBranch switches the session's active branch.
func (e *Engine) SetActiveSessionBranch(ctx context.Context, sessionID id.SessionID, branchID id.BranchID) (*branch.Activation, error) {
	return e.branches.Activate(ctx, sessionID, branchID)
}

// ActiveSessionBranchID returns the session's active branch ID, or Nil when
// the session is on the unscoped main line.
func (e *Engine) ActiveSessionBranchID(ctx context.Context, sessionID id.SessionID) (id.BranchID, error) {
	return e.branches.ActiveBranchID(ctx, sessionID)
}

// MergeSessionBranch merges one session branch into another using the given
// strategy.
func (e *Engine) MergeSessionBranch(ctx context.Context, sessionID id.SessionID, sourceID, targetID id.BranchID, strategy branch.Strategy) (*branch.MergeResult, error) {
	return e.branches.Merge(ctx, sessionID, sourceID, targetID, strategy)
}
