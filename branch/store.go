package branch

import (
	"context"

	"github.com/xraph/continuum/id"
)

// Store defines the persistence contract for branches and merge records,
// including the session → active-branch index.
type Store interface {
	// CreateBranch persists a new branch.
	CreateBranch(ctx context.Context, b *Branch) error

	// GetBranch retrieves a branch by ID. Returns
	// continuum.ErrBranchNotFound if no such branch exists.
	GetBranch(ctx context.Context, branchID id.BranchID) (*Branch, error)

	// UpdateBranch persists changes to an existing branch and returns the
	// post-write snapshot.
	UpdateBranch(ctx context.Context, b *Branch) (*Branch, error)

	// ListBranches returns all branches for a session, oldest first.
	ListBranches(ctx context.Context, sessionID id.SessionID) ([]*Branch, error)

	// ActiveBranch returns the session's active branch, or nil when the
	// session is on the unscoped main line. A nil result is not an error.
	ActiveBranch(ctx context.Context, sessionID id.SessionID) (*Branch, error)

	// SetActiveBranch points the session's active-branch index at branchID.
	SetActiveBranch(ctx context.Context, sessionID id.SessionID, branchID id.BranchID) error

	// RecordMerge persists a merge attempt record.
	RecordMerge(ctx context.Context, rec *MergeRecord) error

	// ListMerges returns all merge records for a session, oldest first.
	ListMerges(ctx context.Context, sessionID id.SessionID) ([]*MergeRecord, error)
}
