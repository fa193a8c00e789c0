package branch

import (
	"time"

	"github.com/xraph/continuum"
	"github.com/xraph/continuum/id"
)

// Status represents the lifecycle status of a branch.
type Status string

const (
	// StatusActive means the branch can be extended and activated.
	StatusActive Status = "active"
	// StatusMerged means the branch has been merged into its target and is
	// permanently read-only. The transition is one-way.
	StatusMerged Status = "merged"
)

// Branch is a named, independently-extendable fork of a session's
// conversation history. Branches form a tree rooted at an implicit main
// branch via ParentBranchID; a nil parent means the branch was forked from
// the unscoped main line.
type Branch struct {
	continuum.Entity

	ID             id.BranchID  `json:"id"`
	SessionID      id.SessionID `json:"session_id"`
	Name           string       `json:"name"`
	ParentBranchID id.BranchID  `json:"parent_branch_id,omitempty"`
	Status         Status       `json:"status"`
}

// Strategy selects the winner when a merge detects divergence.
type Strategy string

const (
	// StrategyAuto merges only when the branches have not diverged; a
	// detected conflict is reported, not resolved.
	StrategyAuto Strategy = "auto"
	// StrategyOurs resolves every conflict in favor of the source branch.
	StrategyOurs Strategy = "ours"
	// StrategyTheirs resolves every conflict in favor of the target branch.
	StrategyTheirs Strategy = "theirs"
)

// MergeStatus is the outcome of a merge attempt.
type MergeStatus string

const (
	// MergeStatusMerged means the merge completed and the source branch
	// was closed.
	MergeStatusMerged MergeStatus = "merged"
	// MergeStatusConflict means divergence was detected and left
	// unresolved; neither branch changed.
	MergeStatusConflict MergeStatus = "conflict"
)

// ConflictPathBranchContext is the single conflict path this core reports:
// a coarse "these branches' base context disagree" signal derived from
// ancestry pointers, not from content diffing.
const ConflictPathBranchContext = "branch_context"

// Conflict describes one detected merge conflict. Resolution is empty
// until an explicit strategy picks a winner.
type Conflict struct {
	Path       string   `json:"path"`
	Resolution Strategy `json:"resolution,omitempty"`
}

// MergeRecord is the durable audit record of a merge attempt, written on
// every attempt whether it succeeded or conflicted.
type MergeRecord struct {
	ID             id.MergeID   `json:"id"`
	SessionID      id.SessionID `json:"session_id"`
	SourceBranchID id.BranchID  `json:"source_branch_id"`
	TargetBranchID id.BranchID  `json:"target_branch_id"`
	Status         MergeStatus  `json:"status"`
	Conflicts      []Conflict   `json:"conflicts,omitempty"`
	MergedAt       time.Time    `json:"merged_at"`
}

// MergeResult is what a merge attempt returns to the caller. A conflict
// under the auto strategy is a successful call with Status conflict, not
// an error.
type MergeResult struct {
	Status        MergeStatus `json:"status"`
	ConflictCount int         `json:"conflict_count"`
	Conflicts     []Conflict  `json:"conflicts,omitempty"`
}

// Activation reports the result of switching a session's active branch.
type Activation struct {
	SessionID      id.SessionID `json:"session_id"`
	ActiveBranchID id.BranchID  `json:"active_branch_id"`
}
