// Package branch defines session conversation branches, merge records, and
// the branch engine.
//
// A branch is a named fork of a session's conversation history. Branches
// form a tree rooted at an implicit main branch. Run history is attributed
// to a branch by tagging checkpoints with the branch active at dispatch
// time, so branching never duplicates run or checkpoint records.
//
// # Merge Model
//
// Conversational and tool state has no natural line-based diff, so merge
// conflict detection is deliberately coarse: a merge is clean exactly when
// the source branch's recorded parent is the merge target. Any mismatch is
// a single conflict at path "branch_context". The auto strategy reports the
// conflict and changes nothing; the ours/theirs strategies pick a
// deterministic winner and complete the merge. Every attempt, conflicted or
// not, writes a [MergeRecord].
//
// # State Machine
//
// A [Branch] moves through these statuses:
//
//	active → merged
//
// The transition is one-way. A merged branch is permanently read-only and
// can never be reactivated.
package branch
