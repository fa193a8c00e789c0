// Package checkpoint defines the append-only run snapshot record and its
// store interface.
//
// A checkpoint captures enough in-flight state to resume a run after an
// interruption: the run status, the exact dispatch payload when one was in
// flight, and where resume content came from. Checkpoints are strictly
// ordered per run by Index; the highest index is the sole resume source.
//
// # Stage Tagging
//
// Every checkpoint carries a [Stage] naming the pipeline point that wrote
// it. The resume orchestrator writes resume and resume_noop; the send path
// writes before_send and after_send; the executor may additionally write
// tool_start and permission_request as side effects of a turn. Each stage
// has an enumerated payload contract, checked by [Checkpoint.Validate].
//
// # Branch Attribution
//
// Checkpoints written while a session branch is active carry that branch's
// ID, captured once at dispatch time. This attributes run history to a
// branch without duplicating run or checkpoint records per branch.
package checkpoint
