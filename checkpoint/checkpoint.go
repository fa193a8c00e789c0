package checkpoint

import (
	"fmt"
	"time"

	"github.com/xraph/continuum"
	"github.com/xraph/continuum/id"
	"github.com/xraph/continuum/run"
)

// Stage identifies the pipeline point at which a checkpoint was written.
// The stage tags the State payload: each stage has a defined payload shape,
// so resume logic can match exhaustively instead of probing optional fields.
type Stage string

const (
	// StageBeforeSend is written by the run starter immediately before the
	// executor is invoked for a fresh dispatch. Carries the full dispatch
	// payload.
	StageBeforeSend Stage = "before_send"

	// StageAfterSend is written after the executor returns successfully.
	// Carries the terminal run status only.
	StageAfterSend Stage = "after_send"

	// StageResume is written by the resume orchestrator before it
	// re-invokes the executor. Carries the resolved dispatch payload and
	// the resume source. Durably written before execution, so a crash
	// mid-resume replays the same content.
	StageResume Stage = "resume"

	// StageResumeNoop is an audit-only record of a resume attempt against
	// a terminal run. Carries the terminal run status; never triggers
	// execution.
	StageResumeNoop Stage = "resume_noop"

	// StageToolStart is written by the executor when a tool invocation
	// begins. Defined here for completeness; this core never writes it.
	StageToolStart Stage = "tool_start"

	// StagePermissionRequest is written when a run pauses for a user
	// decision. Carries the in-flight dispatch payload so that resume
	// reproduces it byte-for-byte.
	StagePermissionRequest Stage = "permission_request"
)

// ResumeSource records where resume content came from.
type ResumeSource string

const (
	// ResumeSourceCheckpoint means the dispatch payload preserved in the
	// latest checkpoint was replayed verbatim.
	ResumeSourceCheckpoint ResumeSource = "checkpoint"

	// ResumeSourceLatestUserMessage means no in-flight payload existed and
	// the most recent user_message timeline item was used instead.
	ResumeSourceLatestUserMessage ResumeSource = "latest_user_message"
)

// Dispatch is the exact in-flight payload of a send: the message text and
// its attachments, reproduced byte-for-byte on resume.
type Dispatch struct {
	Message     string                 `json:"message"`
	Attachments []continuum.Attachment `json:"attachments,omitempty"`
}

// State is the stage-tagged snapshot payload of a checkpoint.
//
// Payload shape per stage:
//
//	before_send         RunStatus + Dispatch
//	after_send          RunStatus
//	resume              RunStatus + Dispatch + ResumeSource
//	resume_noop         RunStatus
//	tool_start          RunStatus (+ Dispatch when mid-send)
//	permission_request  RunStatus + Dispatch
type State struct {
	RunStatus    run.Status   `json:"run_status"`
	Dispatch     *Dispatch    `json:"dispatch,omitempty"`
	ResumeSource ResumeSource `json:"resume_source,omitempty"`
}

// Checkpoint is an immutable, ordered snapshot of in-flight run state.
// Index is strictly increasing per run; the highest index is the sole
// resume source.
type Checkpoint struct {
	ID        id.CheckpointID `json:"id"`
	RunID     id.RunID        `json:"run_id"`
	SessionID id.SessionID    `json:"session_id"`
	// BranchID tags the checkpoint with the branch active at dispatch
	// time. Nil when the run is unscoped (implicit main).
	BranchID  id.BranchID `json:"branch_id,omitempty"`
	Index     int         `json:"index"`
	Stage     Stage       `json:"stage"`
	State     State       `json:"state"`
	CreatedAt time.Time   `json:"created_at"`
}

// New creates a checkpoint for the given run. The store assigns Index on
// append.
func New(runID id.RunID, sessionID id.SessionID, branchID id.BranchID, stage Stage, state State) *Checkpoint {
	return &Checkpoint{
		ID:        id.NewCheckpointID(),
		RunID:     runID,
		SessionID: sessionID,
		BranchID:  branchID,
		Stage:     stage,
		State:     state,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks that the State payload matches the checkpoint's stage
// contract.
func (c *Checkpoint) Validate() error {
	switch c.Stage {
	case StageBeforeSend, StageResume, StagePermissionRequest:
		if c.State.Dispatch == nil || c.State.Dispatch.Message == "" {
			return fmt.Errorf("checkpoint: stage %q requires a dispatch payload", c.Stage)
		}
	case StageAfterSend, StageResumeNoop, StageToolStart:
		// Dispatch optional.
	default:
		return fmt.Errorf("checkpoint: unknown stage %q", c.Stage)
	}

	if c.Stage == StageResume && c.State.ResumeSource == "" {
		return fmt.Errorf("checkpoint: stage %q requires a resume source", c.Stage)
	}

	return nil
}
