package bunstore

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/xraph/continuum"
	"github.com/xraph/continuum/branch"
	"github.com/xraph/continuum/checkpoint"
	"github.com/xraph/continuum/id"
	"github.com/xraph/continuum/run"
	"github.com/xraph/continuum/session"
)

// ── Run model ─────────────────────────────────────────────────────

type runModel struct {
	bun.BaseModel `bun:"table:continuum_runs"`

	ID              string    `bun:"id,pk"`
	SessionID       string    `bun:"session_id,notnull"`
	Status          string    `bun:"status,notnull,default:'pending'"`
	MaxTurns        int       `bun:"max_turns,notnull,default:0"`
	Timeout         int64     `bun:"timeout,notnull,default:0"`
	CheckpointCount int       `bun:"checkpoint_count,notnull,default:0"`
	Timeline        []byte    `bun:"timeline,type:bytea"`
	CreatedAt       time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt       time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

func toRunModel(r *run.Run) (*runModel, error) {
	timeline, err := msgpack.Marshal(r.Timeline)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: encode timeline: %w", err)
	}
	return &runModel{
		ID:              r.ID.String(),
		SessionID:       r.SessionID.String(),
		Status:          string(r.Status),
		MaxTurns:        r.Options.MaxTurns,
		Timeout:         r.Options.Timeout.Nanoseconds(),
		CheckpointCount: r.CheckpointCount,
		Timeline:        timeline,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}, nil
}

func fromRunModel(m *runModel) (*run.Run, error) {
	runID, err := id.ParseRunID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: parse run id %q: %w", m.ID, err)
	}
	sessionID, err := id.ParseSessionID(m.SessionID)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: parse session id %q: %w", m.SessionID, err)
	}

	var timeline []run.Transition
	if len(m.Timeline) > 0 {
		if err := msgpack.Unmarshal(m.Timeline, &timeline); err != nil {
			return nil, fmt.Errorf("continuum/bun: decode timeline: %w", err)
		}
	}

	return &run.Run{
		Entity: continuum.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        runID,
		SessionID: sessionID,
		Status:    run.Status(m.Status),
		Options: run.Options{
			MaxTurns: m.MaxTurns,
			Timeout:  time.Duration(m.Timeout),
		},
		CheckpointCount: m.CheckpointCount,
		Timeline:        timeline,
	}, nil
}

// ── Checkpoint model ──────────────────────────────────────────────

type checkpointModel struct {
	bun.BaseModel `bun:"table:continuum_checkpoints"`

	ID        string    `bun:"id,pk"`
	RunID     string    `bun:"run_id,notnull"`
	SessionID string    `bun:"session_id,notnull"`
	BranchID  string    `bun:"branch_id"`
	Idx       int       `bun:"idx,notnull"`
	Stage     string    `bun:"stage,notnull"`
	State     []byte    `bun:"state,notnull,type:bytea"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func toCheckpointModel(c *checkpoint.Checkpoint) (*checkpointModel, error) {
	state, err := msgpack.Marshal(c.State)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: encode checkpoint state: %w", err)
	}

	m := &checkpointModel{
		ID:        c.ID.String(),
		RunID:     c.RunID.String(),
		SessionID: c.SessionID.String(),
		Idx:       c.Index,
		Stage:     string(c.Stage),
		State:     state,
		CreatedAt: c.CreatedAt,
	}
	if !c.BranchID.IsNil() {
		m.BranchID = c.BranchID.String()
	}
	return m, nil
}

func fromCheckpointModel(m *checkpointModel) (*checkpoint.Checkpoint, error) {
	cpID, err := id.ParseCheckpointID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: parse checkpoint id %q: %w", m.ID, err)
	}
	runID, err := id.ParseRunID(m.RunID)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: parse run id %q: %w", m.RunID, err)
	}
	sessionID, err := id.ParseSessionID(m.SessionID)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: parse session id %q: %w", m.SessionID, err)
	}

	var state checkpoint.State
	if err := msgpack.Unmarshal(m.State, &state); err != nil {
		return nil, fmt.Errorf("continuum/bun: decode checkpoint state: %w", err)
	}

	c := &checkpoint.Checkpoint{
		ID:        cpID,
		RunID:     runID,
		SessionID: sessionID,
		Index:     m.Idx,
		Stage:     checkpoint.Stage(m.Stage),
		State:     state,
		CreatedAt: m.CreatedAt,
	}
	if m.BranchID != "" {
		branchID, bErr := id.ParseBranchID(m.BranchID)
		if bErr != nil {
			return nil, fmt.Errorf("continuum/bun: parse branch id %q: %w", m.BranchID, bErr)
		}
		c.BranchID = branchID
	}
	return c, nil
}

// ── Branch model ──────────────────────────────────────────────────

type branchModel struct {
	bun.BaseModel `bun:"table:continuum_branches"`

	ID             string    `bun:"id,pk"`
	SessionID      string    `bun:"session_id,notnull"`
	Name           string    `bun:"name,notnull"`
	ParentBranchID string    `bun:"parent_branch_id"`
	Status         string    `bun:"status,notnull,default:'active'"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

func toBranchModel(b *branch.Branch) *branchModel {
	m := &branchModel{
		ID:        b.ID.String(),
		SessionID: b.SessionID.String(),
		Name:      b.Name,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if !b.ParentBranchID.IsNil() {
		m.ParentBranchID = b.ParentBranchID.String()
	}
	return m
}

func fromBranchModel(m *branchModel) (*branch.Branch, error) {
	branchID, err := id.ParseBranchID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: parse branch id %q: %w", m.ID, err)
	}
	sessionID, err := id.ParseSessionID(m.SessionID)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: parse session id %q: %w", m.SessionID, err)
	}

	b := &branch.Branch{
		Entity: continuum.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        branchID,
		SessionID: sessionID,
		Name:      m.Name,
		Status:    branch.Status(m.Status),
	}
	if m.ParentBranchID != "" {
		parentID, pErr := id.ParseBranchID(m.ParentBranchID)
		if pErr != nil {
			return nil, fmt.Errorf("continuum/bun: parse parent branch id %q: %w", m.ParentBranchID, pErr)
		}
		b.ParentBranchID = parentID
	}
	return b, nil
}

// ── Merge record model ────────────────────────────────────────────

type mergeModel struct {
	bun.BaseModel `bun:"table:continuum_merges"`

	ID             string    `bun:"id,pk"`
	SessionID      string    `bun:"session_id,notnull"`
	SourceBranchID string    `bun:"source_branch_id,notnull"`
	TargetBranchID string    `bun:"target_branch_id,notnull"`
	Status         string    `bun:"status,notnull"`
	Conflicts      []byte    `bun:"conflicts,type:bytea"`
	MergedAt       time.Time `bun:"merged_at,notnull,default:current_timestamp"`
}

func toMergeModel(rec *branch.MergeRecord) (*mergeModel, error) {
	conflicts, err := msgpack.Marshal(rec.Conflicts)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: encode conflicts: %w", err)
	}
	return &mergeModel{
		ID:             rec.ID.String(),
		SessionID:      rec.SessionID.String(),
		SourceBranchID: rec.SourceBranchID.String(),
		TargetBranchID: rec.TargetBranchID.String(),
		Status:         string(rec.Status),
		Conflicts:      conflicts,
		MergedAt:       rec.MergedAt,
	}, nil
}

func fromMergeModel(m *mergeModel) (*branch.MergeRecord, error) {
	mergeID, err := id.ParseMergeID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: parse merge id %q: %w", m.ID, err)
	}
	sessionID, err := id.ParseSessionID(m.SessionID)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: parse session id %q: %w", m.SessionID, err)
	}
	sourceID, err := id.ParseBranchID(m.SourceBranchID)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: parse source branch id %q: %w", m.SourceBranchID, err)
	}
	targetID, err := id.ParseBranchID(m.TargetBranchID)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: parse target branch id %q: %w", m.TargetBranchID, err)
	}

	var conflicts []branch.Conflict
	if len(m.Conflicts) > 0 {
		if err := msgpack.Unmarshal(m.Conflicts, &conflicts); err != nil {
			return nil, fmt.Errorf("continuum/bun: decode conflicts: %w", err)
		}
	}

	return &branch.MergeRecord{
		ID:             mergeID,
		SessionID:      sessionID,
		SourceBranchID: sourceID,
		TargetBranchID: targetID,
		Status:         branch.MergeStatus(m.Status),
		Conflicts:      conflicts,
		MergedAt:       m.MergedAt,
	}, nil
}

// ── Timeline item model ───────────────────────────────────────────

type itemModel struct {
	bun.BaseModel `bun:"table:continuum_items"`

	ID          string    `bun:"id,pk"`
	SessionID   string    `bun:"session_id,notnull"`
	Kind        string    `bun:"kind,notnull"`
	Text        string    `bun:"text,notnull"`
	Attachments []byte    `bun:"attachments,type:bytea"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func toItemModel(item *session.Item) (*itemModel, error) {
	attachments, err := marshalAttachments(item.Attachments)
	if err != nil {
		return nil, err
	}
	return &itemModel{
		ID:          item.ID.String(),
		SessionID:   item.SessionID.String(),
		Kind:        string(item.Kind),
		Text:        item.Text,
		Attachments: attachments,
		CreatedAt:   item.CreatedAt,
	}, nil
}

func fromItemModel(m *itemModel) (*session.Item, error) {
	itemID, err := id.ParseMessageID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: parse item id %q: %w", m.ID, err)
	}
	sessionID, err := id.ParseSessionID(m.SessionID)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: parse session id %q: %w", m.SessionID, err)
	}
	attachments, err := unmarshalAttachments(m.Attachments)
	if err != nil {
		return nil, err
	}

	return &session.Item{
		ID:          itemID,
		SessionID:   sessionID,
		Kind:        session.ItemKind(m.Kind),
		Text:        m.Text,
		Attachments: attachments,
		CreatedAt:   m.CreatedAt,
	}, nil
}

// ── Queued message model ──────────────────────────────────────────

type queuedMessageModel struct {
	bun.BaseModel `bun:"table:continuum_queued_messages"`

	ID          string    `bun:"id,pk"`
	SessionID   string    `bun:"session_id,notnull"`
	Text        string    `bun:"text,notnull"`
	Attachments []byte    `bun:"attachments,type:bytea"`
	EnqueuedAt  time.Time `bun:"enqueued_at,notnull,default:current_timestamp"`
}

func toQueuedMessageModel(msg *session.QueuedMessage) (*queuedMessageModel, error) {
	attachments, err := marshalAttachments(msg.Attachments)
	if err != nil {
		return nil, err
	}
	return &queuedMessageModel{
		ID:          msg.ID.String(),
		SessionID:   msg.SessionID.String(),
		Text:        msg.Text,
		Attachments: attachments,
		EnqueuedAt:  msg.EnqueuedAt,
	}, nil
}

func fromQueuedMessageModel(m *queuedMessageModel) (*session.QueuedMessage, error) {
	msgID, err := id.ParseMessageID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: parse message id %q: %w", m.ID, err)
	}
	sessionID, err := id.ParseSessionID(m.SessionID)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: parse session id %q: %w", m.SessionID, err)
	}
	attachments, err := unmarshalAttachments(m.Attachments)
	if err != nil {
		return nil, err
	}

	return &session.QueuedMessage{
		ID:          msgID,
		SessionID:   sessionID,
		Text:        m.Text,
		Attachments: attachments,
		EnqueuedAt:  m.EnqueuedAt,
	}, nil
}

func marshalAttachments(attachments []continuum.Attachment) ([]byte, error) {
	if len(attachments) == 0 {
		return nil, nil
	}
	data, err := msgpack.Marshal(attachments)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: encode attachments: %w", err)
	}
	return data, nil
}

func unmarshalAttachments(data []byte) ([]continuum.Attachment, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var attachments []continuum.Attachment
	if err := msgpack.Unmarshal(data, &attachments); err != nil {
		return nil, fmt.Errorf("continuum/bun: decode attachments: %w", err)
	}
	return attachments, nil
}
