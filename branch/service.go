package branch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/continuum"
	"github.com/xraph/continuum/id"
)

// Service is the branch engine: it creates, activates, and merges session
// branches. All mutation goes through the Store; every operation returns
// the post-write snapshot so callers never re-read.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a branch service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Create allocates a new active branch for the session and makes it the
// session's active branch. When parentID is Nil the parent defaults to the
// currently active branch; a session with no active branch forks from the
// unscoped main line (nil parent).
func (s *Service) Create(ctx context.Context, sessionID id.SessionID, name string, parentID id.BranchID) (*Branch, error) {
	if parentID.IsNil() {
		active, err := s.store.ActiveBranch(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("resolve active branch: %w", err)
		}
		if active != nil {
			parentID = active.ID
		}
	} else {
		parent, err := s.store.GetBranch(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if parent.SessionID != sessionID {
			return nil, continuum.ErrBranchNotFound
		}
	}

	b := &Branch{
		Entity:         continuum.NewEntity(),
		ID:             id.NewBranchID(),
		SessionID:      sessionID,
		Name:           name,
		ParentBranchID: parentID,
		Status:         StatusActive,
	}

	if err := s.store.CreateBranch(ctx, b); err != nil {
		return nil, fmt.Errorf("create branch %q: %w", name, err)
	}

	if err := s.store.SetActiveBranch(ctx, sessionID, b.ID); err != nil {
		return nil, fmt.Errorf("activate branch %q: %w", name, err)
	}

	s.logger.Info("branch created",
		slog.String("session_id", sessionID.String()),
		slog.String("branch_id", b.ID.String()),
		slog.String("name", name),
		slog.String("parent_branch_id", parentID.String()),
	)

	return b, nil
}

// Activate switches the session's active branch to branchID. Merged
// branches are permanently read-only: activating one fails with
// continuum.ErrBranchNotActive.
func (s *Service) Activate(ctx context.Context, sessionID id.SessionID, branchID id.BranchID) (*Activation, error) {
	b, err := s.store.GetBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if b.SessionID != sessionID {
		return nil, continuum.ErrBranchNotFound
	}
	if b.Status != StatusActive {
		return nil, continuum.ErrBranchNotActive
	}

	if err := s.store.SetActiveBranch(ctx, sessionID, branchID); err != nil {
		return nil, fmt.Errorf("set active branch: %w", err)
	}

	return &Activation{SessionID: sessionID, ActiveBranchID: branchID}, nil
}

// ActiveBranchID returns the ID of the session's active branch, or Nil
// when the session is on the unscoped main line.
func (s *Service) ActiveBranchID(ctx context.Context, sessionID id.SessionID) (id.BranchID, error) {
	active, err := s.store.ActiveBranch(ctx, sessionID)
	if err != nil {
		return id.Nil, err
	}
	if active == nil {
		return id.Nil, nil
	}
	return active.ID, nil
}

// Merge merges sourceID into targetID for the session.
//
// Divergence is detected by ancestry alone: the merge is clean exactly when
// the source's recorded parent is the target. A mismatch is one conflict at
// path "branch_context". Under the auto strategy a conflict is reported and
// nothing changes; under ours/theirs the conflict is resolved with the
// chosen winner and the merge proceeds. A MergeRecord is written on every
// attempt.
func (s *Service) Merge(ctx context.Context, sessionID id.SessionID, sourceID, targetID id.BranchID, strategy Strategy) (*MergeResult, error) {
	switch strategy {
	case StrategyAuto, StrategyOurs, StrategyTheirs:
	default:
		return nil, fmt.Errorf("unknown merge strategy %q", strategy)
	}

	source, err := s.store.GetBranch(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	target, err := s.store.GetBranch(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if source.SessionID != sessionID || target.SessionID != sessionID {
		return nil, continuum.ErrBranchNotFound
	}
	if source.Status != StatusActive {
		return nil, continuum.ErrBranchNotActive
	}

	var conflicts []Conflict
	if source.ParentBranchID.String() != target.ID.String() {
		conflicts = append(conflicts, Conflict{Path: ConflictPathBranchContext})
	}

	// Auto cannot resolve divergence: report the conflict, change nothing.
	if len(conflicts) > 0 && strategy == StrategyAuto {
		rec := s.newMergeRecord(sessionID, sourceID, targetID, MergeStatusConflict, conflicts)
		if err := s.store.RecordMerge(ctx, rec); err != nil {
			return nil, fmt.Errorf("record merge conflict: %w", err)
		}

		s.logger.Info("merge conflict detected",
			slog.String("session_id", sessionID.String()),
			slog.String("source_branch_id", sourceID.String()),
			slog.String("target_branch_id", targetID.String()),
		)

		return &MergeResult{
			Status:        MergeStatusConflict,
			ConflictCount: len(conflicts),
			Conflicts:     conflicts,
		}, nil
	}

	// Explicit strategy: the caller picked a deterministic winner.
	for i := range conflicts {
		conflicts[i].Resolution = strategy
	}

	source.Status = StatusMerged
	source.Touch()
	if _, err := s.store.UpdateBranch(ctx, source); err != nil {
		return nil, fmt.Errorf("close source branch: %w", err)
	}

	// If the source was the session's active branch, hand the session to
	// the target.
	active, err := s.store.ActiveBranch(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve active branch: %w", err)
	}
	if active != nil && active.ID.String() == sourceID.String() {
		if err := s.store.SetActiveBranch(ctx, sessionID, targetID); err != nil {
			return nil, fmt.Errorf("switch active branch to target: %w", err)
		}
	}

	rec := s.newMergeRecord(sessionID, sourceID, targetID, MergeStatusMerged, conflicts)
	if err := s.store.RecordMerge(ctx, rec); err != nil {
		return nil, fmt.Errorf("record merge: %w", err)
	}

	s.logger.Info("branch merged",
		slog.String("session_id", sessionID.String()),
		slog.String("source_branch_id", sourceID.String()),
		slog.String("target_branch_id", targetID.String()),
		slog.Int("conflicts", len(conflicts)),
		slog.String("strategy", string(strategy)),
	)

	return &MergeResult{
		Status:        MergeStatusMerged,
		ConflictCount: len(conflicts),
		Conflicts:     conflicts,
	}, nil
}

func (s *Service) newMergeRecord(sessionID id.SessionID, sourceID, targetID id.BranchID, status MergeStatus, conflicts []Conflict) *MergeRecord {
	return &MergeRecord{
		ID:             id.NewMergeID(),
		SessionID:      sessionID,
		SourceBranchID: sourceID,
		TargetBranchID: targetID,
		Status:         status,
		Conflicts:      conflicts,
		MergedAt:       time.Now().UTC(),
	}
}
