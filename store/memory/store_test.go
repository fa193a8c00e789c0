package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/continuum"
	"github.com/xraph/continuum/branch"
	"github.com/xraph/continuum/checkpoint"
	"github.com/xraph/continuum/id"
	"github.com/xraph/continuum/run"
	"github.com/xraph/continuum/session"
	"github.com/xraph/continuum/store/memory"
)

func TestRunLifecycle(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	sessID := id.NewSessionID()

	r := run.New(sessID, run.Options{MaxTurns: 3})
	if err := s.CreateRun(ctx, r); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	got, err := s.GetRun(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != run.StatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
	if got.Options.MaxTurns != 3 {
		t.Errorf("MaxTurns = %d, want 3", got.Options.MaxTurns)
	}

	if err := got.Transition(run.StatusRunning); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	updated, err := s.UpdateRun(ctx, got)
	if err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}
	if updated.Status != run.StatusRunning {
		t.Errorf("updated status = %q, want running", updated.Status)
	}

	if _, err := s.GetRun(ctx, id.NewRunID()); !errors.Is(err, continuum.ErrRunNotFound) {
		t.Errorf("GetRun(unknown): error = %v, want ErrRunNotFound", err)
	}
}

func TestActiveRunIndex(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	sessID := id.NewSessionID()

	active, err := s.ActiveRun(ctx, sessID)
	if err != nil {
		t.Fatalf("ActiveRun: %v", err)
	}
	if active != nil {
		t.Fatal("expected no active run for fresh session")
	}

	r := run.New(sessID, run.Options{})
	if err := s.CreateRun(ctx, r); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := s.SetActiveRun(ctx, sessID, r.ID); err != nil {
		t.Fatalf("SetActiveRun: %v", err)
	}

	active, err = s.ActiveRun(ctx, sessID)
	if err != nil {
		t.Fatalf("ActiveRun: %v", err)
	}
	if active == nil || active.ID.String() != r.ID.String() {
		t.Fatalf("active run = %v, want %s", active, r.ID)
	}

	// Clearing with a different run ID is a no-op.
	if err := s.ClearActiveRun(ctx, sessID, id.NewRunID()); err != nil {
		t.Fatalf("ClearActiveRun(other): %v", err)
	}
	if active, _ := s.ActiveRun(ctx, sessID); active == nil {
		t.Fatal("active run cleared by a non-owner")
	}

	if err := s.ClearActiveRun(ctx, sessID, r.ID); err != nil {
		t.Fatalf("ClearActiveRun: %v", err)
	}
	if active, _ := s.ActiveRun(ctx, sessID); active != nil {
		t.Fatal("expected active run to be cleared")
	}
}

func TestAppendCheckpoint_MonotonicIndex(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	sessID := id.NewSessionID()

	r := run.New(sessID, run.Options{})
	if err := s.CreateRun(ctx, r); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	for want := 1; want <= 3; want++ {
		cp := checkpoint.New(r.ID, sessID, id.Nil, checkpoint.StageAfterSend, checkpoint.State{
			RunStatus: run.StatusRunning,
		})
		stored, err := s.AppendCheckpoint(ctx, cp)
		if err != nil {
			t.Fatalf("AppendCheckpoint: %v", err)
		}
		if stored.Index != want {
			t.Errorf("index = %d, want %d", stored.Index, want)
		}
	}

	got, err := s.GetRun(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.CheckpointCount != 3 {
		t.Errorf("CheckpointCount = %d, want 3", got.CheckpointCount)
	}

	latest, err := s.LatestCheckpoint(ctx, r.ID)
	if err != nil {
		t.Fatalf("LatestCheckpoint: %v", err)
	}
	if latest == nil || latest.Index != 3 {
		t.Fatalf("latest = %v, want index 3", latest)
	}

	list, err := s.ListCheckpoints(ctx, r.ID)
	if err != nil {
		t.Fatalf("ListCheckpoints: %v", err)
	}
	for i, cp := range list {
		if cp.Index != i+1 {
			t.Errorf("list[%d].Index = %d, want %d", i, cp.Index, i+1)
		}
	}
}

func TestAppendCheckpoint_IdempotentByID(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	sessID := id.NewSessionID()

	r := run.New(sessID, run.Options{})
	if err := s.CreateRun(ctx, r); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	cp := checkpoint.New(r.ID, sessID, id.Nil, checkpoint.StageAfterSend, checkpoint.State{
		RunStatus: run.StatusCompleted,
	})
	first, err := s.AppendCheckpoint(ctx, cp)
	if err != nil {
		t.Fatalf("AppendCheckpoint: %v", err)
	}
	second, err := s.AppendCheckpoint(ctx, cp)
	if err != nil {
		t.Fatalf("AppendCheckpoint(replay): %v", err)
	}
	if second.Index != first.Index {
		t.Errorf("replay index = %d, want %d", second.Index, first.Index)
	}

	got, _ := s.GetRun(ctx, r.ID)
	if got.CheckpointCount != 1 {
		t.Errorf("CheckpointCount = %d, want 1 after replay", got.CheckpointCount)
	}
}

func TestLatestCheckpoint_EmptyRunIsNotAnError(t *testing.T) {
	s := memory.New()

	latest, err := s.LatestCheckpoint(context.Background(), id.NewRunID())
	if err != nil {
		t.Fatalf("LatestCheckpoint: %v", err)
	}
	if latest != nil {
		t.Fatalf("latest = %v, want nil", latest)
	}
}

func TestBranchStore(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	sessID := id.NewSessionID()

	b := &branch.Branch{
		Entity:    continuum.NewEntity(),
		ID:        id.NewBranchID(),
		SessionID: sessID,
		Name:      "feature",
		Status:    branch.StatusActive,
	}
	if err := s.CreateBranch(ctx, b); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	if _, err := s.GetBranch(ctx, id.NewBranchID()); !errors.Is(err, continuum.ErrBranchNotFound) {
		t.Errorf("GetBranch(unknown): error = %v, want ErrBranchNotFound", err)
	}

	if err := s.SetActiveBranch(ctx, sessID, b.ID); err != nil {
		t.Fatalf("SetActiveBranch: %v", err)
	}
	active, err := s.ActiveBranch(ctx, sessID)
	if err != nil {
		t.Fatalf("ActiveBranch: %v", err)
	}
	if active == nil || active.ID.String() != b.ID.String() {
		t.Fatalf("active branch = %v, want %s", active, b.ID)
	}

	b.Status = branch.StatusMerged
	updated, err := s.UpdateBranch(ctx, b)
	if err != nil {
		t.Fatalf("UpdateBranch: %v", err)
	}
	if updated.Status != branch.StatusMerged {
		t.Errorf("updated status = %q, want merged", updated.Status)
	}

	rec := &branch.MergeRecord{
		ID:             id.NewMergeID(),
		SessionID:      sessID,
		SourceBranchID: b.ID,
		TargetBranchID: id.NewBranchID(),
		Status:         branch.MergeStatusMerged,
	}
	if err := s.RecordMerge(ctx, rec); err != nil {
		t.Fatalf("RecordMerge: %v", err)
	}
	recs, err := s.ListMerges(ctx, sessID)
	if err != nil {
		t.Fatalf("ListMerges: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("merge records = %d, want 1", len(recs))
	}
}

func TestSessionTimelineAndQueue(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	sessID := id.NewSessionID()

	none, err := s.LatestItem(ctx, sessID, session.KindUserMessage)
	if err != nil {
		t.Fatalf("LatestItem: %v", err)
	}
	if none != nil {
		t.Fatal("expected no items for fresh session")
	}

	_ = s.AppendItem(ctx, session.NewItem(sessID, session.KindUserMessage, "first", nil))
	_ = s.AppendItem(ctx, session.NewItem(sessID, session.KindAssistantMessage, "reply", nil))
	_ = s.AppendItem(ctx, session.NewItem(sessID, session.KindUserMessage, "second", nil))

	latest, err := s.LatestItem(ctx, sessID, session.KindUserMessage)
	if err != nil {
		t.Fatalf("LatestItem: %v", err)
	}
	if latest == nil || latest.Text != "second" {
		t.Fatalf("latest user message = %v, want %q", latest, "second")
	}

	items, _ := s.ListItems(ctx, sessID)
	if len(items) != 3 {
		t.Errorf("items = %d, want 3", len(items))
	}

	// Queue is FIFO and drains completely.
	_ = s.EnqueueMessage(ctx, session.NewQueuedMessage(sessID, continuum.Content{Text: "q1"}))
	_ = s.EnqueueMessage(ctx, session.NewQueuedMessage(sessID, continuum.Content{Text: "q2"}))

	depth, _ := s.QueueDepth(ctx, sessID)
	if depth != 2 {
		t.Errorf("depth = %d, want 2", depth)
	}

	msgs, err := s.DrainQueue(ctx, sessID)
	if err != nil {
		t.Fatalf("DrainQueue: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Text != "q1" || msgs[1].Text != "q2" {
		t.Fatalf("drained = %v, want [q1 q2]", msgs)
	}

	depth, _ = s.QueueDepth(ctx, sessID)
	if depth != 0 {
		t.Errorf("depth after drain = %d, want 0", depth)
	}
}
