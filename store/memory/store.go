// Package memory provides a fully in-memory store backend. Safe for
// concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/continuum"
	"github.com/xraph/continuum/branch"
	"github.com/xraph/continuum/checkpoint"
	"github.com/xraph/continuum/id"
	"github.com/xraph/continuum/run"
	"github.com/xraph/continuum/session"
)

// Ensure Store implements store.Store at compile time.
// We can't import store here (import cycle), so we verify each subsystem.
var (
	_ run.Store        = (*Store)(nil)
	_ checkpoint.Store = (*Store)(nil)
	_ branch.Store     = (*Store)(nil)
	_ session.Store    = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	runs        map[string]*run.Run
	checkpoints map[string][]*checkpoint.Checkpoint // key: run ID, ascending index
	branches    map[string]*branch.Branch
	merges      map[string][]*branch.MergeRecord // key: session ID
	items       map[string][]*session.Item       // key: session ID
	queues      map[string][]*session.QueuedMessage

	// Per-session indexes.
	activeRuns     map[string]string // session ID → run ID
	activeBranches map[string]string // session ID → branch ID
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		runs:           make(map[string]*run.Run),
		checkpoints:    make(map[string][]*checkpoint.Checkpoint),
		branches:       make(map[string]*branch.Branch),
		merges:         make(map[string][]*branch.MergeRecord),
		items:          make(map[string][]*session.Item),
		queues:         make(map[string][]*session.QueuedMessage),
		activeRuns:     make(map[string]string),
		activeBranches: make(map[string]string),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Run Store
// ──────────────────────────────────────────────────

// CreateRun persists a new run.
func (m *Store) CreateRun(_ context.Context, r *run.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := cloneRun(r)
	m.runs[r.ID.String()] = cp
	return nil
}

// GetRun retrieves a run by ID.
func (m *Store) GetRun(_ context.Context, runID id.RunID) (*run.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.runs[runID.String()]
	if !ok {
		return nil, continuum.ErrRunNotFound
	}
	return cloneRun(r), nil
}

// UpdateRun persists changes to an existing run and returns the post-write
// snapshot.
func (m *Store) UpdateRun(_ context.Context, r *run.Run) (*run.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := r.ID.String()
	existing, ok := m.runs[key]
	if !ok {
		return nil, continuum.ErrRunNotFound
	}

	cp := cloneRun(r)
	cp.CheckpointCount = existing.CheckpointCount
	cp.UpdatedAt = time.Now().UTC()
	m.runs[key] = cp
	return cloneRun(cp), nil
}

// ListRunsBySession returns all runs for a session, oldest first.
func (m *Store) ListRunsBySession(_ context.Context, sessionID id.SessionID) ([]*run.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*run.Run, 0)
	for _, r := range m.runs {
		if r.SessionID.String() != sessionID.String() {
			continue
		}
		result = append(result, cloneRun(r))
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.Before(result[k].CreatedAt)
	})
	return result, nil
}

// ActiveRun returns the session's active run, or nil if there is none.
func (m *Store) ActiveRun(_ context.Context, sessionID id.SessionID) (*run.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runID, ok := m.activeRuns[sessionID.String()]
	if !ok {
		return nil, nil //nolint:nilnil // nil run means no active run
	}
	r, ok := m.runs[runID]
	if !ok {
		return nil, nil //nolint:nilnil // index points at a vanished run
	}
	return cloneRun(r), nil
}

// SetActiveRun points the session's active-run index at runID.
func (m *Store) SetActiveRun(_ context.Context, sessionID id.SessionID, runID id.RunID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[runID.String()]; !ok {
		return continuum.ErrRunNotFound
	}
	m.activeRuns[sessionID.String()] = runID.String()
	return nil
}

// ClearActiveRun clears the session's active-run index if it points at runID.
func (m *Store) ClearActiveRun(_ context.Context, sessionID id.SessionID, runID id.RunID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.activeRuns[sessionID.String()]; ok && current == runID.String() {
		delete(m.activeRuns, sessionID.String())
	}
	return nil
}

// ──────────────────────────────────────────────────
// Checkpoint Store
// ──────────────────────────────────────────────────

// AppendCheckpoint assigns the next per-run index, persists the checkpoint,
// and increments the owning run's CheckpointCount. Re-appending an existing
// ID returns the stored copy without a second write.
func (m *Store) AppendCheckpoint(_ context.Context, cp *checkpoint.Checkpoint) (*checkpoint.Checkpoint, error) {
	if err := cp.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	runKey := cp.RunID.String()
	for _, existing := range m.checkpoints[runKey] {
		if existing.ID.String() == cp.ID.String() {
			return cloneCheckpoint(existing), nil
		}
	}

	stored := cloneCheckpoint(cp)
	stored.Index = len(m.checkpoints[runKey]) + 1
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	m.checkpoints[runKey] = append(m.checkpoints[runKey], stored)

	if r, ok := m.runs[runKey]; ok {
		r.CheckpointCount++
		r.UpdatedAt = time.Now().UTC()
	}

	return cloneCheckpoint(stored), nil
}

// LatestCheckpoint returns the highest-index checkpoint for the run, or nil.
func (m *Store) LatestCheckpoint(_ context.Context, runID id.RunID) (*checkpoint.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cps := m.checkpoints[runID.String()]
	if len(cps) == 0 {
		return nil, nil //nolint:nilnil // nil checkpoint means nothing to resume from
	}
	return cloneCheckpoint(cps[len(cps)-1]), nil
}

// ListCheckpoints returns the run's history in ascending index order.
func (m *Store) ListCheckpoints(_ context.Context, runID id.RunID) ([]*checkpoint.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cps := m.checkpoints[runID.String()]
	result := make([]*checkpoint.Checkpoint, len(cps))
	for i, cp := range cps {
		result[i] = cloneCheckpoint(cp)
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Branch Store
// ──────────────────────────────────────────────────

// CreateBranch persists a new branch.
func (m *Store) CreateBranch(_ context.Context, b *branch.Branch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *b
	m.branches[b.ID.String()] = &cp
	return nil
}

// GetBranch retrieves a branch by ID.
func (m *Store) GetBranch(_ context.Context, branchID id.BranchID) (*branch.Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.branches[branchID.String()]
	if !ok {
		return nil, continuum.ErrBranchNotFound
	}
	cp := *b
	return &cp, nil
}

// UpdateBranch persists changes to an existing branch and returns the
// post-write snapshot.
func (m *Store) UpdateBranch(_ context.Context, b *branch.Branch) (*branch.Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := b.ID.String()
	if _, ok := m.branches[key]; !ok {
		return nil, continuum.ErrBranchNotFound
	}
	cp := *b
	cp.UpdatedAt = time.Now().UTC()
	m.branches[key] = &cp
	out := cp
	return &out, nil
}

// ListBranches returns all branches for a session, oldest first.
func (m *Store) ListBranches(_ context.Context, sessionID id.SessionID) ([]*branch.Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*branch.Branch, 0)
	for _, b := range m.branches {
		if b.SessionID.String() != sessionID.String() {
			continue
		}
		cp := *b
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.Before(result[k].CreatedAt)
	})
	return result, nil
}

// ActiveBranch returns the session's active branch, or nil if there is none.
func (m *Store) ActiveBranch(_ context.Context, sessionID id.SessionID) (*branch.Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	branchID, ok := m.activeBranches[sessionID.String()]
	if !ok {
		return nil, nil //nolint:nilnil // nil branch means unscoped main
	}
	b, ok := m.branches[branchID]
	if !ok {
		return nil, nil //nolint:nilnil // index points at a vanished branch
	}
	cp := *b
	return &cp, nil
}

// SetActiveBranch points the session's active-branch index at branchID.
func (m *Store) SetActiveBranch(_ context.Context, sessionID id.SessionID, branchID id.BranchID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.branches[branchID.String()]; !ok {
		return continuum.ErrBranchNotFound
	}
	m.activeBranches[sessionID.String()] = branchID.String()
	return nil
}

// RecordMerge persists a merge attempt record.
func (m *Store) RecordMerge(_ context.Context, rec *branch.MergeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *rec
	cp.Conflicts = append([]branch.Conflict(nil), rec.Conflicts...)
	m.merges[rec.SessionID.String()] = append(m.merges[rec.SessionID.String()], &cp)
	return nil
}

// ListMerges returns all merge records for a session, oldest first.
func (m *Store) ListMerges(_ context.Context, sessionID id.SessionID) ([]*branch.MergeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := m.merges[sessionID.String()]
	result := make([]*branch.MergeRecord, len(recs))
	for i, rec := range recs {
		cp := *rec
		cp.Conflicts = append([]branch.Conflict(nil), rec.Conflicts...)
		result[i] = &cp
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Session Store
// ──────────────────────────────────────────────────

// AppendItem persists a timeline item.
func (m *Store) AppendItem(_ context.Context, item *session.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := cloneItem(item)
	m.items[item.SessionID.String()] = append(m.items[item.SessionID.String()], cp)
	return nil
}

// ListItems returns a session's timeline, oldest first.
func (m *Store) ListItems(_ context.Context, sessionID id.SessionID) ([]*session.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := m.items[sessionID.String()]
	result := make([]*session.Item, len(items))
	for i, item := range items {
		result[i] = cloneItem(item)
	}
	return result, nil
}

// LatestItem returns the most recent timeline item of the given kind, or nil.
func (m *Store) LatestItem(_ context.Context, sessionID id.SessionID, kind session.ItemKind) (*session.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := m.items[sessionID.String()]
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Kind == kind {
			return cloneItem(items[i]), nil
		}
	}
	return nil, nil //nolint:nilnil // nil item means no match
}

// EnqueueMessage appends a message to the session's queue.
func (m *Store) EnqueueMessage(_ context.Context, msg *session.QueuedMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := cloneQueued(msg)
	m.queues[msg.SessionID.String()] = append(m.queues[msg.SessionID.String()], cp)
	return nil
}

// DrainQueue removes and returns all queued messages in submission order.
func (m *Store) DrainQueue(_ context.Context, sessionID id.SessionID) ([]*session.QueuedMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionID.String()
	msgs := m.queues[key]
	delete(m.queues, key)

	result := make([]*session.QueuedMessage, len(msgs))
	for i, msg := range msgs {
		result[i] = cloneQueued(msg)
	}
	return result, nil
}

// QueueDepth returns the number of messages waiting for the session.
func (m *Store) QueueDepth(_ context.Context, sessionID id.SessionID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.queues[sessionID.String()]), nil
}

// ──────────────────────────────────────────────────
// Clone helpers — callers must never share pointers with the store.
// ──────────────────────────────────────────────────

func cloneRun(r *run.Run) *run.Run {
	cp := *r
	cp.Timeline = append([]run.Transition(nil), r.Timeline...)
	return &cp
}

func cloneCheckpoint(c *checkpoint.Checkpoint) *checkpoint.Checkpoint {
	cp := *c
	if c.State.Dispatch != nil {
		d := *c.State.Dispatch
		d.Attachments = append([]continuum.Attachment(nil), c.State.Dispatch.Attachments...)
		cp.State.Dispatch = &d
	}
	return &cp
}

func cloneItem(i *session.Item) *session.Item {
	cp := *i
	cp.Attachments = append([]continuum.Attachment(nil), i.Attachments...)
	return &cp
}

func cloneQueued(q *session.QueuedMessage) *session.QueuedMessage {
	cp := *q
	cp.Attachments = append([]continuum.Attachment(nil), q.Attachments...)
	return &cp
}
