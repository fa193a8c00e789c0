package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/continuum"
	"github.com/xraph/continuum/branch"
	"github.com/xraph/continuum/id"
)

// CreateBranch persists a new branch.
func (s *Store) CreateBranch(ctx context.Context, b *branch.Branch) error {
	m := toBranchModel(b)
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("continuum/bun: create branch: %w", err)
	}
	return nil
}

// GetBranch retrieves a branch by ID.
func (s *Store) GetBranch(ctx context.Context, branchID id.BranchID) (*branch.Branch, error) {
	m := new(branchModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", branchID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, continuum.ErrBranchNotFound
		}
		return nil, fmt.Errorf("continuum/bun: get branch: %w", err)
	}
	return fromBranchModel(m)
}

// UpdateBranch persists changes to an existing branch and returns the
// post-write snapshot.
func (s *Store) UpdateBranch(ctx context.Context, b *branch.Branch) (*branch.Branch, error) {
	m := toBranchModel(b)
	m.UpdatedAt = time.Now().UTC()

	res, err := s.db.NewUpdate().Model(m).WherePK().Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: update branch: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return nil, continuum.ErrBranchNotFound
	}

	return s.GetBranch(ctx, b.ID)
}

// ListBranches returns all branches for a session, oldest first.
func (s *Store) ListBranches(ctx context.Context, sessionID id.SessionID) ([]*branch.Branch, error) {
	var models []branchModel
	err := s.db.NewSelect().Model(&models).
		Where("session_id = ?", sessionID.String()).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: list branches: %w", err)
	}

	branches := make([]*branch.Branch, 0, len(models))
	for i := range models {
		b, convErr := fromBranchModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		branches = append(branches, b)
	}
	return branches, nil
}

// ActiveBranch returns the session's active branch, or nil when the session
// is on the unscoped main line.
func (s *Store) ActiveBranch(ctx context.Context, sessionID id.SessionID) (*branch.Branch, error) {
	var branchID string
	err := s.db.NewSelect().
		TableExpr("continuum_active_branches").
		Column("branch_id").
		Where("session_id = ?", sessionID.String()).
		Limit(1).
		Scan(ctx, &branchID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil //nolint:nilnil // no active branch is not an error
		}
		return nil, fmt.Errorf("continuum/bun: active branch: %w", err)
	}

	parsed, err := id.ParseBranchID(branchID)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: parse active branch id %q: %w", branchID, err)
	}
	return s.GetBranch(ctx, parsed)
}

// SetActiveBranch points the session's active-branch index at branchID.
func (s *Store) SetActiveBranch(ctx context.Context, sessionID id.SessionID, branchID id.BranchID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO continuum_active_branches (session_id, branch_id)
		VALUES (?, ?)
		ON CONFLICT (session_id) DO UPDATE SET branch_id = EXCLUDED.branch_id`,
		sessionID.String(), branchID.String(),
	)
	if err != nil {
		return fmt.Errorf("continuum/bun: set active branch: %w", err)
	}
	return nil
}

// RecordMerge persists a merge attempt record.
func (s *Store) RecordMerge(ctx context.Context, rec *branch.MergeRecord) error {
	m, err := toMergeModel(rec)
	if err != nil {
		return err
	}
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("continuum/bun: record merge: %w", err)
	}
	return nil
}

// ListMerges returns all merge records for a session, oldest first.
func (s *Store) ListMerges(ctx context.Context, sessionID id.SessionID) ([]*branch.MergeRecord, error) {
	var models []mergeModel
	err := s.db.NewSelect().Model(&models).
		Where("session_id = ?", sessionID.String()).
		Order("merged_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: list merges: %w", err)
	}

	recs := make([]*branch.MergeRecord, 0, len(models))
	for i := range models {
		rec, convErr := fromMergeModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
