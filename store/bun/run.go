package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/continuum"
	"github.com/xraph/continuum/id"
	"github.com/xraph/continuum/run"
)

// CreateRun persists a new run.
func (s *Store) CreateRun(ctx context.Context, r *run.Run) error {
	m, err := toRunModel(r)
	if err != nil {
		return err
	}
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("continuum/bun: create run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, runID id.RunID) (*run.Run, error) {
	m := new(runModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", runID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, continuum.ErrRunNotFound
		}
		return nil, fmt.Errorf("continuum/bun: get run: %w", err)
	}
	return fromRunModel(m)
}

// UpdateRun persists changes to an existing run and returns the post-write
// snapshot. CheckpointCount is store-owned: the caller's value is ignored
// in favor of what the row already holds.
func (s *Store) UpdateRun(ctx context.Context, r *run.Run) (*run.Run, error) {
	m, err := toRunModel(r)
	if err != nil {
		return nil, err
	}
	m.UpdatedAt = time.Now().UTC()

	res, err := s.db.NewUpdate().Model(m).
		Column("status", "max_turns", "timeout", "timeline", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: update run: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return nil, continuum.ErrRunNotFound
	}

	return s.GetRun(ctx, r.ID)
}

// ListRunsBySession returns all runs for a session, oldest first.
func (s *Store) ListRunsBySession(ctx context.Context, sessionID id.SessionID) ([]*run.Run, error) {
	var models []runModel
	err := s.db.NewSelect().Model(&models).
		Where("session_id = ?", sessionID.String()).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: list runs: %w", err)
	}

	runs := make([]*run.Run, 0, len(models))
	for i := range models {
		r, convErr := fromRunModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		runs = append(runs, r)
	}
	return runs, nil
}

// ActiveRun returns the session's active run, or nil if the session has
// none.
func (s *Store) ActiveRun(ctx context.Context, sessionID id.SessionID) (*run.Run, error) {
	var runID string
	err := s.db.NewSelect().
		TableExpr("continuum_active_runs").
		Column("run_id").
		Where("session_id = ?", sessionID.String()).
		Limit(1).
		Scan(ctx, &runID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil //nolint:nilnil // no active run is not an error
		}
		return nil, fmt.Errorf("continuum/bun: active run: %w", err)
	}

	parsed, err := id.ParseRunID(runID)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: parse active run id %q: %w", runID, err)
	}
	return s.GetRun(ctx, parsed)
}

// SetActiveRun points the session's active-run index at runID.
func (s *Store) SetActiveRun(ctx context.Context, sessionID id.SessionID, runID id.RunID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO continuum_active_runs (session_id, run_id)
		VALUES (?, ?)
		ON CONFLICT (session_id) DO UPDATE SET run_id = EXCLUDED.run_id`,
		sessionID.String(), runID.String(),
	)
	if err != nil {
		return fmt.Errorf("continuum/bun: set active run: %w", err)
	}
	return nil
}

// ClearActiveRun clears the index only when it is still owned by runID.
func (s *Store) ClearActiveRun(ctx context.Context, sessionID id.SessionID, runID id.RunID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM continuum_active_runs WHERE session_id = ? AND run_id = ?`,
		sessionID.String(), runID.String(),
	)
	if err != nil {
		return fmt.Errorf("continuum/bun: clear active run: %w", err)
	}
	return nil
}
