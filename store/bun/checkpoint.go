package bunstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/xraph/continuum"
	"github.com/xraph/continuum/checkpoint"
	"github.com/xraph/continuum/id"
)

// AppendCheckpoint persists a checkpoint, assigning the next index for its
// run and bumping the run's checkpoint count, all in one transaction.
// Appending a checkpoint whose ID already exists is a no-op that returns
// the stored row, so a crashed-and-replayed append never double-counts.
func (s *Store) AppendCheckpoint(ctx context.Context, c *checkpoint.Checkpoint) (*checkpoint.Checkpoint, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var out *checkpoint.Checkpoint
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// Replayed append: return what is already stored.
		existing := new(checkpointModel)
		err := tx.NewSelect().Model(existing).
			Where("id = ?", c.ID.String()).
			Limit(1).
			Scan(ctx)
		if err == nil {
			out, err = fromCheckpointModel(existing)
			return err
		}
		if !isNoRows(err) {
			return fmt.Errorf("continuum/bun: check checkpoint: %w", err)
		}

		// Serialize index assignment against concurrent appends for the
		// same run.
		var owner runModel
		err = tx.NewSelect().Model(&owner).
			Where("id = ?", c.RunID.String()).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if isNoRows(err) {
				return continuum.ErrRunNotFound
			}
			return fmt.Errorf("continuum/bun: lock run: %w", err)
		}

		var maxIdx int
		err = tx.NewSelect().
			TableExpr("continuum_checkpoints").
			ColumnExpr("COALESCE(MAX(idx), 0)").
			Where("run_id = ?", c.RunID.String()).
			Scan(ctx, &maxIdx)
		if err != nil {
			return fmt.Errorf("continuum/bun: next checkpoint index: %w", err)
		}

		stored := *c
		stored.Index = maxIdx + 1
		m, err := toCheckpointModel(&stored)
		if err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
			if isDuplicateKey(err) {
				return fmt.Errorf("continuum/bun: concurrent checkpoint append: %w", err)
			}
			return fmt.Errorf("continuum/bun: insert checkpoint: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE continuum_runs
			SET checkpoint_count = checkpoint_count + 1, updated_at = NOW()
			WHERE id = ?`,
			c.RunID.String(),
		)
		if err != nil {
			return fmt.Errorf("continuum/bun: bump checkpoint count: %w", err)
		}

		out = &stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LatestCheckpoint returns the highest-index checkpoint for the run, or nil
// when the run has none.
func (s *Store) LatestCheckpoint(ctx context.Context, runID id.RunID) (*checkpoint.Checkpoint, error) {
	m := new(checkpointModel)
	err := s.db.NewSelect().Model(m).
		Where("run_id = ?", runID.String()).
		Order("idx DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, nil //nolint:nilnil // no checkpoint is not an error
		}
		return nil, fmt.Errorf("continuum/bun: latest checkpoint: %w", err)
	}
	return fromCheckpointModel(m)
}

// ListCheckpoints returns all checkpoints for the run in index order.
func (s *Store) ListCheckpoints(ctx context.Context, runID id.RunID) ([]*checkpoint.Checkpoint, error) {
	var models []checkpointModel
	err := s.db.NewSelect().Model(&models).
		Where("run_id = ?", runID.String()).
		Order("idx ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: list checkpoints: %w", err)
	}

	cps := make([]*checkpoint.Checkpoint, 0, len(models))
	for i := range models {
		c, convErr := fromCheckpointModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		cps = append(cps, c)
	}
	return cps, nil
}
