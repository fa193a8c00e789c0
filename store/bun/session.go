package bunstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/uptrace/bun"

	"github.com/xraph/continuum/id"
	"github.com/xraph/continuum/session"
)

// AppendItem persists a timeline item.
func (s *Store) AppendItem(ctx context.Context, item *session.Item) error {
	m, err := toItemModel(item)
	if err != nil {
		return err
	}
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("continuum/bun: append item: %w", err)
	}
	return nil
}

// ListItems returns a session's timeline, oldest first.
func (s *Store) ListItems(ctx context.Context, sessionID id.SessionID) ([]*session.Item, error) {
	var models []itemModel
	err := s.db.NewSelect().Model(&models).
		Where("session_id = ?", sessionID.String()).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("continuum/bun: list items: %w", err)
	}

	items := make([]*session.Item, 0, len(models))
	for i := range models {
		item, convErr := fromItemModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		items = append(items, item)
	}
	return items, nil
}

// LatestItem returns the most recent timeline item of the given kind, or
// nil when the session has none.
func (s *Store) LatestItem(ctx context.Context, sessionID id.SessionID, kind session.ItemKind) (*session.Item, error) {
	m := new(itemModel)
	err := s.db.NewSelect().Model(m).
		Where("session_id = ?", sessionID.String()).
		Where("kind = ?", string(kind)).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, nil //nolint:nilnil // no item is not an error
		}
		return nil, fmt.Errorf("continuum/bun: latest item: %w", err)
	}
	return fromItemModel(m)
}

// EnqueueMessage appends a message to the session's queue.
func (s *Store) EnqueueMessage(ctx context.Context, msg *session.QueuedMessage) error {
	m, err := toQueuedMessageModel(msg)
	if err != nil {
		return err
	}
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("continuum/bun: enqueue message: %w", err)
	}
	return nil
}

// DrainQueue removes and returns all queued messages for the session in
// submission order. Deletion and read happen in one transaction so a
// message is never drained twice.
func (s *Store) DrainQueue(ctx context.Context, sessionID id.SessionID) ([]*session.QueuedMessage, error) {
	var msgs []*session.QueuedMessage
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var models []queuedMessageModel
		_, err := tx.NewRaw(`
			DELETE FROM continuum_queued_messages
			WHERE session_id = ?
			RETURNING *`,
			sessionID.String(),
		).Exec(ctx, &models)
		if err != nil {
			return fmt.Errorf("continuum/bun: drain queue: %w", err)
		}

		msgs = make([]*session.QueuedMessage, 0, len(models))
		for i := range models {
			msg, convErr := fromQueuedMessageModel(&models[i])
			if convErr != nil {
				return convErr
			}
			msgs = append(msgs, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// RETURNING order is unspecified; restore submission order.
	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].EnqueuedAt.Before(msgs[j].EnqueuedAt)
	})
	return msgs, nil
}

// QueueDepth returns the number of messages waiting for the session.
func (s *Store) QueueDepth(ctx context.Context, sessionID id.SessionID) (int, error) {
	count, err := s.db.NewSelect().
		TableExpr("continuum_queued_messages").
		Where("session_id = ?", sessionID.String()).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("continuum/bun: queue depth: %w", err)
	}
	return count, nil
}
