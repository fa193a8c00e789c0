package session

import (
	"context"

	"github.com/xraph/continuum/id"
)

// Store defines the persistence contract for the session chat timeline and
// the busy-session message queue.
type Store interface {
	// AppendItem persists a timeline item.
	AppendItem(ctx context.Context, item *Item) error

	// ListItems returns a session's timeline, oldest first.
	ListItems(ctx context.Context, sessionID id.SessionID) ([]*Item, error)

	// LatestItem returns the most recent timeline item of the given kind,
	// or nil when the session has none. A nil result is not an error.
	LatestItem(ctx context.Context, sessionID id.SessionID, kind ItemKind) (*Item, error)

	// EnqueueMessage appends a message to the session's queue.
	EnqueueMessage(ctx context.Context, msg *QueuedMessage) error

	// DrainQueue removes and returns all queued messages for the session
	// in submission order.
	DrainQueue(ctx context.Context, sessionID id.SessionID) ([]*QueuedMessage, error)

	// QueueDepth returns the number of messages waiting for the session.
	QueueDepth(ctx context.Context, sessionID id.SessionID) (int, error)
}
