// Package session defines the session chat timeline, the busy-session
// message queue, and the queue drainer.
package session

import (
	"time"

	"github.com/xraph/continuum"
	"github.com/xraph/continuum/id"
)

// ItemKind classifies a timeline item.
type ItemKind string

const (
	// KindUserMessage is a message submitted by the user. The most recent
	// user_message is the fallback resume-content source.
	KindUserMessage ItemKind = "user_message"
	// KindAssistantMessage is a message produced by the agent.
	KindAssistantMessage ItemKind = "assistant_message"
	// KindToolUse records a tool invocation.
	KindToolUse ItemKind = "tool_use"
	// KindToolResult records a tool invocation's output.
	KindToolResult ItemKind = "tool_result"
	// KindSystem is an out-of-band system notice.
	KindSystem ItemKind = "system"
)

// Item is one entry in a session's chat timeline.
type Item struct {
	ID          id.MessageID           `json:"id"`
	SessionID   id.SessionID           `json:"session_id"`
	Kind        ItemKind               `json:"kind"`
	Text        string                 `json:"text"`
	Attachments []continuum.Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// NewItem creates a timeline item for the given session.
func NewItem(sessionID id.SessionID, kind ItemKind, text string, attachments []continuum.Attachment) *Item {
	return &Item{
		ID:          id.NewMessageID(),
		SessionID:   sessionID,
		Kind:        kind,
		Text:        text,
		Attachments: attachments,
		CreatedAt:   time.Now().UTC(),
	}
}

// QueuedMessage is content that arrived while the session had an active
// run. Queued messages are drained in submission order once the run
// finishes.
type QueuedMessage struct {
	ID          id.MessageID           `json:"id"`
	SessionID   id.SessionID           `json:"session_id"`
	Text        string                 `json:"text"`
	Attachments []continuum.Attachment `json:"attachments,omitempty"`
	EnqueuedAt  time.Time              `json:"enqueued_at"`
}

// NewQueuedMessage creates a queue entry for the given session.
func NewQueuedMessage(sessionID id.SessionID, content continuum.Content) *QueuedMessage {
	return &QueuedMessage{
		ID:          id.NewMessageID(),
		SessionID:   sessionID,
		Text:        content.Text,
		Attachments: content.Attachments,
		EnqueuedAt:  time.Now().UTC(),
	}
}
