// Package store holds the durable, append-only, per-room ordered log of chat
// messages. Implementations assign ids and timestamps server-side and only
// ever append; nothing is updated or deleted.
package store

import (
	"context"

	"github.com/tradetalk/tradetalk/internal/domain"
)

// CreateMessageInput is what the gateway hands the store. Identity fields
// come from the connection's handshake binding, never from the wire.
type CreateMessageInput struct {
	UserID   string
	Username string
	Room     string
	Content  string
}

// MessageStore is the append-only ordered store of chat messages.
type MessageStore interface {
	// CreateMessage assigns a unique, monotonically-increasing id and a
	// server-side timestamp, appends the message and returns the stored
	// record. Failures wrap domain.ErrPersistence and are never retried
	// by the caller.
	CreateMessage(ctx context.Context, input CreateMessageInput) (domain.Message, error)

	// RoomMessages returns every message tagged with room, ascending by
	// timestamp. History is not paginated.
	RoomMessages(ctx context.Context, room string) ([]domain.Message, error)
}
