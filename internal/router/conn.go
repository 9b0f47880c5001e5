package router

import (
	"log/slog"
	"sync"

	"github.com/tradetalk/tradetalk/internal/domain"
)

// sendBuffer is the per-connection outbound buffer. A recipient that falls
// this far behind starts losing frames rather than blocking the fan-out.
const sendBuffer = 256

// Connection is the server-side binding of one live transport to an
// authenticated identity and a current room tag. The gateway owns its
// mutable fields; the router only reads them during fan-out.
type Connection struct {
	// ID is unique per connection, not per user: the same user may hold
	// several connections at once.
	ID string
	// Identity is bound once at handshake and never re-derived from
	// client input.
	Identity domain.Identity

	mu sync.RWMutex
	// room is empty until the connection's first chat send (join-on-send).
	room   string
	closed bool
	send   chan []byte
}

// NewConnection creates a Connection with an empty room tag.
func NewConnection(id string, identity domain.Identity) *Connection {
	return &Connection{
		ID:       id,
		Identity: identity,
		send:     make(chan []byte, sendBuffer),
	}
}

// Room returns the connection's current room tag ("" before the first send).
func (c *Connection) Room() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room
}

// SetRoom updates the room tag. Only the connection's own read loop calls
// this.
func (c *Connection) SetRoom(room string) {
	c.mu.Lock()
	c.room = room
	c.mu.Unlock()
}

// Send queues payload for delivery without blocking. If the connection's
// buffer is full the frame is dropped with a warning; one slow recipient
// must not stall anyone else.
func (c *Connection) Send(payload []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
		slog.Warn("Connection send buffer full, dropping frame",
			"connID", c.ID, "userID", c.Identity.UserID)
	}
}

// Outbound is the channel the write pump drains. It is closed by Close.
func (c *Connection) Outbound() <-chan []byte {
	return c.send
}

// Close marks the connection closed and closes its outbound channel.
// Safe to call more than once.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Closed reports whether Close has been called.
func (c *Connection) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
