// Package router fans persisted chat messages out to every open connection
// tagged with the message's room. There is no separate room registry: rooms
// are derived by filtering connections on their current room tag.
package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/tradetalk/tradetalk/internal/domain"
	"github.com/tradetalk/tradetalk/internal/pubsub"
)

// frame is the server->client chat broadcast envelope.
type frame struct {
	Type    string         `json:"type"`
	Payload domain.Message `json:"payload"`
}

// Router holds the set of currently open connections and delivers stored
// messages to room-matching ones. It is injected into the gateway rather
// than reached as ambient state.
type Router struct {
	mu    sync.RWMutex
	conns map[*Connection]struct{}
}

// New creates an empty Router.
func New() *Router {
	return &Router{conns: make(map[*Connection]struct{})}
}

// Add puts a connection into the active set.
func (r *Router) Add(conn *Connection) {
	r.mu.Lock()
	r.conns[conn] = struct{}{}
	total := len(r.conns)
	r.mu.Unlock()

	slog.Info("Connection registered", "connID", conn.ID,
		"userID", conn.Identity.UserID, "total_connections", total)
}

// Remove takes a connection out of the active set and closes its outbound
// channel. Safe to call for connections that were never added.
func (r *Router) Remove(conn *Connection) {
	r.mu.Lock()
	delete(r.conns, conn)
	total := len(r.conns)
	r.mu.Unlock()

	conn.Close()
	slog.Info("Connection unregistered", "connID", conn.ID,
		"userID", conn.Identity.UserID, "total_connections", total)
}

// Len reports the size of the active set.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Broadcast delivers msg to every open connection whose current room equals
// msg.Room, the originator included. Delivery is a non-blocking send per
// recipient; one unreachable connection never aborts the rest.
func (r *Router) Broadcast(msg domain.Message) {
	payload, err := json.Marshal(frame{Type: "chat", Payload: msg})
	if err != nil {
		slog.Error("Failed to marshal broadcast frame", "id", msg.ID, "error", err)
		return
	}

	r.mu.RLock()
	recipients := make([]*Connection, 0, len(r.conns))
	for conn := range r.conns {
		recipients = append(recipients, conn)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range recipients {
		if conn.Closed() || conn.Room() != msg.Room {
			continue
		}
		conn.Send(payload)
		delivered++
	}
	slog.Debug("Broadcast delivered", "id", msg.ID, "room", msg.Room, "recipients", delivered)
}

// Listen subscribes the router to stored-message events. The subscription's
// handler runs serially, so messages reach recipients in the order they were
// durably stored.
func (r *Router) Listen(ctx context.Context, sub pubsub.Subscriber) error {
	return sub.Subscribe(ctx, pubsub.TopicMessageStored, func(ctx context.Context, m pubsub.Message) error {
		var msg domain.Message
		if err := json.Unmarshal(m.Payload, &msg); err != nil {
			slog.Error("Dropping malformed stored-message event", "error", err)
			return nil
		}
		r.Broadcast(msg)
		return nil
	})
}
