package router

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradetalk/tradetalk/internal/domain"
)

func newTestConn(id, userID, room string) *Connection {
	conn := NewConnection(id, domain.Identity{UserID: userID, Username: "user-" + userID})
	if room != "" {
		conn.SetRoom(room)
	}
	return conn
}

// drainOne pops the next queued frame, decoded, or fails the test.
func drainOne(t *testing.T, conn *Connection) domain.Message {
	t.Helper()
	select {
	case payload := <-conn.Outbound():
		var f frame
		require.NoError(t, json.Unmarshal(payload, &f))
		assert.Equal(t, "chat", f.Type)
		return f.Payload
	case <-time.After(time.Second):
		t.Fatalf("connection %s received nothing", conn.ID)
		return domain.Message{}
	}
}

func assertSilent(t *testing.T, conn *Connection) {
	t.Helper()
	select {
	case payload := <-conn.Outbound():
		t.Fatalf("connection %s unexpectedly received %s", conn.ID, payload)
	default:
	}
}

func TestBroadcastDeliversToMatchingRoomOnly(t *testing.T) {
	r := New()

	alice := newTestConn("c1", "1", "general")
	bob := newTestConn("c2", "2", "")        // connected, never sent
	carol := newTestConn("c3", "3", "general")
	dave := newTestConn("c4", "4", "options")
	for _, conn := range []*Connection{alice, bob, carol, dave} {
		r.Add(conn)
	}
	require.Equal(t, 4, r.Len())

	msg := domain.Message{ID: 1, UserID: "1", Username: "alice", Room: "general", Content: "hi"}
	r.Broadcast(msg)

	// The sender is a recipient like anyone else in the room.
	got := drainOne(t, alice)
	assert.Equal(t, "hi", got.Content)
	assert.Equal(t, "alice", got.Username)
	drainOne(t, carol)

	assertSilent(t, bob)
	assertSilent(t, dave)
}

func TestBroadcastSkipsClosedConnections(t *testing.T) {
	r := New()

	open := newTestConn("c1", "1", "general")
	closed := newTestConn("c2", "2", "general")
	r.Add(open)
	r.Add(closed)
	closed.Close()

	r.Broadcast(domain.Message{ID: 1, Room: "general", Content: "hi"})

	drainOne(t, open)
	// A send to the closed connection would have panicked on the closed
	// channel; reaching here is the assertion.
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	r := New()
	slow := newTestConn("c1", "1", "general")
	r.Add(slow)

	// Never drained: the buffer fills, later frames are dropped, nothing blocks.
	for i := 0; i < sendBuffer+10; i++ {
		r.Broadcast(domain.Message{ID: int64(i), Room: "general", Content: "x"})
	}

	assert.Len(t, slow.send, sendBuffer)
}

func TestRemoveClosesConnection(t *testing.T) {
	r := New()
	conn := newTestConn("c1", "1", "general")
	r.Add(conn)

	r.Remove(conn)

	assert.Equal(t, 0, r.Len())
	assert.True(t, conn.Closed())
	_, open := <-conn.Outbound()
	assert.False(t, open, "outbound channel should be closed after Remove")
}

func TestConnectionCloseIsIdempotent(t *testing.T) {
	conn := newTestConn("c1", "1", "")
	conn.Close()
	assert.NotPanics(t, conn.Close)
	// Send after close must be a no-op, not a panic.
	assert.NotPanics(t, func() { conn.Send([]byte("x")) })
}

func TestBroadcastPreservesOrderPerRecipient(t *testing.T) {
	r := New()
	conn := newTestConn("c1", "1", "general")
	r.Add(conn)

	for i := 0; i < 20; i++ {
		r.Broadcast(domain.Message{ID: int64(i + 1), Room: "general", Content: fmt.Sprintf("msg-%d", i)})
	}
	for i := 0; i < 20; i++ {
		got := drainOne(t, conn)
		assert.Equal(t, int64(i+1), got.ID)
	}
}
