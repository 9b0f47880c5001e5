package gateway_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradetalk/tradetalk/internal/auth"
	"github.com/tradetalk/tradetalk/internal/domain"
	"github.com/tradetalk/tradetalk/internal/gateway"
	"github.com/tradetalk/tradetalk/internal/pubsub"
	"github.com/tradetalk/tradetalk/internal/router"
	"github.com/tradetalk/tradetalk/internal/store"
)

type gatewayFixture struct {
	server    *httptest.Server
	router    *router.Router
	store     *store.MemStore
	validator *auth.MemoryValidator
}

func setupGateway(t *testing.T) *gatewayFixture {
	t.Helper()

	bridge := pubsub.NewWatermillBridge()
	t.Cleanup(func() { bridge.Close() })

	messageStore := store.NewMemStore(bridge)
	r := router.New()
	require.NoError(t, r.Listen(context.Background(), bridge))

	validator := auth.NewMemoryValidator()
	validator.Add("tok-alice", domain.Identity{UserID: "1", Username: "alice"})
	validator.Add("tok-bob", domain.Identity{UserID: "2", Username: "bob"})
	validator.Add("tok-carol", domain.Identity{UserID: "3", Username: "carol"})

	gw := gateway.New(validator, messageStore, r)

	e := echo.New()
	e.GET("/ws", gw.ServeWS)
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	return &gatewayFixture{server: server, router: r, store: messageStore, validator: validator}
}

// dial opens a WebSocket to the fixture's chat endpoint carrying the given
// session token as a cookie.
func (f *gatewayFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()

	header := http.Header{}
	if token != "" {
		header.Add("Cookie", auth.SessionCookieName+"="+token)
	}
	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type wireFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func sendChat(t *testing.T, conn *websocket.Conn, room, content string) {
	t.Helper()
	frame := map[string]any{
		"type":    "chat",
		"payload": map[string]string{"room": room, "content": content},
	}
	require.NoError(t, conn.WriteJSON(frame))
}

func readFrame(t *testing.T, conn *websocket.Conn) wireFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame wireFrame
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func readChat(t *testing.T, conn *websocket.Conn) domain.Message {
	t.Helper()
	frame := readFrame(t, conn)
	require.Equal(t, "chat", frame.Type)

	var msg domain.Message
	require.NoError(t, json.Unmarshal(frame.Payload, &msg))
	return msg
}

func assertNoFrame(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "expected no frame, got %s", data)
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout(), "read should time out, not fail: %v", err)
}

func TestServeWSRejectsUnauthenticatedHandshake(t *testing.T) {
	f := setupGateway(t)

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// And with a token nobody issued.
	header := http.Header{}
	header.Add("Cookie", auth.SessionCookieName+"=tok-forged")
	_, resp, err = websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	assert.Equal(t, 0, f.router.Len(), "rejected handshakes must not register connections")
}

func TestServeWSClosesOnUnresolvableIdentity(t *testing.T) {
	f := setupGateway(t)

	// A session that validates but resolves to nobody: the handshake
	// passes, so the failure surfaces as a policy-violation close on the
	// upgraded socket rather than a 401.
	f.validator.Add("tok-ghost", domain.Identity{})

	conn := f.dial(t, "tok-ghost")
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
	assert.Equal(t, 0, f.router.Len(), "an unbindable connection never joins the active set")
}

func TestChatBroadcastReachesRoomMembersOnly(t *testing.T) {
	f := setupGateway(t)

	alice := f.dial(t, "tok-alice")
	bob := f.dial(t, "tok-bob")
	carol := f.dial(t, "tok-carol")

	require.Eventually(t, func() bool { return f.router.Len() == 3 },
		2*time.Second, 10*time.Millisecond)

	// Carol joins general by sending there; drain her own echo.
	sendChat(t, carol, "general", "anyone here?")
	readChat(t, carol)

	// Alice sends to general carrying spoofed identity fields in the
	// payload; the broadcast must carry her session identity instead.
	require.NoError(t, alice.WriteJSON(map[string]any{
		"type": "chat",
		"payload": map[string]string{
			"room": "general", "content": "hello", "userId": "999", "username": "mallory",
		},
	}))

	for _, conn := range []*websocket.Conn{alice, carol} {
		got := readChat(t, conn)
		assert.Equal(t, "hello", got.Content)
		assert.Equal(t, "general", got.Room)
		assert.Equal(t, "1", got.UserID)
		assert.Equal(t, "alice", got.Username)
		assert.NotZero(t, got.ID)
		assert.False(t, got.Timestamp.IsZero())
	}

	// Bob is connected but has never sent: no room, no delivery.
	assertNoFrame(t, bob)
}

func TestJoinOnSendMovesConnectionBetweenRooms(t *testing.T) {
	f := setupGateway(t)

	alice := f.dial(t, "tok-alice")
	bob := f.dial(t, "tok-bob")
	require.Eventually(t, func() bool { return f.router.Len() == 2 },
		2*time.Second, 10*time.Millisecond)

	sendChat(t, alice, "general", "hi general")
	readChat(t, alice)
	sendChat(t, alice, "options", "hi options")
	got := readChat(t, alice)
	assert.Equal(t, "options", got.Room)

	// Bob posts to general; alice has moved on and must not see it.
	sendChat(t, bob, "general", "late to the party")
	readChat(t, bob)
	assertNoFrame(t, alice)
}

func TestInvalidChatGetsErrorFrameAndChangesNothing(t *testing.T) {
	f := setupGateway(t)
	ctx := context.Background()

	alice := f.dial(t, "tok-alice")
	carol := f.dial(t, "tok-carol")
	require.Eventually(t, func() bool { return f.router.Len() == 2 },
		2*time.Second, 10*time.Millisecond)

	// Establish alice in lobby first.
	sendChat(t, alice, "lobby", "hello lobby")
	readChat(t, alice)

	// Empty content: alice alone gets an error frame.
	sendChat(t, alice, "general", "")
	frame := readFrame(t, alice)
	assert.Equal(t, "error", frame.Type)

	// Nothing was stored for the rejected send.
	general, err := f.store.RoomMessages(ctx, "general")
	require.NoError(t, err)
	assert.Empty(t, general)

	// And alice's room did not move: she still receives lobby traffic.
	sendChat(t, carol, "lobby", "still with us?")
	readChat(t, carol)
	got := readChat(t, alice)
	assert.Equal(t, "still with us?", got.Content)
}

func TestMalformedFrameGetsErrorFrame(t *testing.T) {
	f := setupGateway(t)

	alice := f.dial(t, "tok-alice")
	require.Eventually(t, func() bool { return f.router.Len() == 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("this is not json")))
	frame := readFrame(t, alice)
	assert.Equal(t, "error", frame.Type)

	// The connection survives the bad frame.
	sendChat(t, alice, "general", "still alive")
	got := readChat(t, alice)
	assert.Equal(t, "still alive", got.Content)
}

func TestUnknownFrameTypeIsIgnored(t *testing.T) {
	f := setupGateway(t)

	alice := f.dial(t, "tok-alice")
	require.Eventually(t, func() bool { return f.router.Len() == 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, alice.WriteJSON(map[string]any{
		"type":    "typing",
		"payload": map[string]string{"room": "general"},
	}))
	assertNoFrame(t, alice)
}

// flakyStore wraps a MemStore and can be switched to fail every append.
type flakyStore struct {
	*store.MemStore
	mu   sync.Mutex
	fail bool
}

func (s *flakyStore) setFail(fail bool) {
	s.mu.Lock()
	s.fail = fail
	s.mu.Unlock()
}

func (s *flakyStore) CreateMessage(ctx context.Context, input store.CreateMessageInput) (domain.Message, error) {
	s.mu.Lock()
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return domain.Message{}, fmt.Errorf("failed to append message: %w", domain.ErrPersistence)
	}
	return s.MemStore.CreateMessage(ctx, input)
}

func TestPersistenceFailureIsLocalToTheSender(t *testing.T) {
	ctx := context.Background()

	bridge := pubsub.NewWatermillBridge()
	t.Cleanup(func() { bridge.Close() })

	flaky := &flakyStore{MemStore: store.NewMemStore(bridge)}
	r := router.New()
	require.NoError(t, r.Listen(ctx, bridge))

	validator := auth.NewMemoryValidator()
	validator.Add("tok-alice", domain.Identity{UserID: "1", Username: "alice"})
	validator.Add("tok-carol", domain.Identity{UserID: "3", Username: "carol"})

	gw := gateway.New(validator, flaky, r)
	e := echo.New()
	e.GET("/ws", gw.ServeWS)
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	f := &gatewayFixture{server: server, router: r, validator: validator}

	alice := f.dial(t, "tok-alice")
	carol := f.dial(t, "tok-carol")
	require.Eventually(t, func() bool { return r.Len() == 2 },
		2*time.Second, 10*time.Millisecond)

	// Both join general while the store is healthy.
	sendChat(t, carol, "general", "here first")
	readChat(t, carol)
	sendChat(t, alice, "general", "me too")
	readChat(t, alice)
	readChat(t, carol)

	// Now every append fails: the sender alone gets an error frame.
	flaky.setFail(true)
	sendChat(t, alice, "general", "lost to the void")

	frame := readFrame(t, alice)
	assert.Equal(t, "error", frame.Type)
	assertNoFrame(t, carol)

	history, err := flaky.RoomMessages(ctx, "general")
	require.NoError(t, err)
	require.Len(t, history, 2, "a failed append must store nothing")

	// The connection survives: once the store heals, the next send flows.
	flaky.setFail(false)
	sendChat(t, alice, "general", "back on the record")
	got := readChat(t, alice)
	assert.Equal(t, "back on the record", got.Content)
	got = readChat(t, carol)
	assert.Equal(t, "back on the record", got.Content)
}

func TestDisconnectRemovesConnection(t *testing.T) {
	f := setupGateway(t)

	alice := f.dial(t, "tok-alice")
	require.Eventually(t, func() bool { return f.router.Len() == 1 },
		2*time.Second, 10*time.Millisecond)

	alice.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	alice.Close()

	require.Eventually(t, func() bool { return f.router.Len() == 0 },
		2*time.Second, 10*time.Millisecond, "closed connection must leave the active set")
}
