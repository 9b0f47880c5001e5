// Package client is the client-side counterpart of the chat gateway: one
// logical connection over an unreliable transport, with automatic
// reconnection, an outbound queue for sends while disconnected, and
// channel-based delivery of inbound frames to subscribers.
package client

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// State is the manager's connection state.
type State int

const (
	// StateDisconnected is the initial state; nothing has been dialed yet.
	StateDisconnected State = iota
	// StateConnecting means a dial attempt is in flight.
	StateConnecting
	// StateConnected means the transport is open.
	StateConnected
	// StateReconnecting means the transport dropped and a retry is
	// scheduled.
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// ErrClosed is returned by operations on a torn-down manager.
var ErrClosed = errors.New("client: manager is closed")

// Frame is one discrete unit exchanged over the transport.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Options configures a Manager.
type Options struct {
	// URL is the ws:// or wss:// endpoint.
	URL string
	// Header is sent with the handshake request; put the session cookie
	// here.
	Header http.Header
	// ReconnectDelay is the fixed wait before a retry. Defaults to 3s.
	ReconnectDelay time.Duration
	// HandshakeTimeout bounds each dial attempt. Defaults to 10s.
	HandshakeTimeout time.Duration
	// OnConnect and OnDisconnect observe transitions into and out of the
	// connected state. Called outside the manager's lock.
	OnConnect    func()
	OnDisconnect func()
}

// subscriberBuffer is the per-subscriber inbound buffer. A subscriber that
// stops reading loses frames rather than stalling the read loop.
const subscriberBuffer = 64

// Subscription delivers every successfully parsed inbound frame on C until
// Cancel is called. Cancel detaches only this subscriber.
type Subscription struct {
	C <-chan Frame

	c       chan Frame
	manager *Manager
}

// Cancel detaches the subscription and closes C. It never affects the
// transport or other subscribers, and is safe to call more than once.
func (s *Subscription) Cancel() {
	m := s.manager
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[s]; ok {
		delete(m.subs, s)
		close(s.c)
	}
}

// Manager owns a single logical connection. All state is mutated under one
// lock; dial attempts never race because only one can be in flight per
// Connecting transition.
type Manager struct {
	opts Options

	mu        sync.Mutex
	state     State
	conn      *websocket.Conn
	queue     [][]byte
	subs      map[*Subscription]struct{}
	reconnect *time.Timer
	closed    bool

	// wmu serializes socket writes; reads have their own goroutine.
	wmu sync.Mutex
}

// New creates a Manager in the Disconnected state. Nothing is dialed until
// Connect or the first Send.
func New(opts Options) *Manager {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 3 * time.Second
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	return &Manager{
		opts: opts,
		subs: make(map[*Subscription]struct{}),
	}
}

// State reports the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect starts a dial attempt unless one is already in flight or the
// transport is open.
func (m *Manager) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.state == StateConnecting || m.state == StateConnected {
		return
	}
	m.startConnect()
}

// startConnect transitions to Connecting and launches the dial goroutine.
// Caller holds m.mu and has ruled out Connecting/Connected.
func (m *Manager) startConnect() {
	m.stopTimer()
	m.state = StateConnecting
	go m.dial()
}

func (m *Manager) dial() {
	dialer := websocket.Dialer{HandshakeTimeout: m.opts.HandshakeTimeout}
	conn, resp, err := dialer.Dial(m.opts.URL, m.opts.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		if err == nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		slog.Debug("Dial failed, scheduling reconnect", "url", m.opts.URL, "error", err)
		m.state = StateReconnecting
		m.scheduleReconnect()
		m.mu.Unlock()
		m.notifyDisconnected()
		return
	}

	m.conn = conn
	m.mu.Unlock()

	go m.readLoop(conn)
	if m.flush(conn) {
		m.notifyConnected()
	}
}

// flush transmits the outbound queue in FIFO order, exactly once per entry,
// then marks the manager Connected and reports true. Sends arriving
// mid-flush keep queueing (state is still Connecting) and are drained before
// the transition. It reports false when the flush was abandoned: the manager
// closed, the connection replaced, or a write failed.
func (m *Manager) flush(conn *websocket.Conn) bool {
	for {
		m.mu.Lock()
		if m.closed || m.conn != conn {
			m.mu.Unlock()
			return false
		}
		if len(m.queue) == 0 {
			m.state = StateConnected
			m.mu.Unlock()
			return true
		}
		batch := m.queue
		m.queue = nil
		m.mu.Unlock()

		for i, data := range batch {
			if err := m.write(conn, data); err != nil {
				// Transport died mid-flush. Keep the untransmitted
				// tail queued; the read loop handles the failure.
				m.mu.Lock()
				m.queue = append(batch[i:], m.queue...)
				m.mu.Unlock()
				return false
			}
		}
	}
}

// Send transmits immediately when connected, otherwise queues the frame and
// triggers an immediate connect attempt (no waiting out the reconnect
// delay) unless one is already in flight.
func (m *Manager) Send(frameType string, payload any) error {
	data, err := json.Marshal(struct {
		Type    string `json:"type"`
		Payload any    `json:"payload"`
	}{frameType, payload})
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}

	if m.state == StateConnected {
		conn := m.conn
		m.mu.Unlock()
		return m.write(conn, data)
	}

	m.queue = append(m.queue, data)
	if m.state == StateDisconnected || m.state == StateReconnecting {
		m.startConnect()
	}
	m.mu.Unlock()
	return nil
}

func (m *Manager) write(conn *websocket.Conn, data []byte) error {
	m.wmu.Lock()
	defer m.wmu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Subscribe registers a new frame subscriber.
func (m *Manager) Subscribe() *Subscription {
	sub := &Subscription{c: make(chan Frame, subscriberBuffer), manager: m}
	sub.C = sub.c

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		close(sub.c)
		return sub
	}
	m.subs[sub] = struct{}{}
	return sub
}

func (m *Manager) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.handleTransportError(conn, err)
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Type == "" {
			// Malformed frames are dropped locally; they never reach
			// subscribers and never close the connection.
			slog.Debug("Dropping malformed inbound frame", "error", err)
			continue
		}
		m.dispatch(frame)
	}
}

func (m *Manager) dispatch(frame Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	for sub := range m.subs {
		select {
		case sub.c <- frame:
		default:
			slog.Warn("Subscriber buffer full, dropping frame", "type", frame.Type)
		}
	}
}

// handleTransportError runs the reconnect protocol after a read failure on
// conn. Stale connections (already replaced or torn down) are ignored.
func (m *Manager) handleTransportError(conn *websocket.Conn, err error) {
	m.mu.Lock()
	if m.closed || m.conn != conn {
		m.mu.Unlock()
		return
	}

	slog.Debug("Transport closed, scheduling reconnect", "error", err)
	m.conn = nil
	conn.Close()
	m.state = StateReconnecting
	m.scheduleReconnect()
	m.mu.Unlock()

	m.notifyDisconnected()
}

// scheduleReconnect arms exactly one future connect attempt. Caller holds
// m.mu. Any previously pending timer is canceled first.
func (m *Manager) scheduleReconnect() {
	m.stopTimer()
	m.reconnect = time.AfterFunc(m.opts.ReconnectDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		// A late fire after teardown, or after Send already triggered a
		// connect, is a no-op.
		if m.closed || m.state != StateReconnecting {
			return
		}
		m.startConnect()
	})
}

// stopTimer cancels the pending reconnect timer, if any. Caller holds m.mu.
func (m *Manager) stopTimer() {
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
}

func (m *Manager) notifyConnected() {
	if m.opts.OnConnect != nil {
		m.opts.OnConnect()
	}
}

func (m *Manager) notifyDisconnected() {
	if m.opts.OnDisconnect != nil {
		m.opts.OnDisconnect()
	}
}

// Close tears the manager down: the reconnect timer is canceled, the
// transport closed, and every subscription ended. In-flight attempts are
// not retroactively failed; they just find the manager closed.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.stopTimer()

	conn := m.conn
	m.conn = nil
	m.state = StateDisconnected

	for sub := range m.subs {
		close(sub.c)
	}
	m.subs = make(map[*Subscription]struct{})
	m.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}
