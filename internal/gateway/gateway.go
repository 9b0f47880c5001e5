// Package gateway owns the lifecycle of one persistent chat connection:
// handshake authentication, inbound frame handling, persistence, and the
// hand-off to the broadcast router.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tradetalk/tradetalk/internal/auth"
	"github.com/tradetalk/tradetalk/internal/domain"
	"github.com/tradetalk/tradetalk/internal/router"
	"github.com/tradetalk/tradetalk/internal/store"
)

// Gateway upgrades authenticated requests to WebSocket connections and runs
// the per-connection read and write loops.
type Gateway struct {
	validator auth.SessionValidator
	store     store.MessageStore
	router    *router.Router
	validate  *validator.Validate
}

// New creates a Gateway. The router is injected; the gateway never reaches
// for a global connection set.
func New(sessionValidator auth.SessionValidator, messageStore store.MessageStore, r *router.Router) *Gateway {
	return &Gateway{
		validator: sessionValidator,
		store:     messageStore,
		router:    r,
		validate:  validator.New(),
	}
}

// ServeWS handles WebSocket connection requests at the chat endpoint.
// Authentication happens before the upgrade: a request without a resolvable
// session never produces a Connection.
func (g *Gateway) ServeWS(c echo.Context) error {
	identity, err := g.handshake(c.Request())
	if err != nil {
		slog.Info("WebSocket handshake rejected", "error", err)
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication required"})
	}

	ws, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		// The session cookie is the credential; origin enforcement is
		// left to the deployment in front of this server.
		InsecureSkipVerify: true,
	})
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "error", err)
		return c.String(http.StatusInternalServerError, "Failed to upgrade to WebSocket")
	}

	if identity.UserID == "" {
		// Cannot bind a connection to nobody. Post-upgrade identity
		// failures close with a policy-violation status.
		ws.Close(websocket.StatusPolicyViolation, "unresolvable identity")
		return nil
	}

	conn := router.NewConnection(uuid.NewString(), identity)
	g.router.Add(conn)

	slog.Info("WebSocket connection established",
		"connID", conn.ID, "userID", identity.UserID, "username", identity.Username)

	go g.writePump(ws, conn)
	go g.readPump(ws, conn)

	return nil
}

// handshake extracts the session token from the request cookie and resolves
// it through the session validator.
func (g *Gateway) handshake(r *http.Request) (domain.Identity, error) {
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return domain.Identity{}, domain.ErrAuthentication
	}
	return g.validator.Validate(r.Context(), cookie.Value)
}

// readPump pumps frames from the WebSocket into the store and, via the bus,
// the router. One readPump per connection; all reads happen here, and the
// connection's room tag is mutated only here.
func (g *Gateway) readPump(ws *websocket.Conn, conn *router.Connection) {
	defer func() {
		g.router.Remove(conn)
		ws.Close(websocket.StatusNormalClosure, "")
	}()

	ctx := context.Background()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				slog.Info("WebSocket closed", "connID", conn.ID)
			} else {
				slog.Error("WebSocket read error", "connID", conn.ID, "error", err)
			}
			return
		}

		g.handleFrame(ctx, conn, data)
	}
}

// handleFrame processes one inbound frame. Failures are local to the sending
// connection: it gets an error frame, everything else is untouched.
func (g *Gateway) handleFrame(ctx context.Context, conn *router.Connection, data []byte) {
	inbound, err := ParseInbound(data)
	if err != nil {
		slog.Debug("Rejecting malformed frame", "connID", conn.ID, "error", err)
		conn.Send(errorFrame("failed to process message"))
		return
	}

	switch f := inbound.(type) {
	case ChatFrame:
		g.handleChat(ctx, conn, f.Payload)
	case UnknownFrame:
		slog.Debug("Ignoring unknown frame type", "connID", conn.ID, "type", f.Type)
	}
}

func (g *Gateway) handleChat(ctx context.Context, conn *router.Connection, payload ChatPayload) {
	if err := g.validate.Struct(payload); err != nil {
		conn.Send(errorFrame("room and content must be non-empty"))
		return
	}

	// Join-on-send: room membership transitions on every valid chat send.
	conn.SetRoom(payload.Room)

	msg, err := g.store.CreateMessage(ctx, store.CreateMessageInput{
		UserID:   conn.Identity.UserID,
		Username: conn.Identity.Username,
		Room:     payload.Room,
		Content:  payload.Content,
	})
	if err != nil {
		slog.Error("Failed to persist chat message",
			"connID", conn.ID, "room", payload.Room, "error", err)
		if errors.Is(err, domain.ErrPersistence) {
			conn.Send(errorFrame("failed to store message"))
		} else {
			conn.Send(errorFrame("failed to process message"))
		}
		return
	}

	slog.Debug("Chat message stored", "id", msg.ID, "room", msg.Room, "userID", msg.UserID)
	// Fan-out happens on the stored-message topic the store publishes to;
	// nothing more to do here.
}

// writePump drains the connection's outbound channel onto the socket. One
// writePump per connection; all writes happen here.
func (g *Gateway) writePump(ws *websocket.Conn, conn *router.Connection) {
	ctx := context.Background()
	for payload := range conn.Outbound() {
		if err := ws.Write(ctx, websocket.MessageText, payload); err != nil {
			slog.Error("WebSocket write error", "connID", conn.ID, "error", err)
			ws.Close(websocket.StatusInternalError, "write failure")
			return
		}
	}
	ws.Close(websocket.StatusNormalClosure, "")
}
