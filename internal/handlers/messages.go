package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tradetalk/tradetalk/internal/domain"
	"github.com/tradetalk/tradetalk/internal/store"
)

// MessagesHandler serves room message history from the same store the
// gateway appends to.
type MessagesHandler struct {
	store store.MessageStore
}

// NewMessagesHandler creates a MessagesHandler.
func NewMessagesHandler(s store.MessageStore) *MessagesHandler {
	return &MessagesHandler{store: s}
}

// RoomMessages returns the full ordered history for one room. History is
// not paginated.
func (h *MessagesHandler) RoomMessages(c echo.Context) error {
	room := c.Param("room")
	if room == "" {
		return c.JSON(http.StatusBadRequest, errorJSON("room is required"))
	}

	messages, err := h.store.RoomMessages(c.Request().Context(), room)
	if err != nil {
		slog.Error("Failed to load room history", "room", room, "error", err)
		return c.JSON(http.StatusInternalServerError, errorJSON("failed to load messages"))
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return c.JSON(http.StatusOK, messages)
}
