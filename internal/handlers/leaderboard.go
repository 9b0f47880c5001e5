package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tradetalk/tradetalk/internal/database"
)

// LeaderboardHandler serves the reputation leaderboard.
type LeaderboardHandler struct {
	users *database.UserStore
}

// NewLeaderboardHandler creates a LeaderboardHandler.
func NewLeaderboardHandler(users *database.UserStore) *LeaderboardHandler {
	return &LeaderboardHandler{users: users}
}

// Leaderboard returns the top users. An optional ?limit= caps how many.
func (h *LeaderboardHandler) Leaderboard(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, errorJSON("invalid limit"))
		}
		limit = parsed
	}

	users, err := h.users.Leaderboard(c.Request().Context(), limit)
	if err != nil {
		slog.Error("Failed to load leaderboard", "error", err)
		return c.JSON(http.StatusInternalServerError, errorJSON("failed to load leaderboard"))
	}
	return c.JSON(http.StatusOK, users)
}
