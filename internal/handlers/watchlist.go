package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tradetalk/tradetalk/internal/database"
	"github.com/tradetalk/tradetalk/internal/domain"
	"github.com/tradetalk/tradetalk/internal/middleware"
)

// WatchlistHandler is the watchlist part of the consumed REST surface.
type WatchlistHandler struct {
	watchlist *database.WatchlistStore
}

// NewWatchlistHandler creates a WatchlistHandler.
func NewWatchlistHandler(watchlist *database.WatchlistStore) *WatchlistHandler {
	return &WatchlistHandler{watchlist: watchlist}
}

// UserWatchlist returns the watchlist for one user.
func (h *WatchlistHandler) UserWatchlist(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("invalid user id"))
	}

	items, err := h.watchlist.UserWatchlist(c.Request().Context(), uint(userID))
	if err != nil {
		slog.Error("Failed to load watchlist", "userID", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorJSON("failed to load watchlist"))
	}
	if items == nil {
		items = []domain.WatchlistItem{}
	}
	return c.JSON(http.StatusOK, items)
}

// AddToWatchlist adds a symbol for the authenticated user.
func (h *WatchlistHandler) AddToWatchlist(c echo.Context) error {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, errorJSON("authentication required"))
	}

	var req AddWatchlistRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("symbol is required"))
	}

	userID, err := strconv.ParseUint(identity.UserID, 10, 32)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorJSON("authentication required"))
	}

	item, err := h.watchlist.Add(c.Request().Context(), uint(userID), req.Symbol)
	if err != nil {
		slog.Error("Failed to add watchlist entry", "userID", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorJSON("failed to update watchlist"))
	}
	return c.JSON(http.StatusCreated, item)
}
