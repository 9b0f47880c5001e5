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

// TradesHandler is the trade-history part of the consumed REST surface.
type TradesHandler struct {
	trades *database.TradeStore
}

// NewTradesHandler creates a TradesHandler.
func NewTradesHandler(trades *database.TradeStore) *TradesHandler {
	return &TradesHandler{trades: trades}
}

// UserTrades returns the trade history for one user.
func (h *TradesHandler) UserTrades(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("invalid user id"))
	}

	trades, err := h.trades.UserTrades(c.Request().Context(), uint(userID))
	if err != nil {
		slog.Error("Failed to load trades", "userID", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorJSON("failed to load trades"))
	}
	if trades == nil {
		trades = []domain.Trade{}
	}
	return c.JSON(http.StatusOK, trades)
}

// CreateTrade records a paper trade for the authenticated user.
func (h *TradesHandler) CreateTrade(c echo.Context) error {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, errorJSON("authentication required"))
	}

	var req CreateTradeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("symbol, quantity, price and type are required"))
	}

	userID, err := strconv.ParseUint(identity.UserID, 10, 32)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorJSON("authentication required"))
	}

	trade, err := h.trades.CreateTrade(c.Request().Context(), domain.Trade{
		UserID:   uint(userID),
		Symbol:   req.Symbol,
		Quantity: req.Quantity,
		Price:    req.Price,
		Type:     req.Type,
	})
	if err != nil {
		slog.Error("Failed to create trade", "userID", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorJSON("failed to create trade"))
	}
	return c.JSON(http.StatusCreated, trade)
}
