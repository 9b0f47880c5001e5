package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tradetalk/tradetalk/internal/database"
	"github.com/tradetalk/tradetalk/internal/domain"
)

// AchievementsHandler is the achievements part of the consumed REST surface.
// Achievements are granted server-side, so the surface is read-only.
type AchievementsHandler struct {
	achievements *database.AchievementStore
}

// NewAchievementsHandler creates an AchievementsHandler.
func NewAchievementsHandler(achievements *database.AchievementStore) *AchievementsHandler {
	return &AchievementsHandler{achievements: achievements}
}

// UserAchievements returns the achievements earned by one user.
func (h *AchievementsHandler) UserAchievements(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("invalid user id"))
	}

	achievements, err := h.achievements.UserAchievements(c.Request().Context(), uint(userID))
	if err != nil {
		slog.Error("Failed to load achievements", "userID", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorJSON("failed to load achievements"))
	}
	if achievements == nil {
		achievements = []domain.Achievement{}
	}
	return c.JSON(http.StatusOK, achievements)
}
