package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tradetalk/tradetalk/internal/handlers"
	"github.com/tradetalk/tradetalk/internal/middleware"
)

// RegisterRoutes sets up all the application routes.
func (s *Server) RegisterRoutes() {
	authHandler := handlers.NewAuthHandler(s.userStore)
	messagesHandler := handlers.NewMessagesHandler(s.messageStore)
	tradesHandler := handlers.NewTradesHandler(s.tradeStore)
	achievementsHandler := handlers.NewAchievementsHandler(s.achievementStore)
	watchlistHandler := handlers.NewWatchlistHandler(s.watchlistStore)
	leaderboardHandler := handlers.NewLeaderboardHandler(s.userStore)

	requireAuth := middleware.Auth(s.validator)
	rateLimiter := middleware.RateLimiter()

	// The persistent chat channel. Authentication happens inside the
	// gateway's handshake, before the upgrade.
	s.E.GET("/ws", s.gateway.ServeWS)

	api := s.E.Group("/api")
	api.POST("/register", authHandler.RegisterPost, rateLimiter)
	api.POST("/login", authHandler.LoginPost, rateLimiter)
	api.POST("/logout", authHandler.LogoutPost)

	api.GET("/messages/:room", messagesHandler.RoomMessages, requireAuth)
	api.GET("/trades/:userId", tradesHandler.UserTrades, requireAuth)
	api.POST("/trades", tradesHandler.CreateTrade, requireAuth)
	api.GET("/achievements/:userId", achievementsHandler.UserAchievements, requireAuth)
	api.GET("/watchlist/:userId", watchlistHandler.UserWatchlist, requireAuth)
	api.POST("/watchlist", watchlistHandler.AddToWatchlist, requireAuth)
	api.GET("/leaderboard", leaderboardHandler.Leaderboard, requireAuth)

	s.E.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
}
