package server

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
	echosession "github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/afero"
	"gorm.io/gorm"

	"github.com/tradetalk/tradetalk/internal/auth"
	"github.com/tradetalk/tradetalk/internal/config"
	"github.com/tradetalk/tradetalk/internal/database"
	"github.com/tradetalk/tradetalk/internal/gateway"
	"github.com/tradetalk/tradetalk/internal/handlers"
	"github.com/tradetalk/tradetalk/internal/logging"
	"github.com/tradetalk/tradetalk/internal/pubsub"
	"github.com/tradetalk/tradetalk/internal/router"
	"github.com/tradetalk/tradetalk/internal/store"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	E   *echo.Echo
	Cfg *config.Config

	db           *gorm.DB
	sessionStore *sessions.CookieStore
	validator    auth.SessionValidator
	messageStore store.MessageStore
	bus          *pubsub.WatermillBridge
	router       *router.Router
	gateway      *gateway.Gateway
	watcher      *config.Watcher

	userStore        *database.UserStore
	tradeStore       *database.TradeStore
	achievementStore *database.AchievementStore
	watchlistStore   *database.WatchlistStore
}

// New creates a fully wired Server instance.
func New() *Server {
	// Load environment variables from .env file if it exists. We don't
	// have slog configured yet, so the standard logger has to do here.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	logging.New()
	cfg := config.New()

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}

	var watcher *config.Watcher
	if cfg.EnvFile != "" {
		watcher, err = config.Watch(cfg.EnvFile)
		if err != nil {
			slog.Warn("Config watcher disabled", "error", err)
		}
	}

	bus := pubsub.NewWatermillBridge()

	var messageStore store.MessageStore
	if cfg.ChatLogPath != "" {
		logStore, err := store.OpenLogStore(afero.NewOsFs(), cfg.ChatLogPath, bus)
		if err != nil {
			slog.Error("Failed to open chat message log", "path", cfg.ChatLogPath, "error", err)
			os.Exit(1)
		}
		messageStore = logStore
	} else {
		slog.Warn("CHAT_LOG_PATH not set, chat history will not survive restarts")
		messageStore = store.NewMemStore(bus)
	}

	broadcastRouter := router.New()
	if err := broadcastRouter.Listen(context.Background(), bus); err != nil {
		slog.Error("Failed to attach router to message bus", "error", err)
		os.Exit(1)
	}

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
	}

	userStore := database.NewUserStore(db)
	validator := auth.NewCookieValidator(sessionStore, userStore)
	gw := gateway.New(validator, messageStore, broadcastRouter)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewValidator()
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	// The auth handlers read and write sessions through this middleware;
	// the cookie validator decodes the same store directly.
	e.Use(echosession.Middleware(sessionStore))

	return &Server{
		E:              e,
		Cfg:            cfg,
		db:             db,
		sessionStore:   sessionStore,
		validator:      validator,
		messageStore:   messageStore,
		bus:            bus,
		router:         broadcastRouter,
		gateway:        gw,
		watcher:        watcher,
		userStore:        userStore,
		tradeStore:       database.NewTradeStore(db),
		achievementStore: database.NewAchievementStore(db),
		watchlistStore:   database.NewWatchlistStore(db),
	}
}

// Router is a getter for the broadcast router, useful for testing.
func (s *Server) Router() *router.Router {
	return s.router
}

// MessageStore is a getter for the message store, useful for testing.
func (s *Server) MessageStore() store.MessageStore {
	return s.messageStore
}
