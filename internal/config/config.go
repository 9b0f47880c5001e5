package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Addr is the listen address for the HTTP server, e.g. ":8080".
	Addr string
	// SessionSecret signs the session cookies the validator resolves.
	SessionSecret string
	// DatabasePath is the sqlite file backing users, trades and watchlists.
	DatabasePath string
	// ChatLogPath is the append-only chat message log. Empty selects the
	// in-memory store.
	ChatLogPath string
	// EnvFile is the file the config watcher observes for log level
	// changes. Empty disables the watcher.
	EnvFile string
	// ShutdownTimeout bounds the graceful shutdown of the HTTP server.
	ShutdownTimeout time.Duration
}

// New loads configuration from environment variables.
func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		Addr:            getenv("ADDR", ":8080"),
		SessionSecret:   os.Getenv("SESSION_SECRET"),
		DatabasePath:    getenv("DATABASE_PATH", "tradetalk.db"),
		ChatLogPath:     os.Getenv("CHAT_LOG_PATH"),
		EnvFile:         os.Getenv("ENV_FILE"),
		ShutdownTimeout: 10 * time.Second,
	}

	if cfg.SessionSecret == "" {
		log.Fatal("Required environment variable SESSION_SECRET is not set.")
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
