// Package database holds the sqlite-backed account storage consumed by the
// REST surface and the session validator. The chat message log lives in
// internal/store; nothing here touches it.
package database

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// User is the persisted account row. New accounts start at level 1 with the
// standard paper balance, mirroring the product's signup defaults.
type User struct {
	ID         uint    `gorm:"primaryKey"`
	Username   string  `gorm:"uniqueIndex;not null"`
	Password   string  `gorm:"not null"`
	Reputation int     `gorm:"not null;default:0"`
	Level      int     `gorm:"not null;default:1"`
	Experience int     `gorm:"not null;default:0"`
	Balance    float64 `gorm:"not null;default:10000"`
}

// Trade is one persisted paper trade.
type Trade struct {
	ID        uint    `gorm:"primaryKey"`
	UserID    uint    `gorm:"index;not null"`
	Symbol    string  `gorm:"not null"`
	Quantity  float64 `gorm:"not null"`
	Price     float64 `gorm:"not null"`
	Type      string  `gorm:"not null"`
	Timestamp time.Time
}

// Achievement is one persisted milestone grant.
type Achievement struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;not null"`
	Type      string `gorm:"not null"`
	Timestamp time.Time
}

// WatchlistItem is one persisted watchlist entry.
type WatchlistItem struct {
	ID     uint   `gorm:"primaryKey"`
	UserID uint   `gorm:"index;not null"`
	Symbol string `gorm:"not null"`
}

// Open connects to the sqlite database at path and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	if err := db.AutoMigrate(&User{}, &Trade{}, &Achievement{}, &WatchlistItem{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return db, nil
}
