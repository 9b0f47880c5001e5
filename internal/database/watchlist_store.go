package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tradetalk/tradetalk/internal/domain"
)

// WatchlistStore handles watchlist rows for the consumed REST surface.
type WatchlistStore struct {
	db *gorm.DB
}

// NewWatchlistStore creates a WatchlistStore.
func NewWatchlistStore(db *gorm.DB) *WatchlistStore {
	return &WatchlistStore{db: db}
}

// Add puts a symbol on a user's watchlist.
func (s *WatchlistStore) Add(ctx context.Context, userID uint, symbol string) (domain.WatchlistItem, error) {
	row := WatchlistItem{UserID: userID, Symbol: symbol}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.WatchlistItem{}, fmt.Errorf("failed to add watchlist entry: %w", err)
	}
	return domain.WatchlistItem{ID: row.ID, UserID: row.UserID, Symbol: row.Symbol}, nil
}

// UserWatchlist returns every watched symbol for one user.
func (s *WatchlistStore) UserWatchlist(ctx context.Context, userID uint) ([]domain.WatchlistItem, error) {
	var rows []WatchlistItem
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load watchlist for user %d: %w", userID, err)
	}

	items := make([]domain.WatchlistItem, len(rows))
	for i, row := range rows {
		items[i] = domain.WatchlistItem{ID: row.ID, UserID: row.UserID, Symbol: row.Symbol}
	}
	return items, nil
}
