package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tradetalk/tradetalk/internal/domain"
)

// TradeStore handles trade rows for the consumed REST surface.
type TradeStore struct {
	db *gorm.DB
}

// NewTradeStore creates a TradeStore.
func NewTradeStore(db *gorm.DB) *TradeStore {
	return &TradeStore{db: db}
}

// CreateTrade persists a trade with a server-assigned timestamp.
func (s *TradeStore) CreateTrade(ctx context.Context, trade domain.Trade) (domain.Trade, error) {
	row := Trade{
		UserID:    trade.UserID,
		Symbol:    trade.Symbol,
		Quantity:  trade.Quantity,
		Price:     trade.Price,
		Type:      trade.Type,
		Timestamp: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Trade{}, fmt.Errorf("failed to create trade: %w", err)
	}
	return toDomainTrade(&row), nil
}

// UserTrades returns every trade for one user, oldest first.
func (s *TradeStore) UserTrades(ctx context.Context, userID uint) ([]domain.Trade, error) {
	var rows []Trade
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load trades for user %d: %w", userID, err)
	}

	trades := make([]domain.Trade, len(rows))
	for i := range rows {
		trades[i] = toDomainTrade(&rows[i])
	}
	return trades, nil
}

func toDomainTrade(t *Trade) domain.Trade {
	return domain.Trade{
		ID:        t.ID,
		UserID:    t.UserID,
		Symbol:    t.Symbol,
		Quantity:  t.Quantity,
		Price:     t.Price,
		Type:      t.Type,
		Timestamp: t.Timestamp,
	}
}
