package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tradetalk/tradetalk/internal/domain"
)

// AchievementStore handles milestone rows for the consumed REST surface.
type AchievementStore struct {
	db *gorm.DB
}

// NewAchievementStore creates an AchievementStore.
func NewAchievementStore(db *gorm.DB) *AchievementStore {
	return &AchievementStore{db: db}
}

// CreateAchievement grants an achievement with a server-assigned timestamp.
func (s *AchievementStore) CreateAchievement(ctx context.Context, userID uint, achievementType string) (domain.Achievement, error) {
	row := Achievement{
		UserID:    userID,
		Type:      achievementType,
		Timestamp: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Achievement{}, fmt.Errorf("failed to create achievement: %w", err)
	}
	return toDomainAchievement(&row), nil
}

// UserAchievements returns every achievement for one user, oldest first.
func (s *AchievementStore) UserAchievements(ctx context.Context, userID uint) ([]domain.Achievement, error) {
	var rows []Achievement
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load achievements for user %d: %w", userID, err)
	}

	achievements := make([]domain.Achievement, len(rows))
	for i := range rows {
		achievements[i] = toDomainAchievement(&rows[i])
	}
	return achievements, nil
}

func toDomainAchievement(a *Achievement) domain.Achievement {
	return domain.Achievement{
		ID:        a.ID,
		UserID:    a.UserID,
		Type:      a.Type,
		Timestamp: a.Timestamp,
	}
}
