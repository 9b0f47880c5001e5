package database

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tradetalk/tradetalk/internal/domain"
)

// UserStore handles account rows. It implements auth.UserFinder for the
// session validator.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a UserStore.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func toDomainUser(u *User) *domain.User {
	return &domain.User{
		ID:         u.ID,
		Username:   u.Username,
		Reputation: u.Reputation,
		Level:      u.Level,
		Experience: u.Experience,
		Balance:    u.Balance,
	}
}

// Register creates a new account with a hashed password.
func (s *UserStore) Register(ctx context.Context, username, password string) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := User{Username: username, Password: string(hash), Level: 1, Balance: 10000}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrUserAlreadyExists
		}
		// sqlite reports unique violations as plain errors on some
		// driver versions; look the row up to keep the sentinel.
		var existing User
		if lookupErr := s.db.WithContext(ctx).Where("username = ?", username).First(&existing).Error; lookupErr == nil {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return toDomainUser(&user), nil
}

// Authenticate verifies a username/password pair.
func (s *UserStore) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user %q: %w", username, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return toDomainUser(&user), nil
}

// FindUserByID implements auth.UserFinder.
func (s *UserStore) FindUserByID(ctx context.Context, id uint) (*domain.User, error) {
	var user User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up user %d: %w", id, err)
	}
	return toDomainUser(&user), nil
}

// Leaderboard returns the top accounts by reputation, then balance.
func (s *UserStore) Leaderboard(ctx context.Context, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 25
	}
	var rows []User
	err := s.db.WithContext(ctx).
		Order("reputation DESC").
		Order("balance DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	users := make([]domain.User, len(rows))
	for i := range rows {
		users[i] = *toDomainUser(&rows[i])
	}
	return users, nil
}
