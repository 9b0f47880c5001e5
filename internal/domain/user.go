package domain

import "time"

// User is the account model backing the session validator and the
// collaborator REST surface. The chat gateway itself only ever sees the
// Identity derived from it.
type User struct {
	ID         uint    `json:"id"`
	Username   string  `json:"username"`
	Password   string  `json:"-"`
	Reputation int     `json:"reputation"`
	Level      int     `json:"level"`
	Experience int     `json:"experience"`
	Balance    float64 `json:"balance"`
}

// Trade is one paper trade entered by a user.
type Trade struct {
	ID       uint    `json:"id"`
	UserID   uint    `json:"userId"`
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	// Type is "buy" or "sell".
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Achievement is one milestone a user has earned. Achievements are granted
// server-side; clients only ever read them.
type Achievement struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"userId"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// WatchlistItem is one symbol a user is watching.
type WatchlistItem struct {
	ID     uint   `json:"id"`
	UserID uint   `json:"userId"`
	Symbol string `json:"symbol"`
}
