package domain

import "time"

// Message is a single durable chat message. Once created it is immutable;
// the store only ever appends.
type Message struct {
	// ID is assigned by the store and increases monotonically.
	ID int64 `json:"id"`
	// UserID and Username are copied from the sending connection's bound
	// identity, never from the inbound payload.
	UserID   string `json:"userId"`
	Username string `json:"username"`
	// Room is the tag the message was sent to. Rooms are not stored
	// entities; they exist only as this field.
	Room    string `json:"room"`
	Content string `json:"content"`
	// Timestamp is assigned by the server at receipt.
	Timestamp time.Time `json:"timestamp"`
}
