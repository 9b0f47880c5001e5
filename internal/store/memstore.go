package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tradetalk/tradetalk/internal/domain"
	"github.com/tradetalk/tradetalk/internal/pubsub"
)

// MemStore keeps the message log in memory. It is the store for tests and
// for running without a configured log file.
type MemStore struct {
	mu        sync.Mutex
	messages  []domain.Message
	nextID    int64
	publisher pubsub.Publisher
}

// NewMemStore creates an empty MemStore. publisher may be nil, in which case
// stored messages are not announced on the bus.
func NewMemStore(publisher pubsub.Publisher) *MemStore {
	return &MemStore{nextID: 1, publisher: publisher}
}

// CreateMessage implements MessageStore. The bus publish happens under the
// same lock as the append, so topic order equals log order.
func (s *MemStore) CreateMessage(ctx context.Context, input CreateMessageInput) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := domain.Message{
		ID:        s.nextID,
		UserID:    input.UserID,
		Username:  input.Username,
		Room:      input.Room,
		Content:   input.Content,
		Timestamp: time.Now().UTC(),
	}
	s.nextID++
	s.messages = append(s.messages, msg)

	publishStored(ctx, s.publisher, msg)
	return msg, nil
}

// RoomMessages implements MessageStore.
func (s *MemStore) RoomMessages(ctx context.Context, room string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Message
	for _, msg := range s.messages {
		if msg.Room == room {
			out = append(out, msg)
		}
	}
	return out, nil
}

// publishStored announces a freshly stored message on the bus. A publish
// failure is logged, not surfaced: the message is already durable and the
// system has no redelivery.
func publishStored(ctx context.Context, publisher pubsub.Publisher, msg domain.Message) {
	if publisher == nil {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal stored message", "id", msg.ID, "error", err)
		return
	}
	err = publisher.Publish(ctx, pubsub.Message{
		Topic:   pubsub.TopicMessageStored,
		Payload: payload,
		Metadata: map[string]string{
			"room": msg.Room,
			"id":   fmt.Sprintf("%d", msg.ID),
		},
	})
	if err != nil {
		slog.Error("Failed to publish stored message", "id", msg.ID, "error", err)
	}
}
