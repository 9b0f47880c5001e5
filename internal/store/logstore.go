package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/tradetalk/tradetalk/internal/domain"
	"github.com/tradetalk/tradetalk/internal/pubsub"
)

// LogStore is the durable MessageStore: one JSON document per line, appended
// to a single file on an afero.Fs. Opening replays the log to rebuild the
// in-memory index and the id sequence. Append is the only mutation.
type LogStore struct {
	mu        sync.Mutex
	fs        afero.Fs
	file      afero.File
	messages  []domain.Message
	nextID    int64
	publisher pubsub.Publisher
}

// OpenLogStore opens (or creates) the log at path and replays it.
// publisher may be nil.
func OpenLogStore(fs afero.Fs, path string, publisher pubsub.Publisher) (*LogStore, error) {
	file, err := fs.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open message log %s: %w", path, err)
	}

	s := &LogStore{fs: fs, file: file, nextID: 1, publisher: publisher}
	if err := s.replay(); err != nil {
		file.Close()
		return nil, err
	}

	// Position at the end for appends.
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to seek message log: %w", err)
	}
	return s, nil
}

func (s *LogStore) replay() error {
	scanner := bufio.NewScanner(s.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg domain.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			return fmt.Errorf("corrupt message log entry: %w", err)
		}
		s.messages = append(s.messages, msg)
		if msg.ID >= s.nextID {
			s.nextID = msg.ID + 1
		}
	}
	return scanner.Err()
}

// CreateMessage implements MessageStore. The write, the index update and the
// bus publish all happen under one lock, so broadcast order equals durable
// order.
func (s *LogStore) CreateMessage(ctx context.Context, input CreateMessageInput) (domain.Message, error) {
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

	line, err := json.Marshal(msg)
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to encode message: %w", domain.ErrPersistence)
	}
	if _, err := s.file.Write(append(line, '\n')); err != nil {
		return domain.Message{}, fmt.Errorf("failed to append message: %w", domain.ErrPersistence)
	}

	s.nextID++
	s.messages = append(s.messages, msg)

	publishStored(ctx, s.publisher, msg)
	return msg, nil
}

// RoomMessages implements MessageStore.
func (s *LogStore) RoomMessages(ctx context.Context, room string) ([]domain.Message, error) {
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

// Close flushes and closes the underlying log file.
func (s *LogStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
