// Package jsonfile provides a conversation history store backed by a single
// JSON file, compatible with the chat_history.json files written by earlier
// releases of the chat UI.
//
// The file layout is:
//
//	{
//	  "chat_history": [["Title", "id"], ...],
//	  "chat_<id>": [{"role": "user", "content": "..."}, ...]
//	}
//
// The whole file is rewritten on every change.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.HistoryStore = (*Store)(nil)

const (
	indexKey      = "chat_history"
	chatKeyPrefix = "chat_"
)

// Store reads and writes the history file.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a store for path. The file is created on first save.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the history file path.
func (s *Store) Path() string {
	return s.path
}

// file is the decoded history file.
type file struct {
	index []domain.ConversationSummary
	chats map[string][]domain.Turn
}

// List returns saved conversations in save order.
func (s *Store) List(_ context.Context) ([]domain.ConversationSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return nil, err
	}
	return f.index, nil
}

// Get loads one conversation.
func (s *Store) Get(_ context.Context, id string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return nil, err
	}
	for _, entry := range f.index {
		if entry.ID != id {
			continue
		}
		return &domain.Conversation{
			ID:    id,
			Title: entry.Title,
			Turns: f.chats[id],
		}, nil
	}
	return nil, domain.ErrNotFound
}

// Save stores or replaces a conversation.
func (s *Store) Save(_ context.Context, conv *domain.Conversation) error {
	if conv == nil || conv.ID == "" {
		return fmt.Errorf("%w: conversation must have an id", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}

	found := false
	for i := range f.index {
		if f.index[i].ID == conv.ID {
			f.index[i].Title = conv.Title
			found = true
			break
		}
	}
	if !found {
		f.index = append(f.index, domain.ConversationSummary{ID: conv.ID, Title: conv.Title})
	}
	f.chats[conv.ID] = append([]domain.Turn(nil), conv.Turns...)

	return s.write(f)
}

// Delete removes one conversation.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}

	kept := f.index[:0]
	for _, entry := range f.index {
		if entry.ID != id {
			kept = append(kept, entry)
		}
	}
	if len(kept) == len(f.index) {
		return nil
	}
	f.index = kept
	delete(f.chats, id)

	return s.write(f)
}

// Clear removes the history file.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: removing %s: %w", domain.ErrPersistence, s.path, err)
	}
	return nil
}

// read loads the file. A missing file is an empty history.
func (s *Store) read() (*file, error) {
	f := &file{chats: make(map[string][]domain.Turn)}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", domain.ErrPersistence, s.path, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", domain.ErrPersistence, s.path, err)
	}

	if idx, ok := raw[indexKey]; ok {
		var pairs [][2]string
		if err := json.Unmarshal(idx, &pairs); err != nil {
			return nil, fmt.Errorf("%w: decoding %s: %w", domain.ErrPersistence, indexKey, err)
		}
		for _, p := range pairs {
			f.index = append(f.index, domain.ConversationSummary{Title: p[0], ID: p[1]})
		}
	}

	for key, value := range raw {
		if key == indexKey || !strings.HasPrefix(key, chatKeyPrefix) {
			continue
		}
		var turns []domain.Turn
		if err := json.Unmarshal(value, &turns); err != nil {
			return nil, fmt.Errorf("%w: decoding %s: %w", domain.ErrPersistence, key, err)
		}
		f.chats[strings.TrimPrefix(key, chatKeyPrefix)] = turns
	}
	return f, nil
}

// write replaces the file through a temporary file in the same directory.
func (s *Store) write(f *file) error {
	out := make(map[string]any, len(f.index)+1)

	pairs := make([][2]string, len(f.index))
	for i, entry := range f.index {
		pairs[i] = [2]string{entry.Title, entry.ID}
		if turns, ok := f.chats[entry.ID]; ok {
			out[chatKeyPrefix+entry.ID] = turns
		}
	}
	out[indexKey] = pairs

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding history: %w", domain.ErrPersistence, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: creating %s: %w", domain.ErrPersistence, dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing history: %w", domain.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: writing history: %w", domain.ErrPersistence, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: replacing %s: %w", domain.ErrPersistence, s.path, err)
	}
	return nil
}
