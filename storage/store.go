// Package storage implements the user store: an in-memory map of user
// records in front of a durable backend that loads everything at startup and
// flushes everything on each mutating transition.
package storage

import (
	"context"
	"fmt"
	"sync"

	"log/slog"

	"github.com/TG-16/anonymous-telegram-bot/chat"
	"github.com/TG-16/anonymous-telegram-bot/logger"
)

// Backend persists the complete user set.
type Backend interface {
	// LoadAll returns every stored record keyed by user handle.
	LoadAll(ctx context.Context) (map[string]*chat.User, error)
	// SaveAll replaces the stored set with the provided records.
	SaveAll(ctx context.Context, users map[string]*chat.User) error
	// Close releases backend resources.
	Close() error
}

// Users serves records from memory and flushes to a Backend. It implements
// chat.Store. Records are never deleted; handles are stable per session.
type Users struct {
	mu      sync.RWMutex
	users   map[string]*chat.User
	backend Backend
}

// Open loads all records from the backend into memory.
func Open(ctx context.Context, backend Backend) (*Users, error) {
	users, err := backend.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: load users: %w", err)
	}
	if users == nil {
		users = make(map[string]*chat.User)
	}
	logger.Info(ctx, "store", "loaded", slog.Int("users", len(users)))
	return &Users{users: users, backend: backend}, nil
}

// Get returns the existing record for id, if any.
func (s *Users) Get(id string) (*chat.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

// Ensure returns the record for id, creating and persisting a default record
// when absent. Idempotent.
func (s *Users) Ensure(id string) *chat.User {
	s.mu.Lock()
	if u, ok := s.users[id]; ok {
		s.mu.Unlock()
		return u
	}
	u := &chat.User{ID: id}
	s.users[id] = u
	s.mu.Unlock()

	if err := s.Persist(); err != nil {
		logger.Warn(context.Background(), "store", "ensure.persist",
			slog.String("uid", id),
			slog.String("err", err.Error()),
		)
	}
	return u
}

// Persist flushes all records to the backend.
func (s *Users) Persist() error {
	s.mu.RLock()
	snapshot := make(map[string]*chat.User, len(s.users))
	for id, u := range s.users {
		copied := *u
		snapshot[id] = &copied
	}
	s.mu.RUnlock()

	if err := s.backend.SaveAll(context.Background(), snapshot); err != nil {
		return fmt.Errorf("storage: save users: %w", err)
	}
	return nil
}

// Len returns the number of known records.
func (s *Users) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Delete removes a record from memory only. It exists for tests that
// simulate a partner record vanishing without cleanup.
func (s *Users) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

// Close flushes once more and closes the backend.
func (s *Users) Close() error {
	if err := s.Persist(); err != nil {
		return err
	}
	return s.backend.Close()
}
