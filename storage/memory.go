package storage

import (
	"context"
	"sync"

	"github.com/TG-16/anonymous-telegram-bot/chat"
)

// Memory is a Backend that keeps records in process memory. Used by tests
// and local development without a durable store.
type Memory struct {
	mu    sync.Mutex
	users map[string]*chat.User
	// saves counts SaveAll calls, for test assertions.
	saves   int
	saveErr error
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{users: make(map[string]*chat.User)}
}

// LoadAll returns a copy of the stored set.
func (m *Memory) LoadAll(context.Context) (map[string]*chat.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*chat.User, len(m.users))
	for id, u := range m.users {
		copied := *u
		out[id] = &copied
	}
	return out, nil
}

// SaveAll replaces the stored set.
func (m *Memory) SaveAll(_ context.Context, users map[string]*chat.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.users = make(map[string]*chat.User, len(users))
	for id, u := range users {
		copied := *u
		m.users[id] = &copied
	}
	m.saves++
	return nil
}

// FailSaves makes every subsequent SaveAll return err. Pass nil to heal.
func (m *Memory) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// Saves reports how many times SaveAll ran.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
