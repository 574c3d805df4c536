// Package presence tracks which users are connected across devices and
// turns connection churn into exactly-once online/offline transitions.
package presence

import (
	"context"
	"sync"
)

// Store holds per-user active connection counts. Connect and Disconnect
// must be atomic per user: two concurrent disconnects for the same user
// must never both observe the pre-decrement count. An entry is removed,
// not merely zeroed, when its count reaches zero.
//
// MemoryStore serves single-process deployments; RedisStore shares the
// counts across processes.
type Store interface {
	// Connect increments the user's connection count and returns the
	// count after the increment.
	Connect(ctx context.Context, userID string) (int, error)
	// Disconnect decrements the user's connection count and returns the
	// count after the decrement, never below zero.
	Disconnect(ctx context.Context, userID string) (int, error)
	// OnlineUsers returns the ids of all users with at least one
	// connection, each exactly once.
	OnlineUsers(ctx context.Context) ([]string, error)
	// IsOnline reports whether the user has at least one connection.
	IsOnline(ctx context.Context, userID string) (bool, error)
}

// MemoryStore is the in-process Store implementation.
type MemoryStore struct {
	mu    sync.Mutex
	conns map[string]int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conns: make(map[string]int)}
}

// Connect increments the user's connection count.
func (s *MemoryStore) Connect(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[userID]++
	return s.conns[userID], nil
}

// Disconnect decrements the user's connection count and removes the entry
// at zero.
func (s *MemoryStore) Disconnect(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count, ok := s.conns[userID]
	if !ok {
		return 0, nil
	}
	if count <= 1 {
		delete(s.conns, userID)
		return 0, nil
	}
	s.conns[userID] = count - 1
	return count - 1, nil
}

// OnlineUsers returns all user ids with live connections.
func (s *MemoryStore) OnlineUsers(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.conns))
	for id := range s.conns {
		ids = append(ids, id)
	}
	return ids, nil
}

// IsOnline reports whether the user has a live connection.
func (s *MemoryStore) IsOnline(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[userID] > 0, nil
}
