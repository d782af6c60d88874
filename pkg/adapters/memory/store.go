package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/studio/pkg/domain"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]domain.JournalEntry
	mu   sync.RWMutex
}

// NewStore creates a new in-memory snapshot store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]domain.JournalEntry),
	}
}

// Save persists a copy of the snapshot.
func (s *Store) Save(ctx context.Context, sessionID string, entries []domain.JournalEntry) error {
	copied := make([]domain.JournalEntry, len(entries))
	copy(copied, entries)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = copied
	return nil
}

// Load returns a copy so the caller cannot mutate stored history.
func (s *Store) Load(ctx context.Context, sessionID string) ([]domain.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	ret := make([]domain.JournalEntry, len(entries))
	copy(ret, entries)
	return ret, nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns the stored sessions, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}
