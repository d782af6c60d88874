package ports

import (
	"context"
	"time"

	"github.com/aretw0/studio/pkg/domain"
)

// SnapshotStore persists journal snapshots so a session history can be inspected
// after the process exits.
type SnapshotStore interface {
	// Save persists the snapshot for a given session ID.
	Save(ctx context.Context, sessionID string, entries []domain.JournalEntry) error

	// Load retrieves the snapshot for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) ([]domain.JournalEntry, error)

	// Delete removes the snapshot for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the stored session IDs.
	List(ctx context.Context) ([]string, error)
}

// UnlockFunc releases a lock obtained from a Locker.
type UnlockFunc func(ctx context.Context) error

// Locker guards a session so that only one studio process records it.
type Locker interface {
	// Lock blocks until the lock is acquired or ctx is done.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
