package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/studio/internal/logging"
	"github.com/aretw0/studio/pkg/domain"
	"github.com/aretw0/studio/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed writer can hold a session.
const DefaultLockTTL = 30 * time.Second

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager is a ports.SnapshotStore that serializes operations per session.
type Manager struct {
	store ports.SnapshotStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.Locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker also takes a distributed lock around Save and Delete.
// A non-positive ttl uses DefaultLockTTL.
func WithLocker(locker ports.Locker, ttl time.Duration) Option {
	return func(m *Manager) {
		m.locker = locker
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager wraps store.
func NewManager(store ports.SnapshotStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.Component(m.logger, "session")
	return m
}

func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[sessionID]
	if !ok {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[sessionID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Active returns the number of sessions with an operation running or waiting.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

// Store returns the wrapped store.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}

// Save persists entries under the session lock.
func (m *Manager) Save(ctx context.Context, sessionID string, entries []domain.JournalEntry) error {
	return m.WithLock(ctx, sessionID, true, func(ctx context.Context) error {
		return m.store.Save(ctx, sessionID, entries)
	})
}

// Load reads a session under the local lock, so it never observes a save in progress.
func (m *Manager) Load(ctx context.Context, sessionID string) ([]domain.JournalEntry, error) {
	var entries []domain.JournalEntry
	err := m.WithLock(ctx, sessionID, false, func(ctx context.Context) error {
		var err error
		entries, err = m.store.Load(ctx, sessionID)
		return err
	})
	return entries, err
}

// Delete removes the session under the session lock.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, true, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// WithLock runs fn while holding the in-process lock for sessionID, and the
// distributed lock too when write is set and a Locker is configured.
func (m *Manager) WithLock(ctx context.Context, sessionID string, write bool, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if write && m.locker != nil {
		unlock, err := m.locker.Lock(ctx, "op:"+sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("lock session %s: %w", sessionID, err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("failed to release session lock, it will expire",
					"session", sessionID,
					"ttl", m.lockTTL,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
