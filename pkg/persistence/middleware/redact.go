package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/studio/pkg/domain"
	"github.com/aretw0/studio/pkg/ports"
)

// Mask replaces redacted text in persisted journal messages.
const Mask = "***"

type redactMiddleware struct {
	next     ports.SnapshotStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware creates a middleware that masks every match of patterns
// in journal messages and affinity entities before they are saved. The
// in-memory journal is left untouched; loads return the masked text.
func NewRedactMiddleware(patterns []string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &redactMiddleware{next: next, patterns: compiled}
	}, nil
}

func (m *redactMiddleware) Save(ctx context.Context, sessionID string, entries []domain.JournalEntry) error {
	masked := make([]domain.JournalEntry, len(entries))
	for i, e := range entries {
		e.Message = m.mask(e.Message)
		e.Affinity.Entity = m.mask(e.Affinity.Entity)
		masked[i] = e
	}
	return m.next.Save(ctx, sessionID, masked)
}

func (m *redactMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}

func (m *redactMiddleware) Load(ctx context.Context, sessionID string) ([]domain.JournalEntry, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *redactMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
