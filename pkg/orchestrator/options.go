package orchestrator

import (
	"log/slog"
	"time"

	"github.com/aretw0/studio/pkg/domain"
	"github.com/aretw0/studio/pkg/journal"
)

// Option defines a functional option for configuring the Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = o.hooks.Merge(hooks)
	}
}

// WithJournal replaces the journal, e.g. to resume a session history.
func WithJournal(j *journal.Journal) Option {
	return func(o *Orchestrator) {
		o.journal = j
	}
}

// WithClock overrides the time source used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}
