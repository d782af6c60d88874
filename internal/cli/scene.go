package cli

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/aretw0/studio/pkg/domain"
	"github.com/aretw0/studio/pkg/ports"
	"github.com/aretw0/studio/pkg/workflow"
)

// Stage tracks the stage file currently open in the session.
// Loads are recorded as undoable transactions.
type Stage struct {
	sink   ports.TransactionSink
	logger *slog.Logger

	mu      sync.Mutex
	current string
}

// NewStage creates a Stage that records loads through sink.
func NewStage(sink ports.TransactionSink, logger *slog.Logger) *Stage {
	return &Stage{sink: sink, logger: logger}
}

// Load queues a transaction opening path. It runs on the engine goroutine;
// the stage it replaces is read when the transaction is applied.
func (s *Stage) Load(_ context.Context, path string) error {
	if path == "" {
		return errors.New("stage path is empty")
	}
	var prev string
	s.sink.EnqueueTransaction(domain.NewTransaction(
		"open stage "+filepath.Base(path),
		func() {
			prev = s.Current()
			s.set(path)
		},
		domain.WithUndo(func() { s.set(prev) }),
	))
	s.logger.Info("stage load queued", "path", path)
	return nil
}

// Current returns the open stage path, empty when none.
func (s *Stage) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Stage) set(path string) {
	s.mu.Lock()
	s.current = path
	s.mu.Unlock()
}

// Sequencer holds the shot list edited by the shot workflow.
type Sequencer struct {
	mu    sync.Mutex
	shots map[string]workflow.Shot
}

// NewSequencer creates an empty shot list.
func NewSequencer() *Sequencer {
	return &Sequencer{shots: make(map[string]workflow.Shot)}
}

func (s *Sequencer) CreateShot(name string, start, end int) {
	s.mu.Lock()
	s.shots[name] = workflow.Shot{Name: name, Start: start, End: end}
	s.mu.Unlock()
}

// FindShot returns the range of the named shot.
func (s *Sequencer) FindShot(name string) (start, end int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shots[name]
	return sh.Start, sh.End, ok
}

func (s *Sequencer) DeleteShot(name string) {
	s.mu.Lock()
	delete(s.shots, name)
	s.mu.Unlock()
}

// Shots lists the shots ordered by start frame, then name.
func (s *Sequencer) Shots() []workflow.Shot {
	s.mu.Lock()
	out := make([]workflow.Shot, 0, len(s.shots))
	for _, sh := range s.shots {
		out = append(out, sh)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].Name < out[j].Name
	})
	return out
}
