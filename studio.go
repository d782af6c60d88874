package studio

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/studio/internal/logging"
	"github.com/aretw0/studio/pkg/csp"
	"github.com/aretw0/studio/pkg/domain"
	"github.com/aretw0/studio/pkg/journal"
	"github.com/aretw0/studio/pkg/orchestrator"
	"github.com/aretw0/studio/pkg/ports"
)

// Version is the release of this module.
//
//go:embed VERSION
var Version string

// View is a consistent, read-only picture of the studio taken at the end of a tick.
// It is safe to hand to other goroutines.
type View struct {
	Frame      uint64                `json:"frame"`
	Studio     string                `json:"studio"`
	Studios    []string              `json:"studios"`
	Activities []ActivityView        `json:"activities"`
	Journal    []journal.NodeView    `json:"journal"`
	Entries    []domain.JournalEntry `json:"-"`
	Queued     int                   `json:"queued"`
	Scheduled  int                   `json:"scheduled"`
}

// ActivityView describes one registered activity.
type ActivityView struct {
	Name         string `json:"name"`
	Active       bool   `json:"active"`
	Capabilities string `json:"capabilities,omitempty"`
}

// Studio wires an Orchestrator to a csp Engine and drives both from one frame loop.
//
// The orchestrator and its journal belong to the goroutine calling Tick (or Run).
// Other goroutines interact through EnqueueTransaction, ActivateStudio, Emit,
// Do and View, which are safe for concurrent use.
type Studio struct {
	orch      *orchestrator.Orchestrator
	engine    *csp.Engine
	transport ports.Transport

	store     ports.SnapshotStore
	sessionID string

	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	orchOps []orchestrator.Option
	cspOps  []csp.Option

	cmdMu    sync.Mutex
	commands []func(*orchestrator.Orchestrator)

	viewMu sync.RWMutex
	view   View
	frame  uint64
}

// Option defines a functional option for configuring the Studio.
type Option func(*Studio)

// WithLogger sets the structured logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Studio) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks on the orchestrator and the engine.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Studio) {
		s.hooks = s.hooks.Merge(hooks)
	}
}

// WithSnapshotStore persists the journal under sessionID on Save and when Run returns.
func WithSnapshotStore(store ports.SnapshotStore, sessionID string) Option {
	return func(s *Studio) {
		s.store = store
		s.sessionID = sessionID
	}
}

// WithOrchestratorOptions forwards options to the orchestrator.
func WithOrchestratorOptions(opts ...orchestrator.Option) Option {
	return func(s *Studio) {
		s.orchOps = append(s.orchOps, opts...)
	}
}

// WithEngineOptions forwards options to the csp engine.
func WithEngineOptions(opts ...csp.Option) Option {
	return func(s *Studio) {
		s.cspOps = append(s.cspOps, opts...)
	}
}

// New creates a Studio whose engine publishes on transport.
func New(transport ports.Transport, opts ...Option) *Studio {
	s := &Studio{
		transport: transport,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	orchOpts := append([]orchestrator.Option{
		orchestrator.WithLogger(s.logger),
		orchestrator.WithLifecycleHooks(s.hooks),
	}, s.orchOps...)
	cspOpts := append([]csp.Option{
		csp.WithLogger(s.logger),
		csp.WithLifecycleHooks(s.hooks),
	}, s.cspOps...)

	s.orch = orchestrator.New(orchOpts...)
	s.engine = csp.NewEngine(transport, cspOpts...)
	s.logger = logging.Component(s.logger, "studio")
	s.refresh()
	return s
}

// Orchestrator returns the orchestrator. Only the tick goroutine may use it
// beyond its concurrent-safe methods.
func (s *Studio) Orchestrator() *orchestrator.Orchestrator { return s.orch }

// Engine returns the csp engine.
func (s *Studio) Engine() *csp.Engine { return s.engine }

// EnqueueTransaction queues tx for the next tick.
func (s *Studio) EnqueueTransaction(tx domain.Transaction) { s.orch.EnqueueTransaction(tx) }

// ActivateStudio queues a studio switch for the next tick.
func (s *Studio) ActivateStudio(name string) { s.orch.ActivateStudio(name) }

// Emit publishes an event for process id, after delay when delay is positive.
func (s *Studio) Emit(ctx context.Context, topic string, id int, payload []byte, delay time.Duration) error {
	msg := domain.Message{Topic: topic, ID: id, Payload: payload}
	if delay > 0 {
		return s.engine.SendAfter(msg, delay)
	}
	return s.engine.Send(ctx, msg)
}

// Do queues fn to run on the tick goroutine before the next service pass.
func (s *Studio) Do(fn func(*orchestrator.Orchestrator)) {
	s.cmdMu.Lock()
	s.commands = append(s.commands, fn)
	s.cmdMu.Unlock()
}

// Undo queues an undo for the next tick. Undoing the session start is logged.
func (s *Studio) Undo() {
	s.Do(func(o *orchestrator.Orchestrator) {
		if err := o.Undo(); err != nil {
			s.logger.Warn("undo rejected", "err", err)
		}
	})
}

// Redo queues a redo for the next tick.
func (s *Studio) Redo() {
	s.Do(func(o *orchestrator.Orchestrator) {
		if err := o.Redo(); err != nil {
			s.logger.Warn("redo rejected", "err", err)
		}
	})
}

// Tick runs queued commands, services the orchestrator and refreshes the View.
func (s *Studio) Tick(dt time.Duration) {
	s.cmdMu.Lock()
	commands := s.commands
	s.commands = nil
	s.cmdMu.Unlock()

	for _, fn := range commands {
		fn(s.orch)
	}
	s.orch.Service(dt)
	s.refresh()
}

func (s *Studio) refresh() {
	j := s.orch.Journal()
	v := View{
		Studios: s.orch.Studios(),
		Journal: j.Snapshot(),
		Entries: j.Entries(),
		Queued:  s.orch.Pending(),
	}
	if cur := s.orch.CurrentStudio(); cur != nil {
		v.Studio = cur.Name()
	}

	active := map[string]bool{}
	for _, name := range s.orch.ActiveActivities() {
		active[name] = true
	}
	for _, name := range s.orch.Activities() {
		av := ActivityView{Name: name, Active: active[name]}
		if av.Active {
			if h := s.orch.FindActivity(name); h != nil {
				av.Capabilities = h.Capabilities().String()
			}
		}
		v.Activities = append(v.Activities, av)
	}

	s.viewMu.Lock()
	s.frame++
	v.Frame = s.frame
	s.view = v
	s.viewMu.Unlock()
}

// View returns the picture taken at the end of the last tick, with the
// engine's current delay queue depth.
func (s *Studio) View() View {
	s.viewMu.RLock()
	v := s.view
	s.viewMu.RUnlock()
	v.Scheduled = s.engine.Pending()
	return v
}

// Save persists the journal of the last tick. It is a no-op without a snapshot store.
func (s *Studio) Save(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	entries := s.View().Entries
	if err := s.store.Save(ctx, s.sessionID, entries); err != nil {
		return fmt.Errorf("save journal %s: %w", s.sessionID, err)
	}
	s.logger.Debug("journal saved", "session", s.sessionID, "nodes", len(entries))
	return nil
}

// Start starts the csp engine.
func (s *Studio) Start(ctx context.Context) error {
	return s.engine.Run(ctx)
}

// Stop stops the csp engine. Delayed events are discarded.
func (s *Studio) Stop() {
	s.engine.Stop()
}

// Run starts the engine and ticks every interval until ctx is done, then stops
// the engine and saves the journal. The calling goroutine becomes the tick goroutine.
func (s *Studio) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", interval)
	}
	if err := s.Start(ctx); err != nil {
		return err
	}
	s.logger.Info("studio running", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return s.Save(saveCtx)
		case now := <-ticker.C:
			s.Tick(now.Sub(last))
			last = now
		}
	}
}

var defaultStudio atomic.Pointer[Studio]

// SetDefault installs s as the process-wide studio returned by Default.
// Intended for the outermost wiring layer only.
func SetDefault(s *Studio) { defaultStudio.Store(s) }

// Default returns the studio installed by SetDefault, or nil.
func Default() *Studio { return defaultStudio.Load() }
