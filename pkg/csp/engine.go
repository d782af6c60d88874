package csp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/studio/internal/logging"
	"github.com/aretw0/studio/pkg/domain"
	"github.com/aretw0/studio/pkg/ports"
	"github.com/google/uuid"
)

// Behavior is the state handler of a process. It runs on the engine goroutine.
type Behavior func(ctx context.Context, msg domain.Message)

// Process is one named state of a module's state machine.
type Process struct {
	ID       int
	Name     string
	Behavior Behavior
}

type entry struct {
	process Process
	module  string
}

// Engine dispatches transport messages to registered processes by id and
// publishes delayed events when they fall due.
type Engine struct {
	transport ports.Transport
	id        string

	mu        sync.Mutex // guards processes and modules
	processes map[int]entry
	modules   map[string]*Module

	schedMu sync.Mutex
	queue   schedule
	seq     uint64
	wake    chan struct{}

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	// inBehavior is set while a behavior runs on the engine goroutine.
	inBehavior atomic.Bool

	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// NewEngine creates an engine publishing on transport. Call Run to start dispatching.
func NewEngine(transport ports.Transport, opts ...Option) *Engine {
	e := &Engine{
		transport: transport,
		id:        uuid.NewString(),
		processes: make(map[int]entry),
		modules:   make(map[string]*Module),
		wake:      make(chan struct{}, 1),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.Component(e.logger, "csp")
	return e
}

// RegisterModule adds every process of m to the dispatch table.
// Registration is atomic: if any id is reserved, duplicated or already owned
// by another module, nothing is registered and ErrProcessCollision is returned.
func (e *Engine) RegisterModule(m *Module) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.modules[m.name]; exists {
		e.logger.Error("module already registered", "module", m.name)
		return fmt.Errorf("module %q: %w", m.name, domain.ErrProcessCollision)
	}

	seen := make(map[int]bool, len(m.processes))
	for _, p := range m.processes {
		if p.Behavior == nil {
			return fmt.Errorf("module %q process %q: nil behavior", m.name, p.Name)
		}
		if p.ID == 0 {
			e.logger.Error("process id 0 is reserved", "module", m.name, "process", p.Name)
			return fmt.Errorf("module %q process %q: id 0 is reserved: %w", m.name, p.Name, domain.ErrProcessCollision)
		}
		if owner, taken := e.processes[p.ID]; taken || seen[p.ID] {
			if !taken {
				owner.module = m.name
			}
			e.logger.Error("process id collision",
				"module", m.name,
				"process", p.Name,
				"id", p.ID,
				"owner", owner.module,
			)
			return fmt.Errorf("module %q process %q id %d: %w", m.name, p.Name, p.ID, domain.ErrProcessCollision)
		}
		seen[p.ID] = true
	}

	for _, p := range m.processes {
		e.processes[p.ID] = entry{process: p, module: m.name}
	}
	e.modules[m.name] = m
	m.bind(e)
	e.logger.Debug("module registered", "module", m.name, "processes", len(m.processes))
	return nil
}

// UnregisterModule removes a module and frees its ids. Unknown names are ignored.
func (e *Engine) UnregisterModule(name string) {
	e.mu.Lock()
	m, ok := e.modules[name]
	if ok {
		for _, p := range m.processes {
			if owner, exists := e.processes[p.ID]; exists && owner.module == name {
				delete(e.processes, p.ID)
			}
		}
		delete(e.modules, name)
	}
	e.mu.Unlock()

	if ok {
		m.bind(nil)
		e.logger.Debug("module unregistered", "module", name)
	}
}

// Modules lists the registered module names, sorted.
func (e *Engine) Modules() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.modules))
	for name := range e.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the process registered under id.
func (e *Engine) Lookup(id int) (Process, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.processes[id]
	return ent.process, ok
}

// Running reports whether the engine goroutine is active.
func (e *Engine) Running() bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.running
}

// Emit publishes event for process id immediately.
func (e *Engine) Emit(ctx context.Context, event string, id int) error {
	return e.Send(ctx, domain.Message{Topic: event, ID: id})
}

// EmitAfter publishes event for process id once delay has elapsed.
func (e *Engine) EmitAfter(event string, id int, delay time.Duration) error {
	return e.SendAfter(domain.Message{Topic: event, ID: id}, delay)
}

// Send publishes msg immediately.
func (e *Engine) Send(ctx context.Context, msg domain.Message) error {
	if !e.Running() {
		return domain.ErrEngineStopped
	}
	if err := e.transport.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish %s/%d: %w", msg.Topic, msg.ID, err)
	}
	e.published(ctx, msg, 0)
	return nil
}

// SendAfter queues msg for publication once delay has elapsed.
// A non-positive delay publishes on the next engine iteration.
func (e *Engine) SendAfter(msg domain.Message, delay time.Duration) error {
	if !e.Running() {
		return domain.ErrEngineStopped
	}
	if delay < 0 {
		delay = 0
	}

	e.schedMu.Lock()
	e.seq++
	e.queue.push(scheduled{due: time.Now().Add(delay), seq: e.seq, delay: delay, msg: msg})
	e.schedMu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
	e.logger.Debug("event scheduled", "topic", msg.Topic, "id", msg.ID, "delay", delay)
	return nil
}

// Pending returns the number of delayed events not yet published.
func (e *Engine) Pending() int {
	e.schedMu.Lock()
	defer e.schedMu.Unlock()
	return e.queue.Len()
}

// Run subscribes to the transport and starts the engine goroutine.
// It returns once the subscription is established. Calling Run on a running
// engine is a no-op.
func (e *Engine) Run(ctx context.Context) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	messages, err := e.transport.Subscribe(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe: %w", err)
	}

	e.cancel = cancel
	e.done = make(chan struct{})
	e.running = true

	go e.loop(runCtx, messages, e.done)
	e.logger.Info("engine started", "engine", e.id)
	return nil
}

// Stop halts the engine goroutine and waits for it to exit. Events still in the
// delay queue are discarded. Calling Stop on a stopped engine is a no-op.
//
// A behavior may call Stop. The engine goroutine cannot wait for itself, so
// while a behavior is running Stop cancels the loop without waiting; the loop
// exits as soon as that behavior returns.
func (e *Engine) Stop() {
	e.runMu.Lock()
	if !e.running {
		e.runMu.Unlock()
		return
	}
	e.running = false
	cancel, done := e.cancel, e.done
	e.runMu.Unlock()

	// The sentinel unblocks the listener even if the transport is slow to honour cancellation.
	stop := domain.Message{Topic: domain.StopTopic, Payload: []byte(e.id)}
	pubCtx, pubCancel := context.WithTimeout(context.Background(), time.Second)
	if err := e.transport.Publish(pubCtx, stop); err != nil {
		e.logger.Debug("stop sentinel not published", "err", err)
	}
	pubCancel()
	cancel()
	if !e.inBehavior.Load() {
		<-done
	}

	e.schedMu.Lock()
	dropped := e.queue.Len()
	e.queue = nil
	e.schedMu.Unlock()

	e.logger.Info("engine stopped", "engine", e.id, "dropped", dropped)
}

func (e *Engine) loop(ctx context.Context, messages <-chan domain.Message, done chan struct{}) {
	defer close(done)
	defer func() {
		// The parent context may end the loop without Stop being called.
		e.runMu.Lock()
		if e.done == done {
			e.running = false
		}
		e.runMu.Unlock()
	}()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		// Arm the timer for the earliest scheduled event, if any.
		var due <-chan time.Time
		e.schedMu.Lock()
		next, ok := e.queue.peek()
		e.schedMu.Unlock()
		if ok {
			timer.Reset(time.Until(next.due))
			due = timer.C
		}

		select {
		case <-ctx.Done():
			return

		case <-e.wake:
			// A new event may be due earlier than the one the timer was armed for.

		case <-due:
			e.publishDue(ctx)

		case msg, ok := <-messages:
			if !ok {
				e.logger.Debug("subscription closed")
				return
			}
			if msg.Topic == domain.StopTopic {
				if string(msg.Payload) == e.id {
					return
				}
				continue
			}
			e.dispatch(ctx, msg)
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}
}

func (e *Engine) publishDue(ctx context.Context) {
	e.schedMu.Lock()
	due := e.queue.popDue(time.Now())
	e.schedMu.Unlock()

	for _, item := range due {
		msg := item.msg
		if err := e.transport.Publish(ctx, msg); err != nil {
			e.logger.Error("failed to publish scheduled event", "topic", msg.Topic, "id", msg.ID, "err", err)
			continue
		}
		e.published(ctx, msg, item.delay)
	}
}

func (e *Engine) published(ctx context.Context, msg domain.Message, delay time.Duration) {
	if e.hooks.OnEventPublished == nil {
		return
	}
	e.hooks.OnEventPublished(ctx, &domain.PublishEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventPublished},
		Topic:     msg.Topic,
		ProcessID: msg.ID,
		Delay:     delay,
	})
}

func (e *Engine) dispatch(ctx context.Context, msg domain.Message) {
	if msg.ID == 0 {
		return
	}

	e.mu.Lock()
	ent, ok := e.processes[msg.ID]
	e.mu.Unlock()
	if !ok {
		e.logger.Debug("no process for event", "topic", msg.Topic, "id", msg.ID)
		return
	}

	start := time.Now()
	e.inBehavior.Store(true)
	ent.process.Behavior(ctx, msg)
	e.inBehavior.Store(false)

	if e.hooks.OnProcessDelivered != nil {
		e.hooks.OnProcessDelivered(ctx, &domain.ProcessEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventProcessDelivered},
			ProcessID: msg.ID,
			Process:   ent.process.Name,
			Topic:     msg.Topic,
			Duration:  time.Since(start),
		})
	}
}
