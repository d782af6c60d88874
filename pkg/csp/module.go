package csp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/studio/pkg/domain"
)

// Module groups the processes of one state machine.
// Process ids must be unique across every module registered on the same engine.
type Module struct {
	name      string
	processes []Process
	byName    map[string]int

	mu     sync.RWMutex
	engine *Engine
}

// NewModule creates a module from an ordered list of processes.
func NewModule(name string, processes ...Process) *Module {
	m := &Module{
		name:      name,
		processes: processes,
		byName:    make(map[string]int, len(processes)),
	}
	for _, p := range processes {
		m.byName[p.Name] = p.ID
	}
	return m
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Processes returns a copy of the module's processes, in declaration order.
func (m *Module) Processes() []Process {
	out := make([]Process, len(m.processes))
	copy(out, m.processes)
	return out
}

// ID returns the id of the named process.
func (m *Module) ID(process string) (int, bool) {
	id, ok := m.byName[process]
	return id, ok
}

// Engine returns the engine the module is registered on, or nil.
func (m *Module) Engine() *Engine {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.engine
}

func (m *Module) bind(e *Engine) {
	m.mu.Lock()
	m.engine = e
	m.mu.Unlock()
}

func (m *Module) resolve(process string) (*Engine, int, error) {
	e := m.Engine()
	if e == nil {
		return nil, 0, fmt.Errorf("module %q: %w", m.name, domain.ErrNotRegistered)
	}
	id, ok := m.byName[process]
	if !ok {
		return nil, 0, fmt.Errorf("module %q has no process %q: %w", m.name, process, domain.ErrNotRegistered)
	}
	return e, id, nil
}

// Emit publishes the named process event immediately.
func (m *Module) Emit(ctx context.Context, process string) error {
	e, id, err := m.resolve(process)
	if err != nil {
		return err
	}
	return e.Emit(ctx, process, id)
}

// EmitAfter publishes the named process event once delay has elapsed.
func (m *Module) EmitAfter(process string, delay time.Duration) error {
	e, id, err := m.resolve(process)
	if err != nil {
		return err
	}
	return e.EmitAfter(process, id, delay)
}

// EmitPayload publishes the named process event with a payload.
func (m *Module) EmitPayload(ctx context.Context, process string, payload []byte) error {
	e, id, err := m.resolve(process)
	if err != nil {
		return err
	}
	return e.Send(ctx, domain.Message{Topic: process, ID: id, Payload: payload})
}

// Close unregisters the module from its engine, freeing its ids.
func (m *Module) Close() error {
	if e := m.Engine(); e != nil {
		e.UnregisterModule(m.name)
	}
	return nil
}
