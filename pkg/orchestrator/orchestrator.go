package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/studio/internal/logging"
	"github.com/aretw0/studio/pkg/domain"
	"github.com/aretw0/studio/pkg/journal"
)

type activationRequest struct {
	name     string
	activate bool
}

// Orchestrator owns the transaction queue, the journal, the registries and the
// per-frame dispatch lists of a Studio session.
type Orchestrator struct {
	queue   txQueue
	journal *journal.Journal

	activities *registry[*ActivityHandle]
	studios    *registry[*StudioHandle]
	providers  *registry[any]

	current *StudioHandle

	mu            sync.Mutex // guards the pending request fields below
	pendingStudio string
	pending       []activationRequest

	dispatch dispatchLists

	hooks  domain.LifecycleHooks
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Orchestrator with the "Empty" studio registered.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		journal:    journal.New(),
		activities: newRegistry[*ActivityHandle](),
		studios:    newRegistry[*StudioHandle](),
		providers:  newRegistry[any](),
		logger:     logging.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.Component(o.logger, "orchestrator")
	o.RegisterStudio(EmptyStudioName, NewEmptyStudio)
	return o
}

// Journal returns the history journal. It must only be used from the UI goroutine.
func (o *Orchestrator) Journal() *journal.Journal {
	return o.journal
}

// EnqueueTransaction queues tx for the next Service call.
// It is safe for concurrent use and never runs tx synchronously.
func (o *Orchestrator) EnqueueTransaction(tx domain.Transaction) {
	o.queue.push(tx)
}

// Pending returns the number of queued transactions.
func (o *Orchestrator) Pending() int {
	return o.queue.len()
}

// Service drains the transactions queued before the call, applies pending
// studio and activity changes, and updates active activities.
func (o *Orchestrator) Service(dt time.Duration) {
	ctx := context.Background()

	// 1. Apply the batch present at entry.
	for _, tx := range o.queue.takeAll() {
		o.apply(ctx, tx)
	}

	// 2. Studio switch, marker cleared before it runs.
	o.mu.Lock()
	studio := o.pendingStudio
	o.pendingStudio = ""
	o.mu.Unlock()
	if studio != "" {
		o.activateStudio(ctx, studio)
	}

	// 3. A studio is always active after the first tick.
	if o.current == nil {
		o.activateStudio(ctx, EmptyStudioName)
	}

	// 4. Activity requests, in request order.
	o.mu.Lock()
	requests := o.pending
	o.pending = nil
	o.mu.Unlock()
	for _, req := range requests {
		if req.activate {
			o.activateActivity(ctx, req.name)
		} else {
			o.deactivateActivity(ctx, req.name)
		}
	}
	o.rebuildDispatch()

	// 5. Update.
	for _, h := range o.dispatch.update {
		h.activity.(Updater).Update(dt)
	}
}

func (o *Orchestrator) apply(ctx context.Context, tx domain.Transaction) {
	event := &domain.TransactionEvent{
		EventBase:     domain.EventBase{Timestamp: o.now()},
		TransactionID: tx.ID,
		Message:       tx.Message,
		Affinity:      tx.Affinity,
	}

	if !tx.Runnable() {
		o.logger.Debug("dropping transaction without exec", "message", tx.Message)
		event.Type = domain.EventTransactionDropped
		if o.hooks.OnTransactionDropped != nil {
			o.hooks.OnTransactionDropped(ctx, event)
		}
		return
	}

	tx.Exec()
	_, coalesced := o.journal.Append(tx)

	o.logger.Debug("transaction applied", "message", tx.Message, "coalesced", coalesced)
	event.Type = domain.EventTransactionApplied
	event.Coalesced = coalesced
	event.JournalNodes = o.journal.Live()
	if o.hooks.OnTransactionApplied != nil {
		o.hooks.OnTransactionApplied(ctx, event)
	}
}

// Undo reverts the current journal entry. It must be called from the UI goroutine.
func (o *Orchestrator) Undo() error {
	return o.journal.Undo()
}

// Redo re-applies the next journal entry. It must be called from the UI goroutine.
func (o *Orchestrator) Redo() error {
	return o.journal.Redo()
}

// Fork replaces the current journal entry with an alternate branch.
// The current entry is reverted, tx is executed and recorded as its sibling;
// the original branch stays in the journal.
func (o *Orchestrator) Fork(tx domain.Transaction) error {
	if !tx.Runnable() {
		return fmt.Errorf("fork %q: transaction has no exec", tx.Message)
	}
	cur := o.journal.Current()
	if cur == o.journal.Root() {
		return fmt.Errorf("fork %q: %w", tx.Message, domain.ErrRootUndo)
	}
	if prev, ok := o.journal.Transaction(cur); ok {
		prev.Revert()
	}
	tx.Exec()
	_, err := o.journal.Fork(tx)
	return err
}

// RegisterProvider registers a lazily built service (asset loader, texture cache, ...).
func (o *Orchestrator) RegisterProvider(name string, factory func() any) {
	o.providers.register(name, factory)
}

// FindProvider returns the provider instance for name, building it on first use.
// It returns nil when nothing is registered under name.
func (o *Orchestrator) FindProvider(name string) any {
	p, ok := o.providers.find(name)
	if !ok {
		return nil
	}
	return p
}

// RegisterActivity registers a lazily built activity.
func (o *Orchestrator) RegisterActivity(name string, factory func() Activity) {
	o.activities.register(name, func() *ActivityHandle {
		a := factory()
		if a == nil {
			return nil
		}
		return newActivityHandle(a)
	})
}

// UnregisterActivity deactivates and forgets the activity registered under name.
func (o *Orchestrator) UnregisterActivity(name string) {
	if h, ok := o.activities.instances[name]; ok && h != nil {
		o.deactivateHandle(context.Background(), h)
	}
	o.activities.unregister(name)
	o.rebuildDispatch()
}

// FindActivity returns the activity handle for name, building it on first use.
// Repeated calls return the same handle. It returns nil when name is unknown.
func (o *Orchestrator) FindActivity(name string) *ActivityHandle {
	h, ok := o.activities.find(name)
	if !ok {
		return nil
	}
	if h == nil {
		o.activities.forget(name)
		return nil
	}
	return h
}

// RegisterStudio registers a lazily built studio.
func (o *Orchestrator) RegisterStudio(name string, factory func() Studio) {
	o.studios.register(name, func() *StudioHandle {
		s := factory()
		if s == nil {
			return nil
		}
		return &StudioHandle{studio: s}
	})
}

// FindStudio returns the studio handle for name, building it on first use.
// It returns nil when name is unknown.
func (o *Orchestrator) FindStudio(name string) *StudioHandle {
	h, ok := o.studios.find(name)
	if !ok {
		return nil
	}
	if h == nil {
		o.studios.forget(name)
		return nil
	}
	return h
}

// Studios lists the registered studio names.
func (o *Orchestrator) Studios() []string {
	return o.studios.names()
}

// Activities lists the registered activity names.
func (o *Orchestrator) Activities() []string {
	return o.activities.names()
}

// CurrentStudio returns the active studio, or nil before the first Service call.
func (o *Orchestrator) CurrentStudio() *StudioHandle {
	return o.current
}

// ActiveActivities returns the names of active activities, sorted.
func (o *Orchestrator) ActiveActivities() []string {
	var out []string
	for _, name := range o.activities.cached() {
		if h := o.activities.instances[name]; h != nil && h.active {
			out = append(out, name)
		}
	}
	return out
}

// ActivateStudio requests a studio switch on the next Service call.
// Only the most recent request is honored.
func (o *Orchestrator) ActivateStudio(name string) {
	o.mu.Lock()
	o.pendingStudio = name
	o.mu.Unlock()
}

// ActivateActivity requests activation on the next Service call.
func (o *Orchestrator) ActivateActivity(name string) {
	o.request(name, true)
}

// DeactivateActivity requests deactivation on the next Service call.
func (o *Orchestrator) DeactivateActivity(name string) {
	o.request(name, false)
}

func (o *Orchestrator) request(name string, activate bool) {
	o.mu.Lock()
	o.pending = append(o.pending, activationRequest{name: name, activate: activate})
	o.mu.Unlock()
}

func (o *Orchestrator) activateActivity(ctx context.Context, name string) bool {
	h := o.FindActivity(name)
	if h == nil {
		o.logger.Error("activity not found", "activity", name)
		return false
	}
	if h.Activate() {
		o.logger.Debug("activity activated", "activity", name)
		if o.hooks.OnActivityActivated != nil {
			o.hooks.OnActivityActivated(ctx, o.activation(domain.EventActivityActivated, name))
		}
	}
	return true
}

func (o *Orchestrator) deactivateActivity(ctx context.Context, name string) {
	h := o.FindActivity(name)
	if h == nil {
		o.logger.Error("activity not found", "activity", name)
		return
	}
	o.deactivateHandle(ctx, h)
}

func (o *Orchestrator) deactivateHandle(ctx context.Context, h *ActivityHandle) {
	if h.Deactivate() {
		o.logger.Debug("activity deactivated", "activity", h.Name())
		if o.hooks.OnActivityDeactivated != nil {
			o.hooks.OnActivityDeactivated(ctx, o.activation(domain.EventActivityDeactivated, h.Name()))
		}
	}
}

func (o *Orchestrator) activation(t domain.EventType, name string) *domain.ActivationEvent {
	return &domain.ActivationEvent{
		EventBase: domain.EventBase{Timestamp: o.now(), Type: t},
		Name:      name,
	}
}

// activateStudio switches the current studio to name.
// Unknown names are logged and leave the current studio in place.
func (o *Orchestrator) activateStudio(ctx context.Context, name string) {
	next := o.FindStudio(name)
	if next == nil {
		o.logger.Error("studio not found", "studio", name)
		return
	}
	if next == o.current {
		return
	}

	wanted := make(map[string]bool, len(next.studio.Activities()))
	for _, a := range next.studio.Activities() {
		wanted[a] = true
	}

	// 1. Retire the previous studio.
	if prev := o.current; prev != nil {
		if prev.studio.MustDeactivateUnrelatedActivitiesOnActivation() {
			for _, a := range prev.studio.Activities() {
				if wanted[a] {
					continue
				}
				if h := o.FindActivity(a); h != nil {
					o.deactivateHandle(ctx, h)
				}
			}
		}
		prev.deactivate()
		o.current = nil
	}

	// 2. Exclusive studios clear everything they do not list.
	if next.studio.Exclusive() {
		for _, a := range o.ActiveActivities() {
			if wanted[a] {
				continue
			}
			o.logger.Info("deactivating activity for exclusive studio", "studio", name, "activity", a)
			o.deactivateHandle(ctx, o.activities.instances[a])
		}
	}

	// 3. Bring up the configured set; missing names do not stop the rest.
	for _, a := range next.studio.Activities() {
		o.activateActivity(ctx, a)
	}

	next.activate()
	o.current = next
	o.logger.Info("studio activated", "studio", name)
	if o.hooks.OnStudioActivated != nil {
		o.hooks.OnStudioActivated(ctx, o.activation(domain.EventStudioActivated, name))
	}
	o.rebuildDispatch()
}
