package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTransactionApplied  EventType = "transaction_applied"
	EventTransactionDropped  EventType = "transaction_dropped"
	EventActivityActivated   EventType = "activity_activated"
	EventActivityDeactivated EventType = "activity_deactivated"
	EventStudioActivated     EventType = "studio_activated"
	EventProcessDelivered    EventType = "process_delivered"
	EventPublished           EventType = "event_published"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// TransactionEvent reports the fate of a dequeued transaction.
type TransactionEvent struct {
	EventBase
	TransactionID string   `json:"transaction_id"`
	Message       string   `json:"message"`
	Coalesced     bool     `json:"coalesced,omitempty"`
	Affinity      Affinity `json:"affinity,omitempty"`
	JournalNodes  int      `json:"journal_nodes,omitempty"`
}

// ActivationEvent reports an Activity or Studio changing state.
type ActivationEvent struct {
	EventBase
	Name string `json:"name"`
}

// ProcessEvent reports a CSP message dispatched to a process behavior.
type ProcessEvent struct {
	EventBase
	ProcessID int           `json:"process_id"`
	Process   string        `json:"process"`
	Topic     string        `json:"topic"`
	Duration  time.Duration `json:"duration"`
}

// PublishEvent reports a CSP event handed to the transport, immediately or after a delay.
type PublishEvent struct {
	EventBase
	Topic     string        `json:"topic"`
	ProcessID int           `json:"process_id"`
	Delay     time.Duration `json:"delay,omitempty"`
}

// LifecycleHooks defines callbacks for orchestrator and engine observability.
// Every field is optional.
type LifecycleHooks struct {
	OnTransactionApplied  func(context.Context, *TransactionEvent)
	OnTransactionDropped  func(context.Context, *TransactionEvent)
	OnActivityActivated   func(context.Context, *ActivationEvent)
	OnActivityDeactivated func(context.Context, *ActivationEvent)
	OnStudioActivated     func(context.Context, *ActivationEvent)
	OnProcessDelivered    func(context.Context, *ProcessEvent)
	OnEventPublished      func(context.Context, *PublishEvent)
}

// Merge returns hooks that call h first and then other, for every callback set in either.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTransactionApplied:  chain(h.OnTransactionApplied, other.OnTransactionApplied),
		OnTransactionDropped:  chain(h.OnTransactionDropped, other.OnTransactionDropped),
		OnActivityActivated:   chain(h.OnActivityActivated, other.OnActivityActivated),
		OnActivityDeactivated: chain(h.OnActivityDeactivated, other.OnActivityDeactivated),
		OnStudioActivated:     chain(h.OnStudioActivated, other.OnStudioActivated),
		OnProcessDelivered:    chain(h.OnProcessDelivered, other.OnProcessDelivered),
		OnEventPublished:      chain(h.OnEventPublished, other.OnEventPublished),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
