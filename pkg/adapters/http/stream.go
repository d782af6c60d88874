package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/studio/pkg/domain"
)

// StreamEvent is one server-sent event.
type StreamEvent struct {
	Type string
	Data []byte
}

// StreamManager fans lifecycle events out to SSE clients.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan StreamEvent]struct{}
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[chan StreamEvent]struct{}),
	}
}

// Subscribe registers a client. The returned func unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe() (<-chan StreamEvent, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan StreamEvent, 32)
	sm.subscribers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			delete(sm.subscribers, ch)
			close(ch)
		})
	}
}

// Subscribers returns the number of connected clients.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}

// Broadcast sends ev to every client. Slow clients drop events rather than block
// the frame loop or the engine.
func (sm *StreamManager) Broadcast(ev StreamEvent) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for ch := range sm.subscribers {
		select {
		case ch <- ev:
		default:
			slog.Warn("SSE: client buffer full, dropping event", "type", ev.Type)
		}
	}
}

func (sm *StreamManager) publish(t domain.EventType, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("SSE: event encode failed", "type", t, "err", err)
		return
	}
	sm.Broadcast(StreamEvent{Type: string(t), Data: data})
}

// Hooks returns lifecycle hooks that broadcast every event to stream clients.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransactionApplied: func(_ context.Context, e *domain.TransactionEvent) {
			sm.publish(e.Type, e)
		},
		OnTransactionDropped: func(_ context.Context, e *domain.TransactionEvent) {
			sm.publish(e.Type, e)
		},
		OnActivityActivated: func(_ context.Context, e *domain.ActivationEvent) {
			sm.publish(e.Type, e)
		},
		OnActivityDeactivated: func(_ context.Context, e *domain.ActivationEvent) {
			sm.publish(e.Type, e)
		},
		OnStudioActivated: func(_ context.Context, e *domain.ActivationEvent) {
			sm.publish(e.Type, e)
		},
		OnEventPublished: func(_ context.Context, e *domain.PublishEvent) {
			sm.publish(e.Type, e)
		},
		OnProcessDelivered: func(_ context.Context, e *domain.ProcessEvent) {
			sm.publish(e.Type, e)
		},
	}
}
