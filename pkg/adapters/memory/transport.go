package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/studio/pkg/domain"
)

// ErrTransportClosed is returned when publishing or subscribing on a closed Transport.
var ErrTransportClosed = errors.New("transport closed")

// Transport implements ports.Transport as an in-process broadcast bus.
// Every subscriber receives every message published after it subscribed,
// in publication order. Publish never blocks on a slow subscriber.
type Transport struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

// NewTransport creates an open in-memory transport.
func NewTransport() *Transport {
	return &Transport{subs: make(map[*subscriber]struct{})}
}

// subscriber owns an unbounded mailbox drained by its pump goroutine.
type subscriber struct {
	mu     sync.Mutex
	queue  []domain.Message
	notify chan struct{}
	out    chan domain.Message
	done   chan struct{}
	once   sync.Once
}

func (s *subscriber) enqueue(msg domain.Message) {
	s.mu.Lock()
	s.queue = append(s.queue, msg)
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscriber) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()

		for _, msg := range batch {
			select {
			case s.out <- msg:
			case <-s.done:
				return
			}
		}

		select {
		case <-s.notify:
		case <-s.done:
			return
		}
	}
}

// Publish delivers msg to every current subscriber.
func (t *Transport) Publish(ctx context.Context, msg domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransportClosed
	}
	for s := range t.subs {
		s.enqueue(msg)
	}
	return nil
}

// Subscribe returns a channel receiving every subsequent message.
// The channel is closed when ctx is done or the transport is closed.
func (t *Transport) Subscribe(ctx context.Context) (<-chan domain.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTransportClosed
	}

	s := &subscriber{
		notify: make(chan struct{}, 1),
		out:    make(chan domain.Message),
		done:   make(chan struct{}),
	}
	t.subs[s] = struct{}{}
	go s.pump()
	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
		}
		t.mu.Lock()
		delete(t.subs, s)
		t.mu.Unlock()
		s.stop()
	}()
	return s.out, nil
}

// Subscribers returns the number of live subscriptions.
func (t *Transport) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Close ends every subscription. Further calls are no-ops.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for s := range t.subs {
		s.stop()
	}
	t.subs = nil
	return nil
}
