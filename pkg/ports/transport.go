package ports

import (
	"context"

	"github.com/aretw0/studio/pkg/domain"
)

// Transport is a broadcast bus: every subscriber receives every published message.
//
// Publish must never block waiting for a subscriber to receive, so that a
// process behavior running on the listener goroutine can publish follow-up events.
type Transport interface {
	Publish(ctx context.Context, msg domain.Message) error

	// Subscribe returns a channel of every message published after it returns.
	// The channel is closed once ctx is done or the transport is closed.
	Subscribe(ctx context.Context) (<-chan domain.Message, error)

	Close() error
}
