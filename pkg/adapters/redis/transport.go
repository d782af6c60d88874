package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aretw0/studio/internal/logging"
	"github.com/aretw0/studio/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Transport implements ports.Transport over a Redis pub/sub channel.
// Messages are JSON-encoded.
type Transport struct {
	client  *backend.Client
	channel string
	logger  *slog.Logger
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithChannel sets the pub/sub channel name.
func WithChannel(channel string) TransportOption {
	return func(t *Transport) {
		t.channel = channel
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) TransportOption {
	return func(t *Transport) {
		t.logger = logger
	}
}

// NewTransport creates a transport with its own client.
func NewTransport(address, password string, db int, opts ...TransportOption) *Transport {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewTransportFromClient(rdb, opts...)
}

// NewTransportFromClient creates a transport from an existing client.
func NewTransportFromClient(client *backend.Client, opts ...TransportOption) *Transport {
	t := &Transport{
		client:  client,
		channel: "studio:events",
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = logging.Component(t.logger, "redis-transport")
	return t
}

// Publish sends msg to every subscriber of the channel.
func (t *Transport) Publish(ctx context.Context, msg domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := t.client.Publish(ctx, t.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}
	return nil
}

// Subscribe returns once the subscription is confirmed by the server, so no
// message published afterwards is missed. The channel closes when ctx is done.
func (t *Transport) Subscribe(ctx context.Context) (<-chan domain.Message, error) {
	ps := t.client.Subscribe(ctx, t.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", t.channel, err)
	}

	out := make(chan domain.Message)
	go func() {
		defer close(out)
		defer ps.Close()

		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-in:
				if !ok {
					return
				}
				var msg domain.Message
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					t.logger.Warn("dropping malformed message", "channel", raw.Channel, "err", err)
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close closes the redis client.
func (t *Transport) Close() error {
	return t.client.Close()
}
