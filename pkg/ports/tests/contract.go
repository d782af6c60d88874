package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/studio/pkg/domain"
	"github.com/aretw0/studio/pkg/ports"
)

// TransportContractTest is a reusable test suite that verifies if an adapter complies with ports.Transport.
// The transport must be open and is not closed by the suite.
func TransportContractTest(t *testing.T, transport ports.Transport) {
	t.Helper()

	receive := func(t *testing.T, ch <-chan domain.Message) domain.Message {
		t.Helper()
		select {
		case msg, ok := <-ch:
			if !ok {
				t.Fatal("subscription closed unexpectedly")
			}
			return msg
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for message")
		}
		return domain.Message{}
	}

	// 1. Publish reaches a subscriber, payload intact
	t.Run("Publish_Subscribe", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		ch, err := transport.Subscribe(ctx)
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}

		want := domain.Message{Topic: "OpenRequest", ID: 200, Payload: []byte(`{"title":"Load Stage"}`)}
		if err := transport.Publish(ctx, want); err != nil {
			t.Fatalf("publish failed: %v", err)
		}

		got := receive(t, ch)
		if got.Topic != want.Topic || got.ID != want.ID || string(got.Payload) != string(want.Payload) {
			t.Errorf("message mismatch. got %+v, want %+v", got, want)
		}
	})

	// 2. Broadcast: every subscriber receives every message
	t.Run("Broadcast", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		a, err := transport.Subscribe(ctx)
		if err != nil {
			t.Fatalf("subscribe a failed: %v", err)
		}
		b, err := transport.Subscribe(ctx)
		if err != nil {
			t.Fatalf("subscribe b failed: %v", err)
		}

		if err := transport.Publish(ctx, domain.Message{Topic: "Idle", ID: 204}); err != nil {
			t.Fatalf("publish failed: %v", err)
		}

		if got := receive(t, a); got.ID != 204 {
			t.Errorf("subscriber a got id %d", got.ID)
		}
		if got := receive(t, b); got.ID != 204 {
			t.Errorf("subscriber b got id %d", got.ID)
		}
	})

	// 3. Order is preserved for a single publisher
	t.Run("Ordering", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		ch, err := transport.Subscribe(ctx)
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}
		for i := 1; i <= 20; i++ {
			if err := transport.Publish(ctx, domain.Message{Topic: "tick", ID: i}); err != nil {
				t.Fatalf("publish %d failed: %v", i, err)
			}
		}
		for i := 1; i <= 20; i++ {
			if got := receive(t, ch); got.ID != i {
				t.Fatalf("expected id %d, got %d", i, got.ID)
			}
		}
	})

	// 4. Cancelling the subscription closes the channel
	t.Run("Unsubscribe", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		ch, err := transport.Subscribe(ctx)
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}
		cancel()

		deadline := time.After(2 * time.Second)
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return
				}
			case <-deadline:
				t.Fatal("channel not closed after cancel")
			}
		}
	})
}
