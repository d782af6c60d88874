// Package middleware decorates a snapshot store with encryption and redaction
// of journal snapshots.
package middleware

import "github.com/aretw0/studio/pkg/ports"

// Middleware allows wrapping a SnapshotStore to add behavior.
type Middleware func(ports.SnapshotStore) ports.SnapshotStore

// Chain wraps store with mws. The first middleware is the outermost, so it sees
// a snapshot before the others on Save.
func Chain(store ports.SnapshotStore, mws ...Middleware) ports.SnapshotStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
