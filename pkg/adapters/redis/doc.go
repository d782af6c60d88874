// Package redis provides Redis-backed adapters: a pub/sub Transport for the csp
// engine, a SnapshotStore for journal history and a Locker guarding sessions.
package redis
