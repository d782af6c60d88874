/*
Package domain contains the core models shared by the Studio orchestrator, the
undo/redo journal and the CSP event engine.

The package is kept pure and free of I/O, scheduling or persistence concerns so
that every other package can depend on it without pulling adapters along.

# Key Entities

  - Transaction: a named unit of deferred work with an Exec and an optional Undo.
  - Affinity: the (entity, key) pair used to coalesce repeated edits of the same property.
  - LifecycleHooks: observability callbacks fired by the orchestrator and the CSP engine.
*/
package domain
