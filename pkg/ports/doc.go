/*
Package ports defines the driven ports (interfaces) of the Studio core.

These interfaces decouple the orchestrator and the CSP engine from concrete
transports, file dialogs, asset loaders and persistence backends.

# Key Interfaces

  - Transport: publish/subscribe bus carrying CSP messages (memory or Redis).
  - FileDialog: non-blocking open-file request with a tri-state poll.
  - FileLoader: the asset loading collaborator invoked once a file is chosen.
    ChainLoaders runs several in order, stopping at the first failure.
  - ShotCreator: the sequencer collaborator used by the shot workflow.
  - TransactionSink: anything accepting deferred transactions (the orchestrator).
  - SnapshotStore: persistence for journal snapshots.
  - Locker: a lease on a session key, so one process records a session at a time.

RunSnapshotStoreContract, and TransportContractTest in ports/tests, are shared
suites every adapter runs against.
*/
package ports
