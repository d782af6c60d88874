/*
Package journal implements the branching undo/redo history of applied transactions.

The history is a tree stored in an arena: nodes are addressed by NodeID handles and
linked through next (sequential history), sibling (alternate branch) and parent
(back-reference) handles. Deleting a subtree frees its slots for reuse, so no node
is ever reachable from two places and the live count can be checked against the
reachable count at any time (see Journal.Validate).

The root node represents the session start. It can never be undone, coalesced,
forked or removed.

A Journal is not safe for concurrent use. The orchestrator only touches it from
the goroutine that drives Orchestrator.Service.
*/
package journal
