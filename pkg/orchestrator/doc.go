/*
Package orchestrator coordinates Activities, Studios, Providers and the
transaction journal of a Studio session.

# Threading

The Orchestrator is driven by one goroutine (the "UI" goroutine) calling Service
once per frame. Only EnqueueTransaction and the activation/switch request methods
are safe to call from other goroutines; registries, dispatch lists and the
journal are owned by the UI goroutine.

# Service Tick

Each call to Service:

 1. Takes every transaction queued before the call and applies them in order,
    recording each in the journal (coalescing on matching affinity). Transactions
    queued while the batch runs wait for the next tick.
 2. Performs a pending Studio switch, if any.
 3. Falls back to the built-in "Empty" Studio when none is active.
 4. Applies pending Activity activations in request order and rebuilds the
    capability dispatch lists.
 5. Calls Update on every active Updater, in name order.

# Capabilities

An Activity opts into per-frame work by implementing any of Updater, Renderer,
UIDrawer, MenuProvider, HoverBidder or DragBidder, or by reporting a Capability
set explicitly (see FuncActivity).
*/
package orchestrator
