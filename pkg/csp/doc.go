/*
Package csp implements the event engine that drives small explicit state machines.

A Module groups named Processes, each identified by a numeric id that is unique
across an Engine. Emitting an event publishes a domain.Message on the engine's
Transport, either immediately or once a delay elapses; the engine's listener
receives every message and runs the behavior of the process whose id matches.

# Execution Model

One goroutine per running Engine owns both the delay queue and the transport
subscription. It waits on whichever comes first: an incoming message, the due
time of the earliest scheduled event, a newly scheduled event, or shutdown.
Behaviors run to completion on that goroutine, so two behaviors never run
concurrently. A behavior may emit follow-up events; publishing never waits on
the listener, so this cannot deadlock.

Events scheduled with the same due time are published in scheduling order.
Stop discards every event still waiting in the delay queue. It waits for the
engine goroutine to exit and therefore must not be called from a behavior.
*/
package csp
