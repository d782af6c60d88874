package domain

import "errors"

// ErrRootUndo is returned when undo is requested on the session-start node.
// It signals caller misuse: there is no state prior to the session start.
var ErrRootUndo = errors.New("cannot undo the session start")

// ErrNothingToRedo is returned when the journal cursor has no future history.
var ErrNothingToRedo = errors.New("nothing to redo")

// ErrNodeNotFound is returned when a journal handle does not reference a live node.
var ErrNodeNotFound = errors.New("journal node not found")

// ErrNotRegistered is returned when a name has no registered factory.
var ErrNotRegistered = errors.New("not registered")

// ErrProcessCollision is returned when a CSP module declares a process id already owned by another module.
var ErrProcessCollision = errors.New("process id collision")

// ErrEngineStopped is returned when publishing on an engine that is not running.
var ErrEngineStopped = errors.New("engine stopped")

// ErrRequestInFlight is reported when a single-flight workflow is started twice.
var ErrRequestInFlight = errors.New("request already in flight")

// ErrSessionNotFound is returned when a session ID cannot be found in a snapshot store.
var ErrSessionNotFound = errors.New("session not found")
