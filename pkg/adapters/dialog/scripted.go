// Package dialog provides FileDialog implementations that do not need a desktop.
package dialog

import (
	"errors"
	"sync"

	"github.com/aretw0/studio/pkg/ports"
)

// ErrScriptExhausted is returned when more dialogs are requested than were scripted.
var ErrScriptExhausted = errors.New("dialog script exhausted")

// Outcome is the scripted answer to one dialog request.
type Outcome struct {
	// Path is returned once the request becomes ready.
	Path string
	// Status is the final poll status. Zero means PollReady.
	Status ports.PollStatus
	// Polls is the number of PollNotReady answers before the final status.
	Polls int
}

type request struct {
	title     string
	outcome   Outcome
	remaining int
	done      bool
}

// Scripted is a deterministic FileDialog that answers requests from a list of
// outcomes, in order. Safe for concurrent use.
type Scripted struct {
	mu       sync.Mutex
	script   []Outcome
	requests map[ports.RequestID]*request
	nextID   ports.RequestID
	titles   []string
}

// NewScripted creates a dialog that plays back outcomes.
func NewScripted(outcomes ...Outcome) *Scripted {
	return &Scripted{
		script:   outcomes,
		requests: make(map[ports.RequestID]*request),
	}
}

// Ready is shorthand for an outcome that yields path after polls.
func Ready(path string, polls int) Outcome {
	return Outcome{Path: path, Status: ports.PollReady, Polls: polls}
}

// Canceled is shorthand for a request the user dismisses after polls.
func Canceled(polls int) Outcome {
	return Outcome{Status: ports.PollCanceled, Polls: polls}
}

// RequestOpenFile consumes the next scripted outcome.
func (s *Scripted) RequestOpenFile(title string, extensions []string) (ports.RequestID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.script) == 0 {
		return 0, ErrScriptExhausted
	}
	out := s.script[0]
	s.script = s.script[1:]
	if out.Status == ports.PollNotReady {
		out.Status = ports.PollReady
	}

	s.nextID++
	s.requests[s.nextID] = &request{title: title, outcome: out, remaining: out.Polls}
	s.titles = append(s.titles, title)
	return s.nextID, nil
}

// PollOpenFile reports the request state. A resolved request reports
// PollExpired on every later poll.
func (s *Scripted) PollOpenFile(id ports.RequestID) (string, ports.PollStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || req.done {
		return "", ports.PollExpired
	}
	if req.remaining > 0 {
		req.remaining--
		return "", ports.PollNotReady
	}
	req.done = true
	if req.outcome.Status != ports.PollReady {
		return "", req.outcome.Status
	}
	return req.outcome.Path, ports.PollReady
}

// Requests returns the titles of every dialog opened so far.
func (s *Scripted) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.titles))
	copy(out, s.titles)
	return out
}
