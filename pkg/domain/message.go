package domain

// StopTopic is the reserved topic that shuts an engine listener down.
const StopTopic = "STOP"

// Message is a CSP event as carried by a transport.
// Dispatch is keyed by ID; Topic is informational.
// ID 0 means "no associated process" and is ignored by listeners.
type Message struct {
	Topic   string `json:"topic"`
	ID      int    `json:"id"`
	Payload []byte `json:"payload,omitempty"`
}

// JournalEntry is a persisted, closure-free view of one journal node.
type JournalEntry struct {
	ID       int      `json:"id"`
	Parent   int      `json:"parent"`
	Depth    int      `json:"depth"`
	Message  string   `json:"message"`
	Affinity Affinity `json:"affinity,omitempty"`
	Current  bool     `json:"current,omitempty"`
}
