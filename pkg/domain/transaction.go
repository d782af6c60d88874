package domain

import "github.com/google/uuid"

// Affinity identifies the scene entity and property a Transaction edits.
// Two consecutive transactions with the same non-zero Affinity are coalesced
// into a single journal entry (e.g. every step of a slider drag).
type Affinity struct {
	Entity string `json:"entity,omitempty"`
	Key    string `json:"key,omitempty"`
}

// IsZero reports whether the affinity is empty.
func (a Affinity) IsZero() bool {
	return a.Entity == "" && a.Key == ""
}

// Matches reports whether both affinities are non-empty and identical.
func (a Affinity) Matches(other Affinity) bool {
	if a.IsZero() || other.IsZero() {
		return false
	}
	return a == other
}

// Transaction is a deferred mutation applied by the orchestrator on its
// consumer goroutine. Exec runs exactly once; Undo defaults to a no-op.
type Transaction struct {
	ID       string
	Message  string
	Exec     func()
	Undo     func()
	Affinity Affinity
}

// TransactionOption customizes a Transaction built with NewTransaction.
type TransactionOption func(*Transaction)

// WithUndo sets the inverse action.
func WithUndo(undo func()) TransactionOption {
	return func(t *Transaction) {
		if undo != nil {
			t.Undo = undo
		}
	}
}

// WithAffinity sets the coalescing key.
func WithAffinity(entity, key string) TransactionOption {
	return func(t *Transaction) {
		t.Affinity = Affinity{Entity: entity, Key: key}
	}
}

// NewTransaction builds a Transaction with a fresh ID and a no-op Undo.
func NewTransaction(message string, exec func(), opts ...TransactionOption) Transaction {
	t := Transaction{
		ID:      uuid.NewString(),
		Message: message,
		Exec:    exec,
		Undo:    func() {},
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// Runnable reports whether the transaction carries an Exec closure.
// Transactions without one are dropped by the orchestrator.
func (t Transaction) Runnable() bool {
	return t.Exec != nil
}

// Revert runs the Undo closure if present.
func (t Transaction) Revert() {
	if t.Undo != nil {
		t.Undo()
	}
}
