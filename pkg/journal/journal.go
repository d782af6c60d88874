package journal

import (
	"fmt"

	"github.com/aretw0/studio/pkg/domain"
)

// NodeID is a stable handle to a node in the journal arena.
type NodeID int

// NoNode is the null handle.
const NoNode NodeID = -1

// RootMessage is the message carried by the session-start node.
const RootMessage = "session start"

type node struct {
	tx      domain.Transaction
	next    NodeID
	sibling NodeID
	parent  NodeID
	live    bool
}

// Journal owns the history tree and the cursor pointing at the most recently applied node.
type Journal struct {
	nodes []node
	free  []NodeID
	live  int
	root  NodeID
	curr  NodeID
}

// New creates a journal holding only the session-start node.
func New() *Journal {
	j := &Journal{}
	j.root = j.alloc(domain.Transaction{Message: RootMessage}, NoNode)
	j.curr = j.root
	return j
}

func (j *Journal) alloc(tx domain.Transaction, parent NodeID) NodeID {
	n := node{tx: tx, next: NoNode, sibling: NoNode, parent: parent, live: true}
	j.live++
	if len(j.free) > 0 {
		id := j.free[len(j.free)-1]
		j.free = j.free[:len(j.free)-1]
		j.nodes[id] = n
		return id
	}
	j.nodes = append(j.nodes, n)
	return NodeID(len(j.nodes) - 1)
}

func (j *Journal) release(id NodeID) {
	j.nodes[id] = node{next: NoNode, sibling: NoNode, parent: NoNode}
	j.free = append(j.free, id)
	j.live--
}

func (j *Journal) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(j.nodes) && j.nodes[id].live
}

// Root returns the session-start handle.
func (j *Journal) Root() NodeID { return j.root }

// Current returns the cursor.
func (j *Journal) Current() NodeID { return j.curr }

// Live returns the number of allocated nodes.
func (j *Journal) Live() int { return j.live }

// Append records an applied transaction after the cursor.
//
// Any future history after the cursor is destroyed first. If tx shares a non-empty
// affinity with the current node, the current node's transaction is replaced in
// place and coalesced is true. Otherwise a new child is created and becomes current.
func (j *Journal) Append(tx domain.Transaction) (id NodeID, coalesced bool) {
	cur := &j.nodes[j.curr]
	if cur.next != NoNode {
		j.truncate(cur.next)
		j.nodes[j.curr].next = NoNode
	}

	if j.curr != j.root && tx.Affinity.Matches(j.nodes[j.curr].tx.Affinity) {
		j.nodes[j.curr].tx = tx
		return j.curr, true
	}

	id = j.alloc(tx, j.curr)
	j.nodes[j.curr].next = id
	j.curr = id
	return id, false
}

// Fork records tx as an alternate branch of the current node.
// The new node is appended at the end of the current node's sibling chain,
// shares its parent, and becomes current.
func (j *Journal) Fork(tx domain.Transaction) (NodeID, error) {
	if j.curr == j.root {
		return NoNode, fmt.Errorf("fork: %w", domain.ErrRootUndo)
	}

	last := j.curr
	for j.nodes[last].sibling != NoNode {
		last = j.nodes[last].sibling
	}

	id := j.alloc(tx, j.nodes[j.curr].parent)
	j.nodes[last].sibling = id
	j.curr = id
	return id, nil
}

// Truncate frees id and every node reachable from it through next and sibling
// links, and unlinks it from its predecessor. The root cannot be truncated. If
// the cursor was inside the freed region it moves to id's parent.
func (j *Journal) Truncate(id NodeID) error {
	if err := j.prunable("truncate", id); err != nil {
		return err
	}
	parent := j.nodes[id].parent
	j.unlink(id)
	j.truncate(id)
	if !j.nodes[j.curr].live {
		j.curr = parent
	}
	return nil
}

// truncate frees id and everything after it without touching the link that
// points at id.
func (j *Journal) truncate(id NodeID) {
	if !j.valid(id) {
		return
	}
	// Iterative over the sibling chain so long branch lists do not deepen the stack.
	for id != NoNode {
		n := j.nodes[id]
		if n.next != NoNode {
			j.truncate(n.next)
		}
		j.release(id)
		id = n.sibling
	}
}

// Remove prunes everything after id, unlinks id from its parent and frees it.
// The removed transaction is returned to the caller. If the cursor was inside
// the pruned region it moves to id's parent.
func (j *Journal) Remove(id NodeID) (domain.Transaction, error) {
	if err := j.prunable("remove", id); err != nil {
		return domain.Transaction{}, err
	}

	n := j.nodes[id]
	j.unlink(id)
	j.truncate(n.next)
	j.truncate(n.sibling)

	if j.curr == id || !j.nodes[j.curr].live {
		j.curr = n.parent
	}

	j.release(id)
	return n.tx, nil
}

func (j *Journal) prunable(op string, id NodeID) error {
	if !j.valid(id) {
		return fmt.Errorf("%s %d: %w", op, id, domain.ErrNodeNotFound)
	}
	if id == j.root {
		return fmt.Errorf("%s root: %w", op, domain.ErrRootUndo)
	}
	return nil
}

// unlink clears the parent's next slot or the sibling link that points at id.
func (j *Journal) unlink(id NodeID) {
	parent := &j.nodes[j.nodes[id].parent]
	if parent.next == id {
		parent.next = NoNode
		return
	}
	for prev := parent.next; prev != NoNode; prev = j.nodes[prev].sibling {
		if j.nodes[prev].sibling == id {
			j.nodes[prev].sibling = NoNode
			return
		}
	}
}

// Undo reverts the current node and moves the cursor to its parent.
// Undoing the session start is a precondition violation and returns ErrRootUndo.
func (j *Journal) Undo() error {
	if j.curr == j.root {
		return domain.ErrRootUndo
	}
	n := j.nodes[j.curr]
	n.tx.Revert()
	j.curr = n.parent
	return nil
}

// Redo re-applies the first child of the cursor and moves onto it.
func (j *Journal) Redo() error {
	next := j.nodes[j.curr].next
	if next == NoNode {
		return domain.ErrNothingToRedo
	}
	if exec := j.nodes[next].tx.Exec; exec != nil {
		exec()
	}
	j.curr = next
	return nil
}

// Reachable counts the nodes reachable from the root over next and sibling links.
func (j *Journal) Reachable() int {
	return j.count(j.root)
}

func (j *Journal) count(id NodeID) int {
	total := 0
	for id != NoNode {
		total++
		total += j.count(j.nodes[id].next)
		id = j.nodes[id].sibling
	}
	return total
}

// Validate reports whether every live node is reachable from the root.
// It walks the whole tree and is meant for diagnostics and tests.
func (j *Journal) Validate() bool {
	return j.Reachable() == j.live
}
