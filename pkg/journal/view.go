package journal

import "github.com/aretw0/studio/pkg/domain"

// NodeView is a read-only copy of a journal node, used by inspectors and renderers.
type NodeView struct {
	ID       NodeID          `json:"id"`
	Parent   NodeID          `json:"parent"`
	Next     NodeID          `json:"next"`
	Sibling  NodeID          `json:"sibling"`
	Depth    int             `json:"depth"`
	Message  string          `json:"message"`
	Affinity domain.Affinity `json:"affinity,omitempty"`
	Current  bool            `json:"current,omitempty"`
}

// Node returns a view of a live node.
func (j *Journal) Node(id NodeID) (NodeView, bool) {
	if !j.valid(id) {
		return NodeView{}, false
	}
	return j.view(id, j.depth(id)), true
}

func (j *Journal) view(id NodeID, depth int) NodeView {
	n := j.nodes[id]
	return NodeView{
		ID:       id,
		Parent:   n.parent,
		Next:     n.next,
		Sibling:  n.sibling,
		Depth:    depth,
		Message:  n.tx.Message,
		Affinity: n.tx.Affinity,
		Current:  id == j.curr,
	}
}

func (j *Journal) depth(id NodeID) int {
	d := 0
	for p := j.nodes[id].parent; p != NoNode; p = j.nodes[p].parent {
		d++
	}
	return d
}

// Children returns the branches recorded after id: its next node followed by
// that node's sibling chain, in creation order.
func (j *Journal) Children(id NodeID) []NodeID {
	if !j.valid(id) {
		return nil
	}
	var out []NodeID
	for c := j.nodes[id].next; c != NoNode; c = j.nodes[c].sibling {
		out = append(out, c)
	}
	return out
}

// Path returns the handles from the root to the cursor, inclusive.
func (j *Journal) Path() []NodeID {
	var rev []NodeID
	for id := j.curr; id != NoNode; id = j.nodes[id].parent {
		rev = append(rev, id)
	}
	out := make([]NodeID, len(rev))
	for i, id := range rev {
		out[len(rev)-1-i] = id
	}
	return out
}

// Snapshot lists every reachable node in depth-first order, branches in creation order.
func (j *Journal) Snapshot() []NodeView {
	out := make([]NodeView, 0, j.live)
	var walk func(id NodeID, depth int)
	walk = func(id NodeID, depth int) {
		out = append(out, j.view(id, depth))
		for _, c := range j.Children(id) {
			walk(c, depth+1)
		}
	}
	walk(j.root, 0)
	return out
}

// Transaction returns the transaction recorded at id.
func (j *Journal) Transaction(id NodeID) (domain.Transaction, bool) {
	if !j.valid(id) {
		return domain.Transaction{}, false
	}
	return j.nodes[id].tx, true
}

// Entries returns Snapshot as closure-free journal entries, ready to persist.
func (j *Journal) Entries() []domain.JournalEntry {
	views := j.Snapshot()
	out := make([]domain.JournalEntry, len(views))
	for i, v := range views {
		out[i] = domain.JournalEntry{
			ID:       int(v.ID),
			Parent:   int(v.Parent),
			Depth:    v.Depth,
			Message:  v.Message,
			Affinity: v.Affinity,
			Current:  v.Current,
		}
	}
	return out
}

// ViewsFromEntries rebuilds node views from persisted entries, which are stored
// in Snapshot order. The first child of a node is its next link; later children
// are chained as siblings.
func ViewsFromEntries(entries []domain.JournalEntry) []NodeView {
	out := make([]NodeView, len(entries))
	index := make(map[NodeID]int, len(entries))
	lastChild := make(map[NodeID]int, len(entries))
	for i, e := range entries {
		id := NodeID(e.ID)
		out[i] = NodeView{
			ID:       id,
			Parent:   NodeID(e.Parent),
			Next:     NoNode,
			Sibling:  NoNode,
			Depth:    e.Depth,
			Message:  e.Message,
			Affinity: e.Affinity,
			Current:  e.Current,
		}
		index[id] = i

		p, ok := index[NodeID(e.Parent)]
		if !ok || NodeID(e.Parent) == NoNode {
			continue
		}
		if prev, seen := lastChild[NodeID(e.Parent)]; seen {
			out[prev].Sibling = id
		} else {
			out[p].Next = id
		}
		lastChild[NodeID(e.Parent)] = i
	}
	return out
}
