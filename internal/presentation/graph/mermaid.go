package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/studio/pkg/journal"
)

// Mermaid renders a journal snapshot as a Mermaid flowchart.
// The redo branch of each node is drawn solid, forked branches dotted.
// Nodes between the root and the cursor are styled as the active path.
func Mermaid(nodes []journal.NodeView) string {
	byID := make(map[journal.NodeID]journal.NodeView, len(nodes))
	var current journal.NodeID = journal.NoNode
	for _, n := range nodes {
		byID[n.ID] = n
		if n.Current {
			current = n.ID
		}
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")
	for _, n := range nodes {
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", nodeID(n.ID), label(n))
		if n.Parent == journal.NoNode {
			continue
		}
		arrow := "-->"
		if p, ok := byID[n.Parent]; ok && p.Next != n.ID {
			arrow = "-.->"
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", nodeID(n.Parent), arrow, nodeID(n.ID))
	}

	if current == journal.NoNode {
		return sb.String()
	}

	sb.WriteString("\n    %% Cursor\n")
	// Force black text so the overlay stays readable on dark themes.
	sb.WriteString("    classDef path fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
	for id := byID[current].Parent; id != journal.NoNode; {
		n, ok := byID[id]
		if !ok {
			break
		}
		fmt.Fprintf(&sb, "    class %s path;\n", nodeID(id))
		id = n.Parent
	}
	fmt.Fprintf(&sb, "    class %s current;\n", nodeID(current))
	return sb.String()
}

// Tree renders a journal snapshot as an indented markdown list.
func Tree(nodes []journal.NodeView) string {
	var sb strings.Builder
	for _, n := range nodes {
		sb.WriteString(strings.Repeat("  ", n.Depth))
		sb.WriteString("- ")
		if n.Current {
			fmt.Fprintf(&sb, "**%s** ← current", n.Message)
		} else {
			sb.WriteString(n.Message)
		}
		if !n.Affinity.IsZero() {
			fmt.Fprintf(&sb, " `%s:%s`", n.Affinity.Entity, n.Affinity.Key)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func nodeID(id journal.NodeID) string {
	return fmt.Sprintf("n%d", id)
}

func label(n journal.NodeView) string {
	return strings.ReplaceAll(n.Message, "\"", "'")
}
