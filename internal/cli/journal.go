package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/studio/internal/presentation/graph"
	"github.com/aretw0/studio/pkg/journal"
	"github.com/aretw0/studio/pkg/ports"
)

// PrintJournal writes the saved history of session as a markdown tree or a
// Mermaid flowchart.
func PrintJournal(ctx context.Context, store ports.SnapshotStore, session, format string, w io.Writer) error {
	entries, err := store.Load(ctx, session)
	if err != nil {
		return fmt.Errorf("load session %q: %w", session, err)
	}
	views := journal.ViewsFromEntries(entries)

	switch format {
	case "", "tree":
		_, err = io.WriteString(w, graph.Tree(views))
	case "mermaid":
		_, err = io.WriteString(w, graph.Mermaid(views))
	default:
		return fmt.Errorf("unknown format %q (want tree or mermaid)", format)
	}
	return err
}

// ListSessions writes the saved session ids, one per line.
func ListSessions(ctx context.Context, store ports.SnapshotStore, w io.Writer) error {
	ids, err := store.List(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := fmt.Fprintln(w, id); err != nil {
			return err
		}
	}
	return nil
}
