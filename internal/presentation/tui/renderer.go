package tui

import (
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// RenderFunc turns a markdown report into terminal output.
type RenderFunc func(markdown string) (string, error)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// NewRenderer returns a glamour renderer when out is a terminal and a
// passthrough otherwise, so piped reports stay plain markdown.
func NewRenderer(out io.Writer) RenderFunc {
	if !IsTerminal(out) {
		return Plain
	}
	width := 100
	if f, ok := out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 {
			width = w - 4
		}
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return Plain
	}
	return r.Render
}

// Plain returns markdown unchanged.
func Plain(markdown string) (string, error) {
	return markdown, nil
}
