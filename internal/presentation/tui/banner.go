package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"      _             _ _       ", "#818cf8"},
	{"  ___| |_ _   _  __| (_) ___  ", "#a78bfa"},
	{" / __| __| | | |/ _` | |/ _ \\ ", "#c084fc"},
	{" \\__ \\ |_| |_| | (_| | | (_) |", "#e879f9"},
	{" |___/\\__|\\__,_|\\__,_|_|\\___/ ", "#f472b6"},
}

// PrintBanner writes the studio banner followed by the version to w.
// Colours are dropped when w is not a terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	if !IsTerminal(w) {
		out = termenv.NewOutput(w, termenv.WithProfile(termenv.Ascii))
	}
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
