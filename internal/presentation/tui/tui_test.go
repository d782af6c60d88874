package tui_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/studio/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderer_NonTerminalIsPlain(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, tui.IsTerminal(&buf))

	render := tui.NewRenderer(&buf)
	out, err := render("# Journal\n- session start\n")
	require.NoError(t, err)
	assert.Equal(t, "# Journal\n- session start\n", out)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "1.2.3")

	out := buf.String()
	assert.Contains(t, out, "v1.2.3")
	assert.NotContains(t, out, "\x1b[", "non-terminal output must not carry escape codes")
	assert.Equal(t, 8, strings.Count(out, "\n"))
}
