package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/studio"
	"github.com/aretw0/studio/pkg/adapters/memory"
	"github.com/aretw0/studio/pkg/domain"
	"github.com/aretw0/studio/pkg/orchestrator"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func newStudio(t *testing.T) *studio.Studio {
	t.Helper()
	transport := memory.NewTransport()
	t.Cleanup(func() { _ = transport.Close() })

	app := studio.New(transport)
	app.Orchestrator().RegisterStudio("Layout", func() orchestrator.Studio {
		return &orchestrator.BasicStudio{StudioName: "Layout"}
	})
	app.Tick(time.Millisecond)
	return app
}

func call(t *testing.T, h handler, args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestServer_ViewAndStudioSwitch(t *testing.T) {
	app := newStudio(t)
	s := NewServer(app)

	out, isErr := call(t, s.handleActivateStudio, map[string]any{"name": "Layout"})
	assert.False(t, isErr)
	assert.Contains(t, out, "Layout")
	app.Tick(time.Millisecond)

	out, isErr = call(t, s.handleGetView, nil)
	require.False(t, isErr)
	var v studio.View
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "Layout", v.Studio)

	out, isErr = call(t, s.handleActivateStudio, map[string]any{"name": "Compositing"})
	assert.True(t, isErr)
	assert.Contains(t, out, "unknown studio")

	_, isErr = call(t, s.handleActivateStudio, nil)
	assert.True(t, isErr)
}

func TestServer_UndoRedoAndJournal(t *testing.T) {
	app := newStudio(t)
	s := NewServer(app)

	app.EnqueueTransaction(domain.NewTransaction("add cube", func() {}))
	app.Tick(time.Millisecond)

	out, isErr := call(t, s.handleGetJournal, map[string]any{"format": "tree"})
	require.False(t, isErr)
	assert.Contains(t, out, "**add cube** ← current")

	call(t, s.handleUndo, nil)
	app.Tick(time.Millisecond)
	out, _ = call(t, s.handleGetJournal, nil)
	assert.Contains(t, out, "**session start** ← current")

	call(t, s.handleRedo, nil)
	app.Tick(time.Millisecond)
	out, _ = call(t, s.handleGetJournal, map[string]any{"format": "mermaid"})
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "class n1 current;")

	_, isErr = call(t, s.handleGetJournal, map[string]any{"format": "dot"})
	assert.True(t, isErr)
}

func TestServer_EmitEvent(t *testing.T) {
	app := newStudio(t)
	s := NewServer(app)
	args := map[string]any{"topic": "ping", "id": float64(7), "payload": "x"}

	out, isErr := call(t, s.handleEmitEvent, args)
	assert.True(t, isErr)
	assert.Contains(t, out, "not running")

	require.NoError(t, app.Start(context.Background()))
	t.Cleanup(app.Stop)

	out, isErr = call(t, s.handleEmitEvent, args)
	assert.False(t, isErr)
	assert.Equal(t, "event ping sent to 7", out)

	_, isErr = call(t, s.handleEmitEvent, map[string]any{"topic": "ping", "id": float64(7), "delay_ms": float64(60000)})
	assert.False(t, isErr)
	assert.Equal(t, 1, app.View().Scheduled)

	_, isErr = call(t, s.handleEmitEvent, map[string]any{"topic": "ping"})
	assert.True(t, isErr)
	_, isErr = call(t, s.handleEmitEvent, map[string]any{"topic": "ping", "id": float64(7), "delay_ms": float64(-5)})
	assert.True(t, isErr)
}
