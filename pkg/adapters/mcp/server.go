// Package mcp exposes a running studio to Model Context Protocol clients:
// the read model and journal as resources, undo, redo, studio switching and
// event emission as tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/studio"
	"github.com/aretw0/studio/internal/presentation/graph"
	"github.com/aretw0/studio/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	viewURI    = "studio://view"
	journalURI = "studio://journal"
)

// Inspector is the studio surface the MCP server drives.
type Inspector interface {
	View() studio.View
	ActivateStudio(name string)
	Emit(ctx context.Context, topic string, id int, payload []byte, delay time.Duration) error
	Undo()
	Redo()
}

var _ Inspector = (*studio.Studio)(nil)

// Server wraps an Inspector as an MCP server.
type Server struct {
	app       Inspector
	mcpServer *server.MCPServer
}

// NewServer creates the MCP server for app.
func NewServer(app Inspector) *Server {
	s := &Server{
		app: app,
		mcpServer: server.NewMCPServer("studio-mcp", strings.TrimSpace(studio.Version),
			server.WithResourceCapabilities(false, false),
			server.WithToolCapabilities(false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio serves on Stdin/Stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// MCPServer returns the underlying server, for other transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_view",
		mcp.WithDescription("Return the studio read model: current studio, activities and journal."),
	), s.handleGetView)

	s.mcpServer.AddTool(mcp.NewTool("get_journal",
		mcp.WithDescription("Render the undo journal."),
		mcp.WithString("format",
			mcp.Description("tree (markdown list) or mermaid"),
			mcp.Enum("tree", "mermaid"),
		),
	), s.handleGetJournal)

	s.mcpServer.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Queue an undo for the next frame."),
	), s.handleUndo)

	s.mcpServer.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Queue a redo for the next frame."),
	), s.handleRedo)

	s.mcpServer.AddTool(mcp.NewTool("activate_studio",
		mcp.WithDescription("Switch to a registered studio on the next frame."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Studio name")),
	), s.handleActivateStudio)

	s.mcpServer.AddTool(mcp.NewTool("emit_event",
		mcp.WithDescription("Publish a csp event to a process id, optionally delayed."),
		mcp.WithString("topic", mcp.Required(), mcp.Description("Event topic")),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Target process id, non-zero")),
		mcp.WithString("payload", mcp.Description("Opaque payload")),
		mcp.WithNumber("delay_ms", mcp.Description("Delay before publication in milliseconds")),
	), s.handleEmitEvent)
}

func (s *Server) handleGetView(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.app.View())
}

func (s *Server) handleGetJournal(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodes := s.app.View().Journal
	switch format := request.GetString("format", "tree"); format {
	case "tree":
		return mcp.NewToolResultText(graph.Tree(nodes)), nil
	case "mermaid":
		return mcp.NewToolResultText(graph.Mermaid(nodes)), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q", format)), nil
	}
}

func (s *Server) handleUndo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.app.Undo()
	return mcp.NewToolResultText("undo queued"), nil
}

func (s *Server) handleRedo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.app.Redo()
	return mcp.NewToolResultText("redo queued"), nil
}

func (s *Server) handleActivateStudio(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !slices.Contains(s.app.View().Studios, name) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown studio %q", name)), nil
	}
	s.app.ActivateStudio(name)
	return mcp.NewToolResultText(fmt.Sprintf("studio %s queued", name)), nil
}

func (s *Server) handleEmitEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Topic   string  `json:"topic"`
		ID      float64 `json:"id"`
		Payload string  `json:"payload"`
		DelayMS float64 `json:"delay_ms"`
	}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.Topic == "" || args.ID == 0 {
		return mcp.NewToolResultError("topic and a non-zero id are required"), nil
	}
	if args.DelayMS < 0 {
		return mcp.NewToolResultError("delay_ms must not be negative"), nil
	}

	delay := time.Duration(args.DelayMS) * time.Millisecond
	err := s.app.Emit(ctx, args.Topic, int(args.ID), []byte(args.Payload), delay)
	if errors.Is(err, domain.ErrEngineStopped) {
		return mcp.NewToolResultError("engine is not running"), nil
	}
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("event %s sent to %d", args.Topic, int(args.ID))), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(viewURI, "Studio view",
		mcp.WithResourceDescription("The studio read model taken at the end of the last frame."),
		mcp.WithMIMEType("application/json"),
	), func(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.app.View())
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{mcp.TextResourceContents{
			URI:      viewURI,
			MIMEType: "application/json",
			Text:     string(data),
		}}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource(journalURI, "Undo journal",
		mcp.WithResourceDescription("The undo journal as a markdown tree."),
		mcp.WithMIMEType("text/markdown"),
	), func(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{mcp.TextResourceContents{
			URI:      journalURI,
			MIMEType: "text/markdown",
			Text:     graph.Tree(s.app.View().Journal),
		}}, nil
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
