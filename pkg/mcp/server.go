package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/flowcanvas/internal/backend"
	"github.com/rendis/flowcanvas/internal/editor"
	"github.com/rendis/flowcanvas/internal/expressions"
	"github.com/rendis/flowcanvas/internal/logging"
)

// ServerDeps holds the dependencies for creating a FlowcanvasServer.
type ServerDeps struct {
	Editor *editor.Editor
	Source backend.SourceService
	Logger *slog.Logger
}

// FlowcanvasServer wraps an MCP server with editor tool handlers.
type FlowcanvasServer struct {
	editor    *editor.Editor
	source    backend.SourceService
	jq        *expressions.GoJQEngine
	sessions  *SessionRegistry
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewFlowcanvasServer creates a FlowcanvasServer with all 7 tools registered.
func NewFlowcanvasServer(deps ServerDeps) *FlowcanvasServer {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	source := deps.Source
	if source == nil {
		source = backend.NewYAMLSource()
	}

	s := &FlowcanvasServer{
		editor:   deps.Editor,
		source:   source,
		jq:       expressions.NewGoJQEngine(),
		sessions: NewSessionRegistry(),
		logger:   logger,
	}

	hooks := &server.Hooks{}
	hooks.AddOnUnregisterSession(func(ctx context.Context, session server.ClientSession) {
		if gone := s.sessions.Forget(session.SessionID()); len(gone) > 0 {
			s.logger.Debug("mcp session closed", "session", session.SessionID(), "clients", gone)
		}
	})

	mcpSrv := server.NewMCPServer(
		"flowcanvas",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithHooks(hooks),
		server.WithInstructions("Flowcanvas edits one integration: an ordered list of steps, some of which hold branches of nested steps. Use flowcanvas.get_integration to read it, flowcanvas.add_step, flowcanvas.replace_step and flowcanvas.delete_step to change it, flowcanvas.search_steps to find steps with a jq filter, flowcanvas.get_graph for the laid-out canvas and flowcanvas.get_source for the YAML source."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *FlowcanvasServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *FlowcanvasServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Sessions returns the client to session mapping filled by tool calls.
func (s *FlowcanvasServer) Sessions() *SessionRegistry {
	return s.sessions
}

// tools returns the registered MCP tools as ServerTool entries.
func (s *FlowcanvasServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: getIntegrationTool(), Handler: s.handleGetIntegration},
		{Tool: addStepTool(), Handler: s.handleAddStep},
		{Tool: replaceStepTool(), Handler: s.handleReplaceStep},
		{Tool: deleteStepTool(), Handler: s.handleDeleteStep},
		{Tool: getGraphTool(), Handler: s.handleGetGraph},
		{Tool: searchStepsTool(), Handler: s.handleSearchSteps},
		{Tool: getSourceTool(), Handler: s.handleGetSource},
	}
}

// --- Tool definitions ---

func getIntegrationTool() mcp.Tool {
	return mcp.NewTool("flowcanvas.get_integration",
		mcp.WithDescription("Get the integration being edited"),
	)
}

func addStepTool() mcp.Tool {
	return mcp.NewTool("flowcanvas.add_step",
		mcp.WithDescription("Add a step to the integration"),
		mcp.WithObject("step", mcp.Required(), mcp.Description("Step object (name, type, kind, minBranches, maxBranches, branches, parameters)")),
		mcp.WithString("address", mcp.Description("Insert before this address, e.g. steps[1].branches[0].steps[0] (default: append to the top-level list)")),
		mcp.WithString("client_id", mcp.Description("ID of the calling client, used for change notifications")),
	)
}

func replaceStepTool() mcp.Tool {
	return mcp.NewTool("flowcanvas.replace_step",
		mcp.WithDescription("Replace the step with the given UUID"),
		mcp.WithString("uuid", mcp.Required(), mcp.Description("UUID of the step to replace")),
		mcp.WithObject("step", mcp.Required(), mcp.Description("Replacement step object")),
		mcp.WithString("client_id", mcp.Description("ID of the calling client, used for change notifications")),
	)
}

func deleteStepTool() mcp.Tool {
	return mcp.NewTool("flowcanvas.delete_step",
		mcp.WithDescription("Delete the step with the given UUID"),
		mcp.WithString("uuid", mcp.Required(), mcp.Description("UUID of the step to delete")),
		mcp.WithString("client_id", mcp.Description("ID of the calling client, used for change notifications")),
	)
}

func getGraphTool() mcp.Tool {
	return mcp.NewTool("flowcanvas.get_graph",
		mcp.WithDescription("Get the laid-out graph of the integration as JSON nodes and edges or as a Mermaid flowchart"),
		mcp.WithString("format",
			mcp.Enum("json", "mermaid"),
			mcp.Description("Output format (default: json)"),
		),
	)
}

func searchStepsTool() mcp.Tool {
	return mcp.NewTool("flowcanvas.search_steps",
		mcp.WithDescription("Find steps at any depth with a jq filter, e.g. .kind == \"EIP\""),
		mcp.WithString("query", mcp.Required(), mcp.Description("jq filter applied to each step")),
	)
}

func getSourceTool() mcp.Tool {
	return mcp.NewTool("flowcanvas.get_source",
		mcp.WithDescription("Get the source text of the integration"),
	)
}
