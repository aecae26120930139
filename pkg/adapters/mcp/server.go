// Package mcp exposes an engine as a Model Context Protocol server.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/taskgraph/internal/presentation/graph"
	"github.com/aretw0/taskgraph/pkg/domain"
	taskgraph "github.com/aretw0/taskgraph/pkg/graph"
	"github.com/aretw0/taskgraph/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	tasksURI         = "taskgraph://tasks"
	taskGraphURIBase = "taskgraph://tasks/"
)

// Engine is the part of taskgraph.Engine the server uses.
type Engine interface {
	Execute(ctx context.Context, request domain.ClientRequest, fragments []domain.Fragment) ([]domain.FragmentEvent, error)
	Tasks() []string
	Inspect(name string) (*taskgraph.Export, error)
}

// ProcessArgs are the arguments of the process_fragment tool.
type ProcessArgs struct {
	Fragments []domain.Fragment    `json:"fragments" jsonschema_description:"Fragments to process; configuration.data-task names the task"`
	Request   domain.ClientRequest `json:"request,omitempty" jsonschema_description:"Request metadata passed to every action"`
}

// ProcessResult is the structured output of the process_fragment tool.
type ProcessResult struct {
	Events []domain.FragmentEvent `json:"events" jsonschema_description:"One event per fragment, in input order"`
	Error  string                 `json:"error,omitempty" jsonschema_description:"Compilation error, if any fragment named a broken task"`
}

// InspectArgs are the arguments of the inspect_task tool.
type InspectArgs struct {
	Name   string `json:"name" jsonschema:"required" jsonschema_description:"Task name"`
	Format string `json:"format,omitempty" jsonschema_description:"json (default) or mermaid"`
}

// Option configures a Server.
type Option func(*Server)

// WithEvents exposes recent events through the recent_events tool.
func WithEvents(l ports.EventLister) Option {
	return func(s *Server) { s.events = l }
}

// WithVersion sets the version announced to clients.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// Server wraps an Engine and exposes it as an MCP server.
type Server struct {
	engine    Engine
	events    ports.EventLister
	version   string
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server for engine.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{engine: engine, version: "dev", logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer("taskgraph-mcp", s.version)
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, for custom transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on stdin and stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://" + addr
	if strings.HasPrefix(addr, ":") {
		baseURL = "http://localhost" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("process_fragment",
		mcp.WithDescription("Run fragments through the task graphs they name and return the resulting events."),
		mcp.WithInputSchema[ProcessArgs](),
		mcp.WithOutputSchema[ProcessResult](),
	), mcp.NewStructuredToolHandler(s.HandleProcess))

	s.mcpServer.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List the configured task names."),
	), s.HandleListTasks)

	s.mcpServer.AddTool(mcp.NewTool("inspect_task",
		mcp.WithDescription("Compile a task and return its graph as JSON or a Mermaid flowchart."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Task name")),
		mcp.WithString("format", mcp.Description("json (default) or mermaid"), mcp.Enum("json", "mermaid")),
	), mcp.NewTypedToolHandler(s.HandleInspect))

	if s.events != nil {
		s.mcpServer.AddTool(mcp.NewTool("recent_events",
			mcp.WithDescription("Return the most recent fragment events, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of events (0 for all kept)")),
		), s.HandleRecentEvents)
	}
}

// HandleProcess implements the process_fragment tool.
func (s *Server) HandleProcess(ctx context.Context, _ mcp.CallToolRequest, args ProcessArgs) (ProcessResult, error) {
	if len(args.Fragments) == 0 {
		return ProcessResult{}, errors.New("no fragments given")
	}
	events, err := s.engine.Execute(ctx, args.Request, args.Fragments)
	result := ProcessResult{Events: events}
	if err != nil {
		s.logger.Warn("MCP process: fragments not processed", "err", err)
		result.Error = err.Error()
	}
	return result, nil
}

// HandleListTasks implements the list_tasks tool.
func (s *Server) HandleListTasks(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(map[string][]string{"tasks": s.engine.Tasks()})
}

// HandleInspect implements the inspect_task tool.
func (s *Server) HandleInspect(_ context.Context, _ mcp.CallToolRequest, args InspectArgs) (*mcp.CallToolResult, error) {
	text, err := s.render(args.Name, args.Format)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleRecentEvents implements the recent_events tool.
func (s *Server) HandleRecentEvents(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(map[string]any{"events": s.events.Recent(request.GetInt("limit", 0))})
}

func (s *Server) render(name, format string) (string, error) {
	if name == "" {
		return "", errors.New("task name is required")
	}
	export, err := s.engine.Inspect(name)
	if err != nil {
		return "", fmt.Errorf("inspect %s: %w", name, err)
	}
	switch format {
	case "", "json":
		data, err := json.MarshalIndent(export, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	case "mermaid":
		return graph.GenerateMermaid(export, nil), nil
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(tasksURI, "Configured tasks",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.engine.Tasks())
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: tasksURI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(taskGraphURIBase+"{name}/graph", "Compiled task graph",
		mcp.WithTemplateDescription("Canonical graph of one task"),
		mcp.WithTemplateMIMEType("application/json"),
	), s.HandleTaskGraphResource)
}

// HandleTaskGraphResource serves taskgraph://tasks/{name}/graph.
func (s *Server) HandleTaskGraphResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	name := strings.TrimSuffix(strings.TrimPrefix(uri, taskGraphURIBase), "/graph")
	text, err := s.render(name, "json")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: text},
	}, nil
}
