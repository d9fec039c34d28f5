// Package mcp implements a Model Context Protocol server exposing depfence
// boundary checking as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/depfence/internal/observability"
	"github.com/Sumatoshi-tech/depfence/pkg/version"
)

const (
	// serverName is the MCP server implementation name.
	serverName = "depfence"

	// toolCount is the expected number of registered tools.
	toolCount = 3
)

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use production defaults.
type ServerDeps struct {
	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Metrics is an optional RED metrics recorder. Nil disables per-tool metrics.
	Metrics *observability.REDMetrics

	// CheckMetrics is an optional boundary-check stats recorder. Nil disables it.
	CheckMetrics *observability.CheckMetrics

	// Tracer is an optional OTel tracer for per-tool-call spans. Nil disables tracing.
	Tracer trace.Tracer
}

// Server wraps the MCP SDK server with depfence tool registrations.
type Server struct {
	inner        *mcpsdk.Server
	logger       *slog.Logger
	mu           sync.RWMutex
	tools        []string
	metrics      *observability.REDMetrics
	checkMetrics *observability.CheckMetrics
	tracer       trace.Tracer
}

// NewServer creates a new MCP server with all depfence tools registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		opts,
	)

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	srv := &Server{
		inner:        inner,
		logger:       logger,
		tools:        make([]string, 0, toolCount),
		metrics:      deps.Metrics,
		checkMetrics: deps.CheckMetrics,
		tracer:       deps.Tracer,
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	err := s.inner.Run(ctx, &mcpsdk.StdioTransport{})
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// RunWithTransport starts the MCP server on the given transport. It blocks
// until the context is canceled or the connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// registerTools adds all depfence MCP tools to the server.
func (s *Server) registerTools() {
	s.registerCheckTool()
	s.registerValidateTool()
	s.registerModulesTool()
}

func (s *Server) registerCheckTool() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameCheck,
		Description: checkToolDescription,
	}, withMetrics(s.metrics, ToolNameCheck, withTracing(s.tracer, ToolNameCheck, s.handleCheck)))

	s.trackTool(ToolNameCheck)
}

func (s *Server) registerValidateTool() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameValidate,
		Description: validateToolDescription,
	}, withMetrics(s.metrics, ToolNameValidate, withTracing(s.tracer, ToolNameValidate, s.handleValidate)))

	s.trackTool(ToolNameValidate)
}

func (s *Server) registerModulesTool() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameModules,
		Description: modulesToolDescription,
	}, withMetrics(s.metrics, ToolNameModules, withTracing(s.tracer, ToolNameModules, s.handleModules)))

	s.trackTool(ToolNameModules)
}

// mcpSpanPrefix is the prefix for MCP tool span names.
const mcpSpanPrefix = "mcp."

// traceIDMetaKey is the metadata key for trace_id in MCP tool responses.
const traceIDMetaKey = "trace_id"

// withTracing wraps an MCP tool handler to create an OTel span per invocation
// and include trace_id in the response content when sampled.
func withTracing[Input any](
	tracer trace.Tracer,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		// Include trace_id in response when span is sampled.
		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			traceContent := &mcpsdk.TextContent{Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String())}
			result.Content = append(result.Content, traceContent)
		}

		return result, output, err
	}
}

// withMetrics wraps an MCP tool handler to record RED metrics per invocation.
func withMetrics[Input any](
	metrics *observability.REDMetrics,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()

		decInflight := metrics.TrackInflight(ctx, "mcp."+toolName)
		defer decInflight()

		result, output, err := handler(ctx, req, input)

		status := "ok"
		if err != nil || (result != nil && result.IsError) {
			status = "error"
		}

		metrics.RecordRequest(ctx, "mcp."+toolName, status, time.Since(start))

		return result, output, err
	}
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

// Tool description constants.
const (
	checkToolDescription = "Check a Go project's import graph against the module " +
		"boundaries declared in depfence.toml. Returns every boundary violation " +
		"with its file location."

	validateToolDescription = "Validate a depfence.toml configuration: structural " +
		"schema issues and declared-graph problems (duplicates, dangling edges, " +
		"circular dependencies)."

	modulesToolDescription = "List the module boundaries a project declares, with " +
		"their permitted dependencies and strict markers."
)
