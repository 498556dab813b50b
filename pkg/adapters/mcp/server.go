// Package mcp exposes workbook evaluation as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/recalc"
	"github.com/aretw0/recalc/internal/logging"
	"github.com/aretw0/recalc/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// workbooksURI is the resource listing the available workbooks.
const workbooksURI = "recalc://workbooks"

// Engine is the part of recalc.Engine the MCP server needs.
type Engine interface {
	Evaluate(ctx context.Context, req domain.EvaluationRequest) (*domain.EvaluationResult, error)
	Result(ctx context.Context, sessionID string) (*domain.EvaluationResult, error)
	Workbooks(ctx context.Context) ([]string, error)
	Workbook(ctx context.Context, id string) (*domain.Workbook, error)
}

var _ Engine = (*recalc.Engine)(nil)

// EvaluateArgs are the arguments of evaluate_workbook.
type EvaluateArgs struct {
	WorkbookID string            `json:"workbook_id"`
	Variables  map[string]string `json:"variables,omitempty"`
	LogLevel   string            `json:"log_level,omitempty"`
}

// ResultArgs are the arguments of get_result.
type ResultArgs struct {
	SessionID string `json:"session_id"`
}

// WorkbookList is the output of list_workbooks.
type WorkbookList struct {
	Workbooks []string `json:"workbooks" jsonschema_description:"IDs of the workbooks that can be evaluated"`
}

// Server wraps the engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("recalc-mcp", strings.TrimSpace(recalc.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on port until ctx ends.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	evaluateTool := mcp.NewTool("evaluate_workbook",
		mcp.WithDescription("Evaluate a workbook once with the given variable values and return every variable and the session log."),
		mcp.WithString("workbook_id", mcp.Required(), mcp.Description("ID of the workbook to evaluate")),
		mcp.WithObject("variables", mcp.Description(`Input values keyed by "namespace.name", e.g. {"Global.Hours": "10"}`)),
		mcp.WithString("log_level", mcp.Description("Lowest session log level to keep (trace, debug, info, warning, error, critical); defaults to warning")),
		mcp.WithOutputSchema[domain.EvaluationResult](),
	)
	s.mcpServer.AddTool(evaluateTool, mcp.NewStructuredToolHandler(s.handleEvaluate))

	listTool := mcp.NewTool("list_workbooks",
		mcp.WithDescription("List the IDs of the available workbooks."),
		mcp.WithOutputSchema[WorkbookList](),
	)
	s.mcpServer.AddTool(listTool, mcp.NewStructuredToolHandler(s.handleListWorkbooks))

	resultTool := mcp.NewTool("get_result",
		mcp.WithDescription("Fetch the stored result of a finished evaluation by session ID."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID returned by evaluate_workbook")),
		mcp.WithOutputSchema[domain.EvaluationResult](),
	)
	s.mcpServer.AddTool(resultTool, mcp.NewStructuredToolHandler(s.handleGetResult))
}

func (s *Server) handleEvaluate(ctx context.Context, _ mcp.CallToolRequest, args EvaluateArgs) (*domain.EvaluationResult, error) {
	req, err := args.request()
	if err != nil {
		return nil, err
	}
	result, err := s.engine.Evaluate(ctx, req)
	if err != nil {
		s.logger.Warn("MCP evaluate failed", "workbook_id", args.WorkbookID, "err", err)
		return nil, fmt.Errorf("evaluate failed: %w", err)
	}
	return result, nil
}

// request converts the tool arguments. Variables are applied in key order
// so repeated calls behave the same.
func (a EvaluateArgs) request() (domain.EvaluationRequest, error) {
	req := domain.EvaluationRequest{WorkbookID: a.WorkbookID}
	if a.LogLevel != "" {
		lvl, err := domain.ParseLogLevel(a.LogLevel)
		if err != nil {
			return req, err
		}
		req.LogLevel = &lvl
	}

	keys := make([]string, 0, len(a.Variables))
	for k := range a.Variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ns, name, ok := strings.Cut(k, ".")
		if !ok || ns == "" || name == "" {
			return req, fmt.Errorf("%w: variable key %q is not namespace.name", domain.ErrInvalidArgument, k)
		}
		req.DataVariables = append(req.DataVariables, domain.VariableInput{Namespace: ns, Name: name, Value: a.Variables[k]})
	}
	return req, req.Validate()
}

func (s *Server) handleListWorkbooks(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (WorkbookList, error) {
	ids, err := s.engine.Workbooks(ctx)
	if err != nil {
		return WorkbookList{}, fmt.Errorf("list workbooks: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return WorkbookList{Workbooks: ids}, nil
}

func (s *Server) handleGetResult(ctx context.Context, _ mcp.CallToolRequest, args ResultArgs) (*domain.EvaluationResult, error) {
	if args.SessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", domain.ErrInvalidArgument)
	}
	return s.engine.Result(ctx, args.SessionID)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(workbooksURI, "Available workbooks",
		mcp.WithResourceDescription("Every workbook with its blueprints"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.engine.Workbooks(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list workbooks: %w", err)
		}
		workbooks := make([]*domain.Workbook, 0, len(ids))
		for _, id := range ids {
			wb, err := s.engine.Workbook(ctx, id)
			if err != nil {
				return nil, err
			}
			workbooks = append(workbooks, wb)
		}
		jsonBytes, err := json.Marshal(workbooks)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      workbooksURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
