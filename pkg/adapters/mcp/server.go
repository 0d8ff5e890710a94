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

	"github.com/aretw0/evalrepl"
	"github.com/aretw0/evalrepl/internal/logging"
	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/aretw0/evalrepl/pkg/ports"
	"github.com/aretw0/evalrepl/pkg/session"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// SessionsURI is the resource listing live sessions.
const SessionsURI = "evalrepl://sessions"

// BotUser is the identity exposed to evaluated code as me.
var BotUser = domain.User{ID: "evalrepl-mcp", Name: "evalrepl", Bot: true}

// EvalArgs are the arguments of the evaluate tool.
type EvalArgs struct {
	SessionID string `json:"session_id"`
	Input     string `json:"input"`
	Author    string `json:"author,omitempty"`
}

// SessionArgs are the arguments of the tools addressing one session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
	Limit     int    `json:"limit,omitempty"`
}

// EvalResponse aligns with the HTTP Rendering schema.
type EvalResponse struct {
	SessionID string        `json:"session_id" jsonschema_description:"The session the input ran in"`
	Text      string        `json:"text,omitempty" jsonschema_description:"Plain text rendering"`
	Embed     *domain.Embed `json:"embed,omitempty" jsonschema_description:"Structured rendering"`
}

// Server exposes a session manager as an MCP Server.
type Server struct {
	sessions  *session.Manager
	history   ports.HistoryStore
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithHistory enables the history tool.
func WithHistory(store ports.HistoryStore) Option {
	return func(s *Server) {
		s.history = store
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("evalrepl-mcp", strings.TrimSpace(evalrepl.Version)),
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

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: evaluate
	evalTool := mcp.NewTool("evaluate",
		mcp.WithDescription("Evaluate Lua code in a persistent session. Typing exit or quit resets the session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to run in; created on first use")),
		mcp.WithString("input", mcp.Required(), mcp.Description("Code, optionally wrapped in a ```lua fence")),
		mcp.WithString("author", mcp.Description("Name exposed to the code as author")),
		mcp.WithOutputSchema[EvalResponse](),
	)
	s.mcpServer.AddTool(evalTool, mcp.NewStructuredToolHandler(s.handleEvaluate))

	// TOOL: reset_session
	s.mcpServer.AddTool(mcp.NewTool("reset_session",
		mcp.WithDescription("Restore a session to its seed bindings."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to reset")),
	), mcp.NewTypedToolHandler(s.handleReset))

	// TOOL: get_history
	s.mcpServer.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("List the recorded invocations of a session, oldest first."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to inspect")),
		mcp.WithNumber("limit", mcp.Description("Keep only the most recent records")),
	), mcp.NewTypedToolHandler(s.handleHistory))

	// TOOL: list_sessions
	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List live session IDs."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.sessions.List())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// Handler methods for tools

func (s *Server) handleEvaluate(ctx context.Context, request mcp.CallToolRequest, args EvalArgs) (EvalResponse, error) {
	if args.SessionID == "" {
		return EvalResponse{}, errors.New("session_id is required")
	}

	inv := domain.Invocation{
		Message: domain.Message{
			ID:        uuid.NewString(),
			Content:   args.Input,
			CreatedAt: time.Now(),
		},
		Self: BotUser,
	}
	if args.Author != "" {
		inv.Author = domain.User{ID: args.Author, Name: args.Author}
	}

	r, err := s.sessions.Evaluate(ctx, args.SessionID, args.Input, inv)
	if err != nil {
		s.logger.Warn("MCP Evaluate: failed", "session_id", args.SessionID, "err", err)
		return EvalResponse{}, fmt.Errorf("evaluate failed: %w", err)
	}

	return EvalResponse{SessionID: args.SessionID, Text: r.Text, Embed: r.Embed}, nil
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest, args SessionArgs) (*mcp.CallToolResult, error) {
	if err := s.sessions.Reset(ctx, args.SessionID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reset failed: %v", err)), nil
	}
	return mcp.NewToolResultText("environment reset"), nil
}

func (s *Server) handleHistory(ctx context.Context, request mcp.CallToolRequest, args SessionArgs) (*mcp.CallToolResult, error) {
	if s.history == nil {
		return mcp.NewToolResultError("history is not enabled"), nil
	}
	records, err := s.history.List(ctx, args.SessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history failed: %v", err)), nil
	}
	if args.Limit > 0 && len(records) > args.Limit {
		records = records[len(records)-args.Limit:]
	}
	if records == nil {
		records = []*domain.Record{}
	}
	jsonBytes, _ := json.Marshal(records)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) registerResources() {
	// EXPOSE: evalrepl://sessions
	s.mcpServer.AddResource(mcp.NewResource(SessionsURI, "Live Sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, _ := json.Marshal(s.sessions.List())

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      SessionsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
