package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/evalrepl"
	"github.com/aretw0/evalrepl/internal/logging"
	"github.com/aretw0/evalrepl/pkg/console"
	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/aretw0/evalrepl/pkg/ports"
	"github.com/aretw0/evalrepl/pkg/session"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// BotUser is the identity exposed to evaluated code as me.
var BotUser = domain.User{ID: "evalrepl-http", Name: "evalrepl", Bot: true}

// Server implements ServerInterface on top of a session manager.
type Server struct {
	Sessions *session.Manager
	History  ports.HistoryStore
	Streams  *StreamManager
	logger   *slog.Logger
}

// Ensure Server implements ServerInterface
var _ ServerInterface = (*Server)(nil)

// Option configures the Server.
type Option func(*Server)

// WithHistory enables GET /sessions/{sessionId}/history.
func WithHistory(store ports.HistoryStore) Option {
	return func(s *Server) {
		s.History = store
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a Server for the given manager.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		Sessions: sessions,
		Streams:  NewStreamManager(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger
	return s
}

// NewHandler creates the HTTP handler for the session manager.
func NewHandler(sessions *session.Manager, opts ...Option) http.Handler {
	server := NewServer(sessions, opts...)
	r := chi.NewRouter()

	if swagger, err := GetSwagger(); err != nil {
		server.logger.Error("Failed to load OpenAPI spec, request validation disabled", "err", err)
	} else if mw, err := validateRequests(swagger, server.logger); err != nil {
		server.logger.Error("Failed to build request validator", "err", err)
	} else {
		r.Use(mw)
	}

	// Swagger UI
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})

	handler := HandlerFromMux(server, r)
	return enableCORS(handler)
}

// validateRequests checks requests against the OpenAPI document.
// Routes the document does not describe are passed through.
func validateRequests(swagger *openapi3.T, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	router, err := legacy.NewRouter(swagger)
	if err != nil {
		return nil, err
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				logger.Warn("Request rejected by validator", "path", r.URL.Path, "err", err)
				http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>evalrepl API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// Evaluate handles the POST /sessions/{sessionId}/eval request.
func (s *Server) Evaluate(w http.ResponseWriter, r *http.Request, sessionId string) {
	var body EvalRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Evaluate: Invalid request body", "err", err)
		return
	}

	rendering, err := s.Sessions.Evaluate(r.Context(), sessionId, body.Input, invocationFrom(body))
	if err != nil {
		switch {
		case errors.Is(err, console.ErrInputTooLarge), errors.Is(err, console.ErrInvalidUTF8):
			http.Error(w, fmt.Sprintf("Invalid input: %v", err), http.StatusBadRequest)
			s.logger.Warn("Evaluate: Input rejected", "err", err, "size", len(body.Input))
		case errors.Is(err, domain.ErrSessionClosed):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, fmt.Sprintf("Evaluate error: %v", err), http.StatusInternalServerError)
			s.logger.Error("Evaluate failed", "session_id", sessionId, "err", err)
		}
		return
	}

	if payload, err := json.Marshal(rendering); err == nil {
		s.Streams.Broadcast(sessionId, string(payload))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rendering); err != nil {
		s.logger.Error("Evaluate response encode failed", "err", err)
	}
}

// ResetSession handles the POST /sessions/{sessionId}/reset request.
func (s *Server) ResetSession(w http.ResponseWriter, r *http.Request, sessionId string) {
	if err := s.Sessions.Reset(r.Context(), sessionId); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Reset error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Reset failed", "session_id", sessionId, "err", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSession handles the DELETE /sessions/{sessionId} request.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request, sessionId string) {
	if err := s.Sessions.Delete(r.Context(), sessionId); err != nil {
		http.Error(w, fmt.Sprintf("Delete error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Delete failed", "session_id", sessionId, "err", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SessionList{Sessions: s.Sessions.List()})
}

// GetHistory handles the GET /sessions/{sessionId}/history request.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request, sessionId string, params GetHistoryParams) {
	if s.History == nil {
		http.Error(w, "History is not enabled", http.StatusNotImplemented)
		return
	}

	records, err := s.History.List(r.Context(), sessionId)
	if err != nil {
		http.Error(w, fmt.Sprintf("History error: %v", err), http.StatusInternalServerError)
		s.logger.Error("History list failed", "session_id", sessionId, "err", err)
		return
	}
	if params.Limit != nil && *params.Limit > 0 && len(records) > *params.Limit {
		records = records[len(records)-*params.Limit:]
	}
	if records == nil {
		records = []*domain.Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		s.logger.Error("GetHistory response encode failed", "err", err)
	}
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	resp := map[string]string{
		"app":         "evalrepl-http",
		"version":     strings.TrimSpace(evalrepl.Version),
		"api_version": apiVersion,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logging.NewNop(),
	}
}

func (sm *StreamManager) Subscribe(sessionID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// SubscribeEvents handles the GET /events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request, params SubscribeEventsParams) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to session renderings", "session_id", params.SessionId)
	ch, cancel := s.Streams.Subscribe(params.SessionId)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "session_id", params.SessionId)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: rendering\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// -- Helpers --

func invocationFrom(body EvalRequest) domain.Invocation {
	inv := domain.Invocation{
		Message: domain.Message{
			ID:        uuid.NewString(),
			Content:   body.Input,
			CreatedAt: time.Now(),
		},
		Self: BotUser,
	}
	if body.Author != nil {
		inv.Author = domain.User{ID: *body.Author, Name: *body.Author}
	}
	if body.Channel != nil {
		inv.Channel = domain.Channel{ID: *body.Channel, Name: *body.Channel}
	}
	if body.Guild != nil {
		inv.Guild = domain.Guild{ID: *body.Guild, Name: *body.Guild}
	}
	return inv
}
