package http

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

//go:embed openapi.yaml
var openapiSpec []byte

// EvalRequest is the body of POST /sessions/{sessionId}/eval.
type EvalRequest struct {
	Input   string  `json:"input"`
	Author  *string `json:"author,omitempty"`
	Channel *string `json:"channel,omitempty"`
	Guild   *string `json:"guild,omitempty"`
}

// SessionList is the body of GET /sessions.
type SessionList struct {
	Sessions []string `json:"sessions"`
}

// GetHistoryParams defines parameters for GetHistory.
type GetHistoryParams struct {
	Limit *int `form:"limit,omitempty" json:"limit,omitempty"`
}

// SubscribeEventsParams defines parameters for SubscribeEvents.
type SubscribeEventsParams struct {
	SessionId string `form:"sessionId" json:"sessionId"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /health)
	GetHealth(w http.ResponseWriter, r *http.Request)
	// (GET /info)
	GetInfo(w http.ResponseWriter, r *http.Request)
	// (GET /sessions)
	ListSessions(w http.ResponseWriter, r *http.Request)
	// (DELETE /sessions/{sessionId})
	DeleteSession(w http.ResponseWriter, r *http.Request, sessionId string)
	// (POST /sessions/{sessionId}/eval)
	Evaluate(w http.ResponseWriter, r *http.Request, sessionId string)
	// (POST /sessions/{sessionId}/reset)
	ResetSession(w http.ResponseWriter, r *http.Request, sessionId string)
	// (GET /sessions/{sessionId}/history)
	GetHistory(w http.ResponseWriter, r *http.Request, sessionId string, params GetHistoryParams)
	// (GET /events)
	SubscribeEvents(w http.ResponseWriter, r *http.Request, params SubscribeEventsParams)
}

// ServerInterfaceWrapper converts raw requests into typed handler calls.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (siw *ServerInterfaceWrapper) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var sessionId string
	err := runtime.BindStyledParameterWithOptions("simple", "sessionId", chi.URLParam(r, "sessionId"), &sessionId,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid format for parameter sessionId: %v", err), http.StatusBadRequest)
		return "", false
	}
	return sessionId, true
}

func (siw *ServerInterfaceWrapper) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.sessionID(w, r); ok {
		siw.Handler.DeleteSession(w, r, id)
	}
}

func (siw *ServerInterfaceWrapper) Evaluate(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.sessionID(w, r); ok {
		siw.Handler.Evaluate(w, r, id)
	}
}

func (siw *ServerInterfaceWrapper) ResetSession(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.sessionID(w, r); ok {
		siw.Handler.ResetSession(w, r, id)
	}
}

func (siw *ServerInterfaceWrapper) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.sessionID(w, r)
	if !ok {
		return
	}

	var params GetHistoryParams
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &params.Limit); err != nil {
		http.Error(w, fmt.Sprintf("Invalid format for parameter limit: %v", err), http.StatusBadRequest)
		return
	}
	siw.Handler.GetHistory(w, r, id, params)
}

func (siw *ServerInterfaceWrapper) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	var params SubscribeEventsParams
	if err := runtime.BindQueryParameter("form", true, true, "sessionId", r.URL.Query(), &params.SessionId); err != nil {
		http.Error(w, fmt.Sprintf("Invalid format for parameter sessionId: %v", err), http.StatusBadRequest)
		return
	}
	siw.Handler.SubscribeEvents(w, r, params)
}

// HandlerFromMux registers the API routes on r.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	wrapper := ServerInterfaceWrapper{Handler: si}

	r.Get("/health", si.GetHealth)
	r.Get("/info", si.GetInfo)
	r.Get("/sessions", si.ListSessions)
	r.Delete("/sessions/{sessionId}", wrapper.DeleteSession)
	r.Post("/sessions/{sessionId}/eval", wrapper.Evaluate)
	r.Post("/sessions/{sessionId}/reset", wrapper.ResetSession)
	r.Get("/sessions/{sessionId}/history", wrapper.GetHistory)
	r.Get("/events", wrapper.SubscribeEvents)
	return r
}

// GetSwagger returns the parsed OpenAPI document of the API.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("error loading openapi spec: %w", err)
	}
	return doc, nil
}
