package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// CORSConfig carries the cross-origin settings for the HTTP server.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedHeaders   []string
	AllowCredentials bool
}

// Server exposes a Service over HTTP: the manifest at GET /, JSON-RPC at
// POST /rpc, and per-task SSE streams at GET /tasks/{id}/events.
type Server struct {
	svc  *Service
	http *http.Server
}

// NewServer creates an HTTP server for the given service.
func NewServer(svc *Service) *Server {
	return &Server{svc: svc}
}

// Start registers routes and begins serving. It returns immediately after
// starting the server in a background goroutine.
func (s *Server) Start(ctx context.Context, addr string, cors CORSConfig) error {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleCard).Methods(http.MethodGet)
	r.HandleFunc("/rpc", s.handleJSONRPC).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id}/events", s.handleTaskEvents).Methods(http.MethodGet)

	s.http = &http.Server{
		Addr:    addr,
		Handler: protect(r, cors),
	}

	go s.http.ListenAndServe()

	return nil
}

// Stop gracefully shuts down the HTTP server and cancels in-flight runs.
func (s *Server) Stop(ctx context.Context) error {
	s.svc.Shutdown()
	return s.http.Shutdown(ctx)
}

// protect wraps the handler with CORS middleware built from the config.
func protect(h http.Handler, cfg CORSConfig) http.Handler {
	headers := cfg.AllowedHeaders
	if !slices.Contains(headers, "Content-Type") {
		headers = append(headers, "Content-Type")
	}

	opts := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedHeaders(headers),
		handlers.AllowedMethods([]string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		}),
	}
	if cfg.AllowCredentials {
		opts = append(opts, handlers.AllowCredentials())
	}

	return handlers.CORS(opts...)(h)
}

// handleCard serves the service manifest as JSON at the root endpoint.
func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(s.svc.Card()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleJSONRPC processes incoming JSON-RPC 2.0 requests and dispatches them
// to the appropriate service method.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONRPCError(w, nil, ErrCodeParse, "Parse error: "+err.Error())
		return
	}
	if req.JSONRPC != JSONRPCVersion {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidRequest, `Invalid request: jsonrpc must be "2.0"`)
		return
	}

	ctx := r.Context()

	switch req.Method {
	case MethodStartAnalysis:
		dispatch(ctx, w, &req, s.svc.StartAnalysis)
	case MethodGetTask:
		dispatch(ctx, w, &req, s.svc.GetTask)
	case MethodListTasks:
		dispatch(ctx, w, &req, s.svc.ListTasks)
	case MethodCancelTask:
		dispatch(ctx, w, &req, s.svc.CancelTask)
	default:
		writeJSONRPCError(w, req.ID, ErrCodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

// handleTaskEvents streams a task's progress as Server-Sent Events until
// the task finishes or the client disconnects.
func (s *Server) handleTaskEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	events, err := s.svc.Subscribe(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	sw := NewSSEWriter(w)
	sw.Init()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := sw.WriteEvent(ev); err != nil {
				return
			}
		}
	}
}
