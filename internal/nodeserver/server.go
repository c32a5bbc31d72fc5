// Package nodeserver serves subtrees and top-level elements over HTTP, plus a
// websocket feed that pushes the top-level elements whenever they change.
package nodeserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/vanderheijden86/graphcanvas/internal/datasource"
	"github.com/vanderheijden86/graphcanvas/pkg/element"
)

// Source provides the graph the server exposes.
type Source interface {
	TopElements(ctx context.Context) ([]element.Element, error)
	Subtree(ctx context.Context, id string) ([]element.Element, error)
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Server holds the handlers.
type Server struct {
	src      Source
	hub      *Hub
	upgrader websocket.Upgrader
}

// New creates a server over src. The hub must be running (see Hub.Run) for
// the live endpoint to accept subscribers.
func New(src Source, hub *Hub) *Server {
	return &Server{
		src: src,
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Routes returns the HTTP handler with all routes and middleware applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /node", s.GetNode)
	mux.HandleFunc("GET /elements", s.GetElements)
	mux.HandleFunc("GET /elements/live", s.Live)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"ok": true, "live_clients": s.hub.ClientCount()}, http.StatusOK)
	})
	return Chain(mux, Recover, Logger)
}

// GetNode serves GET /node?ID=<id>.
func (s *Server) GetNode(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("ID")
	if id == "" {
		writeError(w, "missing ID", "query parameter ID is required", http.StatusBadRequest)
		return
	}
	els, err := s.src.Subtree(r.Context(), id)
	switch {
	case errors.Is(err, datasource.ErrNotFound):
		writeError(w, "node not found", id, http.StatusNotFound)
		return
	case err != nil:
		log.Printf("subtree %s: %v", id, err)
		writeError(w, "failed to load subtree", err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, nonNil(els), http.StatusOK)
}

// GetElements serves GET /elements.
func (s *Server) GetElements(w http.ResponseWriter, r *http.Request) {
	els, err := s.src.TopElements(r.Context())
	if err != nil {
		log.Printf("top elements: %v", err)
		writeError(w, "failed to load elements", err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, nonNil(els), http.StatusOK)
}

// Live upgrades to a websocket and streams the top-level elements: once on
// connect and again after every Broadcast.
func (s *Server) Live(w http.ResponseWriter, r *http.Request) {
	initial, err := s.topPayload(r.Context())
	if err != nil {
		log.Printf("top elements: %v", err)
		writeError(w, "failed to load elements", err.Error(), http.StatusInternalServerError)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	s.hub.serve(ws, initial)
}

// Broadcast reloads the top-level elements and pushes them to every live
// subscriber.
func (s *Server) Broadcast(ctx context.Context) error {
	payload, err := s.topPayload(ctx)
	if err != nil {
		return err
	}
	s.hub.Broadcast(payload)
	return nil
}

func (s *Server) topPayload(ctx context.Context) ([]byte, error) {
	els, err := s.src.TopElements(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(nonNil(els))
}

func nonNil(els []element.Element) []element.Element {
	if els == nil {
		return []element.Element{}
	}
	return els
}

func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON: %v", err)
	}
}

func writeError(w http.ResponseWriter, msg, details string, statusCode int) {
	writeJSON(w, ErrorResponse{Error: msg, Details: details}, statusCode)
}

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so the first one listed runs outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Recover turns handler panics into 500 responses.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				writeError(w, "internal error", "", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer so websocket upgrades can hijack it.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Logger logs each request with its status and duration.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		if websocket.IsWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			log.Printf("%s %s (websocket) %v", r.Method, r.URL.RequestURI(), time.Since(start))
			return
		}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %v", r.Method, r.URL.RequestURI(), rec.status, time.Since(start))
	})
}
