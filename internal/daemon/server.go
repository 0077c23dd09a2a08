package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/campusforge/fabric/internal/fabric/events"
)

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Port int
	Bind string
}

// StatusFunc returns the current snapshot of fabric status for the
// /status endpoint: component states, the dependency graph, and the
// integration-health visualization payload.
type StatusFunc func(ctx context.Context) (any, error)

// Server is the HTTP server for the daemon's health, status, and metrics
// endpoints. It is safe for concurrent use.
type Server struct {
	mu             sync.RWMutex
	health         *HealthManager
	config         ServerConfig
	server         *http.Server
	mux            *http.ServeMux
	metricsHandler http.Handler
	statusFunc     StatusFunc
	bus            events.Bus
}

// NewServer creates a new HTTP server with the given health manager and config.
func NewServer(health *HealthManager, config ServerConfig) *Server {
	s := &Server{
		health: health,
		config: config,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/events", s.handleEvents)
	if s.metricsHandler != nil {
		mux.Handle("/metrics", s.metricsHandler)
	}
	s.mux = mux
}

// SetEventBus attaches the fabric's event bus so /events can stream a
// live feed of published events to connected clients.
func (s *Server) SetEventBus(bus events.Bus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bus = bus
}

// handleEvents streams every published event to the client as newline-
// delimited JSON until the client disconnects. Each connection gets its
// own bus subscription, unsubscribed on disconnect.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	bus := s.bus
	s.mu.RUnlock()

	if bus == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "event bus not available")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	encoded := make(chan events.Event, 64)
	unsubscribe := bus.SubscribeAll(func(e events.Event) {
		select {
		case encoded <- e:
		default:
		}
	})
	defer unsubscribe()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-encoded:
			if err := enc.Encode(e); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// SetMetricsHandler sets the Prometheus metrics handler (normally
// promhttp.Handler()).
func (s *Server) SetMetricsHandler(handler http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metricsHandler = handler
	s.setupRoutes()
}

// SetStatusFunc sets the function invoked to serve /status.
func (s *Server) SetStatusFunc(fn StatusFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusFunc = fn
}

// Handler returns the HTTP handler for testing purposes.
func (s *Server) Handler() http.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mux
}

// LivezResponse is the response format for /healthz.
type LivezResponse struct {
	Status string `json:"status"`
}

// handleHealthz handles the /healthz endpoint (liveness probe). Returns
// 200 OK if the daemon process is alive, regardless of fabric health.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(LivezResponse{Status: "alive"})
}

// handleReadyz handles the /readyz endpoint (readiness probe). Returns
// 200 OK with per-subsystem health for both healthy and degraded states.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := s.health.Status()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}

// handleStatus handles the /status endpoint: the fabric's own component
// statuses, dependency graph, and integration-health visualization
// payload.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	s.mu.RLock()
	fn := s.statusFunc
	s.mu.RUnlock()

	if fn == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "status not available")
		return
	}

	result, err := fn(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: message})
}

// Start starts the HTTP server and blocks until it's stopped.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Bind, s.config.Port)

	s.mu.Lock()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.mux,
		BaseContext: func(l net.Listener) context.Context {
			return ctx
		},
	}
	server := s.server
	s.mu.Unlock()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error; %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	server := s.server
	s.mu.RUnlock()

	if server == nil {
		return nil
	}
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown http server; %w", err)
	}
	return nil
}
