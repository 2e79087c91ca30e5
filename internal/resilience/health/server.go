package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forgeflow/autoland/internal/resilience/breaker"
)

// Server provides HTTP endpoints for health monitoring and operator
// actions against the circuit breakers.
type Server struct {
	monitor  *Monitor
	registry *breaker.Registry
	server   *http.Server
}

// NewServer creates a new health server.
func NewServer(monitor *Monitor, registry *breaker.Registry, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		monitor:  monitor,
		registry: registry,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.HandleFunc("/breakers", s.handleBreakers)
	mux.HandleFunc("/breakers/reset", s.handleBreakersReset)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.CheckHealth(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if report.SystemStatus == StatusCritical {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(map[string]string{"status": string(report.SystemStatus)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.CheckHealth(r.Context())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func (s *Server) handleBreakers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.registry.AllHealth())
}

// handleBreakersReset force-closes one breaker (?name=) or all of them.
func (s *Server) handleBreakersReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var reset []string
	if name := r.URL.Query().Get("name"); name != "" {
		if !s.registry.Reset(name) {
			http.Error(w, fmt.Sprintf("unknown breaker %q", name), http.StatusNotFound)
			return
		}
		reset = []string{name}
	} else {
		reset = s.registry.Names()
		s.registry.ResetAll()
	}
	s.monitor.Invalidate()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]string{"reset": reset})
}
