// Package healthapi provides the HTTP liveness/readiness/metrics surface for
// the Fabrik daemon, adapted from Warren's health server idiom but checking
// the cache engine's own components instead of Raft leadership.
package healthapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fabrikdev/fabrik/pkg/metrics"
)

// Checker reports whether a named dependency is ready to serve traffic.
type Checker func() error

// Server provides HTTP health check endpoints for fabrikd.
type Server struct {
	version  string
	mux      *http.ServeMux
	checkers map[string]Checker
}

// NewServer creates a new health check HTTP server. checkers maps a
// component name (e.g. "blobstore", "index") to a function that returns
// a non-nil error when that component is not ready.
func NewServer(version string, checkers map[string]Checker) *Server {
	mux := http.NewServeMux()
	hs := &Server{
		version:  version,
		mux:      mux,
		checkers: checkers,
	}

	mux.HandleFunc("/health", hs.healthHandler)
	mux.HandleFunc("/ready", hs.readyHandler)
	mux.Handle("/metrics", metrics.Handler())

	return hs
}

// Start starts the health check HTTP server. Blocks until the listener
// fails; Server has no method to shut the listener down.
func (hs *Server) Start(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      hs.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// Handler returns the HTTP handler for embedding in another server.
func (hs *Server) Handler() http.Handler {
	return hs.mux
}

// HealthResponse is the /health liveness payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

// ReadyResponse is the /ready readiness payload.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

func (hs *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := HealthResponse{Status: "healthy", Timestamp: time.Now(), Version: hs.version}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func (hs *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	checks := make(map[string]string, len(hs.checkers))
	ready := true
	var message string

	for name, check := range hs.checkers {
		if err := check(); err != nil {
			checks[name] = fmt.Sprintf("error: %v", err)
			ready = false
			if message == "" {
				message = fmt.Sprintf("%s not ready", name)
			}
			continue
		}
		checks[name] = "ok"
	}

	status := "ready"
	statusCode := http.StatusOK
	if !ready {
		status = "not ready"
		statusCode = http.StatusServiceUnavailable
	}

	resp := ReadyResponse{Status: status, Timestamp: time.Now(), Checks: checks, Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}
