// Package debugserver exposes a loopback-only HTTP introspection endpoint
// for the sync core: current connection state and the Prometheus metrics
// registry, grounded on the teacher's gorilla/mux API gateway shape (scaled
// down to a read-only status/metrics surface — there is nothing here to
// mutate).
package debugserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loopsync/core/internal/core"
)

// Server is a loopback-only HTTP server exposing /status and /metrics.
type Server struct {
	addr string
	c    *core.Core
	log  *slog.Logger
	srv  *http.Server
}

// New builds a debug server bound to addr (expected to be a 127.0.0.1
// address — this is never meant to be reachable off-host).
func New(addr string, c *core.Core, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{addr: addr, c: c, log: log}
}

// Start runs the server in the background; call Stop to shut it down.
func (s *Server) Start() {
	r := mux.NewRouter()
	r.HandleFunc("/status", s.handleStatus).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	s.srv = &http.Server{Addr: s.addr, Handler: r}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Warn("debugserver: serve failed", "error", err)
		}
	}()
	s.log.Info("debugserver: listening", "addr", s.addr)
}

// Stop shuts the server down.
func (s *Server) Stop() {
	if s.srv == nil {
		return
	}
	s.srv.Close()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"connectionState": s.c.State().String(),
	})
}
