// Package server provides the HTTP health/metrics surface for the SCA
// decoder daemon.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/invisible-tech/sca-event-decoder/internal/config"
	"github.com/invisible-tech/sca-event-decoder/internal/version"
)

// Server is the HTTP server exposing the decoder daemon's health and
// metrics surface, per SPEC_FULL §6/§4.11.
type Server struct {
	cfg        config.DecoderConfig
	log        *logrus.Logger
	httpServer *http.Server
	ready      func() bool
}

// New creates a new HTTP server. ready reports whether the store and
// forwarder clients have been constructed; /health returns healthy only
// once ready returns true. A nil ready is treated as always ready.
func New(cfg config.DecoderConfig, ready func() bool, log *logrus.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{cfg: cfg, log: log, ready: ready}
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// ListenAndServe starts the HTTP server. It blocks until the server is closed.
func (s *Server) ListenAndServe() error {
	s.log.WithField("addr", s.cfg.HTTPAddr).Info("SCA decoder HTTP surface listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if s.ready != nil && !s.ready() {
		status = "starting"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  status,
		"version": version.Version,
	})
}
