// Package server exposes the observability HTTP surface: aggregate health,
// per-provider state, attempt statistics, and prometheus metrics. It serves
// operators, not data consumers.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/aggregator/internal/core/domain"
	"github.com/vietddude/aggregator/internal/engine/health"
	"github.com/vietddude/aggregator/internal/engine/registry"
	"github.com/vietddude/aggregator/internal/engine/stats"
)

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusCritical = "critical"
)

// Server provides HTTP endpoints for monitoring the engine.
type Server struct {
	registry *registry.Registry
	tracker  *health.Tracker
	ring     *stats.Ring
	server   *http.Server
}

// NewServer creates the observability server.
func NewServer(reg *registry.Registry, tracker *health.Tracker, ring *stats.Ring, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		registry: reg,
		tracker:  tracker,
		ring:     ring,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/providers", s.handleProviders)
	mux.HandleFunc("/stats", s.handleStats)
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

type categoryHealth struct {
	Category  domain.Category `json:"category"`
	Resources int             `json:"resources"`
	Available int             `json:"available"`
	Status    string          `json:"status"`
}

func (s *Server) categoryReport() []categoryHealth {
	var report []categoryHealth
	for _, cat := range s.registry.Categories() {
		resources := s.registry.List(cat)
		ch := categoryHealth{Category: cat, Resources: len(resources)}
		for _, r := range resources {
			if s.tracker.IsAvailable(r.ID) {
				ch.Available++
			}
		}
		switch {
		case ch.Available == 0:
			ch.Status = StatusCritical
		case ch.Available < ch.Resources:
			ch.Status = StatusDegraded
		default:
			ch.Status = StatusHealthy
		}
		report = append(report, ch)
	}
	return report
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.categoryReport()
	status := StatusHealthy

	// Worst case wins: a single exhausted category turns the whole report.
	for _, ch := range report {
		if ch.Status == StatusCritical {
			status = StatusCritical
			break
		}
		if ch.Status == StatusDegraded {
			status = StatusDegraded
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if status == StatusCritical {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(map[string]any{
		"status":     status,
		"categories": report,
	})
}

type providerView struct {
	domain.Resource
	Health *health.Snapshot `json:"health,omitempty"`
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	var out []providerView
	for _, cat := range s.registry.Categories() {
		for _, res := range s.registry.List(cat) {
			view := providerView{Resource: res}
			if snap, ok := s.tracker.Snapshot(res.ID); ok {
				view.Health = &snap
			}
			out = append(out, view)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	category := domain.Category(r.URL.Query().Get("category"))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.ring.Summary(category))
}
