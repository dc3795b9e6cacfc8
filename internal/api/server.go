// Package api provides the HTTP server for khata.
// It exposes the ledger as a small JSON API for local front ends.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/udhar-khata/khata/internal/app/ledger"
	"github.com/udhar-khata/khata/internal/app/remind"
)

// Server is the khata HTTP API server.
type Server struct {
	ledger   *ledger.Ledger
	reminder remind.Reminder
	metrics  prometheus.Gatherer // nil disables /metrics
}

// NewServer creates a new API server.
func NewServer(l *ledger.Ledger, r remind.Reminder) *Server {
	return &Server{ledger: l, reminder: r}
}

// EnableMetrics serves g on /metrics.
func (s *Server) EnableMetrics(g prometheus.Gatherer) { s.metrics = g }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/totals", s.handleTotals)
		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", s.handleListCustomers)
			r.Post("/", s.handleAddCustomer)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetCustomer)
				r.Delete("/", s.handleDeleteCustomer)
				r.Get("/remind", s.handleRemind)
				r.Post("/transactions", s.handleAddTransaction)
				r.Patch("/transactions/{txID}", s.handleEditTransaction)
				r.Delete("/transactions/{txID}", s.handleDeleteTransaction)
			})
		})
	})

	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeErrorType(w, status, msg, "error")
}

func writeErrorType(w http.ResponseWriter, status int, msg, typ string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    typ,
		},
	})
}

// corsMiddleware adds CORS headers for local front ends.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
