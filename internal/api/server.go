// Package api serves the journey library and generation ledger over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"slowlooking/pkg/version"
)

// NewServer creates and configures the HTTP server. A nil attempts handler
// leaves the ledger endpoint unregistered.
func NewServer(addr string, journeys *JourneyHandler, stats *StatsHandler, attempts *AttemptHandler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      NewMux(journeys, stats, attempts),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewMux registers every endpoint on a fresh mux.
func NewMux(journeys *JourneyHandler, stats *StatsHandler, attempts *AttemptHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)

	mux.HandleFunc("GET /api/journeys", journeys.HandleList)
	mux.HandleFunc("GET /api/journeys/{id}", journeys.HandleGet)

	mux.Handle("GET /api/stats", stats)

	if attempts != nil {
		mux.HandleFunc("GET /api/attempts", attempts.HandleList)
	}
	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
