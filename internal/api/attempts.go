package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"slowlooking/pkg/model"
)

const (
	defaultAttemptLimit = 50
	maxAttemptLimit     = 500
)

// AttemptReader lists ledger rows.
type AttemptReader interface {
	RecentAttempts(ctx context.Context, limit int) ([]model.GenerationAttempt, error)
	AttemptsForFingerprint(ctx context.Context, fingerprint string) ([]model.GenerationAttempt, error)
}

// AttemptHandler serves the generation ledger.
type AttemptHandler struct {
	ledger AttemptReader
}

func NewAttemptHandler(ledger AttemptReader) *AttemptHandler {
	return &AttemptHandler{ledger: ledger}
}

// HandleList returns recent attempts, or every attempt for ?fingerprint=.
func (h *AttemptHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		rows []model.GenerationAttempt
		err  error
	)
	if fp := q.Get("fingerprint"); fp != "" {
		rows, err = h.ledger.AttemptsForFingerprint(r.Context(), fp)
	} else {
		limit := defaultAttemptLimit
		if s := q.Get("limit"); s != "" {
			n, convErr := strconv.Atoi(s)
			if convErr != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxAttemptLimit)
		}
		rows, err = h.ledger.RecentAttempts(r.Context(), limit)
	}
	if err != nil {
		slog.Error("List attempts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "ledger unavailable")
		return
	}
	if rows == nil {
		rows = []model.GenerationAttempt{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": rows})
}
