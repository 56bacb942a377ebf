package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"slowlooking/pkg/library"
	"slowlooking/pkg/model"
	"slowlooking/pkg/tracker"
)

// StatusCounter aggregates the generation ledger.
type StatusCounter interface {
	CountByStatus(ctx context.Context, since time.Time) (map[model.AttemptStatus]int, error)
}

type StatsHandler struct {
	lib     Library
	tracker *tracker.Tracker
	ledger  StatusCounter
	window  time.Duration
	now     func() time.Time
}

// NewStatsHandler reports library totals, in-process provider counters and,
// when ledger is set, attempt counts over the trailing window.
func NewStatsHandler(lib Library, t *tracker.Tracker, ledger StatusCounter, window time.Duration) *StatsHandler {
	return &StatsHandler{lib: lib, tracker: t, ledger: ledger, window: window, now: time.Now}
}

type StatsResponse struct {
	Library   library.Stats                    `json:"library"`
	Providers map[string]tracker.ProviderStats `json:"providers"`
	Attempts  map[model.AttemptStatus]int      `json:"attempts,omitempty"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ls, err := h.lib.Stats()
	if err != nil {
		slog.Error("Library stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "library unavailable")
		return
	}

	resp := StatsResponse{
		Library:   ls,
		Providers: h.tracker.Snapshot(),
	}

	if h.ledger != nil {
		var since time.Time
		if h.window > 0 {
			since = h.now().Add(-h.window)
		}
		counts, err := h.ledger.CountByStatus(r.Context(), since)
		if err != nil {
			slog.Warn("Ledger stats failed", "error", err)
		} else {
			resp.Attempts = counts
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
