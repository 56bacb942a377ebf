package api

import (
	"log/slog"
	"net/http"

	"slowlooking/pkg/library"
	"slowlooking/pkg/model"
)

// Library is the read side of the journey library.
type Library interface {
	List() ([]model.IndexEntry, error)
	Get(id string) (*model.Journey, bool, error)
	Stats() (library.Stats, error)
}

// JourneyHandler serves saved journeys.
type JourneyHandler struct {
	lib Library
}

func NewJourneyHandler(lib Library) *JourneyHandler {
	return &JourneyHandler{lib: lib}
}

type journeyListResponse struct {
	Journeys []model.IndexEntry `json:"journeys"`
}

// HandleList returns the index, newest first.
func (h *JourneyHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.lib.List()
	if err != nil {
		slog.Error("List journeys failed", "error", err)
		writeError(w, http.StatusInternalServerError, "library unavailable")
		return
	}
	if entries == nil {
		entries = []model.IndexEntry{}
	}
	writeJSON(w, http.StatusOK, journeyListResponse{Journeys: entries})
}

// HandleGet returns one full journey document.
func (h *JourneyHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	j, ok, err := h.lib.Get(id)
	if err != nil {
		slog.Error("Get journey failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "library unavailable")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "journey not found")
		return
	}
	writeJSON(w, http.StatusOK, j)
}
