package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slowlooking/internal/testsupport"
	"slowlooking/pkg/library"
	"slowlooking/pkg/model"
	"slowlooking/pkg/tracker"
)

type mockLedger struct {
	rows     []model.GenerationAttempt
	counts   map[model.AttemptStatus]int
	err      error
	gotLimit int
	gotFP    string
	gotSince time.Time
}

func (m *mockLedger) RecentAttempts(ctx context.Context, limit int) ([]model.GenerationAttempt, error) {
	m.gotLimit = limit
	return m.rows, m.err
}

func (m *mockLedger) AttemptsForFingerprint(ctx context.Context, fp string) ([]model.GenerationAttempt, error) {
	m.gotFP = fp
	return m.rows, m.err
}

func (m *mockLedger) CountByStatus(ctx context.Context, since time.Time) (map[model.AttemptStatus]int, error) {
	m.gotSince = since
	return m.counts, m.err
}

type brokenLibrary struct{}

func (brokenLibrary) List() ([]model.IndexEntry, error)        { return nil, errors.New("disk") }
func (brokenLibrary) Get(string) (*model.Journey, bool, error) { return nil, false, errors.New("disk") }
func (brokenLibrary) Stats() (library.Stats, error)            { return library.Stats{}, errors.New("disk") }

func seededLibrary(t *testing.T) *library.Store {
	t.Helper()
	lib, err := library.New(t.TempDir())
	require.NoError(t, err)

	older := testsupport.ValidJourney(3)
	older.ID = "older"
	_, err = lib.Save(context.Background(), older, "2025-01-01T10:00:00Z")
	require.NoError(t, err)

	newer := testsupport.ValidJourney(5)
	newer.ID = "newer"
	_, err = lib.Save(context.Background(), newer, "2025-02-01T10:00:00Z")
	require.NoError(t, err)
	return lib
}

func serve(t *testing.T, mux http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestJourneyEndpoints(t *testing.T) {
	lib := seededLibrary(t)
	mux := NewMux(NewJourneyHandler(lib), NewStatsHandler(lib, tracker.New(), nil, 0), nil)

	rec := serve(t, mux, "/api/journeys")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var list journeyListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Journeys, 2)
	assert.Equal(t, "newer", list.Journeys[0].JourneyID)
	assert.Equal(t, 5, list.Journeys[0].StepsCount)

	rec = serve(t, mux, "/api/journeys/older")
	require.Equal(t, http.StatusOK, rec.Code)
	var j model.Journey
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &j))
	assert.Equal(t, "older", j.ID)
	assert.Len(t, j.Steps, 3)

	for _, path := range []string{"/api/journeys/missing", "/api/journeys/_index"} {
		rec = serve(t, mux, path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestJourneyEndpoints_EmptyLibrary(t *testing.T) {
	lib, err := library.New(t.TempDir())
	require.NoError(t, err)
	mux := NewMux(NewJourneyHandler(lib), NewStatsHandler(lib, nil, nil, 0), nil)

	rec := serve(t, mux, "/api/journeys")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"journeys":[]}`, rec.Body.String())
}

func TestLibraryFailure(t *testing.T) {
	mux := NewMux(NewJourneyHandler(brokenLibrary{}), NewStatsHandler(brokenLibrary{}, nil, nil, 0), nil)
	for _, path := range []string{"/api/journeys", "/api/journeys/x", "/api/stats"} {
		rec := serve(t, mux, path)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "library unavailable", path)
	}
}

func TestStatsEndpoint(t *testing.T) {
	lib := seededLibrary(t)
	tr := tracker.New()
	tr.TrackCacheHit("llm")
	ledger := &mockLedger{counts: map[model.AttemptStatus]int{model.AttemptGenerated: 2, model.AttemptCacheHit: 1}}

	h := NewStatsHandler(lib, tr, ledger, 24*time.Hour)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	rec := serve(t, NewMux(NewJourneyHandler(lib), h, nil), "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, library.Stats{TotalJourneys: 2, TotalSteps: 8, TotalMinutes: 10}, resp.Library)
	assert.Equal(t, int64(1), resp.Providers["llm"].CacheHits)
	assert.Equal(t, 2, resp.Attempts[model.AttemptGenerated])
	assert.Equal(t, fixed.Add(-24*time.Hour), ledger.gotSince)
}

func TestStatsEndpoint_LedgerErrorIsNotFatal(t *testing.T) {
	lib := seededLibrary(t)
	h := NewStatsHandler(lib, nil, &mockLedger{err: errors.New("locked")}, 0)

	rec := serve(t, NewMux(NewJourneyHandler(lib), h, nil), "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"attempts"`)
}

func TestAttemptsEndpoint(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantCode  int
		wantLimit int
		wantFP    string
	}{
		{name: "default limit", path: "/api/attempts", wantCode: http.StatusOK, wantLimit: defaultAttemptLimit},
		{name: "explicit limit", path: "/api/attempts?limit=5", wantCode: http.StatusOK, wantLimit: 5},
		{name: "limit capped", path: "/api/attempts?limit=100000", wantCode: http.StatusOK, wantLimit: maxAttemptLimit},
		{name: "bad limit", path: "/api/attempts?limit=abc", wantCode: http.StatusBadRequest},
		{name: "zero limit", path: "/api/attempts?limit=0", wantCode: http.StatusBadRequest},
		{name: "by fingerprint", path: "/api/attempts?fingerprint=abc123", wantCode: http.StatusOK, wantFP: "abc123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &mockLedger{rows: []model.GenerationAttempt{{ID: 1, Fingerprint: "abc123", Status: model.AttemptGenerated}}}
			lib := seededLibrary(t)
			mux := NewMux(NewJourneyHandler(lib), NewStatsHandler(lib, nil, nil, 0), NewAttemptHandler(ledger))

			rec := serve(t, mux, tt.path)
			require.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLimit, ledger.gotLimit)
			assert.Equal(t, tt.wantFP, ledger.gotFP)
			if tt.wantCode == http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"status":"generated"`)
			}
		})
	}
}

func TestAttemptsEndpoint_NotRegisteredWithoutLedger(t *testing.T) {
	lib := seededLibrary(t)
	mux := NewMux(NewJourneyHandler(lib), NewStatsHandler(lib, nil, nil, 0), nil)
	assert.Equal(t, http.StatusNotFound, serve(t, mux, "/api/attempts").Code)
}

func TestHealthAndVersion(t *testing.T) {
	lib := seededLibrary(t)
	mux := NewMux(NewJourneyHandler(lib), NewStatsHandler(lib, nil, nil, 0), nil)

	rec := serve(t, mux, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = serve(t, mux, "/api/version")
	assert.Contains(t, rec.Body.String(), `"version"`)
}

func TestNewServer(t *testing.T) {
	lib := seededLibrary(t)
	srv := NewServer("localhost:0", NewJourneyHandler(lib), NewStatsHandler(lib, nil, nil, 0), nil)
	assert.Equal(t, "localhost:0", srv.Addr)
	assert.Equal(t, 15*time.Second, srv.ReadTimeout)
}
