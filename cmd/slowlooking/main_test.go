package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slowlooking/internal/testsupport"
	"slowlooking/pkg/batch"
	"slowlooking/pkg/config"
	"slowlooking/pkg/model"
)

type cliTestEnv struct {
	base       string
	configPath string
	calls      *atomic.Int32
}

// fakeAnthropic answers every Messages request with a valid journey.
func fakeAnthropic(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	payload := testsupport.ModelPayload(t, testsupport.ValidJourney(4))
	body, err := json.Marshal(map[string]any{
		"content":     []map[string]string{{"type": "text", "text": payload}},
		"stop_reason": "end_turn",
	})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setupCLITestEnv(t *testing.T, key string) *cliTestEnv {
	t.Helper()
	t.Setenv("ANTHROPIC_API_KEY", "")

	base := t.TempDir()
	calls := &atomic.Int32{}
	srv := fakeAnthropic(t, calls)

	cfg := config.DefaultConfig()
	cfg.LLM.Key = key
	cfg.LLM.BaseURL = srv.URL
	cfg.Cache.Dir = filepath.Join(base, "cache")
	cfg.Library.Dir = filepath.Join(base, "library")
	cfg.Batch.OutputDir = filepath.Join(base, "gallery_out")
	cfg.Batch.Delay = 0
	cfg.DB.Path = filepath.Join(base, "data", "test.db")
	cfg.Log.Server.Path = filepath.Join(base, "logs", "server.log")
	cfg.Log.Server.Level = "WARN"
	cfg.Log.History.Path = filepath.Join(base, "logs", "history.log")

	configPath := filepath.Join(base, "config.yaml")
	require.NoError(t, config.Save(configPath, cfg))
	return &cliTestEnv{base: base, configPath: configPath, calls: calls}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	root, cc := newRootCommand()
	defer cc.close()

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writePNG(t *testing.T, path string, shade uint8) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{shade, 100, 50, 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func listLibrary(t *testing.T, env *cliTestEnv) []model.IndexEntry {
	t.Helper()
	out, _, err := runCLI(t, env, "library", "list", "--json")
	require.NoError(t, err)
	var entries []model.IndexEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	return entries
}

func TestCreate_CachesAndSaves(t *testing.T) {
	env := setupCLITestEnv(t, "test-key")
	img := filepath.Join(env.base, "glory.png")
	writePNG(t, img, 200)

	out, _, err := runCLI(t, env, "create", img, "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "JOURNEY PREVIEW")
	assert.Contains(t, out, "Glory Days")
	assert.Equal(t, int32(1), env.calls.Load())

	_, stderr, err := runCLI(t, env, "create", img)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Using cached journey")
	assert.Equal(t, int32(1), env.calls.Load(), "second run is served from cache")

	_, _, err = runCLI(t, env, "create", img, "--no-cache")
	require.NoError(t, err)
	assert.Equal(t, int32(2), env.calls.Load())

	entries := listLibrary(t, env)
	require.Len(t, entries, 1)
	assert.Equal(t, "glory.png", entries[0].ImageFilename)
	assert.Equal(t, 4, entries[0].StepsCount)

	out, _, err = runCLI(t, env, "library", "show", entries[0].JourneyID)
	require.NoError(t, err)
	assert.Contains(t, out, "STEP 4")

	out, _, err = runCLI(t, env, "history", "--json")
	require.NoError(t, err)
	var attempts []model.GenerationAttempt
	require.NoError(t, json.Unmarshal([]byte(out), &attempts))
	require.Len(t, attempts, 3)
	var statuses []model.AttemptStatus
	for _, a := range attempts {
		statuses = append(statuses, a.Status)
		assert.Equal(t, "anthropic", a.Provider)
	}
	assert.ElementsMatch(t, []model.AttemptStatus{model.AttemptGenerated, model.AttemptCacheHit, model.AttemptGenerated}, statuses)

	hist, err := os.ReadFile(filepath.Join(env.base, "logs", "history.log"))
	require.NoError(t, err)
	assert.Contains(t, string(hist), "anthropic PROMPT: journey")
}

func TestCreate_JSONOutput(t *testing.T) {
	env := setupCLITestEnv(t, "test-key")
	img := filepath.Join(env.base, "art.png")
	writePNG(t, img, 10)
	outFile := filepath.Join(env.base, "journey.json")

	out, _, err := runCLI(t, env, "create", img, "--json", "--output", outFile)
	require.NoError(t, err)

	var j model.Journey
	require.NoError(t, json.Unmarshal([]byte(out), &j))
	assert.Equal(t, "art.png", j.ImageFilename)
	assert.NotEmpty(t, j.ID)
	assert.FileExists(t, outFile)
}

func TestCreate_MissingKey(t *testing.T) {
	env := setupCLITestEnv(t, "")
	img := filepath.Join(env.base, "art.png")
	writePNG(t, img, 10)

	_, _, err := runCLI(t, env, "create", img)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingCredential)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
	assert.Zero(t, env.calls.Load())
}

func TestBatch(t *testing.T) {
	env := setupCLITestEnv(t, "test-key")
	gallery := filepath.Join(env.base, "gallery")
	require.NoError(t, os.MkdirAll(gallery, 0o755))
	writePNG(t, filepath.Join(gallery, "a.png"), 1)
	writePNG(t, filepath.Join(gallery, "b.png"), 2)
	require.NoError(t, os.WriteFile(filepath.Join(gallery, "readme.txt"), []byte("skip"), 0o644))

	out, stderr, err := runCLI(t, env, "batch", gallery)
	require.NoError(t, err)
	assert.Contains(t, stderr, "[1/2] a.png: 4 steps")
	assert.Contains(t, stderr, "[2/2] b.png: 4 steps")
	assert.Contains(t, strings.ToLower(out), "2 ok / 0 failed")
	assert.Equal(t, int32(2), env.calls.Load())

	outDir := filepath.Join(env.base, "gallery_out")
	assert.FileExists(t, filepath.Join(outDir, "a.json"))
	assert.FileExists(t, filepath.Join(outDir, "b.json"))

	raw, err := os.ReadFile(filepath.Join(outDir, batch.ReportFile))
	require.NoError(t, err)
	var report []batch.Outcome
	require.NoError(t, json.Unmarshal(raw, &report))
	require.Len(t, report, 2)
	assert.Equal(t, batch.StatusSuccess, report[0].Status)

	// Second pass is fully cached.
	_, stderr, err = runCLI(t, env, "batch", gallery, "--output", filepath.Join(env.base, "second"))
	require.NoError(t, err)
	assert.Contains(t, stderr, "a.png: cached")
	assert.Equal(t, int32(2), env.calls.Load())
}

func TestLibrarySaveStatsAndRender(t *testing.T) {
	env := setupCLITestEnv(t, "")

	j := testsupport.ValidJourney(3)
	j.ID = "saved-journey"
	journeyFile := filepath.Join(env.base, "saved.json")
	require.NoError(t, os.WriteFile(journeyFile, []byte(testsupport.ModelPayload(t, j)), 0o644))

	out, _, err := runCLI(t, env, "library", "save", journeyFile, "--completed-at", "2025-03-01T09:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved journey saved-journey (Glory Days by A. Painter)")

	out, _, err = runCLI(t, env, "library", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Journeys: 1")
	assert.Contains(t, out, "Steps:    3")

	out, _, err = runCLI(t, env, "library", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "saved-journey")
	assert.Contains(t, out, "2025-03-01T09:00:00Z")

	img := filepath.Join(env.base, "art.png")
	writePNG(t, img, 90)
	visual := filepath.Join(env.base, "visual.png")
	out, _, err = runCLI(t, env, "render", "saved-journey", img, visual)
	require.NoError(t, err)
	assert.Contains(t, out, "Step 1: Stop 1")
	assert.FileExists(t, visual)

	_, _, err = runCLI(t, env, "render", journeyFile, img, filepath.Join(env.base, "visual.jpg"))
	require.NoError(t, err)

	_, _, err = runCLI(t, env, "render", "nope", img, visual)
	assert.Error(t, err)

	_, _, err = runCLI(t, env, "library", "show", "nope")
	assert.ErrorContains(t, err, "not found")
}

func TestLibrarySave_RejectsInvalidJourney(t *testing.T) {
	env := setupCLITestEnv(t, "")
	bad := filepath.Join(env.base, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"total_steps": 2}`), 0o644))

	_, _, err := runCLI(t, env, "library", "save", bad)
	assert.ErrorContains(t, err, "invalid journey")
}

func TestHistory_Empty(t *testing.T) {
	env := setupCLITestEnv(t, "")
	out, _, err := runCLI(t, env, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No generation attempts recorded")
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "slowlooking.yaml")
	env := &cliTestEnv{configPath: path}

	out, _, err := runCLI(t, env, "init-config")
	require.NoError(t, err)
	assert.Contains(t, out, "Config file generated")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Options: anthropic, gemini, openai")

	out, _, err = runCLI(t, env, "init-config")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestHealth(t *testing.T) {
	env := setupCLITestEnv(t, "test-key")
	// The fake server only knows /v1/messages, so the model lookup fails.
	out, _, err := runCLI(t, env, "health")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider")
	assert.NotContains(t, err.Error(), "cache")

	table := strings.ToLower(out)
	assert.Contains(t, table, "api key")
	assert.Contains(t, table, "fail")
	assert.Contains(t, table, "pass")
	assert.DirExists(t, filepath.Join(env.base, "cache"))
}
