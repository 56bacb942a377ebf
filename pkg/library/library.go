// Package library keeps the journeys a visitor chose to save, one file per
// journey plus an _index.json summary, in a directory separate from the cache.
package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"slowlooking/pkg/fileutil"
	"slowlooking/pkg/model"
	"slowlooking/pkg/schema"
)

const (
	indexFile = "_index.json"
	lockFile  = "_index.lock"

	lockRetry = 50 * time.Millisecond
)

// ErrInvalidID is returned when a journey id cannot be used as a file name.
var ErrInvalidID = errors.New("invalid journey id")

// Index is the on-disk layout of _index.json.
type Index struct {
	Journeys []model.IndexEntry `json:"journeys"`
}

// Stats is derived from the current index on every call.
type Stats struct {
	TotalJourneys int `json:"total_journeys"`
	TotalSteps    int `json:"total_steps"`
	TotalMinutes  int `json:"total_minutes"`
}

// Store is a file-backed journey library.
type Store struct {
	dir  string
	lock *flock.Flock
	now  func() time.Time
}

// New opens the library in dir, creating it if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("library dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create library dir: %w", err)
	}
	return &Store{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, lockFile)),
		now:  time.Now,
	}, nil
}

// Dir returns the library directory.
func (s *Store) Dir() string { return s.dir }

// Save writes j and upserts its index entry. An empty completedAt means now.
// The journey file is written before the index so an entry never points at
// a file that was not yet stored.
func (s *Store) Save(ctx context.Context, j *model.Journey, completedAt string) (model.IndexEntry, error) {
	if j == nil {
		return model.IndexEntry{}, errors.New("journey is nil")
	}
	path, err := s.journeyPath(j.ID)
	if err != nil {
		return model.IndexEntry{}, err
	}
	if err := schema.Validate(j); err != nil {
		return model.IndexEntry{}, fmt.Errorf("refusing to save invalid journey: %w", err)
	}
	if completedAt == "" {
		completedAt = s.now().UTC().Format(time.RFC3339)
	}

	locked, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return model.IndexEntry{}, fmt.Errorf("lock library index: %w", err)
	}
	if !locked {
		return model.IndexEntry{}, errors.New("library index is locked")
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			slog.Warn("Failed to release library lock", "error", err)
		}
	}()

	if err := fileutil.WriteJSONAtomic(path, j); err != nil {
		return model.IndexEntry{}, fmt.Errorf("write journey: %w", err)
	}

	idx, err := s.readIndex()
	if err != nil {
		return model.IndexEntry{}, err
	}

	entry := model.NewIndexEntry(j, completedAt)
	replaced := false
	for i := range idx.Journeys {
		if idx.Journeys[i].JourneyID == j.ID {
			idx.Journeys[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		idx.Journeys = append(idx.Journeys, entry)
	}

	if err := fileutil.WriteJSONAtomic(filepath.Join(s.dir, indexFile), idx); err != nil {
		return model.IndexEntry{}, fmt.Errorf("write index: %w", err)
	}
	slog.Info("Journey saved to library", "journey_id", j.ID, "title", entry.Title, "updated", replaced)
	return entry, nil
}

// Get loads a saved journey. A missing or unreadable file is reported as
// absent; only unexpected I/O failures return an error.
func (s *Store) Get(id string) (*model.Journey, bool, error) {
	path, err := s.journeyPath(id)
	if err != nil {
		return nil, false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read journey: %w", err)
	}
	j, err := schema.Parse(data)
	if err != nil {
		slog.Warn("Library journey failed validation", "journey_id", id, "error", err)
		return nil, false, nil
	}
	return j, true, nil
}

// List returns index entries, most recently completed first.
func (s *Store) List() ([]model.IndexEntry, error) {
	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	entries := idx.Journeys
	sort.SliceStable(entries, func(a, b int) bool {
		return completedAfter(entries[a].CompletedAt, entries[b].CompletedAt)
	})
	return entries, nil
}

// Stats sums the index.
func (s *Store) Stats() (Stats, error) {
	idx, err := s.readIndex()
	if err != nil {
		return Stats{}, err
	}
	st := Stats{TotalJourneys: len(idx.Journeys)}
	for _, e := range idx.Journeys {
		st.TotalSteps += e.StepsCount
		st.TotalMinutes += e.DurationMinutes
	}
	return st, nil
}

func (s *Store) readIndex() (*Index, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Index{}, nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}
	return &idx, nil
}

func (s *Store) journeyPath(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") || strings.HasPrefix(id, "_") {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

// completedAfter orders RFC 3339 timestamps newest first, falling back to
// string comparison when either side does not parse.
func completedAfter(a, b string) bool {
	ta, errA := time.Parse(time.RFC3339, a)
	tb, errB := time.Parse(time.RFC3339, b)
	if errA == nil && errB == nil {
		return ta.After(tb)
	}
	return a > b
}
