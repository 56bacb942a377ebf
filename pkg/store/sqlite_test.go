package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"slowlooking/pkg/db"
	"slowlooking/pkg/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}
	s := NewSQLiteStore(d)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	testAttempts(t, ctx, store)
	testState(t, ctx, store)
}

func testAttempts(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("Attempts", func(t *testing.T) {
		base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
		attempts := []*model.GenerationAttempt{
			{Fingerprint: "aaa", ImageFilename: "one.jpg", Provider: "anthropic", Status: model.AttemptGenerated, JourneyID: "j1", Latency: 1500 * time.Millisecond, CreatedAt: base},
			{Fingerprint: "aaa", ImageFilename: "one.jpg", Provider: "anthropic", Status: model.AttemptCacheHit, JourneyID: "j1", CreatedAt: base.Add(time.Minute)},
			{Fingerprint: "bbb", ImageFilename: "two.png", Provider: "anthropic", Status: model.AttemptRejected, Error: "steps: too few", CreatedAt: base.Add(2 * time.Minute)},
		}
		for _, a := range attempts {
			if err := store.RecordAttempt(ctx, a); err != nil {
				t.Fatalf("RecordAttempt failed: %v", err)
			}
			if a.ID == 0 {
				t.Error("RecordAttempt did not assign an ID")
			}
		}

		recent, err := store.RecentAttempts(ctx, 2)
		if err != nil {
			t.Fatalf("RecentAttempts failed: %v", err)
		}
		if len(recent) != 2 {
			t.Fatalf("RecentAttempts returned %d rows, want 2", len(recent))
		}
		if recent[0].Fingerprint != "bbb" || recent[0].Error != "steps: too few" {
			t.Errorf("newest attempt = %+v", recent[0])
		}
		if !recent[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
			t.Errorf("CreatedAt = %v", recent[0].CreatedAt)
		}

		forFP, err := store.AttemptsForFingerprint(ctx, "aaa")
		if err != nil {
			t.Fatalf("AttemptsForFingerprint failed: %v", err)
		}
		if len(forFP) != 2 || forFP[0].Status != model.AttemptGenerated {
			t.Fatalf("AttemptsForFingerprint = %+v", forFP)
		}
		if forFP[0].Latency != 1500*time.Millisecond {
			t.Errorf("Latency = %v, want 1.5s", forFP[0].Latency)
		}

		counts, err := store.CountByStatus(ctx, base.Add(30*time.Second))
		if err != nil {
			t.Fatalf("CountByStatus failed: %v", err)
		}
		if counts[model.AttemptCacheHit] != 1 || counts[model.AttemptRejected] != 1 || counts[model.AttemptGenerated] != 0 {
			t.Errorf("CountByStatus = %v", counts)
		}

		pruned, err := store.PruneAttempts(ctx, time.Hour)
		if err != nil {
			t.Fatalf("PruneAttempts failed: %v", err)
		}
		if pruned != 3 {
			t.Errorf("pruned %d, want 3", pruned)
		}
	})
}

func testState(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("State", func(t *testing.T) {
		if _, ok := store.GetState(ctx, "missing"); ok {
			t.Error("GetState found a missing key")
		}
		if err := store.SetState(ctx, "k", "v1"); err != nil {
			t.Fatal(err)
		}
		if err := store.SetState(ctx, "k", "v2"); err != nil {
			t.Fatal(err)
		}
		if v, ok := store.GetState(ctx, "k"); !ok || v != "v2" {
			t.Errorf("GetState = %q, %v", v, ok)
		}
		if err := store.DeleteState(ctx, "k"); err != nil {
			t.Fatal(err)
		}
		if _, ok := store.GetState(ctx, "k"); ok {
			t.Error("key survived DeleteState")
		}
	})
}
