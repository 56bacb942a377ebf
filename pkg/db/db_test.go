package db_test

import (
	"path/filepath"
	"testing"
	"time"

	"slowlooking/pkg/db"
)

func TestDB(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "nested", "db_test.db")

	d, err := db.Init(path)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if d == nil {
		t.Fatal("Init() returned nil DB")
	}

	v, err := d.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion() failed: %v", err)
	}
	if v != 2 {
		t.Errorf("schema version = %d, want 2", v)
	}
	d.Close()

	// Reopening applies nothing new.
	d2, err := db.Init(path)
	if err != nil {
		t.Fatalf("second Init() failed: %v", err)
	}
	defer d2.Close()
	if v, _ := d2.SchemaVersion(); v != 2 {
		t.Errorf("schema version after reopen = %d, want 2", v)
	}
}

func TestPruneAttempts(t *testing.T) {
	d, err := db.Init(filepath.Join(t.TempDir(), "prune.db"))
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	defer d.Close()

	old := time.Now().Add(-48 * time.Hour).UTC()
	recent := time.Now().UTC()
	for _, ts := range []time.Time{old, recent} {
		if _, err := d.Exec(`INSERT INTO generation_attempts (fingerprint, status, created_at) VALUES (?, ?, ?)`, "fp", "generated", ts); err != nil {
			t.Fatal(err)
		}
	}

	n, err := d.PruneAttempts(24 * time.Hour)
	if err != nil {
		t.Fatalf("PruneAttempts failed: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d rows, want 1", n)
	}

	var left int
	if err := d.QueryRow(`SELECT count(*) FROM generation_attempts`).Scan(&left); err != nil {
		t.Fatal(err)
	}
	if left != 1 {
		t.Errorf("remaining rows = %d, want 1", left)
	}
}
