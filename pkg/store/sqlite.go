package store

import (
	"context"
	"database/sql"
	"time"

	"slowlooking/pkg/db"
	"slowlooking/pkg/model"
)

// Store defines the repository interface.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	AttemptStore
	StateStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Attempts ---

const attemptColumns = `id, fingerprint, image_filename, provider, status, journey_id, error, latency_ms, created_at`

func (s *SQLiteStore) RecordAttempt(ctx context.Context, a *model.GenerationAttempt) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_attempts (fingerprint, image_filename, provider, status, journey_id, error, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Fingerprint, a.ImageFilename, a.Provider, string(a.Status), a.JourneyID, a.Error,
		a.Latency.Milliseconds(), a.CreatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		a.ID = id
	}
	return nil
}

func (s *SQLiteStore) RecentAttempts(ctx context.Context, limit int) ([]model.GenerationAttempt, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+attemptColumns+` FROM generation_attempts ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttempts(rows)
}

func (s *SQLiteStore) AttemptsForFingerprint(ctx context.Context, fingerprint string) ([]model.GenerationAttempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+attemptColumns+` FROM generation_attempts WHERE fingerprint = ? ORDER BY created_at ASC, id ASC`, fingerprint)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttempts(rows)
}

func (s *SQLiteStore) CountByStatus(ctx context.Context, since time.Time) (map[model.AttemptStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, count(*) FROM generation_attempts WHERE created_at >= ? GROUP BY status`, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.AttemptStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[model.AttemptStatus(status)] = n
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) PruneAttempts(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.db.PruneAttempts(olderThan)
}

func scanAttempts(rows *sql.Rows) ([]model.GenerationAttempt, error) {
	var results []model.GenerationAttempt
	for rows.Next() {
		var a model.GenerationAttempt
		var filename, provider, journeyID, errText sql.NullString
		var latencyMs sql.NullInt64
		var status string
		if err := rows.Scan(&a.ID, &a.Fingerprint, &filename, &provider, &status, &journeyID, &errText, &latencyMs, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ImageFilename = filename.String
		a.Provider = provider.String
		a.Status = model.AttemptStatus(status)
		a.JourneyID = journeyID.String
		a.Error = errText.String
		a.Latency = time.Duration(latencyMs.Int64) * time.Millisecond
		results = append(results, a)
	}
	return results, rows.Err()
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now().UTC())
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
