package store

import (
	"context"
	"time"

	"slowlooking/pkg/model"
)

// AttemptStore handles the generation ledger.
type AttemptStore interface {
	RecordAttempt(ctx context.Context, a *model.GenerationAttempt) error
	RecentAttempts(ctx context.Context, limit int) ([]model.GenerationAttempt, error)
	AttemptsForFingerprint(ctx context.Context, fingerprint string) ([]model.GenerationAttempt, error)
	CountByStatus(ctx context.Context, since time.Time) (map[model.AttemptStatus]int, error)
	PruneAttempts(ctx context.Context, olderThan time.Duration) (int64, error)
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
