package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/prepnest/assess-backend/internal/model"
)

// ExamStore loads exam definitions with questions already attached.
type ExamStore interface {
	LoadExam(ctx context.Context, examID uuid.UUID) (*model.ExamRecord, error)
}

// ResultStore loads and persists exam results. PersistResult must be
// called at most meaningfully once per session; failures are surfaced to
// the caller, never silently retried.
type ResultStore interface {
	LoadPriorResults(ctx context.Context, userID string) ([]model.ExamResult, error)
	PersistResult(ctx context.Context, userID string, examID uuid.UUID, result *model.ExamResult) error
}

// CheckpointStore durably stores the absolute countdown deadline so a
// reload mid-exam recomputes true remaining time instead of resetting the
// clock. This is the only persisted state besides the final ExamResult.
type CheckpointStore interface {
	SaveDeadline(ctx context.Context, userID string, examID uuid.UUID, deadline time.Time) error
	LoadDeadline(ctx context.Context, userID string, examID uuid.UUID) (time.Time, bool, error)
	ClearDeadline(ctx context.Context, userID string, examID uuid.UUID) error
}
