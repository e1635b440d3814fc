package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepnest/assess-backend/internal/model"
)

// ResultRepository handles persisted exam results.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// LoadPriorResults retrieves every result a user has submitted, newest
// first. The per-section maps live in jsonb columns.
func (r *ResultRepository) LoadPriorResults(ctx context.Context, userID string) ([]model.ExamResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT exam_id, user_id, answers, question_statuses, sections,
		        statistics, status, submitted_at
		 FROM exam_results
		 WHERE user_id = $1
		 ORDER BY submitted_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.ExamResult
	for rows.Next() {
		var res model.ExamResult
		if err := rows.Scan(&res.ExamID, &res.UserID, &res.Answers,
			&res.QuestionStatuses, &res.Sections, &res.Statistics,
			&res.Status, &res.SubmittedAt); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// PersistResult stores a final result. The (user_id, exam_id) pair is
// unique; a concurrent duplicate loses the insert race and is treated as
// success, the first submission stays authoritative.
func (r *ResultRepository) PersistResult(ctx context.Context, userID string, examID uuid.UUID, result *model.ExamResult) error {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_results
		   (user_id, exam_id, answers, question_statuses, sections, statistics, status, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id, exam_id) DO NOTHING
		 RETURNING id`,
		userID, examID, result.Answers, result.QuestionStatuses,
		result.Sections, result.Statistics, result.Status, result.SubmittedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict path: a result for this attempt already exists.
		return nil
	}
	return err
}
