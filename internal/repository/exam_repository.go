package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepnest/assess-backend/internal/model"
)

// ExamSummary is the catalog row for one exam.
type ExamSummary struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	QuestionCount   int       `json:"question_count"`
}

// ExamRepository handles exam paper data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// LoadExam retrieves an exam with its sections and questions, ordered for
// presentation. Content blocks, options and solutions live in jsonb columns
// and are decoded straight into the model types.
func (r *ExamRepository) LoadExam(ctx context.Context, id uuid.UUID) (*model.ExamRecord, error) {
	e := &model.ExamRecord{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, duration_minutes FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.Name, &e.DurationMinutes)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, name FROM sections WHERE exam_id = $1 ORDER BY order_num`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sectionIdx := make(map[uuid.UUID]int)
	for rows.Next() {
		var s model.Section
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		sectionIdx[s.ID] = len(e.Sections)
		e.Sections = append(e.Sections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	qrows, err := r.pool.Query(ctx,
		`SELECT q.id, q.section_id, q.contents, q.options, q.kind,
		        q.correct_answer, q.marks_correct, q.marks_incorrect,
		        q.solution, q.order_num
		 FROM questions q
		 JOIN sections s ON q.section_id = s.id
		 WHERE s.exam_id = $1
		 ORDER BY s.order_num, q.order_num`, id,
	)
	if err != nil {
		return nil, err
	}
	defer qrows.Close()

	for qrows.Next() {
		var q model.Question
		var sectionID uuid.UUID
		if err := qrows.Scan(&q.ID, &sectionID, &q.Contents, &q.Options, &q.Kind,
			&q.CorrectAnswer, &q.Marks.Correct, &q.Marks.Incorrect,
			&q.Solution, &q.OrderNum); err != nil {
			return nil, err
		}
		if i, ok := sectionIdx[sectionID]; ok {
			e.Sections[i].Questions = append(e.Sections[i].Questions, q)
		}
	}
	return e, qrows.Err()
}

// ListExams returns catalog summaries for every exam.
func (r *ExamRepository) ListExams(ctx context.Context) ([]ExamSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.id, e.name, e.duration_minutes, COUNT(q.id)
		 FROM exams e
		 LEFT JOIN sections s ON s.exam_id = e.id
		 LEFT JOIN questions q ON q.section_id = s.id
		 GROUP BY e.id, e.name, e.duration_minutes
		 ORDER BY e.name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []ExamSummary
	for rows.Next() {
		var s ExamSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.QuestionCount); err != nil {
			return nil, err
		}
		exams = append(exams, s)
	}
	return exams, rows.Err()
}
