package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionStatus is the per-question visitation/answer lifecycle tag.
// The short codes match what stored results have always used.
type QuestionStatus string

const (
	StatusNotVisited        QuestionStatus = "nv"
	StatusNotAnswered       QuestionStatus = "na"
	StatusAnswered          QuestionStatus = "a"
	StatusMarkedForReview   QuestionStatus = "mr"
	StatusAnsweredAndMarked QuestionStatus = "amr"
)

// ResultStatus enumerates exam result states.
type ResultStatus string

const (
	ResultStatusCompleted ResultStatus = "completed"
)

// SectionMarks is the derived per-section score summary.
// TotalMarks = PositiveMarks - NegativeMarks; NegativeMarks is never
// negative (sign is normalized at computation time).
type SectionMarks struct {
	TotalMarks            float64 `json:"total_marks"`
	PositiveMarks         float64 `json:"positive_marks"`
	NegativeMarks         float64 `json:"negative_marks"`
	Attempted             int     `json:"attempted"`
	Correct               int     `json:"correct"`
	TotalSectionQuestions int     `json:"total_section_questions"`
}

// SectionAnswers pairs a section's raw answer entries with its marks.
type SectionAnswers struct {
	Entries map[string]string `json:"entries"` // question id -> raw answer
	SectionMarks
}

// Statistics aggregates session-level timing and attempt counters.
type Statistics struct {
	TimeSpentSeconds         int                    `json:"time_spent"`
	QuestionsAttempted       int                    `json:"questions_attempted"`
	QuestionsMarkedForReview int                    `json:"questions_marked_for_review"`
	QuestionTimes            map[string]map[int]int `json:"question_times"` // section name -> index -> seconds
}

// ExamResult is the persisted outcome of one exam session. Created exactly
// once per (user, exam) pair and immutable thereafter; a session that finds
// an existing result enters review-only mode.
type ExamResult struct {
	ExamID           uuid.UUID                         `json:"exam_id"`
	UserID           string                            `json:"user_id"`
	Answers          map[string]SectionAnswers         `json:"answers"`           // keyed by section name
	QuestionStatuses map[string]map[int]QuestionStatus `json:"question_statuses"` // section name -> index -> status
	Sections         map[string]SectionMarks           `json:"sections"`
	Statistics       Statistics                        `json:"statistics"`
	Status           ResultStatus                      `json:"status"`
	SubmittedAt      time.Time                         `json:"submitted_at"`
}
