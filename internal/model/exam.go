package model

import (
	"github.com/google/uuid"
)

// QuestionKind enumerates the supported question types.
type QuestionKind string

const (
	KindSingle   QuestionKind = "single"
	KindMultiple QuestionKind = "multiple"
	KindInteger  QuestionKind = "integer"
)

// ContentType enumerates the kinds of content blocks a question can carry.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentLatex ContentType = "latex"
	ContentImage ContentType = "image"
	ContentTable ContentType = "table"
)

// ContentBlock is one renderable unit of question or solution content.
// The engine carries blocks opaquely; rendering is the client's concern.
type ContentBlock struct {
	Type  ContentType `json:"type"`
	Value string      `json:"value"`
}

// Option is a selectable choice for single/multiple questions.
type Option struct {
	Letter   string         `json:"letter"`
	Contents []ContentBlock `json:"contents"`
}

// Marks holds the per-outcome mark deltas for a question.
// Incorrect may be stored pre-negative; scoring normalizes the sign.
type Marks struct {
	Correct   float64 `json:"correct"`
	Incorrect float64 `json:"incorrect"`
}

// Question is a single exam question.
type Question struct {
	ID            uuid.UUID      `json:"id"`
	Contents      []ContentBlock `json:"contents"`
	Options       []Option       `json:"options,omitempty"`
	Kind          QuestionKind   `json:"kind"`
	CorrectAnswer string         `json:"correct_answer,omitempty"`
	Marks         Marks          `json:"marks"`
	Solution      []ContentBlock `json:"solution,omitempty"`
	OrderNum      int            `json:"order_num"`
}

// Section is a named group of questions scored independently.
// Sections are displayed by name but identified by a synthetic UUID so a
// rename never collides with identity.
type Section struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// ExamRecord is the full exam definition for one session.
// Immutable once loaded; question order within a section is stable.
type ExamRecord struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	Sections        []Section `json:"sections"`
}

// SectionByID returns the section with the given id and its position in
// exam order.
func (e *ExamRecord) SectionByID(id uuid.UUID) (*Section, int, bool) {
	for i := range e.Sections {
		if e.Sections[i].ID == id {
			return &e.Sections[i], i, true
		}
	}
	return nil, 0, false
}

// SectionByName returns the section with the given display name.
func (e *ExamRecord) SectionByName(name string) (*Section, bool) {
	for i := range e.Sections {
		if e.Sections[i].Name == name {
			return &e.Sections[i], true
		}
	}
	return nil, false
}

// TotalQuestions counts questions across all sections.
func (e *ExamRecord) TotalQuestions() int {
	total := 0
	for i := range e.Sections {
		total += len(e.Sections[i].Questions)
	}
	return total
}

// QuestionByID returns the question with the given id within a section.
func (s *Section) QuestionByID(id uuid.UUID) (*Question, int, bool) {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i], i, true
		}
	}
	return nil, 0, false
}
