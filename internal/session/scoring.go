package session

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/prepnest/assess-backend/internal/model"
)

// integerTolerance absorbs floating-point and representation noise when
// comparing integer-type answers.
const integerTolerance = 0.01

// Aggregate sums section marks across the exam and derives the two
// percentage metrics: accuracy weights by attempts, prep level by the full
// question count.
type Aggregate struct {
	TotalMarks     float64 `json:"total_marks"`
	PositiveMarks  float64 `json:"positive_marks"`
	NegativeMarks  float64 `json:"negative_marks"`
	Attempted      int     `json:"attempted"`
	Correct        int     `json:"correct"`
	TotalQuestions int     `json:"total_questions"`
	Accuracy       float64 `json:"accuracy"`
	PrepLevel      float64 `json:"prep_level"`
}

// Score grades every answered question and returns per-section marks plus
// the aggregate. It is a pure function of its inputs: identical inputs
// always yield identical marks. Malformed correct-answer specs never match
// and never halt grading.
func Score(sections []model.Section, answers *AnswerStore) (map[uuid.UUID]model.SectionMarks, Aggregate) {
	perSection := make(map[uuid.UUID]model.SectionMarks, len(sections))
	var agg Aggregate

	for i := range sections {
		sec := &sections[i]
		marks := scoreSection(sec, answers.Section(sec.ID))
		perSection[sec.ID] = marks

		agg.TotalMarks += marks.TotalMarks
		agg.PositiveMarks += marks.PositiveMarks
		agg.NegativeMarks += marks.NegativeMarks
		agg.Attempted += marks.Attempted
		agg.Correct += marks.Correct
		agg.TotalQuestions += marks.TotalSectionQuestions
	}

	if agg.Attempted > 0 {
		agg.Accuracy = float64(agg.Correct) / float64(agg.Attempted) * 100
	}
	if agg.TotalQuestions > 0 {
		agg.PrepLevel = float64(agg.Correct) / float64(agg.TotalQuestions) * 100
	}
	return perSection, agg
}

func scoreSection(sec *model.Section, entries map[uuid.UUID]string) model.SectionMarks {
	marks := model.SectionMarks{
		Attempted:             len(entries),
		TotalSectionQuestions: len(sec.Questions),
	}

	for questionID, raw := range entries {
		q, _, ok := sec.QuestionByID(questionID)
		if !ok {
			continue // stale entry for a question the exam no longer has
		}
		if answerMatches(q, raw) {
			marks.PositiveMarks += q.Marks.Correct
			marks.Correct++
		} else {
			marks.NegativeMarks += q.Marks.Incorrect
		}
	}

	// Incorrect-mark values are allowed to be pre-negative in the data;
	// normalize so NegativeMarks is always a magnitude.
	if marks.NegativeMarks < 0 {
		marks.NegativeMarks = -marks.NegativeMarks
	}
	marks.TotalMarks = marks.PositiveMarks - marks.NegativeMarks
	return marks
}

// answerMatches applies the kind-specific comparison rule.
func answerMatches(q *model.Question, raw string) bool {
	correct := strings.TrimSpace(q.CorrectAnswer)
	if correct == "" || strings.TrimSpace(raw) == "" {
		return false
	}

	switch q.Kind {
	case model.KindInteger:
		given, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return false
		}
		want, err := strconv.ParseFloat(correct, 64)
		if err != nil {
			return false
		}
		diff := given - want
		if diff < 0 {
			diff = -diff
		}
		return diff <= integerTolerance

	case model.KindMultiple:
		return choiceSetsEqual(splitChoiceSet(raw), splitChoiceSet(correct))

	default: // single
		return strings.EqualFold(strings.TrimSpace(raw), correct)
	}
}

// choiceSetsEqual reports set equality: same size and mutual containment.
// Partial credit is never awarded for supersets or subsets.
func choiceSetsEqual(a, b []string) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}
