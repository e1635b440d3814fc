package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/prepnest/assess-backend/internal/model"
)

var (
	// ErrUnknownSection is returned for a jump to a section id the exam
	// does not contain.
	ErrUnknownSection = errors.New("unknown section")
	// ErrIndexOutOfRange is returned for a jump past a section's questions.
	ErrIndexOutOfRange = errors.New("question index out of range")
)

// Move reports the outcome of a navigation operation.
type Move struct {
	Moved          bool `json:"moved"`
	SectionChanged bool `json:"section_changed"`
}

// Navigator is the section/question state machine. It owns the current
// position and composes the three trackers to decide transition side
// effects. Every transition fully commits the source question's timing
// before the destination becomes current.
type Navigator struct {
	exam     *model.ExamRecord
	answers  *AnswerStore
	statuses *StatusTracker
	times    *TimingTracker

	secIdx    int
	qIdx      int
	enteredAt time.Time

	now func() time.Time
}

// NewNavigator creates a Navigator positioned at the first question of the
// first section.
func NewNavigator(exam *model.ExamRecord, answers *AnswerStore, statuses *StatusTracker, times *TimingTracker) *Navigator {
	n := &Navigator{
		exam:     exam,
		answers:  answers,
		statuses: statuses,
		times:    times,
		now:      time.Now,
	}
	n.enteredAt = n.now()
	return n
}

// Position returns the current section id and question index.
func (n *Navigator) Position() (uuid.UUID, int) {
	return n.section().ID, n.qIdx
}

// CurrentSection returns the section the navigator is positioned in.
func (n *Navigator) CurrentSection() *model.Section {
	return n.section()
}

// CurrentQuestion returns the question the navigator is positioned on.
func (n *Navigator) CurrentQuestion() *model.Question {
	return &n.section().Questions[n.qIdx]
}

func (n *Navigator) section() *model.Section {
	return &n.exam.Sections[n.secIdx]
}

// CommitTiming adds the running interval for the current question to the
// TimingTracker and restarts the interval. Called on every transition and
// once more at submit so the open question's time is not lost.
func (n *Navigator) CommitTiming() {
	now := n.now()
	n.times.Add(n.section().ID, n.qIdx, now.Sub(n.enteredAt))
	n.enteredAt = now
}

// GoToQuestion jumps to a question index within the current section.
func (n *Navigator) GoToQuestion(index int) error {
	if index < 0 || index >= len(n.section().Questions) {
		return ErrIndexOutOfRange
	}
	n.CommitTiming()
	n.qIdx = index
	return nil
}

// GoToSection jumps to a question in another section.
func (n *Navigator) GoToSection(sectionID uuid.UUID, index int) error {
	sec, pos, ok := n.exam.SectionByID(sectionID)
	if !ok {
		return ErrUnknownSection
	}
	if index < 0 || index >= len(sec.Questions) {
		return ErrIndexOutOfRange
	}
	n.CommitTiming()
	n.secIdx = pos
	n.qIdx = index
	return nil
}

// Previous moves back one question. There is no backward wrap across
// sections: at index 0 it reports not moved and leaves state unchanged.
func (n *Navigator) Previous() Move {
	if n.qIdx == 0 {
		return Move{}
	}
	n.CommitTiming()
	n.qIdx--
	return Move{Moved: true}
}

// Next advances one question, rolling over to the first question of the
// next section at a section boundary. At the last question of the last
// section it reports not moved; the caller surfaces Submit as the only
// further action.
func (n *Navigator) Next() Move {
	if n.qIdx+1 < len(n.section().Questions) {
		n.CommitTiming()
		n.qIdx++
		return Move{Moved: true}
	}
	if n.secIdx+1 < len(n.exam.Sections) {
		n.CommitTiming()
		n.secIdx++
		n.qIdx = 0
		return Move{Moved: true, SectionChanged: true}
	}
	return Move{}
}

// hasAnswer derives answered-ness purely from the AnswerStore. The store
// is ground truth for every question kind.
func (n *Navigator) hasAnswer(index int) bool {
	sec := n.section()
	return n.answers.Has(sec.ID, sec.Questions[index].ID)
}

// SaveAndNext records the current question's status from its answer state
// and advances. Marking never demotes a review flag: a reviewed question
// with an answer becomes answered-and-marked, an unanswered reviewed one
// stays marked-for-review. On arriving at a new question within the same
// section, a not-visited destination is seeded the same way so it does not
// linger as not-visited.
func (n *Navigator) SaveAndNext() Move {
	n.applyAnswerStatus(n.qIdx)
	mv := n.Next()
	if mv.Moved && !mv.SectionChanged {
		n.seedStatus(n.qIdx)
	}
	return mv
}

// MarkForReviewAndNext flags the current question for review (preserving
// answered-ness) and advances.
func (n *Navigator) MarkForReviewAndNext() Move {
	sec := n.section()
	if n.hasAnswer(n.qIdx) {
		n.statuses.Set(sec.ID, n.qIdx, model.StatusAnsweredAndMarked)
	} else {
		n.statuses.Set(sec.ID, n.qIdx, model.StatusMarkedForReview)
	}
	return n.Next()
}

// applyAnswerStatus sets answered/not-answered for a slot without demoting
// a review flag.
func (n *Navigator) applyAnswerStatus(index int) {
	sec := n.section()
	current := n.statuses.Get(sec.ID, index)
	marked := current == model.StatusMarkedForReview || current == model.StatusAnsweredAndMarked
	if n.hasAnswer(index) {
		if marked {
			n.statuses.Set(sec.ID, index, model.StatusAnsweredAndMarked)
		} else {
			n.statuses.Set(sec.ID, index, model.StatusAnswered)
		}
		return
	}
	if marked {
		n.statuses.Set(sec.ID, index, model.StatusMarkedForReview)
		return
	}
	n.statuses.Set(sec.ID, index, model.StatusNotAnswered)
}

// seedStatus initializes a slot that has never been visited.
func (n *Navigator) seedStatus(index int) {
	sec := n.section()
	if n.statuses.Get(sec.ID, index) != model.StatusNotVisited {
		return
	}
	if n.hasAnswer(index) {
		n.statuses.Set(sec.ID, index, model.StatusAnswered)
	} else {
		n.statuses.Set(sec.ID, index, model.StatusNotAnswered)
	}
}
