package session

import (
	"github.com/google/uuid"

	"github.com/prepnest/assess-backend/internal/model"
)

// SlotKey identifies a question position within a section. Status and
// timing are keyed by index, not question id: question order within a
// section is stable for the lifetime of a session.
type SlotKey struct {
	SectionID uuid.UUID
	Index     int
}

// StatusTracker holds per-question visitation/answer status. Unset slots
// default to not-visited.
type StatusTracker struct {
	statuses map[SlotKey]model.QuestionStatus
	frozen   bool
}

// NewStatusTracker creates an empty StatusTracker.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{statuses: make(map[SlotKey]model.QuestionStatus)}
}

// Set records the status for a slot. No-op once frozen.
func (t *StatusTracker) Set(sectionID uuid.UUID, index int, status model.QuestionStatus) {
	if t.frozen {
		return
	}
	t.statuses[SlotKey{sectionID, index}] = status
}

// Get returns the status for a slot, defaulting to not-visited.
func (t *StatusTracker) Get(sectionID uuid.UUID, index int) model.QuestionStatus {
	if s, ok := t.statuses[SlotKey{sectionID, index}]; ok {
		return s
	}
	return model.StatusNotVisited
}

// Counts tallies statuses for the first n slots of a section. Slots never
// touched count as not-visited. Drives the question-palette summary.
func (t *StatusTracker) Counts(sectionID uuid.UUID, n int) map[model.QuestionStatus]int {
	out := make(map[model.QuestionStatus]int)
	for i := 0; i < n; i++ {
		out[t.Get(sectionID, i)]++
	}
	return out
}

// MarkedForReview counts slots marked for review, answered or not.
func (t *StatusTracker) MarkedForReview() int {
	n := 0
	for _, s := range t.statuses {
		if s == model.StatusMarkedForReview || s == model.StatusAnsweredAndMarked {
			n++
		}
	}
	return n
}

// Snapshot exports all recorded statuses grouped by section.
func (t *StatusTracker) Snapshot() map[uuid.UUID]map[int]model.QuestionStatus {
	out := make(map[uuid.UUID]map[int]model.QuestionStatus)
	for k, s := range t.statuses {
		sec, ok := out[k.SectionID]
		if !ok {
			sec = make(map[int]model.QuestionStatus)
			out[k.SectionID] = sec
		}
		sec[k.Index] = s
	}
	return out
}

// Freeze makes every subsequent mutation a no-op. Called on submit.
func (t *StatusTracker) Freeze() {
	t.frozen = true
}
