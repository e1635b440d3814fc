package session

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// AnswerKey identifies one answer entry.
type AnswerKey struct {
	SectionID  uuid.UUID
	QuestionID uuid.UUID
}

// AnswerStore holds per-section, per-question raw answer strings.
// For "multiple" questions the stored value is a canonical comma-joined,
// de-duplicated set of option letters; for "integer" a decimal string; for
// "single" one option letter. No format validation happens here — invalid
// text is stored as-is and simply never matches during scoring.
type AnswerStore struct {
	entries map[AnswerKey]string
	frozen  bool
}

// NewAnswerStore creates an empty AnswerStore.
func NewAnswerStore() *AnswerStore {
	return &AnswerStore{entries: make(map[AnswerKey]string)}
}

// Set stores the raw answer for a question. No-op once frozen.
func (s *AnswerStore) Set(sectionID, questionID uuid.UUID, raw string) {
	if s.frozen {
		return
	}
	s.entries[AnswerKey{sectionID, questionID}] = raw
}

// Get returns the stored answer and whether one exists.
func (s *AnswerStore) Get(sectionID, questionID uuid.UUID) (string, bool) {
	v, ok := s.entries[AnswerKey{sectionID, questionID}]
	return v, ok
}

// Has reports whether a non-empty answer exists for the question.
func (s *AnswerStore) Has(sectionID, questionID uuid.UUID) bool {
	v, ok := s.entries[AnswerKey{sectionID, questionID}]
	return ok && v != ""
}

// Clear removes the answer for a question. No-op once frozen.
func (s *AnswerStore) Clear(sectionID, questionID uuid.UUID) {
	if s.frozen {
		return
	}
	delete(s.entries, AnswerKey{sectionID, questionID})
}

// Attempted counts entries recorded for a section.
func (s *AnswerStore) Attempted(sectionID uuid.UUID) int {
	n := 0
	for k := range s.entries {
		if k.SectionID == sectionID {
			n++
		}
	}
	return n
}

// Len returns the total number of entries across sections.
func (s *AnswerStore) Len() int {
	return len(s.entries)
}

// Section returns a copy of all entries for one section, keyed by question id.
func (s *AnswerStore) Section(sectionID uuid.UUID) map[uuid.UUID]string {
	out := make(map[uuid.UUID]string)
	for k, v := range s.entries {
		if k.SectionID == sectionID {
			out[k.QuestionID] = v
		}
	}
	return out
}

// Snapshot exports all entries grouped by section for persistence.
func (s *AnswerStore) Snapshot() map[uuid.UUID]map[uuid.UUID]string {
	out := make(map[uuid.UUID]map[uuid.UUID]string)
	for k, v := range s.entries {
		sec, ok := out[k.SectionID]
		if !ok {
			sec = make(map[uuid.UUID]string)
			out[k.SectionID] = sec
		}
		sec[k.QuestionID] = v
	}
	return out
}

// Freeze makes every subsequent mutation a no-op. Called on submit.
func (s *AnswerStore) Freeze() {
	s.frozen = true
}

// CanonicalChoiceSet normalizes a comma-joined option-letter selection:
// trimmed, lower-cased, de-duplicated, sorted. Used when storing answers
// for "multiple" questions so equal selections compare equal.
func CanonicalChoiceSet(raw string) string {
	parts := splitChoiceSet(raw)
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// splitChoiceSet splits on commas, trims, lower-cases and de-duplicates,
// preserving first-seen order.
func splitChoiceSet(raw string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
