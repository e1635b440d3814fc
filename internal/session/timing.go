package session

import (
	"time"

	"github.com/google/uuid"
)

// TimingTracker accumulates time spent per question slot. Time is recorded
// on navigation transitions, not by wall-clock polling: when the current
// question changes, the elapsed interval is added to the slot being left.
type TimingTracker struct {
	times  map[SlotKey]time.Duration
	frozen bool
}

// NewTimingTracker creates an empty TimingTracker.
func NewTimingTracker() *TimingTracker {
	return &TimingTracker{times: make(map[SlotKey]time.Duration)}
}

// Add accumulates elapsed time for a slot. No-op once frozen.
func (t *TimingTracker) Add(sectionID uuid.UUID, index int, d time.Duration) {
	if t.frozen || d < 0 {
		return
	}
	t.times[SlotKey{sectionID, index}] += d
}

// Set overwrites the accumulated time for a slot. Used when rehydrating
// from a prior result. No-op once frozen.
func (t *TimingTracker) Set(sectionID uuid.UUID, index int, d time.Duration) {
	if t.frozen {
		return
	}
	t.times[SlotKey{sectionID, index}] = d
}

// Get returns the accumulated time for a slot.
func (t *TimingTracker) Get(sectionID uuid.UUID, index int) time.Duration {
	return t.times[SlotKey{sectionID, index}]
}

// Snapshot exports accumulated times grouped by section.
func (t *TimingTracker) Snapshot() map[uuid.UUID]map[int]time.Duration {
	out := make(map[uuid.UUID]map[int]time.Duration)
	for k, d := range t.times {
		sec, ok := out[k.SectionID]
		if !ok {
			sec = make(map[int]time.Duration)
			out[k.SectionID] = sec
		}
		sec[k.Index] = d
	}
	return out
}

// Freeze makes every subsequent mutation a no-op. Called on submit.
func (t *TimingTracker) Freeze() {
	t.frozen = true
}
