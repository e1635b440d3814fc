package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prepnest/assess-backend/internal/model"
)

// testExam builds the canonical two-section fixture used across the
// package tests: Physics (integer +4/-1, single +4/-1) and Chemistry
// (multiple +4/-2, single +4/-1), one minute duration.
func testExam() *model.ExamRecord {
	return &model.ExamRecord{
		ID:              uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Name:            "Mock Test 1",
		DurationMinutes: 1,
		Sections: []model.Section{
			{
				ID:   uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001"),
				Name: "Physics",
				Questions: []model.Question{
					{
						ID:            uuid.MustParse("aaaaaaaa-0000-0000-0000-0000000000b1"),
						Kind:          model.KindInteger,
						CorrectAnswer: "4.00",
						Marks:         model.Marks{Correct: 4, Incorrect: 1},
					},
					{
						ID:            uuid.MustParse("aaaaaaaa-0000-0000-0000-0000000000b2"),
						Kind:          model.KindSingle,
						CorrectAnswer: "b",
						Options:       letterOptions("a", "b", "c", "d"),
						Marks:         model.Marks{Correct: 4, Incorrect: 1},
					},
				},
			},
			{
				ID:   uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002"),
				Name: "Chemistry",
				Questions: []model.Question{
					{
						ID:            uuid.MustParse("bbbbbbbb-0000-0000-0000-0000000000c1"),
						Kind:          model.KindMultiple,
						CorrectAnswer: "a,c",
						Options:       letterOptions("a", "b", "c", "d"),
						Marks:         model.Marks{Correct: 4, Incorrect: 2},
					},
					{
						ID:            uuid.MustParse("bbbbbbbb-0000-0000-0000-0000000000c2"),
						Kind:          model.KindSingle,
						CorrectAnswer: "d",
						Options:       letterOptions("a", "b", "c", "d"),
						Marks:         model.Marks{Correct: 4, Incorrect: 1},
					},
				},
			},
		},
	}
}

func letterOptions(letters ...string) []model.Option {
	opts := make([]model.Option, len(letters))
	for i, l := range letters {
		opts[i] = model.Option{Letter: l}
	}
	return opts
}

// ─── Collaborator fakes ─────────────────────────────────────────────

type fakeExamStore struct {
	exam *model.ExamRecord
	err  error
}

func (s *fakeExamStore) LoadExam(_ context.Context, _ uuid.UUID) (*model.ExamRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.exam, nil
}

type fakeResultStore struct {
	mu         sync.Mutex
	prior      []model.ExamResult
	persisted  []*model.ExamResult
	persistErr error
}

func (s *fakeResultStore) LoadPriorResults(_ context.Context, _ string) ([]model.ExamResult, error) {
	return s.prior, nil
}

func (s *fakeResultStore) PersistResult(_ context.Context, _ string, _ uuid.UUID, r *model.ExamResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persistErr != nil {
		return s.persistErr
	}
	s.persisted = append(s.persisted, r)
	return nil
}

func (s *fakeResultStore) persistedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.persisted)
}

type fakeCheckpoint struct {
	mu        sync.Mutex
	deadlines map[string]time.Time
	saves     int
}

func newFakeCheckpoint() *fakeCheckpoint {
	return &fakeCheckpoint{deadlines: make(map[string]time.Time)}
}

func (c *fakeCheckpoint) key(userID string, examID uuid.UUID) string {
	return userID + "/" + examID.String()
}

func (c *fakeCheckpoint) SaveDeadline(_ context.Context, userID string, examID uuid.UUID, deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadlines[c.key(userID, examID)] = deadline
	c.saves++
	return nil
}

func (c *fakeCheckpoint) LoadDeadline(_ context.Context, userID string, examID uuid.UUID) (time.Time, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.deadlines[c.key(userID, examID)]
	return d, ok, nil
}

func (c *fakeCheckpoint) ClearDeadline(_ context.Context, userID string, examID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.deadlines, c.key(userID, examID))
	return nil
}

type fakeViolationSink struct {
	mu         sync.Mutex
	violations []Violation
	err        error
}

func (s *fakeViolationSink) Record(_ context.Context, v Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.violations = append(s.violations, v)
	return nil
}

func (s *fakeViolationSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.violations)
}

type fakeFullscreen struct {
	mu       sync.Mutex
	requests int
	err      error
}

func (f *fakeFullscreen) RequestFullscreen(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return f.err
}

func (f *fakeFullscreen) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

var errStoreDown = errors.New("store unavailable")

func testDeps(exam *model.ExamRecord) (Deps, *fakeResultStore, *fakeCheckpoint, *fakeViolationSink, *fakeFullscreen) {
	results := &fakeResultStore{}
	checkpoint := newFakeCheckpoint()
	sink := &fakeViolationSink{}
	fullscreen := &fakeFullscreen{}
	deps := Deps{
		UserID:     "user-1",
		ExamID:     exam.ID,
		Exams:      &fakeExamStore{exam: exam},
		Results:    results,
		Checkpoint: checkpoint,
		Violations: sink,
		Fullscreen: fullscreen,
		Log:        zerolog.Nop(),
	}
	return deps, results, checkpoint, sink, fullscreen
}
