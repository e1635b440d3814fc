package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prepnest/assess-backend/internal/model"
)

var (
	// ErrSessionSubmitted is returned for mutations after submit. A second
	// submit call gets the same error and persists nothing.
	ErrSessionSubmitted = errors.New("session already submitted")
	// ErrConfirmationRequired guards manual submission while more than
	// five minutes remain.
	ErrConfirmationRequired = errors.New("submission requires confirmation")
	// ErrQuestionNotFound is returned for answer operations on unknown
	// section/question ids.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoPendingResult is returned by RetrySubmit when there is nothing
	// to retry.
	ErrNoPendingResult = errors.New("no pending result to retry")
)

// earlySubmitWindow is the remaining time under which a manual submit no
// longer needs confirmation.
const earlySubmitWindow = 5 * time.Minute

// Deps are the external collaborators a Controller needs.
type Deps struct {
	UserID     string
	ExamID     uuid.UUID
	Exams      ExamStore
	Results    ResultStore
	Checkpoint CheckpointStore
	Violations ViolationSink
	Fullscreen FullscreenRequester
	// OnTick forwards countdown updates to the transport. Optional.
	OnTick func(remaining int)
	// OnAutoSubmit is notified after a timer-forced submission completes,
	// successfully or not. Optional.
	OnAutoSubmit func(result *model.ExamResult, err error)
	Log          zerolog.Logger
}

// Controller owns one exam session end to end: it seeds the trackers from
// the loaded ExamRecord (or a prior result), mediates every mutation
// through the Navigator, runs the countdown and lockdown for live
// sessions, and produces the final ExamResult exactly once.
type Controller struct {
	mu sync.Mutex

	deps Deps
	exam *model.ExamRecord
	log  zerolog.Logger

	answers  *AnswerStore
	statuses *StatusTracker
	times    *TimingTracker
	nav      *Navigator
	timer    *CountdownTimer
	lockdown *LockdownMonitor

	started   bool
	submitted bool
	result    *model.ExamResult // persisted result, or prior result in review mode
	pending   *model.ExamResult // computed but not yet persisted after a persist failure

	now func() time.Time
}

// New loads the exam and any prior result and builds the session. A prior
// result puts the session straight into review mode: trackers are
// rehydrated read-only and Begin becomes a no-op for timer and lockdown.
func New(ctx context.Context, deps Deps) (*Controller, error) {
	exam, err := deps.Exams.LoadExam(ctx, deps.ExamID)
	if err != nil {
		return nil, fmt.Errorf("load exam: %w", err)
	}
	if err := validateExam(exam); err != nil {
		return nil, err
	}

	prior, err := deps.Results.LoadPriorResults(ctx, deps.UserID)
	if err != nil {
		return nil, fmt.Errorf("load prior results: %w", err)
	}

	c := &Controller{
		deps:     deps,
		exam:     exam,
		log:      deps.Log.With().Str("component", "session").Str("exam_id", deps.ExamID.String()).Logger(),
		answers:  NewAnswerStore(),
		statuses: NewStatusTracker(),
		times:    NewTimingTracker(),
		now:      time.Now,
	}
	c.nav = NewNavigator(exam, c.answers, c.statuses, c.times)
	c.lockdown = NewLockdownMonitor(deps.UserID, deps.ExamID, deps.Violations, deps.Fullscreen, deps.Log)

	// Duplicate submissions are tolerated by taking the first match as
	// authoritative.
	for i := range prior {
		if prior[i].ExamID == deps.ExamID {
			c.rehydrate(&prior[i])
			break
		}
	}
	return c, nil
}

// validateExam rejects definitions the Navigator cannot hold a position
// in: no sections, or a section with no questions.
func validateExam(exam *model.ExamRecord) error {
	if len(exam.Sections) == 0 {
		return fmt.Errorf("exam %s has no sections", exam.ID)
	}
	for i := range exam.Sections {
		if len(exam.Sections[i].Questions) == 0 {
			return fmt.Errorf("exam %s: section %q has no questions", exam.ID, exam.Sections[i].Name)
		}
	}
	return nil
}

// rehydrate restores trackers from a prior result and freezes the session.
func (c *Controller) rehydrate(prior *model.ExamResult) {
	for name, sa := range prior.Answers {
		sec, ok := c.exam.SectionByName(name)
		if !ok {
			continue
		}
		for qidStr, raw := range sa.Entries {
			qid, err := uuid.Parse(qidStr)
			if err != nil {
				continue
			}
			c.answers.Set(sec.ID, qid, raw)
		}
	}
	for name, statuses := range prior.QuestionStatuses {
		sec, ok := c.exam.SectionByName(name)
		if !ok {
			continue
		}
		for idx, st := range statuses {
			c.statuses.Set(sec.ID, idx, st)
		}
	}
	for name, times := range prior.Statistics.QuestionTimes {
		sec, ok := c.exam.SectionByName(name)
		if !ok {
			continue
		}
		for idx, secs := range times {
			c.times.Set(sec.ID, idx, time.Duration(secs)*time.Second)
		}
	}

	c.submitted = true
	c.result = prior
	c.freezeTrackers()
	c.log.Info().Msg("Prior result found, session is review-only")
}

// Begin starts the countdown and activates the lockdown for a fresh
// session. In review mode both stay inert.
func (c *Controller) Begin(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitted {
		return ErrSessionSubmitted
	}
	if c.started {
		return nil
	}

	duration := time.Duration(c.exam.DurationMinutes) * time.Minute
	deadline := ResumeDeadline(ctx, c.deps.Checkpoint, c.deps.UserID, c.deps.ExamID, duration, c.now(), c.log)

	c.timer = NewCountdownTimer(CountdownConfig{
		UserID:     c.deps.UserID,
		ExamID:     c.deps.ExamID,
		Deadline:   deadline,
		Checkpoint: c.deps.Checkpoint,
		OnTick:     c.deps.OnTick,
		OnExpire:   c.autoSubmit,
		Log:        c.deps.Log,
	})
	c.timer.Start(ctx)
	c.lockdown.Activate(ctx)
	c.started = true

	c.log.Info().Time("deadline", deadline).Msg("Session started")
	return nil
}

// autoSubmit is the timer's expiry callback. The countdown enforces the
// submit path independent of other component health.
func (c *Controller) autoSubmit() {
	res, err := c.submit(context.Background(), true)
	if err != nil && !errors.Is(err, ErrSessionSubmitted) {
		c.log.Error().Err(err).Msg("Auto-submit persist failed, result retained for retry")
	}
	if c.deps.OnAutoSubmit != nil {
		c.deps.OnAutoSubmit(res, err)
	}
}

// Exam returns the loaded exam record.
func (c *Controller) Exam() *model.ExamRecord {
	return c.exam
}

// Submitted reports whether the session is terminal.
func (c *Controller) Submitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitted
}

// Result returns the persisted result, the prior result in review mode, or
// the pending unpersisted result after a persist failure.
func (c *Controller) Result() *model.ExamResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result != nil {
		return c.result
	}
	return c.pending
}

// Remaining returns whole remaining seconds, or zero when no countdown is
// running.
func (c *Controller) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer == nil {
		return 0
	}
	return c.timer.Remaining()
}

// Position returns the navigator's current section id and question index.
func (c *Controller) Position() (uuid.UUID, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nav.Position()
}

// StatusCounts returns the palette summary for one section.
func (c *Controller) StatusCounts(sectionID uuid.UUID) (map[model.QuestionStatus]int, error) {
	sec, _, ok := c.exam.SectionByID(sectionID)
	if !ok {
		return nil, ErrUnknownSection
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statuses.Counts(sectionID, len(sec.Questions)), nil
}

// SetAnswer stores an answer for a question. Multiple-choice selections
// are canonicalized so equal sets compare equal at scoring time.
func (c *Controller) SetAnswer(sectionID, questionID uuid.UUID, raw string) error {
	sec, _, ok := c.exam.SectionByID(sectionID)
	if !ok {
		return ErrQuestionNotFound
	}
	q, _, ok := sec.QuestionByID(questionID)
	if !ok {
		return ErrQuestionNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitted {
		return ErrSessionSubmitted
	}
	if q.Kind == model.KindMultiple {
		raw = CanonicalChoiceSet(raw)
	}
	c.answers.Set(sectionID, questionID, raw)
	return nil
}

// ClearAnswer removes a question's answer and downgrades its status to
// not-answered.
func (c *Controller) ClearAnswer(sectionID, questionID uuid.UUID) error {
	sec, _, ok := c.exam.SectionByID(sectionID)
	if !ok {
		return ErrQuestionNotFound
	}
	_, idx, ok := sec.QuestionByID(questionID)
	if !ok {
		return ErrQuestionNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitted {
		return ErrSessionSubmitted
	}
	c.answers.Clear(sectionID, questionID)
	c.statuses.Set(sectionID, idx, model.StatusNotAnswered)
	return nil
}

// Navigation passthroughs. The navigator keeps functioning after submit so
// review mode can browse; frozen trackers make its side effects no-ops.

func (c *Controller) Next() Move {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nav.Next()
}

func (c *Controller) Previous() Move {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nav.Previous()
}

func (c *Controller) GoToQuestion(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nav.GoToQuestion(index)
}

func (c *Controller) GoToSection(sectionID uuid.UUID, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nav.GoToSection(sectionID, index)
}

func (c *Controller) SaveAndNext() Move {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitted {
		return c.nav.Next()
	}
	return c.nav.SaveAndNext()
}

func (c *Controller) MarkForReviewAndNext() Move {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitted {
		return c.nav.Next()
	}
	return c.nav.MarkForReviewAndNext()
}

// HandleLockdownEvent forwards a client event to the lockdown monitor.
func (c *Controller) HandleLockdownEvent(ctx context.Context, ev LockdownEvent, detail string) Verdict {
	return c.lockdown.HandleEvent(ctx, ev, detail)
}

// ConfirmFullscreenReturn confirms the return-to-fullscreen prompt.
func (c *Controller) ConfirmFullscreenReturn(ctx context.Context) {
	c.lockdown.ConfirmReturn(ctx)
}

// Submit finishes the session on user request. While more than five
// minutes remain an unconfirmed call is rejected with
// ErrConfirmationRequired; timer-forced submission never asks.
func (c *Controller) Submit(ctx context.Context, confirmed bool) (*model.ExamResult, error) {
	c.mu.Lock()
	if c.submitted {
		c.mu.Unlock()
		return nil, ErrSessionSubmitted
	}
	if !confirmed && c.timer != nil && c.timer.Remaining() > int(earlySubmitWindow.Seconds()) {
		c.mu.Unlock()
		return nil, ErrConfirmationRequired
	}
	c.mu.Unlock()

	return c.submit(ctx, false)
}

// RetrySubmit re-attempts persistence of a result retained after a persist
// failure. The result is not recomputed.
func (c *Controller) RetrySubmit(ctx context.Context) (*model.ExamResult, error) {
	c.mu.Lock()
	pending := c.pending
	c.mu.Unlock()

	if pending == nil {
		return nil, ErrNoPendingResult
	}
	if err := c.deps.Results.PersistResult(ctx, c.deps.UserID, c.deps.ExamID, pending); err != nil {
		return nil, fmt.Errorf("persist result: %w", err)
	}

	c.mu.Lock()
	c.result = pending
	c.pending = nil
	c.mu.Unlock()
	return pending, nil
}

// submit is the single submission routine shared by the manual path and
// the countdown's forced path. Idempotent: only the first call scores and
// persists; later calls get ErrSessionSubmitted.
func (c *Controller) submit(ctx context.Context, forced bool) (*model.ExamResult, error) {
	c.mu.Lock()
	if c.submitted {
		c.mu.Unlock()
		return nil, ErrSessionSubmitted
	}

	// Close the open question's running interval before the trackers
	// freeze.
	c.nav.CommitTiming()

	remaining := 0
	if c.timer != nil {
		remaining = c.timer.Remaining()
		c.timer.Stop()
	}
	c.lockdown.Deactivate()

	result := c.assembleResult(remaining)
	c.submitted = true
	c.freezeTrackers()
	c.mu.Unlock()

	if err := c.deps.Checkpoint.ClearDeadline(ctx, c.deps.UserID, c.deps.ExamID); err != nil {
		c.log.Warn().Err(err).Msg("Checkpoint clear failed")
	}

	if err := c.deps.Results.PersistResult(ctx, c.deps.UserID, c.deps.ExamID, result); err != nil {
		// Keep the computed result so a manual retry needs no rescore.
		c.mu.Lock()
		c.pending = result
		c.mu.Unlock()
		return nil, fmt.Errorf("persist result: %w", err)
	}

	c.mu.Lock()
	c.result = result
	c.mu.Unlock()

	c.log.Info().Bool("forced", forced).
		Int("attempted", result.Statistics.QuestionsAttempted).
		Msg("Session submitted")
	return result, nil
}

// assembleResult scores the answers and builds the ExamResult. Caller
// holds c.mu.
func (c *Controller) assembleResult(remaining int) *model.ExamResult {
	perSection, _ := Score(c.exam.Sections, c.answers)

	answers := make(map[string]model.SectionAnswers, len(c.exam.Sections))
	sections := make(map[string]model.SectionMarks, len(c.exam.Sections))
	for i := range c.exam.Sections {
		sec := &c.exam.Sections[i]
		marks := perSection[sec.ID]
		sections[sec.Name] = marks

		entries := make(map[string]string)
		for qid, raw := range c.answers.Section(sec.ID) {
			entries[qid.String()] = raw
		}
		answers[sec.Name] = model.SectionAnswers{Entries: entries, SectionMarks: marks}
	}

	statuses := make(map[string]map[int]model.QuestionStatus)
	for sid, m := range c.statuses.Snapshot() {
		if sec, _, ok := c.exam.SectionByID(sid); ok {
			statuses[sec.Name] = m
		}
	}

	questionTimes := make(map[string]map[int]int)
	for sid, m := range c.times.Snapshot() {
		sec, _, ok := c.exam.SectionByID(sid)
		if !ok {
			continue
		}
		secTimes := make(map[int]int, len(m))
		for idx, d := range m {
			secTimes[idx] = int(d.Round(time.Second) / time.Second)
		}
		questionTimes[sec.Name] = secTimes
	}

	timeSpent := c.exam.DurationMinutes*60 - remaining
	if timeSpent < 0 {
		timeSpent = 0
	}

	return &model.ExamResult{
		ExamID:           c.exam.ID,
		UserID:           c.deps.UserID,
		Answers:          answers,
		QuestionStatuses: statuses,
		Sections:         sections,
		Statistics: model.Statistics{
			TimeSpentSeconds:         timeSpent,
			QuestionsAttempted:       c.answers.Len(),
			QuestionsMarkedForReview: c.statuses.MarkedForReview(),
			QuestionTimes:            questionTimes,
		},
		Status:      model.ResultStatusCompleted,
		SubmittedAt: c.now(),
	}
}

func (c *Controller) freezeTrackers() {
	c.answers.Freeze()
	c.statuses.Freeze()
	c.times.Freeze()
}
