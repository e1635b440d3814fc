package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prepnest/assess-backend/internal/model"
)

func TestController_FullSession(t *testing.T) {
	exam := testExam()
	deps, results, cp, _, fs := testDeps(exam)
	ctx := context.Background()

	c, err := New(ctx, deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Begin(ctx); err != nil {
		t.Fatal(err)
	}
	defer c.timer.Stop()

	if fs.count() != 1 {
		t.Errorf("fullscreen requests = %d, want 1", fs.count())
	}

	physics := exam.Sections[0]
	chemistry := exam.Sections[1]

	// Physics Q1: correct integer within tolerance, saved.
	if err := c.SetAnswer(physics.ID, physics.Questions[0].ID, "4.005"); err != nil {
		t.Fatal(err)
	}
	if mv := c.SaveAndNext(); !mv.Moved || mv.SectionChanged {
		t.Fatalf("save-and-next from physics Q1 = %+v", mv)
	}

	// Physics Q2: answered and marked for review; Next crosses into
	// Chemistry.
	if err := c.SetAnswer(physics.ID, physics.Questions[1].ID, "B"); err != nil {
		t.Fatal(err)
	}
	if mv := c.MarkForReviewAndNext(); !mv.Moved || !mv.SectionChanged {
		t.Fatalf("mark-for-review from physics Q2 = %+v", mv)
	}

	// Chemistry Q1: multiple selection arrives unordered, stored canonical.
	if err := c.SetAnswer(chemistry.ID, chemistry.Questions[0].ID, "C , a"); err != nil {
		t.Fatal(err)
	}
	if got, _ := c.answers.Get(chemistry.ID, chemistry.Questions[0].ID); got != "a,c" {
		t.Errorf("stored multiple answer = %q, want %q", got, "a,c")
	}
	if mv := c.SaveAndNext(); !mv.Moved {
		t.Fatalf("save-and-next from chemistry Q1 = %+v", mv)
	}

	// Chemistry Q2: marked for review unanswered; navigation stays put at
	// the exam end.
	if mv := c.MarkForReviewAndNext(); mv.Moved {
		t.Fatalf("mark-for-review at exam end = %+v", mv)
	}

	// One minute remains at most, well inside the no-confirmation window.
	result, err := c.Submit(ctx, false)
	if err != nil {
		t.Fatal(err)
	}

	if result.Status != model.ResultStatusCompleted {
		t.Errorf("result status = %q", result.Status)
	}
	if got := result.Sections["Physics"]; got.TotalMarks != 8 || got.Correct != 2 || got.Attempted != 2 {
		t.Errorf("physics marks = %+v", got)
	}
	if got := result.Sections["Chemistry"]; got.TotalMarks != 4 || got.Correct != 1 || got.Attempted != 1 {
		t.Errorf("chemistry marks = %+v", got)
	}
	if result.Statistics.QuestionsAttempted != 3 {
		t.Errorf("attempted = %d, want 3", result.Statistics.QuestionsAttempted)
	}
	if result.Statistics.QuestionsMarkedForReview != 2 {
		t.Errorf("marked for review = %d, want 2", result.Statistics.QuestionsMarkedForReview)
	}

	wantStatuses := map[string]map[int]model.QuestionStatus{
		"Physics":   {0: model.StatusAnswered, 1: model.StatusAnsweredAndMarked},
		"Chemistry": {0: model.StatusAnswered, 1: model.StatusMarkedForReview},
	}
	for name, want := range wantStatuses {
		got := result.QuestionStatuses[name]
		for idx, st := range want {
			if got[idx] != st {
				t.Errorf("%s[%d] status = %q, want %q", name, idx, got[idx], st)
			}
		}
	}

	if results.persistedCount() != 1 {
		t.Errorf("persisted %d results, want 1", results.persistedCount())
	}
	if _, ok, _ := cp.LoadDeadline(ctx, deps.UserID, exam.ID); ok {
		t.Error("checkpoint not cleared after submit")
	}

	// Second submit is rejected and persists nothing more.
	if _, err := c.Submit(ctx, true); !errors.Is(err, ErrSessionSubmitted) {
		t.Errorf("second submit err = %v", err)
	}
	if results.persistedCount() != 1 {
		t.Errorf("persisted %d results after double submit", results.persistedCount())
	}

	// Post-submit mutations are frozen but navigation still works for
	// review.
	if err := c.SetAnswer(physics.ID, physics.Questions[0].ID, "9"); !errors.Is(err, ErrSessionSubmitted) {
		t.Errorf("post-submit SetAnswer err = %v", err)
	}
	if err := c.GoToSection(physics.ID, 0); err != nil {
		t.Errorf("post-submit navigation err = %v", err)
	}
}

func TestController_ReviewMode(t *testing.T) {
	exam := testExam()
	deps, results, _, sink, fs := testDeps(exam)
	ctx := context.Background()

	results.prior = []model.ExamResult{{
		ExamID: exam.ID,
		UserID: deps.UserID,
		Answers: map[string]model.SectionAnswers{
			"Physics": {Entries: map[string]string{
				exam.Sections[0].Questions[0].ID.String(): "4",
			}},
		},
		QuestionStatuses: map[string]map[int]model.QuestionStatus{
			"Physics": {0: model.StatusAnswered, 1: model.StatusMarkedForReview},
		},
		Statistics: model.Statistics{
			QuestionTimes: map[string]map[int]int{"Physics": {0: 42}},
		},
		Status: model.ResultStatusCompleted,
	}}

	c, err := New(ctx, deps)
	if err != nil {
		t.Fatal(err)
	}

	if !c.Submitted() {
		t.Fatal("session with a prior result must open in review mode")
	}
	if err := c.Begin(ctx); !errors.Is(err, ErrSessionSubmitted) {
		t.Errorf("Begin in review mode err = %v", err)
	}
	if c.timer != nil {
		t.Error("timer started in review mode")
	}
	if fs.count() != 0 {
		t.Error("lockdown activated in review mode")
	}
	if sink.count() != 0 {
		t.Error("violations recorded in review mode")
	}
	if c.Remaining() != 0 {
		t.Errorf("remaining in review mode = %d", c.Remaining())
	}

	// Rehydrated state is visible and frozen.
	physics := exam.Sections[0]
	if got, ok := c.answers.Get(physics.ID, physics.Questions[0].ID); !ok || got != "4" {
		t.Errorf("rehydrated answer = %q ok=%v", got, ok)
	}
	if got := c.statuses.Get(physics.ID, 1); got != model.StatusMarkedForReview {
		t.Errorf("rehydrated status = %q", got)
	}
	if got := c.times.Get(physics.ID, 0); got != 42*time.Second {
		t.Errorf("rehydrated time = %v", got)
	}
	if err := c.SetAnswer(physics.ID, physics.Questions[0].ID, "5"); !errors.Is(err, ErrSessionSubmitted) {
		t.Errorf("review-mode SetAnswer err = %v", err)
	}

	// Navigation stays open for browsing solutions.
	if mv := c.Next(); !mv.Moved {
		t.Error("review-mode navigation blocked")
	}
}

func TestController_EarlySubmitNeedsConfirmation(t *testing.T) {
	exam := testExam()
	exam.DurationMinutes = 30
	deps, results, _, _, _ := testDeps(exam)
	ctx := context.Background()

	c, err := New(ctx, deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Begin(ctx); err != nil {
		t.Fatal(err)
	}
	defer c.timer.Stop()

	if _, err := c.Submit(ctx, false); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("unconfirmed early submit err = %v", err)
	}
	if c.Submitted() {
		t.Fatal("rejected submit must not finish the session")
	}
	if results.persistedCount() != 0 {
		t.Fatal("rejected submit persisted a result")
	}

	if _, err := c.Submit(ctx, true); err != nil {
		t.Fatalf("confirmed submit err = %v", err)
	}
	if results.persistedCount() != 1 {
		t.Errorf("persisted %d results, want 1", results.persistedCount())
	}
}

func TestController_PersistFailureRetry(t *testing.T) {
	exam := testExam()
	deps, results, _, _, _ := testDeps(exam)
	ctx := context.Background()

	c, err := New(ctx, deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Begin(ctx); err != nil {
		t.Fatal(err)
	}
	defer c.timer.Stop()

	physics := exam.Sections[0]
	if err := c.SetAnswer(physics.ID, physics.Questions[0].ID, "4"); err != nil {
		t.Fatal(err)
	}

	results.persistErr = errStoreDown
	if _, err := c.Submit(ctx, false); !errors.Is(err, errStoreDown) {
		t.Fatalf("submit with failing store err = %v", err)
	}

	// The session is terminal and the scored result is retained.
	if !c.Submitted() {
		t.Fatal("persist failure must still finish the session")
	}
	pending := c.Result()
	if pending == nil || pending.Statistics.QuestionsAttempted != 1 {
		t.Fatalf("pending result = %+v", pending)
	}

	// Retry persists the retained result without rescoring.
	results.mu.Lock()
	results.persistErr = nil
	results.mu.Unlock()
	got, err := c.RetrySubmit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != pending {
		t.Error("retry persisted a different result than the retained one")
	}
	if results.persistedCount() != 1 {
		t.Errorf("persisted %d results, want 1", results.persistedCount())
	}
	if _, err := c.RetrySubmit(ctx); !errors.Is(err, ErrNoPendingResult) {
		t.Errorf("second retry err = %v", err)
	}
}

func TestController_AutoSubmitOnExpiry(t *testing.T) {
	exam := testExam()
	deps, results, cp, _, _ := testDeps(exam)
	ctx := context.Background()

	done := make(chan *model.ExamResult, 1)
	deps.OnAutoSubmit = func(result *model.ExamResult, err error) {
		if err != nil {
			t.Errorf("auto-submit err = %v", err)
		}
		done <- result
	}

	// A checkpointed deadline just ahead of now makes the countdown expire
	// on its first ticks.
	if err := cp.SaveDeadline(ctx, deps.UserID, exam.ID, time.Now().Add(50*time.Millisecond)); err != nil {
		t.Fatal(err)
	}

	c, err := New(ctx, deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Begin(ctx); err != nil {
		t.Fatal(err)
	}

	select {
	case result := <-done:
		if result == nil {
			t.Fatal("auto-submit delivered nil result")
		}
		if result.Status != model.ResultStatusCompleted {
			t.Errorf("auto-submitted status = %q", result.Status)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("countdown expiry never auto-submitted")
	}

	if !c.Submitted() {
		t.Error("session not terminal after auto-submit")
	}
	if results.persistedCount() != 1 {
		t.Errorf("persisted %d results, want 1", results.persistedCount())
	}
}

func TestController_BeginResumesCheckpointedDeadline(t *testing.T) {
	exam := testExam() // one minute duration
	deps, _, cp, _, _ := testDeps(exam)
	ctx := context.Background()

	persisted := time.Now().Add(90 * time.Second)
	if err := cp.SaveDeadline(ctx, deps.UserID, exam.ID, persisted); err != nil {
		t.Fatal(err)
	}

	c, err := New(ctx, deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Begin(ctx); err != nil {
		t.Fatal(err)
	}
	defer c.timer.Stop()

	if r := c.Remaining(); r < 85 || r > 90 {
		t.Errorf("remaining after resume = %d, want ~90", r)
	}
}

func TestController_ClearAnswerDowngradesStatus(t *testing.T) {
	exam := testExam()
	deps, _, _, _, _ := testDeps(exam)
	ctx := context.Background()

	c, err := New(ctx, deps)
	if err != nil {
		t.Fatal(err)
	}

	physics := exam.Sections[0]
	q := physics.Questions[0]
	if err := c.SetAnswer(physics.ID, q.ID, "4"); err != nil {
		t.Fatal(err)
	}
	c.SaveAndNext()
	if got := c.statuses.Get(physics.ID, 0); got != model.StatusAnswered {
		t.Fatalf("status after save = %q", got)
	}

	if err := c.ClearAnswer(physics.ID, q.ID); err != nil {
		t.Fatal(err)
	}
	if c.answers.Has(physics.ID, q.ID) {
		t.Error("answer still present after clear")
	}
	if got := c.statuses.Get(physics.ID, 0); got != model.StatusNotAnswered {
		t.Errorf("status after clear = %q, want %q", got, model.StatusNotAnswered)
	}
}

func TestController_UnknownQuestion(t *testing.T) {
	exam := testExam()
	deps, _, _, _, _ := testDeps(exam)
	c, err := New(context.Background(), deps)
	if err != nil {
		t.Fatal(err)
	}

	physics := exam.Sections[0]
	bogus := exam.Sections[1].Questions[0].ID // belongs to chemistry
	if err := c.SetAnswer(physics.ID, bogus, "a"); !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("SetAnswer with foreign question err = %v", err)
	}
	if err := c.ClearAnswer(bogus, bogus); !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("ClearAnswer with unknown section err = %v", err)
	}
}

func TestController_StatusCounts(t *testing.T) {
	exam := testExam()
	deps, _, _, _, _ := testDeps(exam)
	c, err := New(context.Background(), deps)
	if err != nil {
		t.Fatal(err)
	}

	physics := exam.Sections[0]
	if err := c.SetAnswer(physics.ID, physics.Questions[0].ID, "4"); err != nil {
		t.Fatal(err)
	}
	c.SaveAndNext()

	counts, err := c.StatusCounts(physics.ID)
	if err != nil {
		t.Fatal(err)
	}
	if counts[model.StatusAnswered] != 1 || counts[model.StatusNotAnswered] != 1 {
		t.Errorf("physics counts = %v", counts)
	}

	counts, err = c.StatusCounts(exam.Sections[1].ID)
	if err != nil {
		t.Fatal(err)
	}
	if counts[model.StatusNotVisited] != 2 {
		t.Errorf("chemistry counts = %v", counts)
	}
}

func TestController_RejectsDegenerateExam(t *testing.T) {
	ctx := context.Background()

	hollow := testExam()
	hollow.Sections[1].Questions = nil
	deps, _, _, _, _ := testDeps(hollow)
	if _, err := New(ctx, deps); err == nil {
		t.Error("session built over a section with no questions")
	}

	bare := testExam()
	bare.Sections = nil
	deps, _, _, _, _ = testDeps(bare)
	if _, err := New(ctx, deps); err == nil {
		t.Error("session built over an exam with no sections")
	}
}
