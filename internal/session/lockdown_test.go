package session

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestMonitor(sink *fakeViolationSink, fs *fakeFullscreen) *LockdownMonitor {
	return NewLockdownMonitor("user-1", uuid.New(), sink, fs, zerolog.Nop())
}

func TestLockdownMonitor_Verdicts(t *testing.T) {
	sink := &fakeViolationSink{}
	fs := &fakeFullscreen{}
	m := newTestMonitor(sink, fs)
	ctx := context.Background()
	m.Activate(ctx)

	tests := []struct {
		event LockdownEvent
		want  Verdict
	}{
		{EventFullscreenExit, Verdict{PromptFullscreen: true}},
		{EventEscapeKey, Verdict{Cancel: true, PromptFullscreen: true}},
		{EventReloadShortcut, Verdict{Cancel: true}},
		{EventHistoryShortcut, Verdict{Cancel: true}},
		{EventPageUnload, Verdict{Cancel: true}},
		{EventContextMenu, Verdict{Cancel: true}},
	}
	for _, tt := range tests {
		if got := m.HandleEvent(ctx, tt.event, ""); got != tt.want {
			t.Errorf("%s: verdict = %+v, want %+v", tt.event, got, tt.want)
		}
	}
	if sink.count() != len(tests) {
		t.Errorf("recorded %d violations, want %d", sink.count(), len(tests))
	}
}

func TestLockdownMonitor_InactiveLetsEverythingThrough(t *testing.T) {
	sink := &fakeViolationSink{}
	fs := &fakeFullscreen{}
	m := newTestMonitor(sink, fs)
	ctx := context.Background()

	if got := m.HandleEvent(ctx, EventEscapeKey, ""); got != (Verdict{}) {
		t.Errorf("inactive monitor verdict = %+v, want empty", got)
	}
	if sink.count() != 0 {
		t.Errorf("inactive monitor recorded %d violations", sink.count())
	}
	if fs.count() != 0 {
		t.Errorf("inactive monitor requested fullscreen %d times", fs.count())
	}
}

func TestLockdownMonitor_DeactivateRemovesHandlers(t *testing.T) {
	sink := &fakeViolationSink{}
	fs := &fakeFullscreen{}
	m := newTestMonitor(sink, fs)
	ctx := context.Background()

	m.Activate(ctx)
	m.Deactivate()

	if m.Active() {
		t.Fatal("monitor still active after Deactivate")
	}
	if got := m.HandleEvent(ctx, EventReloadShortcut, ""); got != (Verdict{}) {
		t.Errorf("deactivated monitor verdict = %+v, want empty", got)
	}
	if sink.count() != 0 {
		t.Errorf("deactivated monitor recorded %d violations", sink.count())
	}
}

func TestLockdownMonitor_ActivateRequestsFullscreen(t *testing.T) {
	sink := &fakeViolationSink{}
	fs := &fakeFullscreen{}
	m := newTestMonitor(sink, fs)
	ctx := context.Background()

	m.Activate(ctx)
	m.Activate(ctx) // second activation is a no-op
	if fs.count() != 1 {
		t.Errorf("fullscreen requests = %d, want 1", fs.count())
	}

	m.ConfirmReturn(ctx)
	if fs.count() != 2 {
		t.Errorf("fullscreen requests after return = %d, want 2", fs.count())
	}
}

func TestLockdownMonitor_FullscreenFailureNotFatal(t *testing.T) {
	sink := &fakeViolationSink{}
	fs := &fakeFullscreen{err: errStoreDown}
	m := newTestMonitor(sink, fs)
	ctx := context.Background()

	m.Activate(ctx)
	if !m.Active() {
		t.Fatal("fullscreen failure must not prevent activation")
	}
	if got := m.HandleEvent(ctx, EventContextMenu, ""); !got.Cancel {
		t.Errorf("verdict after fullscreen failure = %+v, want Cancel", got)
	}
}

func TestLockdownMonitor_SinkFailureKeepsVerdict(t *testing.T) {
	sink := &fakeViolationSink{err: errStoreDown}
	fs := &fakeFullscreen{}
	m := newTestMonitor(sink, fs)
	ctx := context.Background()

	m.Activate(ctx)
	if got := m.HandleEvent(ctx, EventEscapeKey, ""); !got.Cancel || !got.PromptFullscreen {
		t.Errorf("verdict with failing sink = %+v, want full verdict", got)
	}
}

func TestLockdownMonitor_ViolationFields(t *testing.T) {
	sink := &fakeViolationSink{}
	fs := &fakeFullscreen{}
	m := newTestMonitor(sink, fs)
	ctx := context.Background()

	m.Activate(ctx)
	m.HandleEvent(ctx, EventHistoryShortcut, "alt+left")

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.violations) != 1 {
		t.Fatalf("violations = %d, want 1", len(sink.violations))
	}
	v := sink.violations[0]
	if v.UserID != "user-1" || v.Event != EventHistoryShortcut || v.Detail != "alt+left" {
		t.Errorf("violation = %+v", v)
	}
	if v.OccurredAt.IsZero() {
		t.Error("violation missing timestamp")
	}
}
