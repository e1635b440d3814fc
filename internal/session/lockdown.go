package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LockdownEvent is a client-reported interaction the monitor may intercept.
type LockdownEvent string

const (
	EventFullscreenExit  LockdownEvent = "fullscreen_exit"
	EventEscapeKey       LockdownEvent = "escape_key"
	EventReloadShortcut  LockdownEvent = "reload_shortcut"
	EventHistoryShortcut LockdownEvent = "history_shortcut"
	EventPageUnload      LockdownEvent = "page_unload"
	EventContextMenu     LockdownEvent = "context_menu"
)

// Verdict tells the client what to do with an intercepted event.
type Verdict struct {
	// Cancel means the client must prevent the default action.
	Cancel bool `json:"cancel"`
	// PromptFullscreen means the client must show the blocking
	// return-to-fullscreen prompt.
	PromptFullscreen bool `json:"prompt_fullscreen"`
}

// Violation is one recorded lockdown event.
type Violation struct {
	UserID     string        `json:"user_id"`
	ExamID     uuid.UUID     `json:"exam_id"`
	Event      LockdownEvent `json:"event"`
	Detail     string        `json:"detail,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// ViolationSink receives violations for out-of-band persistence.
type ViolationSink interface {
	Record(ctx context.Context, v Violation) error
}

// FullscreenRequester asks the client to (re-)enter fullscreen.
type FullscreenRequester interface {
	RequestFullscreen(ctx context.Context) error
}

// LockdownMonitor enforces fullscreen and input blocking while a session
// is active and unsubmitted. Event handlers are registered on Activate and
// removed on Deactivate, so a finished session leaks nothing into the next.
// Fullscreen failures are logged, never fatal: denying exam access over a
// browser quirk is worse than a weaker lockdown.
type LockdownMonitor struct {
	userID     string
	examID     uuid.UUID
	sink       ViolationSink
	fullscreen FullscreenRequester
	log        zerolog.Logger

	active   bool
	handlers map[LockdownEvent]Verdict

	now func() time.Time
}

// NewLockdownMonitor creates an inactive monitor.
func NewLockdownMonitor(userID string, examID uuid.UUID, sink ViolationSink, fullscreen FullscreenRequester, log zerolog.Logger) *LockdownMonitor {
	return &LockdownMonitor{
		userID:     userID,
		examID:     examID,
		sink:       sink,
		fullscreen: fullscreen,
		log:        log.With().Str("component", "lockdown").Logger(),
		now:        time.Now,
	}
}

// Activate registers the handler set and requests fullscreen.
func (m *LockdownMonitor) Activate(ctx context.Context) {
	if m.active {
		return
	}
	m.active = true
	m.handlers = map[LockdownEvent]Verdict{
		EventFullscreenExit:  {PromptFullscreen: true},
		EventEscapeKey:       {Cancel: true, PromptFullscreen: true},
		EventReloadShortcut:  {Cancel: true},
		EventHistoryShortcut: {Cancel: true},
		EventPageUnload:      {Cancel: true},
		EventContextMenu:     {Cancel: true},
	}
	m.requestFullscreen(ctx)
}

// Deactivate removes every registered handler. Called on submission or
// teardown.
func (m *LockdownMonitor) Deactivate() {
	m.active = false
	m.handlers = nil
}

// Active reports whether the monitor is enforcing.
func (m *LockdownMonitor) Active() bool {
	return m.active
}

// HandleEvent decides what the client must do with an event. Inactive
// monitors let everything through. Handled events are recorded as
// violations; sink failures are logged and do not change the verdict.
func (m *LockdownMonitor) HandleEvent(ctx context.Context, ev LockdownEvent, detail string) Verdict {
	if !m.active {
		return Verdict{}
	}
	verdict, ok := m.handlers[ev]
	if !ok {
		return Verdict{}
	}

	if err := m.sink.Record(ctx, Violation{
		UserID:     m.userID,
		ExamID:     m.examID,
		Event:      ev,
		Detail:     detail,
		OccurredAt: m.now(),
	}); err != nil {
		m.log.Error().Err(err).Str("event", string(ev)).Msg("Violation record failed")
	}
	return verdict
}

// ConfirmReturn handles the user confirming the return-to-fullscreen
// prompt by re-requesting fullscreen.
func (m *LockdownMonitor) ConfirmReturn(ctx context.Context) {
	if !m.active {
		return
	}
	m.requestFullscreen(ctx)
}

func (m *LockdownMonitor) requestFullscreen(ctx context.Context) {
	if err := m.fullscreen.RequestFullscreen(ctx); err != nil {
		m.log.Warn().Err(err).Msg("Fullscreen request failed, continuing without hard lock")
	}
}
