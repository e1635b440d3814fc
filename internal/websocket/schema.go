package websocket

import (
	"github.com/prepnest/assess-backend/internal/model"
	"github.com/prepnest/assess-backend/internal/session"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer            Action = "answer"
	ActionClear             Action = "clear"
	ActionNavigate          Action = "navigate"
	ActionSaveNext          Action = "save_next"
	ActionMarkReview        Action = "mark_review"
	ActionLockdown          Action = "lockdown"
	ActionConfirmFullscreen Action = "confirm_fullscreen"
	ActionSubmit            Action = "submit"
	ActionRetrySubmit       Action = "retry_submit"
	ActionPing              Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest stores or replaces the answer for one question.
type AnswerRequest struct {
	Action     Action `json:"action"`
	SectionID  string `json:"section_id"`
	QuestionID string `json:"question_id"`
	Answer     string `json:"ans"`
}

// ClearRequest removes the answer for one question.
type ClearRequest struct {
	Action     Action `json:"action"`
	SectionID  string `json:"section_id"`
	QuestionID string `json:"question_id"`
}

// NavigateRequest moves the session cursor. Target is "next", "prev",
// "question" (Index within the current section) or "section" (SectionID
// plus Index).
type NavigateRequest struct {
	Action    Action `json:"action"`
	Target    string `json:"target"`
	SectionID string `json:"section_id,omitempty"`
	Index     int    `json:"index,omitempty"`
}

// LockdownRequest reports a client-side lockdown event.
type LockdownRequest struct {
	Action Action `json:"action"`
	Event  string `json:"event"`
	Detail string `json:"detail,omitempty"`
}

// SubmitRequest finishes the session. Confirmed acknowledges the
// early-submission prompt.
type SubmitRequest struct {
	Action    Action `json:"action"`
	Confirmed bool   `json:"confirmed"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState      Event = "state"
	EventSaved      Event = "saved"
	EventVerdict    Event = "verdict"
	EventTick       Event = "tick"
	EventExpired    Event = "expired"
	EventSubmitted  Event = "submitted"
	EventFullscreen Event = "fullscreen"
	EventError      Event = "error"
	EventPong       Event = "pong"
)

// StateResponse describes the cursor position after a navigation, with the
// palette counts for the section the cursor sits in.
type StateResponse struct {
	Event          Event                        `json:"event"`
	SectionID      string                       `json:"section_id"`
	Index          int                          `json:"index"`
	SectionChanged bool                         `json:"section_changed,omitempty"`
	Moved          bool                         `json:"moved"`
	Counts         map[model.QuestionStatus]int `json:"counts,omitempty"`
}

// SavedResponse acknowledges an answer mutation.
type SavedResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

// VerdictResponse carries the lockdown monitor's decision for a reported
// event.
type VerdictResponse struct {
	Event   Event           `json:"event"`
	Verdict session.Verdict `json:"verdict"`
}

// TickResponse carries the remaining whole seconds.
type TickResponse struct {
	Event     Event `json:"event"`
	Remaining int   `json:"remaining"`
}

// ExpiredResponse tells the client the countdown reached zero and the
// session was force-submitted.
type ExpiredResponse struct {
	Event Event `json:"event"`
}

// SubmittedResponse carries the final result after any submission path.
type SubmittedResponse struct {
	Event  Event             `json:"event"`
	Forced bool              `json:"forced"`
	Result *model.ExamResult `json:"result"`
}

// FullscreenResponse asks the client to (re-)enter fullscreen.
type FullscreenResponse struct {
	Event Event `json:"event"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
