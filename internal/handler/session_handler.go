package handler

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prepnest/assess-backend/internal/middleware"
	"github.com/prepnest/assess-backend/internal/model"
	"github.com/prepnest/assess-backend/internal/repository"
	"github.com/prepnest/assess-backend/internal/response"
	"github.com/prepnest/assess-backend/internal/session"
	"github.com/prepnest/assess-backend/internal/validator"
)

// SessionHandler serves the REST side of exam sessions: the catalog, the
// exam paper, recovery state for a reconnecting client, and the beacon
// fallback for violations that outlive the socket.
type SessionHandler struct {
	exams      *repository.ExamRepository
	results    session.ResultStore
	checkpoint session.CheckpointStore
	violations session.ViolationSink
	log        zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(exams *repository.ExamRepository, results session.ResultStore, checkpoint session.CheckpointStore, violations session.ViolationSink, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		exams:      exams,
		results:    results,
		checkpoint: checkpoint,
		violations: violations,
		log:        log.With().Str("component", "session_handler").Logger(),
	}
}

// ListExams godoc
// GET /api/v1/exams
func (h *SessionHandler) ListExams(c *gin.Context) {
	exams, err := h.exams.ListExams(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("List exams failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, exams)
}

// GetExamPaper godoc
// GET /api/v1/exams/:exam_id/paper
// Returns the full paper. Correct answers and solutions are stripped
// unless the caller has already submitted this exam.
func (h *SessionHandler) GetExamPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.exams.LoadExam(c.Request.Context(), examID)
	if err != nil {
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Load exam failed")
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	prior, err := h.priorResult(c, claims.UserID, examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrLoadFailed)
		return
	}
	if prior == nil {
		exam = sanitizePaper(exam)
	}
	response.Success(c, http.StatusOK, exam)
}

// sessionState is the recovery payload for a client picking a session
// back up.
type sessionState struct {
	Status           string            `json:"status"` // active | submitted | not_started
	RemainingSeconds int               `json:"remaining_seconds,omitempty"`
	Result           *model.ExamResult `json:"result,omitempty"`
}

// GetSessionState godoc
// GET /api/v1/exams/:exam_id/state
func (h *SessionHandler) GetSessionState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	prior, err := h.priorResult(c, claims.UserID, examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrLoadFailed)
		return
	}
	if prior != nil {
		response.Success(c, http.StatusOK, sessionState{Status: "submitted", Result: prior})
		return
	}

	deadline, ok, err := h.checkpoint.LoadDeadline(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		h.log.Warn().Err(err).Msg("Checkpoint read failed")
	}
	if err != nil || !ok {
		response.Success(c, http.StatusOK, sessionState{Status: "not_started"})
		return
	}

	remaining := int(math.Ceil(time.Until(deadline).Seconds()))
	if remaining < 0 {
		remaining = 0
	}
	response.Success(c, http.StatusOK, sessionState{Status: "active", RemainingSeconds: remaining})
}

// violationRequest is the beacon payload for lockdown events the socket
// could not deliver, page unloads in particular.
type violationRequest struct {
	Event      string `json:"event" binding:"required"`
	Detail     string `json:"detail"`
	OccurredAt int64  `json:"occurred_at"` // unix millis, zero means now
}

// ReportViolation godoc
// POST /api/v1/exams/:exam_id/violations
func (h *SessionHandler) ReportViolation(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req violationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	occurredAt := time.Now()
	if req.OccurredAt > 0 {
		occurredAt = time.UnixMilli(req.OccurredAt)
	}

	v := session.Violation{
		UserID:     claims.UserID,
		ExamID:     examID,
		Event:      session.LockdownEvent(req.Event),
		Detail:     req.Detail,
		OccurredAt: occurredAt,
	}
	if err := h.violations.Record(c.Request.Context(), v); err != nil {
		h.log.Error().Err(err).Msg("Violation record failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"status": "recorded"})
}

func (h *SessionHandler) priorResult(c *gin.Context, userID string, examID uuid.UUID) (*model.ExamResult, error) {
	results, err := h.results.LoadPriorResults(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Load prior results failed")
		return nil, err
	}
	for i := range results {
		if results[i].ExamID == examID {
			return &results[i], nil
		}
	}
	return nil, nil
}

// sanitizePaper strips grading material from a paper served to a live
// session.
func sanitizePaper(exam *model.ExamRecord) *model.ExamRecord {
	out := *exam
	out.Sections = make([]model.Section, len(exam.Sections))
	for i, sec := range exam.Sections {
		out.Sections[i] = sec
		out.Sections[i].Questions = make([]model.Question, len(sec.Questions))
		for j, q := range sec.Questions {
			q.CorrectAnswer = ""
			q.Solution = nil
			out.Sections[i].Questions[j] = q
		}
	}
	return &out
}
