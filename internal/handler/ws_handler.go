package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/prepnest/assess-backend/internal/middleware"
	"github.com/prepnest/assess-backend/internal/model"
	"github.com/prepnest/assess-backend/internal/response"
	"github.com/prepnest/assess-backend/internal/session"
	ws "github.com/prepnest/assess-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler runs exam sessions over WebSocket. Each connection owns one
// session.Controller; the countdown and lockdown live exactly as long as
// the connection, while the deadline checkpoint survives reconnects.
type WSHandler struct {
	exams      session.ExamStore
	results    session.ResultStore
	checkpoint session.CheckpointStore
	violations session.ViolationSink
	log        zerolog.Logger
	upgrader   websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(exams session.ExamStore, results session.ResultStore, checkpoint session.CheckpointStore, violations session.ViolationSink, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		exams:      exams,
		results:    results,
		checkpoint: checkpoint,
		violations: violations,
		log:        log.With().Str("component", "ws_handler").Logger(),
		upgrader:   buildUpgrader(allowedOrigins),
	}
}

// wsFullscreen pushes fullscreen requests to the client over the session
// connection.
type wsFullscreen struct {
	conn *ws.Conn
}

func (f *wsFullscreen) RequestFullscreen(_ context.Context) error {
	return f.conn.WriteTyped(ws.FullscreenResponse{Event: ws.EventFullscreen})
}

// SessionStream godoc
// WS /ws/v1/exams/:exam_id/session
// Upgrades to WebSocket and drives one exam session end to end.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Str("user_id", claims.UserID).
		Str("exam_id", examID.String()).
		Logger()

	ctx := c.Request.Context()
	ctrl, err := session.New(ctx, session.Deps{
		UserID:     claims.UserID,
		ExamID:     examID,
		Exams:      h.exams,
		Results:    h.results,
		Checkpoint: h.checkpoint,
		Violations: h.violations,
		Fullscreen: &wsFullscreen{conn: conn},
		OnTick: func(remaining int) {
			_ = conn.WriteTyped(ws.TickResponse{Event: ws.EventTick, Remaining: remaining})
		},
		OnAutoSubmit: func(result *model.ExamResult, err error) {
			_ = conn.WriteTyped(ws.ExpiredResponse{Event: ws.EventExpired})
			if err != nil {
				_ = conn.WriteError(string(response.ErrPersistFailed), response.GetMessage(response.ErrPersistFailed))
				return
			}
			_ = conn.WriteTyped(ws.SubmittedResponse{Event: ws.EventSubmitted, Forced: true, Result: result})
		},
		Log: wsLog,
	})
	if err != nil {
		wsLog.Error().Err(err).Msg("Session build failed")
		_ = conn.WriteError(string(response.ErrLoadFailed), response.GetMessage(response.ErrLoadFailed))
		return
	}

	// Review sessions skip the countdown and lockdown entirely.
	if !ctrl.Submitted() {
		if err := ctrl.Begin(ctx); err != nil {
			wsLog.Error().Err(err).Msg("Session begin failed")
			_ = conn.WriteError(string(response.ErrInternal), response.GetMessage(response.ErrInternal))
			return
		}
	}

	wsLog.Info().Bool("review", ctrl.Submitted()).Msg("Session connected")
	h.pushState(conn, ctrl, session.Move{Moved: true})

	for {
		var env ws.RequestEnvelope
		data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}
		if err := decode(data, &env); err != nil {
			_ = conn.WriteError(string(response.ErrInvalidPayload), response.GetMessage(response.ErrInvalidPayload))
			continue
		}

		switch env.Action {
		case ws.ActionAnswer:
			h.handleAnswer(conn, ctrl, data)
		case ws.ActionClear:
			h.handleClear(conn, ctrl, data)
		case ws.ActionNavigate:
			h.handleNavigate(conn, ctrl, data)
		case ws.ActionSaveNext:
			h.pushState(conn, ctrl, ctrl.SaveAndNext())
		case ws.ActionMarkReview:
			h.pushState(conn, ctrl, ctrl.MarkForReviewAndNext())
		case ws.ActionLockdown:
			h.handleLockdown(ctx, conn, ctrl, data)
		case ws.ActionConfirmFullscreen:
			ctrl.ConfirmFullscreenReturn(ctx)
		case ws.ActionSubmit:
			h.handleSubmit(ctx, conn, ctrl, data, wsLog)
		case ws.ActionRetrySubmit:
			h.handleRetrySubmit(ctx, conn, ctrl, wsLog)
		case ws.ActionPing:
			_ = conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(env.Action)).Msg("Unknown action")
			_ = conn.WriteError(string(response.ErrInvalidPayload), "unknown action: "+string(env.Action))
		}
	}
}

func (h *WSHandler) handleAnswer(conn *ws.Conn, ctrl *session.Controller, data []byte) {
	var req ws.AnswerRequest
	if err := decode(data, &req); err != nil {
		_ = conn.WriteError(string(response.ErrInvalidPayload), response.GetMessage(response.ErrInvalidPayload))
		return
	}
	sectionID, err1 := uuid.Parse(req.SectionID)
	questionID, err2 := uuid.Parse(req.QuestionID)
	if err1 != nil || err2 != nil {
		_ = conn.WriteError(string(response.ErrInvalidID), response.GetMessage(response.ErrInvalidID))
		return
	}
	if err := ctrl.SetAnswer(sectionID, questionID, req.Answer); err != nil {
		writeSessionError(conn, err)
		return
	}
	_ = conn.WriteTyped(ws.SavedResponse{Event: ws.EventSaved, Status: "saved"})
}

func (h *WSHandler) handleClear(conn *ws.Conn, ctrl *session.Controller, data []byte) {
	var req ws.ClearRequest
	if err := decode(data, &req); err != nil {
		_ = conn.WriteError(string(response.ErrInvalidPayload), response.GetMessage(response.ErrInvalidPayload))
		return
	}
	sectionID, err1 := uuid.Parse(req.SectionID)
	questionID, err2 := uuid.Parse(req.QuestionID)
	if err1 != nil || err2 != nil {
		_ = conn.WriteError(string(response.ErrInvalidID), response.GetMessage(response.ErrInvalidID))
		return
	}
	if err := ctrl.ClearAnswer(sectionID, questionID); err != nil {
		writeSessionError(conn, err)
		return
	}
	_ = conn.WriteTyped(ws.SavedResponse{Event: ws.EventSaved, Status: "cleared"})
}

func (h *WSHandler) handleNavigate(conn *ws.Conn, ctrl *session.Controller, data []byte) {
	var req ws.NavigateRequest
	if err := decode(data, &req); err != nil {
		_ = conn.WriteError(string(response.ErrInvalidPayload), response.GetMessage(response.ErrInvalidPayload))
		return
	}

	switch req.Target {
	case "next":
		h.pushState(conn, ctrl, ctrl.Next())
	case "prev":
		h.pushState(conn, ctrl, ctrl.Previous())
	case "question":
		if err := ctrl.GoToQuestion(req.Index); err != nil {
			writeSessionError(conn, err)
			return
		}
		h.pushState(conn, ctrl, session.Move{Moved: true})
	case "section":
		sectionID, err := uuid.Parse(req.SectionID)
		if err != nil {
			_ = conn.WriteError(string(response.ErrInvalidID), response.GetMessage(response.ErrInvalidID))
			return
		}
		if err := ctrl.GoToSection(sectionID, req.Index); err != nil {
			writeSessionError(conn, err)
			return
		}
		h.pushState(conn, ctrl, session.Move{Moved: true, SectionChanged: true})
	default:
		_ = conn.WriteError(string(response.ErrInvalidPayload), "unknown navigate target: "+req.Target)
	}
}

func (h *WSHandler) handleLockdown(ctx context.Context, conn *ws.Conn, ctrl *session.Controller, data []byte) {
	var req ws.LockdownRequest
	if err := decode(data, &req); err != nil {
		_ = conn.WriteError(string(response.ErrInvalidPayload), response.GetMessage(response.ErrInvalidPayload))
		return
	}
	verdict := ctrl.HandleLockdownEvent(ctx, session.LockdownEvent(req.Event), req.Detail)
	_ = conn.WriteTyped(ws.VerdictResponse{Event: ws.EventVerdict, Verdict: verdict})
}

func (h *WSHandler) handleSubmit(ctx context.Context, conn *ws.Conn, ctrl *session.Controller, data []byte, wsLog zerolog.Logger) {
	var req ws.SubmitRequest
	if err := decode(data, &req); err != nil {
		_ = conn.WriteError(string(response.ErrInvalidPayload), response.GetMessage(response.ErrInvalidPayload))
		return
	}

	result, err := ctrl.Submit(ctx, req.Confirmed)
	if err != nil {
		writeSessionError(conn, err)
		return
	}

	wsLog.Info().
		Int("attempted", result.Statistics.QuestionsAttempted).
		Msg("Session submitted")
	_ = conn.WriteTyped(ws.SubmittedResponse{Event: ws.EventSubmitted, Forced: false, Result: result})
}

func (h *WSHandler) handleRetrySubmit(ctx context.Context, conn *ws.Conn, ctrl *session.Controller, wsLog zerolog.Logger) {
	result, err := ctrl.RetrySubmit(ctx)
	if err != nil {
		writeSessionError(conn, err)
		return
	}
	wsLog.Info().Msg("Pending result persisted on retry")
	_ = conn.WriteTyped(ws.SubmittedResponse{Event: ws.EventSubmitted, Forced: false, Result: result})
}

// pushState sends the cursor position and the palette counts for the
// section in view.
func (h *WSHandler) pushState(conn *ws.Conn, ctrl *session.Controller, mv session.Move) {
	sectionID, index := ctrl.Position()
	counts, _ := ctrl.StatusCounts(sectionID)
	_ = conn.WriteTyped(ws.StateResponse{
		Event:          ws.EventState,
		SectionID:      sectionID.String(),
		Index:          index,
		SectionChanged: mv.SectionChanged,
		Moved:          mv.Moved,
		Counts:         counts,
	})
}

// writeSessionError maps session errors onto wire error codes. Unmapped
// errors come from the persistence path and are reported as such, the
// result stays retained for retry.
func writeSessionError(conn *ws.Conn, err error) {
	code := response.ErrPersistFailed
	switch {
	case errors.Is(err, session.ErrSessionSubmitted):
		code = response.ErrSessionSubmitted
	case errors.Is(err, session.ErrConfirmationRequired):
		code = response.ErrConfirmationRequired
	case errors.Is(err, session.ErrQuestionNotFound):
		code = response.ErrQuestionNotFound
	case errors.Is(err, session.ErrNoPendingResult):
		code = response.ErrNoPendingResult
	case errors.Is(err, session.ErrUnknownSection), errors.Is(err, session.ErrIndexOutOfRange):
		code = response.ErrNavigation
	}
	_ = conn.WriteError(string(code), response.GetMessage(code))
}

func decode(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
