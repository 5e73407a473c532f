package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prepgrid/testprep-backend/internal/middleware"
	"github.com/prepgrid/testprep-backend/internal/model"
	"github.com/prepgrid/testprep-backend/internal/response"
	"github.com/prepgrid/testprep-backend/internal/service"
	"github.com/prepgrid/testprep-backend/internal/session"
	"github.com/prepgrid/testprep-backend/internal/validator"
)

// SessionHandler exposes the live attempt state machine over HTTP:
// start, navigation, answering, review marks, and proctor events.
type SessionHandler struct {
	attemptService *service.AttemptService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(attemptService *service.AttemptService) *SessionHandler {
	return &SessionHandler{attemptService: attemptService}
}

// liveSession resolves the attempt id param and ownership in one place.
// On failure the response has already been written.
func (h *SessionHandler) liveSession(c *gin.Context) (*session.AttemptSession, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}

	sess, err := h.attemptService.LiveSession(attemptID, claims.UserID)
	if err != nil {
		if err == service.ErrAttemptNotOwned {
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		} else {
			response.Fail(c, http.StatusNotFound, response.ErrAttemptNotLive)
		}
		return nil, uuid.Nil, false
	}
	return sess, attemptID, true
}

// sessionState is the shared snapshot sent back after every mutation, so
// clients can render without a follow-up fetch.
func sessionState(sess *session.AttemptSession) gin.H {
	answers, times := sess.Snapshot()
	return gin.H{
		"status":            sess.Status(),
		"current_index":     sess.CurrentIndex(),
		"remaining_seconds": sess.RemainingSeconds(),
		"statuses":          sess.Statuses(),
		"answered":          sess.TotalAnswered(),
		"marked_for_review": sess.TotalMarkedForReview(),
		"answers":           answers,
		"times":             times,
	}
}

// Start godoc
// POST /api/v1/attempts/:attempt_id/session/start
// Transitions the session to in_progress and starts the clock.
func (h *SessionHandler) Start(c *gin.Context) {
	sess, _, ok := h.liveSession(c)
	if !ok {
		return
	}

	sess.Start()
	response.Success(c, http.StatusOK, sessionState(sess))
}

// State godoc
// GET /api/v1/attempts/:attempt_id/session
// Returns the live snapshot, used to resume after a reload.
func (h *SessionHandler) State(c *gin.Context) {
	sess, _, ok := h.liveSession(c)
	if !ok {
		return
	}

	response.Success(c, http.StatusOK, sessionState(sess))
}

// Navigate godoc
// POST /api/v1/attempts/:attempt_id/session/navigate
// Moves the current position. Commits viewing time for the question being
// left. Out-of-range indexes are ignored.
func (h *SessionHandler) Navigate(c *gin.Context) {
	sess, _, ok := h.liveSession(c)
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess.GoToQuestion(*req.Index)
	response.Success(c, http.StatusOK, sessionState(sess))
}

// SetAnswer godoc
// POST /api/v1/attempts/:attempt_id/session/answer
// Stores an answer on the live session. The answer variant must match the
// question's type.
func (h *SessionHandler) SetAnswer(c *gin.Context) {
	sess, attemptID, ok := h.liveSession(c)
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)

	var req model.SetAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.SetAnswer(attemptID, claims.UserID, req.QuestionID, req.Answer); err != nil {
		if err == service.ErrAnswerTypeMismatch {
			response.Fail(c, http.StatusBadRequest, response.ErrAnswerTypeMismatch)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, sessionState(sess))
}

// ClearAnswer godoc
// POST /api/v1/attempts/:attempt_id/session/clear
// Resets a question's answer to none. Visited/marked flags and time spent
// are untouched.
func (h *SessionHandler) ClearAnswer(c *gin.Context) {
	sess, _, ok := h.liveSession(c)
	if !ok {
		return
	}

	var req model.QuestionRefRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess.ClearAnswer(req.QuestionID)
	response.Success(c, http.StatusOK, sessionState(sess))
}

// ToggleMark godoc
// POST /api/v1/attempts/:attempt_id/session/mark
// Flips the marked-for-review flag on a question.
func (h *SessionHandler) ToggleMark(c *gin.Context) {
	sess, _, ok := h.liveSession(c)
	if !ok {
		return
	}

	var req model.QuestionRefRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess.ToggleMarkForReview(req.QuestionID)
	response.Success(c, http.StatusOK, sessionState(sess))
}

// ProctorEvent godoc
// POST /api/v1/attempts/:attempt_id/session/proctor
// Records a focus/fullscreen violation. Counted and persisted, never
// scored.
func (h *SessionHandler) ProctorEvent(c *gin.Context) {
	_, attemptID, ok := h.liveSession(c)
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)

	var req model.ProctorEventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.RecordProctorEvent(c.Request.Context(), attemptID, claims.UserID, req.Kind); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "recorded"})
}
