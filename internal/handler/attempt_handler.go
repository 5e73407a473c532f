package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prepgrid/testprep-backend/internal/middleware"
	"github.com/prepgrid/testprep-backend/internal/model"
	"github.com/prepgrid/testprep-backend/internal/paperstore"
	"github.com/prepgrid/testprep-backend/internal/response"
	"github.com/prepgrid/testprep-backend/internal/service"
	"github.com/prepgrid/testprep-backend/internal/validator"
)

// AttemptHandler handles attempt lifecycle endpoints: creation, history,
// progress mirroring, submission, and the score trend.
type AttemptHandler struct {
	attemptService *service.AttemptService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

// CreateAttempt godoc
// POST /api/v1/attempts
// Creates the attempt record and its live session. The session starts in
// not_started; the timer only runs after the start call.
func (h *AttemptHandler) CreateAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	record, err := h.attemptService.CreateAttempt(c.Request.Context(), claims.UserID, req.PaperID)
	if err != nil {
		if errors.Is(err, paperstore.ErrPaperNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrPaperNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"attempt": record,
	})
}

// ListAttempts godoc
// GET /api/v1/attempts
// Returns the authenticated user's attempt history, newest first.
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attempts, err := h.attemptService.ListAttempts(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"attempts": attempts,
	})
}

// GetAttempt godoc
// GET /api/v1/attempts/:attempt_id
// Returns the full persisted record, including the result summary once
// the attempt is completed.
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	record, err := h.attemptService.GetAttempt(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		h.failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"attempt": record,
	})
}

// SaveProgress godoc
// PATCH /api/v1/attempts/:attempt_id/progress
// Mirrors client-supplied answer/time mappings into the record. Rejected
// once the attempt is completed.
func (h *AttemptHandler) SaveProgress(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SaveProgressRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.SaveProgress(c.Request.Context(), attemptID, claims.UserID, req.Answers, req.Times); err != nil {
		h.failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// Submit godoc
// POST /api/v1/attempts/:attempt_id/submit
// Explicitly submits the live session and returns the graded result.
func (h *AttemptHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.attemptService.Submit(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		h.failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"result": result,
	})
}

// Review godoc
// GET /api/v1/attempts/:attempt_id/review
// Returns the question-by-question review of a completed attempt with
// display-formatted answers and pacing labels.
func (h *AttemptHandler) Review(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	review, err := h.attemptService.Review(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		h.failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"review": review,
	})
}

// ScoreTrend godoc
// GET /api/v1/attempts/trend?paper_id=...
// Returns completed attempts in chronological order with a moving-average
// trend value per point. The paper_id filter is optional.
func (h *AttemptHandler) ScoreTrend(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	points, err := h.attemptService.ScoreTrend(c.Request.Context(), claims.UserID, c.Query("paper_id"))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"points": points,
	})
}

// failAttempt maps attempt service errors onto the response envelope.
func (h *AttemptHandler) failAttempt(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
	case errors.Is(err, service.ErrAttemptNotLive):
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotLive)
	case errors.Is(err, service.ErrAttemptNotOwned):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrAttemptSubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAttemptSubmitted)
	case errors.Is(err, service.ErrAttemptNotGraded):
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotGraded)
	case errors.Is(err, service.ErrAnswerTypeMismatch):
		response.Fail(c, http.StatusBadRequest, response.ErrAnswerTypeMismatch)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
