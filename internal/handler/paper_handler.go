package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prepgrid/testprep-backend/internal/paperstore"
	"github.com/prepgrid/testprep-backend/internal/response"
)

// PaperHandler serves the paper catalog and answer-stripped paper payloads.
type PaperHandler struct {
	papers *paperstore.Store
}

// NewPaperHandler creates a new PaperHandler.
func NewPaperHandler(papers *paperstore.Store) *PaperHandler {
	return &PaperHandler{papers: papers}
}

// ListPapers godoc
// GET /api/v1/papers
// Returns catalog metadata for every loaded paper. Never includes
// questions or answer keys.
func (h *PaperHandler) ListPapers(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"papers": h.papers.List(),
	})
}

// GetPaper godoc
// GET /api/v1/papers/:paper_id
// Returns the full paper with correct answers stripped, ready for a
// candidate client to render.
func (h *PaperHandler) GetPaper(c *gin.Context) {
	paperID := c.Param("paper_id")

	payload, err := h.papers.StudentPayload(c.Request.Context(), paperID)
	if err != nil {
		if errors.Is(err, paperstore.ErrPaperNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrPaperNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"paper": payload,
	})
}
