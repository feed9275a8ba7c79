// session.go exposes the caller's session slot.
//
// PUT    /api/v1/session - Overwrite the slot with a batch
// GET    /api/v1/session - Read the slot
// DELETE /api/v1/session - Clear the slot
package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/hire-filter-api/internal/middleware"
	"github.com/Shimizu-Technology/hire-filter-api/internal/models"
	"github.com/Shimizu-Technology/hire-filter-api/internal/session"
)

// SaveSession stores a batch of files in the caller's slot.
// PUT /api/v1/session
//
// Request body: {"files": [{"name": "...", "type": "application/pdf", "data": "<base64>"}]}
func (h *Handler) SaveSession(c *gin.Context) {
	var req models.SaveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Provide a non-empty 'files' array of {name, type, data} with base64 data",
			Code:    http.StatusBadRequest,
		})
		return
	}

	for _, f := range req.Files {
		if f.Type != models.PDFMimeType {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid_file_type",
				Message: "Only application/pdf files can be stored, got '" + f.Type + "'",
				Code:    http.StatusBadRequest,
			})
			return
		}
	}

	if err := h.Sessions.Save(c.Request.Context(), middleware.GetClientID(c), req.Files); err != nil {
		log.Printf("Failed to save session: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "session_error",
			Message: "Failed to save session",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, models.SessionResponse{Files: req.Files, Count: len(req.Files)})
}

// GetSession returns the caller's stored batch, or a redirect when there is none.
// GET /api/v1/session
func (h *Handler) GetSession(c *gin.Context) {
	files, err := h.Sessions.Load(c.Request.Context(), middleware.GetClientID(c))
	if errors.Is(err, session.ErrNoSession) {
		redirectHome(c)
		return
	}
	if err != nil {
		log.Printf("Failed to load session: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "session_error",
			Message: "Failed to load session",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, models.SessionResponse{Files: files, Count: len(files)})
}

// ClearSession removes the caller's batch and releases any open viewer over it.
// DELETE /api/v1/session
func (h *Handler) ClearSession(c *gin.Context) {
	clientID := middleware.GetClientID(c)
	h.Viewers.ReleaseClient(clientID)

	if err := h.Sessions.Clear(c.Request.Context(), clientID); err != nil {
		log.Printf("Failed to clear session: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "session_error",
			Message: "Failed to clear session",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.Status(http.StatusNoContent)
}
