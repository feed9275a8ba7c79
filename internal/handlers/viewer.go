// viewer.go drives viewer sessions over the caller's batch.
//
// POST   /api/v1/viewer          - Open a viewer (or get told to go home)
// GET    /api/v1/viewer/:id      - Current state plus files filtered by ?q=
// DELETE /api/v1/viewer/:id      - Return to home: release previews, clear the slot
// GET    /api/v1/blobs/:handle   - Preview bytes for one file
package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/hire-filter-api/internal/middleware"
	"github.com/Shimizu-Technology/hire-filter-api/internal/models"
	"github.com/Shimizu-Technology/hire-filter-api/internal/search"
	"github.com/Shimizu-Technology/hire-filter-api/internal/viewer"
)

// OpenViewer starts a viewer session over the caller's stored batch.
// POST /api/v1/viewer
//
// Files are previewable as soon as this returns; text extraction keeps
// running in the background. Poll GET /api/v1/viewer/:id to see it finish.
func (h *Handler) OpenViewer(c *gin.Context) {
	s, err := h.Viewers.Open(c.Request.Context(), middleware.GetClientID(c))
	if err != nil {
		// Anything we can't read is treated as "no active session"
		log.Printf("Failed to open viewer: %v", err)
		redirectHome(c)
		return
	}
	if s.State() == viewer.StateRedirect {
		redirectHome(c)
		return
	}

	c.JSON(http.StatusCreated, buildViewerResponse(s, ""))
}

// GetViewer returns the viewer state and the files matching ?q=.
// GET /api/v1/viewer/:id?q=senior
//
// The filter runs on every request against the current file list, so the
// same query returns more matches once extraction has finished.
func (h *Handler) GetViewer(c *gin.Context) {
	s, ok := h.lookupViewer(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, buildViewerResponse(s, c.Query("q")))
}

// CloseViewer is the explicit return-to-home action.
// DELETE /api/v1/viewer/:id
//
// Always answers with the redirect, including for a viewer that is already
// gone, so a double click never surfaces an error.
func (h *Handler) CloseViewer(c *gin.Context) {
	if err := h.Viewers.Teardown(c.Request.Context(), middleware.GetClientID(c), c.Param("id")); err != nil {
		log.Printf("Viewer teardown: %v", err)
	}
	redirectHome(c)
}

// ServeBlob streams the PDF behind a preview handle.
// GET /api/v1/blobs/:handle
func (h *Handler) ServeBlob(c *gin.Context) {
	data, mimeType, err := h.Viewers.Blobs().Get(c.Param("handle"))
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Preview not found or already released",
			Code:    http.StatusNotFound,
		})
		return
	}

	c.Header("Content-Disposition", "inline")
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, mimeType, data)
}

// lookupViewer resolves :id for the calling client or writes a 404.
func (h *Handler) lookupViewer(c *gin.Context) (*viewer.Session, bool) {
	s, err := h.Viewers.Get(middleware.GetClientID(c), c.Param("id"))
	if errors.Is(err, viewer.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Viewer session not found",
			Code:    http.StatusNotFound,
		})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "viewer_error",
			Message: "Failed to load viewer session",
			Code:    http.StatusInternalServerError,
		})
		return nil, false
	}
	return s, true
}

// buildViewerResponse filters the session's files and shapes them for JSON.
func buildViewerResponse(s *viewer.Session, query string) models.ViewerResponse {
	state, files := s.Snapshot()
	results := search.Filter(query, files)

	out := make([]models.ViewerFileResponse, 0, len(results))
	for _, r := range results {
		out = append(out, models.ViewerFileResponse{
			Index:      r.Index, // upload order; the export endpoint addresses files by it
			Name:       r.Item.Name,
			Type:       r.Item.Type,
			PreviewURL: r.Item.PreviewURL,
			TextReady:  r.Item.TextReady(),
			NameMatch:  r.NameMatch,
			TextMatch:  r.TextMatch,
		})
	}

	return models.ViewerResponse{
		ID:      s.ID(),
		State:   state.String(),
		Query:   query,
		Total:   len(files),
		Matched: len(out),
		Files:   out,
	}
}
