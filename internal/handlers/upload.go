// upload.go handles archive uploads.
//
// POST /api/zip        - Stateless: unpack a ZIP and return its PDFs
// POST /api/v1/upload  - Same, and store the batch in the caller's session slot
package handlers

import (
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/hire-filter-api/internal/middleware"
	"github.com/Shimizu-Technology/hire-filter-api/internal/models"
	"github.com/Shimizu-Technology/hire-filter-api/internal/services/upload"
)

// uploadField is the multipart field carrying the archive.
const uploadField = "zip"

// UploadZip extracts every PDF from an uploaded ZIP archive.
// POST /api/zip
//
// Accepts multipart file upload with field name "zip".
// Response: {"success": true, "files": [{name, type, data}], "count": N}
func (h *Handler) UploadZip(c *gin.Context) {
	resp, err := h.processUpload(c)
	if err != nil {
		writeUploadError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UploadAndSave is the home-page flow in one call: the archive is processed
// and, on success, the new batch replaces the caller's session. A failed
// upload leaves the previous batch untouched.
// POST /api/v1/upload
func (h *Handler) UploadAndSave(c *gin.Context) {
	resp, err := h.processUpload(c)
	if err != nil {
		writeUploadError(c, err)
		return
	}

	clientID := middleware.GetClientID(c)
	if err := h.Sessions.Save(c.Request.Context(), clientID, resp.Files); err != nil {
		log.Printf("Failed to save uploaded batch: %v", err)
		writeUploadError(c, err)
		return
	}

	// Viewers over the old batch would now show stale files
	h.Viewers.ReleaseClient(clientID)

	c.JSON(http.StatusOK, resp)
}

// processUpload reads the multipart archive and runs it through the upload service.
func (h *Handler) processUpload(c *gin.Context) (*models.UploadResponse, error) {
	// Limit request body size
	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	}

	file, header, err := c.Request.FormFile(uploadField)
	if err != nil {
		// Missing field, not multipart, or over the size cap
		return nil, upload.ErrNoFile
	}
	defer file.Close()

	// Read the entire archive into memory; zip needs random access
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	return h.Uploads.Process(header.Filename, data)
}

// writeUploadError maps upload errors to the {"error": "..."} bodies the
// browser client expects.
func writeUploadError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	if !upload.IsValidationError(err) {
		status = http.StatusInternalServerError
		log.Printf("Error processing ZIP file: %v", err)
	}
	c.JSON(status, models.UploadErrorResponse{Error: upload.UserMessage(err)})
}
