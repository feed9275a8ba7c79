// export.go lets a recruiter download the text extracted from one résumé.
//
// Supported formats:
//   - txt  - Plain extracted text
//   - json - Name, text and word count
//
// Go Pattern: Each export format is its own function. Adding a format is a
// new case in the switch and a new formatter function.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/hire-filter-api/internal/models"
	"github.com/Shimizu-Technology/hire-filter-api/internal/viewer"
)

// ExportFileText exports one file's extracted text in the requested format.
// GET /api/v1/viewer/:id/files/:index/export?format=txt|json
//
// :index is the file's position in upload order (ViewerFileResponse.Index).
func (h *Handler) ExportFileText(c *gin.Context) {
	format := c.DefaultQuery("format", "txt")

	// Validate format before touching the session
	validFormats := map[string]bool{"txt": true, "json": true}
	if !validFormats[format] {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_format",
			Message: "Supported formats: txt, json",
			Code:    http.StatusBadRequest,
		})
		return
	}

	s, ok := h.lookupViewer(c)
	if !ok {
		return
	}

	files := s.Files()
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 || idx >= len(files) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "File not found in this viewer session",
			Code:    http.StatusNotFound,
		})
		return
	}

	f := files[idx]
	if !f.TextReady() {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "not_ready",
			Message: "Text extraction is still running for this file",
			Code:    http.StatusConflict,
		})
		return
	}

	filename := sanitizeFilename(strings.TrimSuffix(path.Base(f.Name), ".pdf"))
	if filename == "" {
		filename = "resume-" + strconv.Itoa(idx+1)
	}

	switch format {
	case "txt":
		exportTXT(c, f, filename)
	case "json":
		exportJSON(c, f, filename)
	}
}

// exportTXT returns the extracted text as plain text.
func exportTXT(c *gin.Context, f viewer.File, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.txt"`, filename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(*f.Text))
}

// exportJSON returns the extracted text with a little metadata.
func exportJSON(c *gin.Context, f viewer.File, filename string) {
	exportData := map[string]interface{}{
		"name":       f.Name,
		"type":       f.Type,
		"text":       *f.Text,
		"word_count": len(strings.Fields(*f.Text)),
		"size_bytes": len(f.Data),
	}

	jsonBytes, err := json.MarshalIndent(exportData, "", "  ")
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "export_error",
			Message: "Failed to generate JSON export",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.json"`, filename))
	c.Data(http.StatusOK, "application/json; charset=utf-8", jsonBytes)
}

// sanitizeFilename removes characters that aren't safe for filenames.
// Go Pattern: Keep it simple - replace unsafe characters with hyphens
// and trim the result. This is only for the Content-Disposition header.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-",
		"?", "-", "\"", "-", "<", "-", ">", "-",
		"|", "-", "\n", " ", "\r", "",
	)
	name = replacer.Replace(name)

	// Collapse multiple hyphens/spaces
	for strings.Contains(name, "  ") {
		name = strings.ReplaceAll(name, "  ", " ")
	}
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}

	name = strings.TrimSpace(name)

	if len(name) > 100 {
		name = name[:100]
	}

	return name
}
