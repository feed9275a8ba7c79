// Package upload turns one uploaded archive into a batch of CvFiles.
//
// The service is stateless: every call is independent and nothing is
// written anywhere. Persisting the batch is the session package's job.
package upload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/Shimizu-Technology/hire-filter-api/internal/models"
	"github.com/Shimizu-Technology/hire-filter-api/internal/services/archive"
)

const (
	archiveExt = ".zip"
	pdfExt     = ".pdf"
)

// Validation errors. UserMessage maps them to the text the client shows.
var (
	ErrNoFile = errors.New("no file uploaded")
	ErrNotZip = errors.New("file must be a zip archive")
	ErrNoPDFs = errors.New("no pdf files found in archive")
)

// MessageProcessingFailed is shown for anything that isn't a validation error.
const MessageProcessingFailed = "Failed to process ZIP file"

// Service extracts PDF résumés from archives.
type Service struct {
	extractor archive.Extractor
}

// NewService creates an upload service around an archive extractor.
func NewService(ex archive.Extractor) *Service {
	return &Service{extractor: ex}
}

// IsValidationError reports whether err is a user-facing input error
// (as opposed to a processing failure).
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNoFile) || errors.Is(err, ErrNotZip) || errors.Is(err, ErrNoPDFs)
}

// UserMessage returns the client-facing message for an upload error.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoFile):
		return "No file uploaded"
	case errors.Is(err, ErrNotZip):
		return "File must be a ZIP file"
	case errors.Is(err, ErrNoPDFs):
		return "No PDF files found in ZIP"
	default:
		return MessageProcessingFailed
	}
}

// Process validates the upload and returns every PDF in the archive.
//
// Only non-directory entries whose name ends in exactly ".pdf" qualify;
// everything else (images, text, nested archives) is dropped silently.
// Matching is case-sensitive, so "CV.PDF" is not picked up.
func (s *Service) Process(filename string, data []byte) (*models.UploadResponse, error) {
	if filename == "" && data == nil {
		return nil, ErrNoFile
	}
	if !strings.HasSuffix(filename, archiveExt) {
		return nil, ErrNotZip
	}

	entries, err := s.extractor.Open(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive %s: %w", filename, err)
	}

	files := make([]models.CvFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), pdfExt) {
			continue
		}

		content, err := entry.Data()
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", entry.Name(), err)
		}
		// Empty entries still count; the viewer lists them without text.
		files = append(files, models.CvFile{
			Name: entry.Name(),
			Type: models.PDFMimeType,
			Data: base64.StdEncoding.EncodeToString(content),
		})
	}

	if len(files) == 0 {
		return nil, ErrNoPDFs
	}

	return &models.UploadResponse{
		Success: true,
		Files:   files,
		Count:   len(files),
	}, nil
}
