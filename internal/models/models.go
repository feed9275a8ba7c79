// Package models defines the data structures shared across the application.
//
// Go Pattern: Models are plain structs with JSON tags for serialization.
// The CvFile shape is the wire contract of the upload endpoint AND the value
// stored in the session slot, so the tags here must not drift.
package models

// PDFMimeType is the only content type a CvFile ever carries.
// Non-PDF archive entries are dropped before a CvFile is built.
const PDFMimeType = "application/pdf"

// CvFile is one PDF pulled out of an uploaded archive.
// Data is the standard base64 encoding of the PDF bytes; it is "" for a
// zero-length archive entry.
type CvFile struct {
	Name string `json:"name" binding:"required"`
	Type string `json:"type" binding:"required"`
	Data string `json:"data" binding:"omitempty,base64"`
}

// --- Request/Response DTOs (Data Transfer Objects) ---

// UploadResponse is the success body for POST /api/zip.
type UploadResponse struct {
	Success bool     `json:"success"`
	Files   []CvFile `json:"files"`
	Count   int      `json:"count"`
}

// UploadErrorResponse is the error body for the upload endpoints.
// It stays a single "error" field because the browser client reads it verbatim.
type UploadErrorResponse struct {
	Error string `json:"error"`
}

// SaveSessionRequest is the JSON body for PUT /api/v1/session.
// Go Pattern: `dive` applies the CvFile binding tags to every element.
type SaveSessionRequest struct {
	Files []CvFile `json:"files" binding:"required,min=1,dive"`
}

// SessionResponse is returned by GET /api/v1/session.
type SessionResponse struct {
	Files []CvFile `json:"files"`
	Count int      `json:"count"`
}

// RedirectResponse tells the client to navigate back to the entry point.
// It is not an error: a missing session is a normal state for the viewer.
type RedirectResponse struct {
	State    string `json:"state"`
	Redirect string `json:"redirect"`
}

// ViewerFileResponse is one file card in the viewer.
type ViewerFileResponse struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	PreviewURL string `json:"preview_url"`
	// TextReady is false until extraction for this file has settled.
	TextReady bool `json:"text_ready"`
	NameMatch bool `json:"name_match"`
	TextMatch bool `json:"text_match"` // advisory "contains keyword" hint
}

// ViewerResponse is returned when opening or polling a viewer session.
type ViewerResponse struct {
	ID      string               `json:"id"`
	State   string               `json:"state"`
	Query   string               `json:"query"`
	Total   int                  `json:"total"`
	Matched int                  `json:"matched"`
	Files   []ViewerFileResponse `json:"files"`
}

// ErrorResponse is a standard error format for the /api/v1 endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	SessionBackend string `json:"session_backend"`
	OpenViewers    int    `json:"open_viewers"`
}
