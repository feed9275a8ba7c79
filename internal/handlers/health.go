// Package handlers contains HTTP handler functions for the API.
//
// Go Pattern: Handlers in Gin receive a *gin.Context which provides:
// - Request data (params, query, body, headers)
// - Response methods (JSON, String, Status)
// - Middleware data (c.Get/c.Set)
//
// We group related handlers into a struct (Handler) that holds shared dependencies.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/hire-filter-api/internal/models"
	"github.com/Shimizu-Technology/hire-filter-api/internal/services/upload"
	"github.com/Shimizu-Technology/hire-filter-api/internal/session"
	"github.com/Shimizu-Technology/hire-filter-api/internal/viewer"
)

// Version is reported by the health check. main overrides it at startup.
var Version = "dev"

// Handler holds shared dependencies for all HTTP handlers.
// Go Pattern: Dependency injection via struct fields. Instead of global
// variables or service locators, we pass dependencies explicitly.
// Tests build a Handler with fake dependencies.
type Handler struct {
	Uploads        *upload.Service
	Sessions       session.Store
	Viewers        *viewer.Manager
	MaxUploadBytes int64
	SessionBackend string
}

// NewHandler creates a new handler with all dependencies.
func NewHandler(up *upload.Service, store session.Store, viewers *viewer.Manager, maxUploadBytes int64, sessionBackend string) *Handler {
	return &Handler{
		Uploads:        up,
		Sessions:       store,
		Viewers:        viewers,
		MaxUploadBytes: maxUploadBytes,
		SessionBackend: sessionBackend,
	}
}

// HealthCheck returns the API health status.
// GET /api/v1/health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:         "ok",
		Version:        Version,
		SessionBackend: h.SessionBackend,
		OpenViewers:    h.Viewers.Len(),
	})
}

// redirectHome is the "no active session" response. It is a normal state,
// not an error, so it goes out with 200.
func redirectHome(c *gin.Context) {
	c.JSON(http.StatusOK, models.RedirectResponse{
		State:    viewer.StateRedirect.String(),
		Redirect: "/",
	})
}
