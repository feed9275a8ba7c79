// Package router sets up all HTTP routes for the API.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/hire-filter-api/internal/handlers"
	"github.com/Shimizu-Technology/hire-filter-api/internal/middleware"
)

// Setup creates and configures the Gin router with all routes.
//
// Every route runs behind the ClientID middleware, so handlers can always
// read the caller's session scope. Only the upload routes are rate limited;
// they are the only ones that do real work per request.
func Setup(h *handlers.Handler, rateLimiter *middleware.RateLimiter, allowedOrigins []string, secureCookies bool) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORS(allowedOrigins))

	// --- Public Routes (no client cookie needed) ---
	r.GET("/api/v1/health", h.HealthCheck)
	r.GET("/api/docs", h.ServeSwaggerUI)
	r.GET("/api/docs/openapi.yaml", h.ServeOpenAPISpec)

	scoped := r.Group("/api")
	scoped.Use(middleware.ClientID(secureCookies))

	// --- Uploads ---
	uploads := scoped.Group("")
	uploads.Use(rateLimiter.RateLimit())
	{
		uploads.POST("/zip", h.UploadZip)
		uploads.POST("/v1/upload", h.UploadAndSave)
	}

	v1 := scoped.Group("/v1")
	{
		// Session slot
		v1.PUT("/session", h.SaveSession)
		v1.GET("/session", h.GetSession)
		v1.DELETE("/session", h.ClearSession)

		// Viewer
		v1.POST("/viewer", h.OpenViewer)
		v1.GET("/viewer/:id", h.GetViewer)
		v1.DELETE("/viewer/:id", h.CloseViewer)
		v1.GET("/viewer/:id/files/:index/export", h.ExportFileText)

		// Previews
		v1.GET("/blobs/:handle", h.ServeBlob)
	}

	return r
}
