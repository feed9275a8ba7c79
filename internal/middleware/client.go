// Package middleware provides HTTP middleware for the API.
//
// Go Pattern: Middleware in Go is a function that wraps an HTTP handler.
// In Gin, middleware is a gin.HandlerFunc that calls c.Next() to continue
// the chain, or c.Abort() to stop processing.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ClientCookieName is the cookie that scopes a browser's session slot.
const ClientCookieName = "hf_client"

// clientContextKey is where the client id is stored in the gin context.
const clientContextKey = "client_id"

// clientCookieMaxAge keeps the id around for a week, which is plenty
// for an upload-then-browse workflow.
const clientCookieMaxAge = 7 * 24 * 60 * 60

// ClientID returns middleware that makes sure every request carries an
// opaque client id. The id is not a credential: it only namespaces the
// session slot, the way browser local storage is per-browser.
func ClientID(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := ""
		if raw, err := c.Cookie(ClientCookieName); err == nil {
			if parsed, err := uuid.Parse(raw); err == nil {
				id = parsed.String()
			}
		}

		if id == "" {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(ClientCookieName, id, clientCookieMaxAge, "/", "", secure, true)
		}

		c.Set(clientContextKey, id)
		c.Next()
	}
}

// GetClientID retrieves the client id set by ClientID.
func GetClientID(c *gin.Context) string {
	return c.GetString(clientContextKey)
}
