package middlewares

import (
	"github.com/gin-gonic/gin"
)

// The API serves JSON, so the baseline policy forbids everything. The one
// HTML page we ship is the docs UI at /docs, which loads Swagger UI off
// unpkg and boots it with an inline script, so that route gets its own
// policy.
const (
	apiCSP  = "default-src 'none'; frame-ancestors 'none'"
	docsCSP = "default-src 'self'; base-uri 'none'; frame-ancestors 'none'; object-src 'none'; connect-src 'self'; img-src 'self' data: https:; font-src 'self' https://unpkg.com data:; style-src 'self' 'unsafe-inline' https://unpkg.com; script-src 'self' 'unsafe-inline' https://unpkg.com"
)

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("X-XSS-Protection", "0")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

		csp := apiCSP
		if c.Request.URL.Path == "/docs" {
			csp = docsCSP
		}
		h.Set("Content-Security-Policy", csp)

		c.Next()
	}
}
