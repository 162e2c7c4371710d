package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultCSP = "default-src 'none'"
	// the uploads mount serves user images and PDFs straight to the browser
	uploadsCSP = "default-src 'none'; img-src 'self'; object-src 'self'"
)

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if strings.HasPrefix(c.Request.URL.Path, "/uploads/") {
			h.Set("Content-Security-Policy", uploadsCSP)
		} else {
			h.Set("Content-Security-Policy", defaultCSP)
		}

		c.Next()
	}
}
