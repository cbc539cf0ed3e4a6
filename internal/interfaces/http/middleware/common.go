// Package middleware provides the gin middleware of the ledger API.
package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mfgops/ledger/internal/infrastructure/logger"
)

// MaxRequestIDLength bounds client-supplied request ids.
const MaxRequestIDLength = 128

// RequestID assigns every request an id, reusing a sane X-Request-ID from
// the client. The id is stored under "request_id" and echoed in the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(logger.RequestIDHeader))
		if id == "" || len(id) > MaxRequestIDLength || !printable(id) {
			id = generateRequestID()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(logger.RequestIDHeader, id)
		c.Next()
	}
}

func printable(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x21 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

func generateRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return time.Now().UTC().Format("20060102150405.000000000")
	}
	return hex.EncodeToString(b)
}

// Secure sets the response headers an API without browser content needs.
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		c.Next()
	}
}

// NoRoute answers unknown paths with the standard envelope.
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ERR_NOT_FOUND",
				"message": "route " + c.Request.Method + " " + c.Request.URL.Path + " not found",
			},
		})
	}
}
