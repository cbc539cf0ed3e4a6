package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mfgops/ledger/internal/infrastructure/telemetry"
)

// Profiling tags the handler's CPU samples with the route and method so
// Pyroscope can split profiles per endpoint. Health checks are not tagged.
func Profiling() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || strings.HasSuffix(route, "/health") {
			c.Next()
			return
		}
		labels := telemetry.HTTPRequestLabels(route, c.Request.Method)
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
