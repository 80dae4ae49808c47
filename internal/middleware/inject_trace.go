package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"clipnest/internal/utils"
)

// InjectTrace assigns every request a trace id and echoes it back in the
// X-Trace-Id header.
func InjectTrace() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := utils.GenerateTraceId()
		ctx := context.WithValue(c.Request.Context(), utils.TraceIdKey, traceId)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Trace-Id", traceId)
		c.Next()
	}
}
