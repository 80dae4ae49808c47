package middleware

import (
	"github.com/gin-gonic/gin"

	"clipnest/internal/utils"
)

// LogRequest writes one log line per incoming request.
func LogRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		message := "Request received: " + c.Request.Method + " " + c.Request.URL.Path
		utils.LogMessageWithFields(c, "info", message)
		c.Next()
	}
}
