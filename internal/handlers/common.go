// Package handlers implements the HTTP handlers of the application. Each
// handler group owns a transaction per request, rolled back on error and
// committed before the response is written.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"clipnest/internal/schemas"
	"clipnest/internal/utils"
)

// parseUUIDParam parses the given routing parameter as a UUID. On failure it
// writes a bad request response and returns an error.
func parseUUIDParam(c *gin.Context, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(key))
	if err != nil {
		utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
		return uuid.Nil, err
	}

	return id, nil
}
