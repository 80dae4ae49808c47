package middleware

import (
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"

	"clipnest/internal/schemas"
	"clipnest/internal/utils"
)

// ValidateAndSanitizeStruct binds the request body into a fresh instance of
// the given struct type, sanitizes and validates it, and stores the result
// under SanitizedPayloadKey. A new instance is allocated per request so that
// concurrent requests never share payload state.
func ValidateAndSanitizeStruct(obj interface{}) gin.HandlerFunc {
	objType := reflect.TypeOf(obj)

	return func(c *gin.Context) {
		payload := reflect.New(objType.Elem()).Interface()

		if err := c.ShouldBindJSON(payload); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, &schemas.ErrorDTO{Error: *schemas.BadRequest})
			return
		}

		validator := utils.GetValidator()
		if err := validator.SanitizeData(payload); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, &schemas.ErrorDTO{Error: *schemas.BadRequest})
			return
		}

		if err := validator.Validate.Struct(payload); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, &schemas.ErrorDTO{Error: *schemas.BadRequest})
			return
		}

		c.Set(utils.SanitizedPayloadKey.String(), payload)
		c.Next()
	}
}
