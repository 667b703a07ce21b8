package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope mirrors the platform API contract: a success flag, an optional
// human message, payload data and field-level validation errors.
type Envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// OK sends a success envelope.
func OK(c *gin.Context, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Message sends a success envelope carrying only a message.
func Message(c *gin.Context, message string) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message})
}

// Refused sends a logical failure inside a 2xx transport envelope. Callers
// of the platform API are expected to check the success flag, not only the
// HTTP status.
func Refused(c *gin.Context, message string) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, Envelope{Success: false, Message: message})
}

// Fail sends a failure envelope with the given HTTP status.
func Fail(c *gin.Context, status int, message string) {
	c.Header("Cache-Control", "no-store")
	c.JSON(status, Envelope{Success: false, Message: message})
}

// ValidationFail sends a 422 envelope with per-field messages.
func ValidationFail(c *gin.Context, errors map[string][]string) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusUnprocessableEntity, Envelope{Success: false, Message: "validation failed", Errors: errors})
}
