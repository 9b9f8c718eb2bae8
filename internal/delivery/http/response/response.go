// Package response writes the JSON envelope every /v1 endpoint returns.
package response

import (
	"net/http"

	"autopost-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

// Response is the envelope shared by the onboarding, forms and admin APIs.
type Response struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Error     any    `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func envelope(c *gin.Context, ok bool, message string) Response {
	return Response{
		Success:   ok,
		Message:   message,
		RequestID: c.GetString(string(domain.KeyRequestID)),
	}
}

func Success(c *gin.Context, code int, message string, data any) {
	body := envelope(c, true, message)
	body.Data = data
	c.JSON(code, body)
}

// Error writes a failure envelope; err carries optional field details.
func Error(c *gin.Context, code int, message string, err any) {
	body := envelope(c, false, message)
	body.Error = err
	c.JSON(code, body)
}

// Abort writes a failure envelope and stops the middleware chain.
func Abort(c *gin.Context, code int, message string) {
	Error(c, code, message, nil)
	c.Abort()
}

// InvalidBody answers a request whose JSON could not be bound.
func InvalidBody(c *gin.Context) {
	Error(c, http.StatusBadRequest, "Invalid request body", nil)
}
