package middleware

import (
	"errors"
	"net/http"

	"autopost-backend/internal/delivery/http/response"
	"autopost-backend/pkg/apperror"
	"autopost-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			if appErr.Code >= http.StatusInternalServerError {
				logger.Log.Error("Request failed",
					"path", c.FullPath(), "status", appErr.Code, "message", appErr.Message, "error", appErr.Err)
			}
			var fields interface{}
			if len(appErr.Fields) > 0 {
				fields = appErr.Fields
			}
			response.Error(c, appErr.Code, appErr.Message, fields)
			return
		}

		// Never expose internal error details to clients.
		logger.Log.Error("Internal Server Error", "path", c.FullPath(), "error", err)
		response.Error(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.", nil)
	}
}
