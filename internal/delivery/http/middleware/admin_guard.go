package middleware

import (
	"net/http"

	"autopost-backend/internal/delivery/http/response"
	"autopost-backend/internal/domain"
	"autopost-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

const msgAdminDenied = "You don't have permission to view this page."

// AdminGuard runs after AuthMiddleware and lets only admins through. Every
// denial is written to the security log.
func AdminGuard(authorizer domain.Authorizer, audit *security.SecurityLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(string(domain.KeyUserID))

		decision := authorizer.Authorize(c.Request.Context(), userID)
		if decision.Allowed() {
			c.Next()
			return
		}

		if audit != nil {
			audit.LogAdminDenied(c.Request.Context(), userID, string(decision.Reason),
				c.ClientIP(), c.GetHeader("User-Agent"), c.GetString(string(domain.KeyRequestID)), c.FullPath())
		}

		if decision.Reason == domain.ReasonUnauthenticated {
			response.Abort(c, http.StatusUnauthorized, "User not authenticated")
			return
		}
		response.Abort(c, http.StatusForbidden, msgAdminDenied)
	}
}
