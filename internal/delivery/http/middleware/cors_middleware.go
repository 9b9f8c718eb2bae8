package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware serves the dashboard API. Only the listed origins get CORS
// headers; localhost is added outside production.
//
// Lovable preview deployments (*.lovable.app) are allowed when the site
// itself is hosted there.
func CORSMiddleware(origins []string, production bool) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins)+3)
	allowLovable := false
	for _, o := range origins {
		o = strings.TrimRight(o, "/")
		allowed[o] = true
		if strings.HasSuffix(o, ".lovable.app") {
			allowLovable = true
		}
	}
	if !production {
		allowed["http://localhost:5173"] = true
		allowed["http://localhost:3000"] = true
		allowed["http://127.0.0.1:5173"] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		isAllowed := origin == "" || allowed[origin]
		if !isAllowed && allowLovable && strings.HasPrefix(origin, "https://") && strings.HasSuffix(origin, ".lovable.app") {
			isAllowed = true
		}

		if isAllowed && origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Authorization, X-Request-ID, accept, origin, Cache-Control, X-Requested-With")
			c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			c.Header("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
			c.Header("Access-Control-Max-Age", "86400")
		}
		c.Header("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			if isAllowed {
				c.AbortWithStatus(http.StatusNoContent)
			} else {
				c.AbortWithStatus(http.StatusForbidden)
			}
			return
		}

		c.Next()
	}
}

// FunctionsCORS is the open policy of the public upload functions, which are
// called from any origin with a Supabase anon key.
func FunctionsCORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"authorization", "x-client-info", "apikey", "content-type"},
		MaxAge:          24 * time.Hour,
	})
}
