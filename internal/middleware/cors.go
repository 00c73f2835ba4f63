package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS allows the public checkout frontend to call the API from any origin.
// The session header must be exposed or the client cannot persist its id.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Session-ID, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "X-Session-ID, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
