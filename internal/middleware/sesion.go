package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SesionKey is the context key holding the anonymous session id.
const SesionKey = "sesion_id"

// sesionHeader carries the session id; the client stores it and sends it back
// on every call. No authentication is attached to it — the id only scopes the
// cart and wizard state.
const sesionHeader = "X-Session-ID"

// Sesion issues an anonymous session id when the client has none and echoes
// the effective id back so the client can persist it.
func Sesion() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(sesionHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(SesionKey, id)
		c.Header(sesionHeader, id)
		c.Next()
	}
}

// SesionID reads the session id from the request context.
func SesionID(c *gin.Context) string {
	return c.GetString(SesionKey)
}
