package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Logger emits one structured line per request.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		inicio := time.Now()
		c.Next()

		evento := log.Info()
		if c.Writer.Status() >= 500 {
			evento = log.Error()
		} else if c.Writer.Status() >= 400 {
			evento = log.Warn()
		}
		evento.
			Str("request_id", c.GetString(RequestIDKey)).
			Str("metodo", c.Request.Method).
			Str("ruta", c.Request.URL.Path).
			Int("estado", c.Writer.Status()).
			Dur("duracion", time.Since(inicio)).
			Str("ip", c.ClientIP()).
			Msg("http")
	}
}

// Recovery converts panics into a 500 with the standard error envelope,
// logging the stack through zerolog instead of gin's default writer.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error().
			Interface("panic", recovered).
			Str("request_id", c.GetString(RequestIDKey)).
			Str("ruta", c.Request.URL.Path).
			Msg("panic recuperado")
		c.AbortWithStatusJSON(500, gin.H{"detail": "Error interno del servidor"})
	})
}
