package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"pagoqr/internal/apierror"
)

// ventana is a fixed-window counter per client IP.
type ventana struct {
	cuenta int
	inicio time.Time
}

type limitador struct {
	mu       sync.Mutex
	ventanas map[string]*ventana
	limite   int
	duracion time.Duration
}

func nuevoLimitador(limite int, duracion time.Duration) *limitador {
	l := &limitador{
		ventanas: make(map[string]*ventana),
		limite:   limite,
		duracion: duracion,
	}
	go l.purga()
	return l
}

func (l *limitador) permitir(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.ventanas[ip]
	if !ok || time.Since(v.inicio) > l.duracion {
		l.ventanas[ip] = &ventana{cuenta: 1, inicio: time.Now()}
		return true
	}
	v.cuenta++
	return v.cuenta <= l.limite
}

func (l *limitador) purga() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		for ip, v := range l.ventanas {
			if time.Since(v.inicio) > l.duracion {
				delete(l.ventanas, ip)
			}
		}
		l.mu.Unlock()
	}
}

// RateLimiter bounds requests per IP over a fixed window.
func RateLimiter(limite int, duracion time.Duration) gin.HandlerFunc {
	l := nuevoLimitador(limite, duracion)
	return func(c *gin.Context) {
		if !l.permitir(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				apierror.New("Demasiadas solicitudes. Intente nuevamente en unos momentos."))
			return
		}
		c.Next()
	}
}

// PagoRateLimiter is the tighter window applied to payment submission, so a
// stuck client cannot hammer the pasarela with repeated payment attempts.
func PagoRateLimiter() gin.HandlerFunc {
	return RateLimiter(10, time.Minute)
}
