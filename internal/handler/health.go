package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"pagoqr/internal/apierror"
	"pagoqr/internal/infra"
	"pagoqr/internal/worker"
)

// HealthHandler reports liveness plus the state of the two external
// dependencies: redis and the pasarela circuit.
type HealthHandler struct {
	rdb      *redis.Client
	circuito *infra.Circuito
}

func NewHealthHandler(rdb *redis.Client, circuito *infra.Circuito) *HealthHandler {
	return &HealthHandler{rdb: rdb, circuito: circuito}
}

// Health godoc
// @Summary      Estado del servicio
// @Description  Liveness, estado de redis, circuito de la pasarela y cola DLQ
// @Tags         salud
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	estado := http.StatusOK
	redisOK := true
	if err := h.rdb.Ping(c.Request.Context()).Err(); err != nil {
		redisOK = false
		estado = http.StatusServiceUnavailable
	}

	dlq, _ := worker.TamanoDLQ(c.Request.Context(), h.rdb)

	c.JSON(estado, gin.H{
		"status":            estadoTexto(estado),
		"redis":             redisOK,
		"pasarela_circuito": h.circuito.Estado().String(),
		"dlq_recibos":       dlq,
	})
}

// ReprocesarDLQ godoc
// @Summary      Reprocesar los recibos muertos
// @Description  Devuelve cada trabajo de la DLQ a la cola viva con el
// @Description  contador de intentos en cero
// @Tags         salud
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  apierror.APIError
// @Router       /admin/dlq/recibos/reprocesar [post]
func (h *HealthHandler) ReprocesarDLQ(c *gin.Context) {
	movidos, err := worker.ReprocesarDLQ(c.Request.Context(), h.rdb)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("No se pudo reprocesar la cola de recibos."))
		return
	}
	c.JSON(http.StatusOK, gin.H{"reprocesados": movidos})
}

func estadoTexto(code int) string {
	if code == http.StatusOK {
		return "ok"
	}
	return "degraded"
}
