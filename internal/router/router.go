// Package router wires middleware and handlers into the gin engine.
package router

import (
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"pagoqr/internal/config"
	"pagoqr/internal/handler"
	"pagoqr/internal/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health    *handler.HealthHandler
	Servicios *handler.ServiciosHandler
	Cobranza  *handler.CobranzaHandler
	Checkout  *handler.CheckoutHandler
	Carrito   *handler.CarritoHandler
}

// New builds the engine with the full middleware chain and route table.
func New(cfg *config.Config, h Handlers) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimiter(300, time.Minute))

	r.GET("/health", h.Health.Health)

	// Operator tool, session-free; meant for manual use.
	r.POST("/admin/dlq/recibos/reprocesar", h.Health.ReprocesarDLQ)

	// Swagger only outside production.
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/v1")
	v1.Use(middleware.Sesion())
	{
		v1.GET("/servicios", h.Servicios.Listar)
		v1.GET("/servicios/:alias", h.Servicios.Obtener)

		cobranza := v1.Group("/cobranza")
		{
			cobranza.POST("/:alias/iniciar", h.Cobranza.Iniciar)
			cobranza.GET("", h.Cobranza.Estado)
			cobranza.DELETE("", h.Cobranza.Descartar)
			cobranza.POST("/buscar", h.Cobranza.Buscar)
			cobranza.POST("/contrato", h.Cobranza.SeleccionarContrato)
			cobranza.POST("/confirmar", h.Cobranza.Confirmar)
			cobranza.POST("/marcar", h.Cobranza.Marcar)
			cobranza.POST("/marcar-todo", h.Cobranza.MarcarTodo)
			cobranza.POST("/enviar", h.Cobranza.Enviar)
			cobranza.POST("/resolver", h.Cobranza.Resolver)
			cobranza.POST("/atras", h.Cobranza.Atras)
		}

		checkout := v1.Group("/checkout")
		{
			checkout.POST("/iniciar", h.Checkout.Iniciar)
			checkout.GET("", h.Checkout.Estado)
			checkout.DELETE("", h.Checkout.Descartar)
			// Payment submission happens on /avanzar from the summary step;
			// the tighter limiter protects the pasarela from retry storms.
			checkout.POST("/avanzar", middleware.PagoRateLimiter(), h.Checkout.Avanzar)
			checkout.POST("/atras", h.Checkout.Atras)
			checkout.PUT("/metodo", h.Checkout.Metodo)
			checkout.PUT("/facturacion", h.Checkout.Facturacion)
			checkout.POST("/excepcion", h.Checkout.Excepcion)
			checkout.DELETE("/item/:indice", h.Checkout.EliminarItem)
			checkout.GET("/recibo.pdf", h.Checkout.Recibo)
		}

		carrito := v1.Group("/carrito")
		{
			carrito.GET("", h.Carrito.Estado)
			carrito.DELETE("", h.Carrito.Vaciar)
			carrito.DELETE("/:indice", h.Carrito.Eliminar)
		}
	}

	return r
}
