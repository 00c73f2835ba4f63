package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pagoqr/internal/apierror"
	"pagoqr/internal/infra"
	"pagoqr/internal/pasarela"
)

// ServiciosHandler serves the service catalog straight from the pasarela.
type ServiciosHandler struct {
	backend *pasarela.Client
}

func NewServiciosHandler(backend *pasarela.Client) *ServiciosHandler {
	return &ServiciosHandler{backend: backend}
}

// Listar godoc
// @Summary      Catálogo de servicios
// @Description  Servicios habilitados para pago, agrupados por categoría
// @Tags         servicios
// @Produce      json
// @Success      200  {array}   pasarela.CategoriaServicios
// @Failure      503  {object}  apierror.APIError
// @Router       /v1/servicios [get]
func (h *ServiciosHandler) Listar(c *gin.Context) {
	categorias, err := h.backend.ListarServicios(c.Request.Context())
	if err != nil {
		if errors.Is(err, infra.ErrCircuitoAbierto) {
			c.JSON(http.StatusServiceUnavailable, apierror.New("El servicio de pagos no está disponible en este momento."))
			return
		}
		c.JSON(http.StatusBadGateway, apierror.New("No se pudo obtener el catálogo de servicios."))
		return
	}
	c.JSON(http.StatusOK, categorias)
}

// Obtener godoc
// @Summary      Configuración de un servicio
// @Tags         servicios
// @Produce      json
// @Param        alias  path  string  true  "Alias del servicio"
// @Success      200  {object}  model.Servicio
// @Failure      404  {object}  apierror.APIError
// @Router       /v1/servicios/{alias} [get]
func (h *ServiciosHandler) Obtener(c *gin.Context) {
	servicio, err := h.backend.ObtenerServicio(c.Request.Context(), c.Param("alias"))
	if err != nil {
		if errors.Is(err, pasarela.ErrNoEncontrado) {
			c.JSON(http.StatusNotFound, apierror.New("El servicio no existe."))
			return
		}
		if errors.Is(err, infra.ErrCircuitoAbierto) {
			c.JSON(http.StatusServiceUnavailable, apierror.New("El servicio de pagos no está disponible en este momento."))
			return
		}
		c.JSON(http.StatusBadGateway, apierror.New("No se pudo consultar el servicio."))
		return
	}
	c.JSON(http.StatusOK, servicio)
}
