package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pagoqr/internal/apierror"
	"pagoqr/internal/carrito"
	"pagoqr/internal/dto"
	"pagoqr/internal/middleware"
)

// CarritoHandler exposes the session cart outside the wizards.
type CarritoHandler struct {
	store *carrito.Store
}

func NewCarritoHandler(store *carrito.Store) *CarritoHandler {
	return &CarritoHandler{store: store}
}

// Estado godoc
// @Summary      Contenido del carrito
// @Tags         carrito
// @Produce      json
// @Success      200  {object}  dto.CarritoResponse
// @Router       /v1/carrito [get]
func (h *CarritoHandler) Estado(c *gin.Context) {
	cart := h.store.Cargar(c.Request.Context(), middleware.SesionID(c))
	c.JSON(http.StatusOK, dto.NuevoCarrito(cart))
}

// Eliminar godoc
// @Summary      Quitar un pago del carrito
// @Tags         carrito
// @Produce      json
// @Param        indice  path  int  true  "Índice del item"
// @Success      200  {object}  dto.CarritoResponse
// @Failure      400  {object}  apierror.APIError
// @Router       /v1/carrito/{indice} [delete]
func (h *CarritoHandler) Eliminar(c *gin.Context) {
	indice, err := strconv.Atoi(c.Param("indice"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Índice inválido."))
		return
	}
	cart := h.store.Eliminar(c.Request.Context(), middleware.SesionID(c), indice)
	c.JSON(http.StatusOK, dto.NuevoCarrito(cart))
}

// Vaciar godoc
// @Summary      Vaciar el carrito
// @Tags         carrito
// @Success      204
// @Router       /v1/carrito [delete]
func (h *CarritoHandler) Vaciar(c *gin.Context) {
	h.store.Vaciar(c.Request.Context(), middleware.SesionID(c))
	c.Status(http.StatusNoContent)
}
