package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pagoqr/internal/apierror"
	"pagoqr/internal/checkout"
	"pagoqr/internal/dto"
	"pagoqr/internal/infra"
	"pagoqr/internal/middleware"
)

// CheckoutHandler drives the payment wizard over HTTP.
type CheckoutHandler struct {
	registro *checkout.Registro
}

func NewCheckoutHandler(registro *checkout.Registro) *CheckoutHandler {
	return &CheckoutHandler{registro: registro}
}

// Iniciar godoc
// @Summary      Iniciar el checkout
// @Description  Toma una instantánea del carrito y abre el asistente de pago;
// @Description  recibe las características del dispositivo para la huella
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        body  body  dto.IniciarCheckoutRequest  false  "Características del dispositivo"
// @Success      200  {object}  dto.CheckoutEstadoResponse
// @Failure      409  {object}  apierror.APIError
// @Router       /v1/checkout/iniciar [post]
func (h *CheckoutHandler) Iniciar(c *gin.Context) {
	var req dto.IniciarCheckoutRequest
	// An empty body is valid: the fingerprint degrades to its sentinel form.
	_ = c.ShouldBindJSON(&req)

	w, err := h.registro.Iniciar(c.Request.Context(), middleware.SesionID(c), req.Caracteristicas)
	if err != nil {
		if errors.Is(err, checkout.ErrCarritoVacio) {
			c.JSON(http.StatusConflict, apierror.New("El carrito está vacío."))
			return
		}
		c.JSON(http.StatusInternalServerError, apierror.New("No se pudo iniciar el pago."))
		return
	}
	h.responder(c, w)
}

// Estado godoc
// @Summary      Estado del asistente de pago
// @Tags         checkout
// @Produce      json
// @Success      200  {object}  dto.CheckoutEstadoResponse
// @Failure      404  {object}  apierror.APIError
// @Router       /v1/checkout [get]
func (h *CheckoutHandler) Estado(c *gin.Context) {
	w, ok := h.obtener(c)
	if !ok {
		return
	}
	h.responder(c, w)
}

// Avanzar godoc
// @Summary      Avanzar al siguiente paso
// @Description  Valida el paso actual; del paso de resumen ejecuta el pago y,
// @Description  si la pasarela responde, aterriza en el recibo QR
// @Tags         checkout
// @Produce      json
// @Success      200  {object}  dto.CheckoutEstadoResponse
// @Router       /v1/checkout/avanzar [post]
func (h *CheckoutHandler) Avanzar(c *gin.Context) {
	w, ok := h.obtener(c)
	if !ok {
		return
	}
	if err := w.Avanzar(c.Request.Context()); err != nil {
		c.JSON(http.StatusConflict, apierror.New("Hay una operación en curso. Espere a que termine."))
		return
	}
	h.responder(c, w)
}

// Atras godoc
// @Summary      Volver al paso anterior
// @Description  Sin efecto en el recibo: un pago confirmado no se deshace
// @Tags         checkout
// @Produce      json
// @Success      200  {object}  dto.CheckoutEstadoResponse
// @Router       /v1/checkout/atras [post]
func (h *CheckoutHandler) Atras(c *gin.Context) {
	w, ok := h.obtener(c)
	if !ok {
		return
	}
	w.PasoAnterior()
	h.responder(c, w)
}

// Metodo godoc
// @Summary      Seleccionar el método de pago
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MetodoRequest  true  "Método"
// @Success      200  {object}  dto.CheckoutEstadoResponse
// @Router       /v1/checkout/metodo [put]
func (h *CheckoutHandler) Metodo(c *gin.Context) {
	w, ok := h.obtener(c)
	if !ok {
		return
	}
	var req dto.MetodoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	w.FijarMetodo(req.Metodo)
	h.responder(c, w)
}

// Facturacion godoc
// @Summary      Actualizar los datos de facturación
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        body  body  dto.FacturacionRequest  true  "Datos de facturación"
// @Success      200  {object}  dto.CheckoutEstadoResponse
// @Router       /v1/checkout/facturacion [put]
func (h *CheckoutHandler) Facturacion(c *gin.Context) {
	w, ok := h.obtener(c)
	if !ok {
		return
	}
	var req dto.FacturacionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	w.FijarFacturacion(req.Facturacion())
	h.responder(c, w)
}

// Excepcion godoc
// @Summary      Aceptar la excepción de verificación del NIT
// @Description  Disponible solo después de una verificación fallida; una vez
// @Description  aceptada, el avance omite la verificación
// @Tags         checkout
// @Produce      json
// @Success      200  {object}  dto.CheckoutEstadoResponse
// @Failure      409  {object}  apierror.APIError
// @Router       /v1/checkout/excepcion [post]
func (h *CheckoutHandler) Excepcion(c *gin.Context) {
	w, ok := h.obtener(c)
	if !ok {
		return
	}
	if !w.AceptarExcepcion() {
		c.JSON(http.StatusConflict, apierror.New("No hay una excepción disponible para aceptar."))
		return
	}
	h.responder(c, w)
}

// EliminarItem godoc
// @Summary      Quitar un pago del carrito durante el checkout
// @Tags         checkout
// @Produce      json
// @Param        indice  path  int  true  "Índice del item"
// @Success      200  {object}  dto.CheckoutEstadoResponse
// @Router       /v1/checkout/item/{indice} [delete]
func (h *CheckoutHandler) EliminarItem(c *gin.Context) {
	w, ok := h.obtener(c)
	if !ok {
		return
	}
	indice, err := strconv.Atoi(c.Param("indice"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Índice inválido."))
		return
	}
	w.EliminarItem(c.Request.Context(), indice)
	h.responder(c, w)
}

// Recibo godoc
// @Summary      Descargar el recibo en PDF
// @Tags         checkout
// @Produce      application/pdf
// @Success      200  {file}    binary
// @Failure      404  {object}  apierror.APIError
// @Router       /v1/checkout/recibo.pdf [get]
func (h *CheckoutHandler) Recibo(c *gin.Context) {
	w, ok := h.obtener(c)
	if !ok {
		return
	}
	datos := w.Recibo()
	if datos == nil {
		c.JSON(http.StatusNotFound, apierror.New("Aún no existe un pago confirmado."))
		return
	}

	recibo := infra.Recibo{
		Fecha:         datos.Fecha,
		Moneda:        datos.Moneda,
		TotalServicio: datos.TotalServicio,
		TotalComision: datos.TotalComision,
		TotalGeneral:  datos.TotalGeneral,
		Vigencia:      datos.Vigencia,
		QRBase64:      datos.QRBase64,
	}
	for _, it := range datos.Items {
		recibo.Items = append(recibo.Items, infra.ReciboItem{
			ServicioNombre: it.ServicioNombre,
			CodigoContrato: it.CodigoContrato,
			Total:          it.Total,
		})
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `attachment; filename="recibo.pdf"`)
	if err := infra.GenerarReciboPDF(&recibo, c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("No se pudo generar el recibo."))
	}
}

// Descartar godoc
// @Summary      Abandonar el checkout
// @Tags         checkout
// @Success      204
// @Router       /v1/checkout [delete]
func (h *CheckoutHandler) Descartar(c *gin.Context) {
	h.registro.Descartar(middleware.SesionID(c))
	c.Status(http.StatusNoContent)
}

// ── internals ────────────────────────────────────────────────────────────────

func (h *CheckoutHandler) obtener(c *gin.Context) (*checkout.Wizard, bool) {
	w, ok := h.registro.Obtener(middleware.SesionID(c))
	if !ok {
		c.JSON(http.StatusNotFound, apierror.New("No hay un pago en curso."))
		return nil, false
	}
	return w, true
}

func (h *CheckoutHandler) responder(c *gin.Context, w *checkout.Wizard) {
	c.JSON(http.StatusOK, dto.NuevoCheckoutEstado(w.Estado(), popAviso(w.Aviso)))
}
