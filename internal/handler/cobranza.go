package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pagoqr/internal/apierror"
	"pagoqr/internal/cobranza"
	"pagoqr/internal/dto"
	"pagoqr/internal/middleware"
)

// CobranzaHandler drives the debt-collection wizard over HTTP. Every mutating
// endpoint answers with the full wizard snapshot so the client re-renders
// from a single source of truth.
type CobranzaHandler struct {
	registro *cobranza.Registro
}

func NewCobranzaHandler(registro *cobranza.Registro) *CobranzaHandler {
	return &CobranzaHandler{registro: registro}
}

// Iniciar godoc
// @Summary      Iniciar una operación de cobranza
// @Description  Valida el servicio y abre el asistente para la sesión
// @Tags         cobranza
// @Produce      json
// @Param        alias  path  string  true  "Alias del servicio"
// @Success      200  {object}  dto.CobranzaEstadoResponse
// @Failure      404  {object}  apierror.APIError
// @Failure      409  {object}  apierror.APIError
// @Router       /v1/cobranza/{alias}/iniciar [post]
func (h *CobranzaHandler) Iniciar(c *gin.Context) {
	w, err := h.registro.Iniciar(c.Request.Context(), middleware.SesionID(c), c.Param("alias"))
	if err != nil {
		switch {
		case errors.Is(err, cobranza.ErrModalidadNoSoportada):
			c.JSON(http.StatusConflict, apierror.New("El servicio no admite pagos en línea."))
		default:
			c.JSON(http.StatusNotFound, apierror.New("El servicio no está disponible."))
		}
		return
	}
	h.responder(c, w)
}

// Estado godoc
// @Summary      Estado del asistente de cobranza
// @Tags         cobranza
// @Produce      json
// @Success      200  {object}  dto.CobranzaEstadoResponse
// @Failure      404  {object}  apierror.APIError
// @Router       /v1/cobranza [get]
func (h *CobranzaHandler) Estado(c *gin.Context) {
	w, ok := h.obtener(c)
	if !ok {
		return
	}
	h.responder(c, w)
}

// Buscar godoc
// @Summary      Buscar contratos por código de deuda
// @Tags         cobranza
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BuscarRequest  true  "Código de búsqueda"
// @Success      200  {object}  dto.CobranzaEstadoResponse
// @Router       /v1/cobranza/buscar [post]
func (h *CobranzaHandler) Buscar(c *gin.Context) {
	w, ok := h.obtener(c)
	if !ok {
		return
	}
	var req dto.BuscarRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := w.Buscar(c.Request.Context(), req.Codigo); err != nil {
		h.ocupado(c)
		return
	}
	h.responder(c, w)
}

// SeleccionarContrato godoc
// @Summary      Seleccionar un contrato del resultado de búsqueda
// @Tags         cobranza
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SeleccionContratoRequest  true  "Contrato"
// @Success      200  {object}  dto.CobranzaEstadoResponse
// @Router       /v1/cobranza/contrato [post]
func (h *CobranzaHandler) SeleccionarContrato(c *gin.Context) {
	w, ok := h.obtener(c)
	if !ok {
		return
	}
	var req dto.SeleccionContratoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	w.SeleccionarContrato(req.Codigo)
	h.responder(c, w)
}

// Confirmar godoc
// @Summary      Confirmar el contrato y consultar sus deudas
// @Tags         cobranza
// @Produce      json
// @Success      200  {object}  dto.CobranzaEstadoResponse
// @Router       /v1/cobranza/confirmar [post]
func (h *CobranzaHandler) Confirmar(c *gin.Context) {
	w, ok := h.obtener(c)
	if !ok {
		return
	}
	if err := w.Confirmar(c.Request.Context()); err != nil {
		h.ocupado(c)
		return
	}
	h.responder(c, w)
}

// Marcar godoc
// @Summary      Marcar o desmarcar un periodo de deuda
// @Description  El marcado es en cascada: marcar incluye los periodos previos,
// @Description  desmarcar excluye los posteriores
// @Tags         cobranza
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MarcarRequest  true  "Periodo"
// @Success      200  {object}  dto.CobranzaEstadoResponse
// @Router       /v1/cobranza/marcar [post]
func (h *CobranzaHandler) Marcar(c *gin.Context) {
	w, ok := h.obtener(c)
	if !ok {
		return
	}
	var req dto.MarcarRequest
	if !bindAndValidate(c, &req) {
		return
	}
	w.MarcarUno(*req.Indice, req.Marcado)
	h.responder(c, w)
}

// MarcarTodo godoc
// @Summary      Marcar o desmarcar todos los periodos
// @Tags         cobranza
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MarcarTodoRequest  true  "Marcado"
// @Success      200  {object}  dto.CobranzaEstadoResponse
// @Router       /v1/cobranza/marcar-todo [post]
func (h *CobranzaHandler) MarcarTodo(c *gin.Context) {
	w, ok := h.obtener(c)
	if !ok {
		return
	}
	var req dto.MarcarTodoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	w.MarcarTodos(req.Marcado)
	h.responder(c, w)
}

// Enviar godoc
// @Summary      Enviar la selección al carrito
// @Description  Valida moneda y duplicados; un duplicado abre una confirmación
// @Description  de reemplazo que debe resolverse vía /resolver
// @Tags         cobranza
// @Produce      json
// @Success      200  {object}  dto.CobranzaEstadoResponse
// @Router       /v1/cobranza/enviar [post]
func (h *CobranzaHandler) Enviar(c *gin.Context) {
	w, ok := h.obtener(c)
	if !ok {
		return
	}
	if err := w.Enviar(c.Request.Context()); err != nil {
		h.ocupado(c)
		return
	}
	h.responder(c, w)
}

// Resolver godoc
// @Summary      Resolver la confirmación de reemplazo pendiente
// @Tags         cobranza
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ResolverRequest  true  "Decisión"
// @Success      200  {object}  dto.CobranzaEstadoResponse
// @Router       /v1/cobranza/resolver [post]
func (h *CobranzaHandler) Resolver(c *gin.Context) {
	w, ok := h.obtener(c)
	if !ok {
		return
	}
	var req dto.ResolverRequest
	if !bindAndValidate(c, &req) {
		return
	}
	w.ResolverDuplicado(c.Request.Context(), req.Aceptado)
	h.responder(c, w)
}

// Atras godoc
// @Summary      Volver al paso anterior
// @Tags         cobranza
// @Produce      json
// @Success      200  {object}  dto.CobranzaEstadoResponse
// @Router       /v1/cobranza/atras [post]
func (h *CobranzaHandler) Atras(c *gin.Context) {
	w, ok := h.obtener(c)
	if !ok {
		return
	}
	w.PasoAnterior()
	h.responder(c, w)
}

// Descartar godoc
// @Summary      Abandonar la operación de cobranza
// @Tags         cobranza
// @Success      204
// @Router       /v1/cobranza [delete]
func (h *CobranzaHandler) Descartar(c *gin.Context) {
	h.registro.Descartar(middleware.SesionID(c))
	c.Status(http.StatusNoContent)
}

// ── internals ────────────────────────────────────────────────────────────────

func (h *CobranzaHandler) obtener(c *gin.Context) (*cobranza.Wizard, bool) {
	w, ok := h.registro.Obtener(middleware.SesionID(c))
	if !ok {
		c.JSON(http.StatusNotFound, apierror.New("No hay una operación de cobranza en curso."))
		return nil, false
	}
	return w, true
}

func (h *CobranzaHandler) ocupado(c *gin.Context) {
	c.JSON(http.StatusConflict, apierror.New("Hay una operación en curso. Espere a que termine."))
}

func (h *CobranzaHandler) responder(c *gin.Context, w *cobranza.Wizard) {
	c.JSON(http.StatusOK, dto.NuevaCobranzaEstado(w.Estado(), popAviso(w.Aviso), w.Confirmacion.Pendiente()))
}
