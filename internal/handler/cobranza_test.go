package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagoqr/internal/carrito"
	"pagoqr/internal/cobranza"
	"pagoqr/internal/dto"
	"pagoqr/internal/middleware"
	"pagoqr/internal/model"
	"pagoqr/internal/pasarela"
	"pagoqr/internal/session"
)

func d(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

// cobranzaBackendStub cubre Catalogo y Pasarela para el flujo HTTP completo.
type cobranzaBackendStub struct{}

func (cobranzaBackendStub) ObtenerServicio(_ context.Context, alias string) (*model.Servicio, error) {
	if alias != "agua" {
		return nil, pasarela.ErrNoEncontrado
	}
	return &model.Servicio{Alias: "agua", Nombre: "Agua Potable", Moneda: "Bs.", Modalidad: model.ModalidadCobranza}, nil
}

func (cobranzaBackendStub) EstadoServicio(_ context.Context, alias string) (bool, error) {
	return alias == "agua", nil
}

func (cobranzaBackendStub) BuscarContratos(_ context.Context, _, codigo string) ([]model.Contrato, error) {
	if codigo != "12345" {
		return nil, nil
	}
	return []model.Contrato{{Codigo: "C-1", Token: "tok"}}, nil
}

func (cobranzaBackendStub) ConsultarDeudas(_ context.Context, _, _, _ string) (*pasarela.DeudasRespuesta, error) {
	return &pasarela.DeudasRespuesta{
		Asociado: model.Asociado{Nombre: "Juana Quispe"},
		Periodos: []model.PeriodoDeuda{
			{Etiqueta: "Enero 2026", MontoServicio: d("30.00"), MontoTotal: d("30.00")},
		},
	}, nil
}

func montarRutas(t *testing.T) (*gin.Engine, *carrito.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := carrito.NewStore(session.NewMemoria(), "Bs.")
	stub := cobranzaBackendStub{}
	registro := cobranza.NewRegistro(stub, stub, store, time.Minute)

	hc := NewCobranzaHandler(registro)
	hk := NewCarritoHandler(store)

	r := gin.New()
	v1 := r.Group("/v1")
	v1.Use(middleware.Sesion())
	v1.POST("/cobranza/:alias/iniciar", hc.Iniciar)
	v1.GET("/cobranza", hc.Estado)
	v1.POST("/cobranza/buscar", hc.Buscar)
	v1.POST("/cobranza/marcar", hc.Marcar)
	v1.POST("/cobranza/enviar", hc.Enviar)
	v1.GET("/carrito", hk.Estado)
	return r, store
}

func pedir(t *testing.T, r *gin.Engine, metodo, ruta, cuerpo, sesionID string) *httptest.ResponseRecorder {
	t.Helper()
	var body *strings.Reader
	if cuerpo == "" {
		body = strings.NewReader("")
	} else {
		body = strings.NewReader(cuerpo)
	}
	req := httptest.NewRequest(metodo, ruta, body)
	req.Header.Set("Content-Type", "application/json")
	if sesionID != "" {
		req.Header.Set("X-Session-ID", sesionID)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSesionSeEmiteYSeEcoa(t *testing.T) {
	r, _ := montarRutas(t)

	rec := pedir(t, r, http.MethodGet, "/v1/carrito", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Session-ID"), "sin sesión el servidor emite una")

	rec = pedir(t, r, http.MethodGet, "/v1/carrito", "", "mi-sesion")
	assert.Equal(t, "mi-sesion", rec.Header().Get("X-Session-ID"))
}

func TestCobranzaSinWizardEs404(t *testing.T) {
	r, _ := montarRutas(t)
	rec := pedir(t, r, http.MethodGet, "/v1/cobranza", "", "s1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIniciarServicioDesconocidoEs404(t *testing.T) {
	r, _ := montarRutas(t)
	rec := pedir(t, r, http.MethodPost, "/v1/cobranza/inexistente/iniciar", "", "s1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFlujoCobranzaPorHTTP(t *testing.T) {
	r, _ := montarRutas(t)

	rec := pedir(t, r, http.MethodPost, "/v1/cobranza/agua/iniciar", "", "s1")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = pedir(t, r, http.MethodPost, "/v1/cobranza/buscar", `{"codigo":"12345"}`, "s1")
	require.Equal(t, http.StatusOK, rec.Code)

	var estado dto.CobranzaEstadoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &estado))
	assert.Equal(t, 3, estado.Paso, "un solo contrato aterriza directo en las deudas")
	require.Len(t, estado.Deudas, 1)

	rec = pedir(t, r, http.MethodPost, "/v1/cobranza/marcar", `{"indice":0,"marcado":true}`, "s1")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = pedir(t, r, http.MethodPost, "/v1/cobranza/enviar", "", "s1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &estado))
	assert.True(t, estado.Enviado)

	// El carrito de la misma sesión contiene el pago; otra sesión no ve nada.
	rec = pedir(t, r, http.MethodGet, "/v1/carrito", "", "s1")
	var cart dto.CarritoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	assert.Equal(t, 1, cart.Cantidad)

	rec = pedir(t, r, http.MethodGet, "/v1/carrito", "", "s2")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	assert.Zero(t, cart.Cantidad)
}

func TestBuscarSinResultadosDevuelveErrorInline(t *testing.T) {
	r, _ := montarRutas(t)
	pedir(t, r, http.MethodPost, "/v1/cobranza/agua/iniciar", "", "s1")

	rec := pedir(t, r, http.MethodPost, "/v1/cobranza/buscar", `{"codigo":"99999"}`, "s1")
	require.Equal(t, http.StatusOK, rec.Code, "el resultado vacío no es un error HTTP")

	var estado dto.CobranzaEstadoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &estado))
	assert.Equal(t, 1, estado.Paso)
	assert.Equal(t, cobranza.MensajeSinContratos, estado.ErrorPaso)
}

func TestMarcarCuerpoInvalidoEs400(t *testing.T) {
	r, _ := montarRutas(t)
	pedir(t, r, http.MethodPost, "/v1/cobranza/agua/iniciar", "", "s1")

	rec := pedir(t, r, http.MethodPost, "/v1/cobranza/marcar", `{"marcado":true}`, "s1")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "el índice es obligatorio")
}
