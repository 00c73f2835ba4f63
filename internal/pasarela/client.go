// Package pasarela is the HTTP client for the remote payment backend. The
// application is a presentation/orchestration layer over it: every catalog,
// debt and payment operation ends up here. All calls go through a circuit
// breaker so a pasarela outage fast-fails instead of piling up requests.
package pasarela

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"pagoqr/internal/infra"
	"pagoqr/internal/model"
)

// envelope wraps every pasarela response. success=false or a missing data
// field is treated uniformly as "not found / failed", independent of the
// transport-level status.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// ErrNoEncontrado signals a success=false / empty-data response.
var ErrNoEncontrado = fmt.Errorf("pasarela: recurso no encontrado")

// ErrorEstructurado is the recognized error envelope of failed calls. Tipo is
// one of "error" | "warning" | "alert" | "info" and maps onto the notice
// severities shown to the user.
type ErrorEstructurado struct {
	Tipo     string            `json:"type"`
	Codigo   string            `json:"code"`
	Mensaje  string            `json:"message"`
	Detalles map[string]string `json:"details"`
}

func (e *ErrorEstructurado) Error() string {
	return fmt.Sprintf("pasarela: [%s/%s] %s", e.Tipo, e.Codigo, e.Mensaje)
}

// Client talks to the pasarela over JSON/HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	circuito   *infra.Circuito
}

func NewClient(baseURL string, circuito *infra.Circuito) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		circuito:   circuito,
	}
}

// ── Response shapes ──────────────────────────────────────────────────────────

// CategoriaServicios groups catalog services for display.
type CategoriaServicios struct {
	Nombre    string           `json:"nombre"`
	Servicios []model.Servicio `json:"servicios"`
}

// DeudasRespuesta is the result of querying outstanding periods of a contract.
type DeudasRespuesta struct {
	Asociado model.Asociado       `json:"asociado"`
	Periodos []model.PeriodoDeuda `json:"periodos"`
}

// ItemPago is one line item of a payment request.
type ItemPago struct {
	ServicioAlias  string               `json:"servicio_alias"`
	CodigoContrato string               `json:"codigo_contrato"`
	CodigoBusqueda string               `json:"codigo_busqueda"`
	Periodos       []model.PeriodoDeuda `json:"periodos"`
	TotalServicio  decimal.Decimal      `json:"total_servicio"`
	TotalComision  decimal.Decimal      `json:"total_comision"`
	TotalGeneral   decimal.Decimal      `json:"total_general"`
}

// PagoRequest is the assembled payment submission.
type PagoRequest struct {
	Metodo        string                 `json:"metodo"`
	Moneda        string                 `json:"moneda"`
	Items         []ItemPago             `json:"items"`
	TotalServicio decimal.Decimal        `json:"total_servicio"`
	TotalComision decimal.Decimal        `json:"total_comision"`
	TotalGeneral  decimal.Decimal        `json:"total_general"`
	Facturacion   model.DatosFacturacion `json:"facturacion"`
	Huella        string                 `json:"huella"`
}

// PagoResultado is the successful payment response: a scannable QR plus its
// validity label.
type PagoResultado struct {
	Vigencia string `json:"vigencia"`
	QRBase64 string `json:"qr_base64"`
}

// ── Endpoints ────────────────────────────────────────────────────────────────

// ListarServicios returns the catalog of services grouped by category.
func (c *Client) ListarServicios(ctx context.Context) ([]CategoriaServicios, error) {
	var out []CategoriaServicios
	if err := c.get(ctx, "/servicios", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ObtenerServicio returns the configuration of one service by alias.
func (c *Client) ObtenerServicio(ctx context.Context, alias string) (*model.Servicio, error) {
	var out model.Servicio
	if err := c.get(ctx, "/servicios/"+url.PathEscape(alias), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EstadoServicio reports whether the service is currently active.
func (c *Client) EstadoServicio(ctx context.Context, alias string) (bool, error) {
	var out struct {
		Activo bool `json:"activo"`
	}
	if err := c.get(ctx, "/servicios/"+url.PathEscape(alias)+"/estado", &out); err != nil {
		return false, err
	}
	return out.Activo, nil
}

// BuscarContratos queries the contracts of a debt code within a service.
// A zero-length result is not an error here; the wizard decides how to surface it.
func (c *Client) BuscarContratos(ctx context.Context, alias, codigo string) ([]model.Contrato, error) {
	body := map[string]string{"servicio": alias, "codigo": codigo}
	var out []model.Contrato
	if err := c.post(ctx, "/contratos/buscar", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ConsultarDeudas returns the outstanding periods of a contract. The token is
// the checksum returned alongside the contract by BuscarContratos.
func (c *Client) ConsultarDeudas(ctx context.Context, alias, codigoContrato, token string) (*DeudasRespuesta, error) {
	body := map[string]string{"servicio": alias, "contrato": codigoContrato, "token": token}
	var out DeudasRespuesta
	if err := c.post(ctx, "/deudas/consultar", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerificarDocumento asks the pasarela whether a tax-document number is valid.
func (c *Client) VerificarDocumento(ctx context.Context, numero string) (bool, error) {
	body := map[string]string{"numero": numero}
	var out struct {
		Valido bool `json:"valido"`
	}
	if err := c.post(ctx, "/documentos/verificar", body, &out); err != nil {
		return false, err
	}
	return out.Valido, nil
}

// Pagar submits the payment and returns the generated QR.
func (c *Client) Pagar(ctx context.Context, req PagoRequest) (*PagoResultado, error) {
	var out PagoResultado
	if err := c.post(ctx, "/pagos", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ── Transport ────────────────────────────────────────────────────────────────

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.circuito.Proteger(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return fmt.Errorf("pasarela: create request: %w", err)
		}
		return c.do(req, out)
	})
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.circuito.Proteger(func() error {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("pasarela: marshal body: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
		if err != nil {
			return fmt.Errorf("pasarela: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		return c.do(req, out)
	})
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pasarela: unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// Try the structured error envelope first; fall back to a bare status error.
		var structured ErrorEstructurado
		if decodeErr := json.NewDecoder(resp.Body).Decode(&structured); decodeErr == nil && structured.Mensaje != "" {
			return &structured
		}
		return fmt.Errorf("pasarela: respuesta %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("pasarela: decode response: %w", err)
	}
	if !env.Success || len(env.Data) == 0 {
		return ErrNoEncontrado
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("pasarela: decode data: %w", err)
	}
	return nil
}
