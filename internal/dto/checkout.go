package dto

import (
	"github.com/shopspring/decimal"

	"pagoqr/internal/aviso"
	"pagoqr/internal/checkout"
	"pagoqr/internal/huella"
	"pagoqr/internal/model"
)

// IniciarCheckoutRequest opens the checkout, carrying the device probes
// collected client-side. Caracteristicas may be nil; the fingerprint then
// degrades to its all-sentinel form.
type IniciarCheckoutRequest struct {
	Caracteristicas *huella.Caracteristicas `json:"caracteristicas"`
}

// MetodoRequest selects the payment method on step 2.
type MetodoRequest struct {
	Metodo string `json:"metodo" binding:"required"`
}

// FacturacionRequest replaces the step-3 billing form. Field-level rules
// (valid email, commission-conditional requirements) live in the wizard so
// they surface as inline step errors.
type FacturacionRequest struct {
	TipoDocumento   int    `json:"tipo_documento"`
	Complemento     string `json:"complemento"`
	NumeroDocumento string `json:"numero_documento"`
	RazonSocial     string `json:"razon_social"`
	Email           string `json:"email"`
	Telefono        string `json:"telefono"`
}

// Facturacion converts the request into the domain form.
func (r FacturacionRequest) Facturacion() model.DatosFacturacion {
	return model.DatosFacturacion{
		TipoDocumento:   r.TipoDocumento,
		Complemento:     r.Complemento,
		NumeroDocumento: r.NumeroDocumento,
		RazonSocial:     r.RazonSocial,
		Email:           r.Email,
		Telefono:        r.Telefono,
	}
}

// CheckoutEstadoResponse is the wizard snapshot plus the session notice,
// returned by every checkout endpoint.
type CheckoutEstadoResponse struct {
	Paso              int                    `json:"paso"`
	Items             []model.ItemCarrito    `json:"items"`
	Moneda            string                 `json:"moneda"`
	TotalServicio     decimal.Decimal        `json:"total_servicio"`
	TotalComision     decimal.Decimal        `json:"total_comision"`
	TotalGeneral      decimal.Decimal        `json:"total_general"`
	HayComisiones     bool                   `json:"hay_comisiones"`
	Metodos           []string               `json:"metodos"`
	Metodo            string                 `json:"metodo,omitempty"`
	Facturacion       model.DatosFacturacion `json:"facturacion"`
	ExcepcionOfrecida bool                   `json:"excepcion_ofrecida"`
	ExcepcionAceptada bool                   `json:"excepcion_aceptada"`
	QR                *checkout.Resultado    `json:"qr,omitempty"`
	Errores           []string               `json:"errores,omitempty"`
	Cargando          bool                   `json:"cargando"`
	Aviso             *aviso.Aviso           `json:"aviso,omitempty"`
}

// NuevoCheckoutEstado assembles the response from a wizard snapshot.
func NuevoCheckoutEstado(e checkout.Estado, av *aviso.Aviso) CheckoutEstadoResponse {
	return CheckoutEstadoResponse{
		Paso:              e.Paso,
		Items:             e.Items,
		Moneda:            e.Moneda,
		TotalServicio:     e.TotalServicio,
		TotalComision:     e.TotalComision,
		TotalGeneral:      e.TotalGeneral,
		HayComisiones:     e.HayComisiones,
		Metodos:           e.Metodos,
		Metodo:            e.Metodo,
		Facturacion:       e.Facturacion,
		ExcepcionOfrecida: e.ExcepcionOfrecida,
		ExcepcionAceptada: e.ExcepcionAceptada,
		QR:                e.QR,
		Errores:           e.Errores,
		Cargando:          e.Cargando,
		Aviso:             av,
	}
}
