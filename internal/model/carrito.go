package model

import (
	"time"

	"github.com/shopspring/decimal"

	"pagoqr/internal/money"
)

// DatosFacturacion are the billing fields attached to a line item and later
// editable in the checkout.
type DatosFacturacion struct {
	TipoDocumento   int    `json:"tipo_documento"`
	Complemento     string `json:"complemento"`
	NumeroDocumento string `json:"numero_documento"`
	RazonSocial     string `json:"razon_social"`
	Email           string `json:"email"`
	Telefono        string `json:"telefono"`
}

// ItemCarrito is one purchasable unit: a single service+contract selection of
// debt periods. Identity for duplicate detection is (ServicioAlias, CodigoContrato).
type ItemCarrito struct {
	AgregadoEn        time.Time        `json:"agregado_en"`
	ServicioAlias     string           `json:"servicio_alias"`
	ServicioNombre    string           `json:"servicio_nombre"`
	Moneda            string           `json:"moneda"`
	DocumentoEtiqueta string           `json:"documento_etiqueta"`
	CodigoBusqueda    string           `json:"codigo_busqueda"`
	CodigoContrato    string           `json:"codigo_contrato"`
	NombreAsociado    string           `json:"nombre_asociado"`
	Facturacion       DatosFacturacion `json:"facturacion"`
	TotalServicio     decimal.Decimal  `json:"total_servicio"`
	TotalComision     decimal.Decimal  `json:"total_comision"`
	TotalGeneral      decimal.Decimal  `json:"total_general"`
	Periodos          []PeriodoDeuda   `json:"periodos"`
}

// Carrito is the session-bound aggregate of line items. All items share one
// currency; the invariant is enforced at insertion time by the store.
type Carrito struct {
	SesionID      string        `json:"sesion_id"`
	Items         []ItemCarrito `json:"items"`
	CreadoEn      time.Time     `json:"creado_en"`
	ActualizadoEn time.Time     `json:"actualizado_en"`
}

// EstaVacio reports whether the cart has no items.
func (c *Carrito) EstaVacio() bool { return len(c.Items) == 0 }

// Cantidad returns the number of line items.
func (c *Carrito) Cantidad() int { return len(c.Items) }

// Moneda returns the cart currency: the first item's, or "" when empty.
func (c *Carrito) Moneda() string {
	if len(c.Items) == 0 {
		return ""
	}
	return c.Items[0].Moneda
}

// TotalServicio sums the service totals of every item.
func (c *Carrito) TotalServicio() decimal.Decimal {
	montos := make([]decimal.Decimal, len(c.Items))
	for i, it := range c.Items {
		montos[i] = it.TotalServicio
	}
	return money.Sum(montos...)
}

// TotalComision sums the commission totals of every item.
func (c *Carrito) TotalComision() decimal.Decimal {
	montos := make([]decimal.Decimal, len(c.Items))
	for i, it := range c.Items {
		montos[i] = it.TotalComision
	}
	return money.Sum(montos...)
}

// TotalGeneral is the grand total across items.
func (c *Carrito) TotalGeneral() decimal.Decimal {
	return money.Sum(c.TotalServicio(), c.TotalComision())
}

// HayComisiones reports whether the summed commission total is strictly
// positive. Governs billing-field requirements and the NIT sub-step.
func (c *Carrito) HayComisiones() bool {
	return c.TotalComision().GreaterThan(decimal.Zero)
}
