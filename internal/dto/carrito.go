package dto

import (
	"github.com/shopspring/decimal"

	"pagoqr/internal/model"
)

// CarritoResponse serializes the session cart with its derived totals.
type CarritoResponse struct {
	Items         []model.ItemCarrito `json:"items"`
	Cantidad      int                 `json:"cantidad"`
	Moneda        string              `json:"moneda"`
	TotalServicio decimal.Decimal     `json:"total_servicio"`
	TotalComision decimal.Decimal     `json:"total_comision"`
	TotalGeneral  decimal.Decimal     `json:"total_general"`
	HayComisiones bool                `json:"hay_comisiones"`
}

// NuevoCarrito assembles the response from the domain cart.
func NuevoCarrito(c *model.Carrito) CarritoResponse {
	return CarritoResponse{
		Items:         c.Items,
		Cantidad:      c.Cantidad(),
		Moneda:        c.Moneda(),
		TotalServicio: c.TotalServicio(),
		TotalComision: c.TotalComision(),
		TotalGeneral:  c.TotalGeneral(),
		HayComisiones: c.HayComisiones(),
	}
}
