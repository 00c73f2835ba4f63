package model

import "github.com/shopspring/decimal"

// PeriodoDeuda is one billable period of an outstanding debt, as returned by
// the pasarela. MontoTotal comes pre-computed upstream; the wizard only sums
// across selected periods, it never re-derives it.
type PeriodoDeuda struct {
	DocumentoPagoID string          `json:"documento_pago_id"`
	Anio            int             `json:"anio"`
	Mes             int             `json:"mes"`
	Etiqueta        string          `json:"etiqueta"`
	MontoServicio   decimal.Decimal `json:"monto_servicio"`
	MontoComision   decimal.Decimal `json:"monto_comision"`
	MontoTotal      decimal.Decimal `json:"monto_total"`
	CodigoPeriodo   string          `json:"codigo_periodo"`
}

// Contrato is a billing agreement belonging to an associate. Token is the
// checksum returned alongside the contract, required to query its debts.
type Contrato struct {
	Codigo      string `json:"codigo"`
	Descripcion string `json:"descripcion"`
	Token       string `json:"token"`
}

// Asociado is the end customer who owes the debt; its document data seeds the
// billing form of the line item.
type Asociado struct {
	Nombre          string `json:"nombre"`
	TipoDocumento   int    `json:"tipo_documento"`
	Complemento     string `json:"complemento"`
	NumeroDocumento string `json:"numero_documento"`
	Email           string `json:"email"`
	Telefono        string `json:"telefono"`
}

// Servicio is the configuration of a billable service from the pasarela.
// Modalidad "cobranza" is the only one this application can drive; any other
// modality is redirected to the institutional placeholder.
type Servicio struct {
	Alias             string `json:"alias"`
	Nombre            string `json:"nombre"`
	Moneda            string `json:"moneda"`
	DocumentoEtiqueta string `json:"documento_etiqueta"`
	Modalidad         string `json:"modalidad"`
}

// ModalidadCobranza is the operation mode this checkout supports.
const ModalidadCobranza = "cobranza"
