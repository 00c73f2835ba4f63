// Package dto defines the request/response shapes of the HTTP surface. The
// wizards validate business rules themselves so they can answer with inline
// step errors; binding tags here only reject structurally broken payloads.
package dto

import (
	"pagoqr/internal/aviso"
	"pagoqr/internal/cobranza"
	"pagoqr/internal/confirmar"
	"pagoqr/internal/model"
)

// BuscarRequest carries the debt code of the step-1 search. The code is not
// "required" at binding level: an empty code must produce the wizard's inline
// error, not a 400.
type BuscarRequest struct {
	Codigo string `json:"codigo"`
}

// SeleccionContratoRequest sets the tentative contract on step 2.
type SeleccionContratoRequest struct {
	Codigo string `json:"codigo" binding:"required"`
}

// MarcarRequest toggles one period checkbox.
type MarcarRequest struct {
	Indice  *int `json:"indice" binding:"required"`
	Marcado bool `json:"marcado"`
}

// MarcarTodoRequest toggles every period at once.
type MarcarTodoRequest struct {
	Marcado bool `json:"marcado"`
}

// ResolverRequest answers the pending replace confirmation.
type ResolverRequest struct {
	Aceptado bool `json:"aceptado"`
}

// CobranzaEstadoResponse is the wizard snapshot plus the session's notice and
// confirmation surfaces, returned by every collection endpoint.
type CobranzaEstadoResponse struct {
	Paso         int                  `json:"paso"`
	Servicio     model.Servicio       `json:"servicio"`
	Codigo       string               `json:"codigo"`
	Contratos    []model.Contrato     `json:"contratos"`
	Contrato     *model.Contrato      `json:"contrato,omitempty"`
	Deudas       []model.PeriodoDeuda `json:"deudas"`
	Marcados     []bool               `json:"marcados"`
	Asociado     *model.Asociado      `json:"asociado,omitempty"`
	ErrorPaso    string               `json:"error_paso,omitempty"`
	Cargando     bool                 `json:"cargando"`
	Enviado      bool                 `json:"enviado"`
	Aviso        *aviso.Aviso         `json:"aviso,omitempty"`
	Confirmacion *confirmar.Config    `json:"confirmacion,omitempty"`
}

// NuevaCobranzaEstado assembles the response from a wizard snapshot.
func NuevaCobranzaEstado(e cobranza.Estado, av *aviso.Aviso, conf *confirmar.Config) CobranzaEstadoResponse {
	return CobranzaEstadoResponse{
		Paso:         int(e.Paso),
		Servicio:     e.Servicio,
		Codigo:       e.Codigo,
		Contratos:    e.Contratos,
		Contrato:     e.Contrato,
		Deudas:       e.Deudas,
		Marcados:     e.Marcados,
		Asociado:     e.Asociado,
		ErrorPaso:    e.ErrorPaso,
		Cargando:     e.Cargando,
		Enviado:      e.Enviado,
		Aviso:        av,
		Confirmacion: conf,
	}
}
