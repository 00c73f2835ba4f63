// Package aviso implements the blocking notice surface the wizards use to
// report failures and warnings. The slot holds at most one notice: a new call
// replaces whatever is currently shown (last call wins).
package aviso

import (
	"errors"

	"pagoqr/internal/pasarela"
)

// Severities, in the order the pasarela error envelope uses them.
const (
	TipoError   = "error"
	TipoWarning = "warning"
	TipoAlert   = "alert"
	TipoInfo    = "info"
)

// Aviso is the notice shown to the user.
type Aviso struct {
	Tipo    string `json:"tipo"`
	Titulo  string `json:"titulo"`
	Mensaje string `json:"mensaje"`
	Boton   string `json:"boton"`
	// Redirigir is the path the client must navigate to on dismissal; empty
	// means stay in place.
	Redirigir string `json:"redirigir,omitempty"`
}

// Opciones overrides the per-severity defaults field by field.
type Opciones struct {
	Titulo    string
	Mensaje   string
	Boton     string
	Redirigir *string // nil = keep default; pointer to "" = stay in place
}

// defaults per severity. Only "error" redirects home on dismissal.
var defaults = map[string]Aviso{
	TipoError:   {Tipo: TipoError, Titulo: "Error", Mensaje: "Ocurrió un error inesperado. Intente nuevamente.", Boton: "Aceptar", Redirigir: "/"},
	TipoWarning: {Tipo: TipoWarning, Titulo: "Advertencia", Mensaje: "Revise la operación antes de continuar.", Boton: "Entendido"},
	TipoAlert:   {Tipo: TipoAlert, Titulo: "Atención", Mensaje: "La operación requiere su atención.", Boton: "Aceptar"},
	TipoInfo:    {Tipo: TipoInfo, Titulo: "Información", Mensaje: "", Boton: "Aceptar"},
}

// Slot is the single-slot notice holder. Not safe for concurrent use by
// itself; the owning wizard serializes access under its own lock.
type Slot struct {
	actual *Aviso
}

func NewSlot() *Slot { return &Slot{} }

// Mostrar replaces the current notice with one of the given severity,
// applying any per-call overrides. Unknown severities degrade to "error".
func (s *Slot) Mostrar(tipo string, op Opciones) {
	base, ok := defaults[tipo]
	if !ok {
		base = defaults[TipoError]
	}
	if op.Titulo != "" {
		base.Titulo = op.Titulo
	}
	if op.Mensaje != "" {
		base.Mensaje = op.Mensaje
	}
	if op.Boton != "" {
		base.Boton = op.Boton
	}
	if op.Redirigir != nil {
		base.Redirigir = *op.Redirigir
	}
	s.actual = &base
}

// DesdeError inspects a failed pasarela call for the recognized structured
// envelope and populates the slot from it. Returns true when the notice was
// handled here; callers fall back to their own generic message otherwise.
func (s *Slot) DesdeError(err error) bool {
	var structured *pasarela.ErrorEstructurado
	if !errors.As(err, &structured) {
		return false
	}
	s.Mostrar(structured.Tipo, Opciones{Mensaje: structured.Mensaje})
	return true
}

// Actual returns the visible notice, or nil.
func (s *Slot) Actual() *Aviso { return s.actual }

// Descartar clears the slot.
func (s *Slot) Descartar() { s.actual = nil }
