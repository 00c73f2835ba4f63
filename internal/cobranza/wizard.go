// Package cobranza implements the debt-collection wizard: search a debt code,
// pick a contract when several exist, select periods in chronological order
// and hand the result to the cart.
package cobranza

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"pagoqr/internal/aviso"
	"pagoqr/internal/confirmar"
	"pagoqr/internal/model"
	"pagoqr/internal/money"
	"pagoqr/internal/pasarela"
)

// Paso is the wizard step.
type Paso int

const (
	PasoBusqueda  Paso = 1
	PasoContratos Paso = 2
	PasoDeudas    Paso = 3
)

// Wizard errors surfaced to the handler layer.
var (
	// ErrOcupado: a backend call is in flight; mutating actions no-op.
	ErrOcupado = errors.New("cobranza: operación en curso")
	// ErrServicioInactivo blocks wizard creation for inactive/unknown services.
	ErrServicioInactivo = errors.New("cobranza: servicio no disponible")
	// ErrModalidadNoSoportada redirects non-collection services to the
	// institutional placeholder.
	ErrModalidadNoSoportada = errors.New("cobranza: modalidad no soportada")
)

// MensajeSinContratos is the step-1 inline error for an empty search result.
const MensajeSinContratos = "No se encontraron contratos"

// Pasarela is the backend subset the wizard needs.
type Pasarela interface {
	BuscarContratos(ctx context.Context, alias, codigo string) ([]model.Contrato, error)
	ConsultarDeudas(ctx context.Context, alias, codigoContrato, token string) (*pasarela.DeudasRespuesta, error)
}

// Carrito is the cart-store subset the wizard needs.
type Carrito interface {
	PuedeAgregarMoneda(ctx context.Context, sesionID, moneda string) (bool, string)
	IndiceDuplicado(ctx context.Context, sesionID, servicioAlias, codigoContrato string) int
	Cargar(ctx context.Context, sesionID string) *model.Carrito
	Agregar(ctx context.Context, sesionID string, item model.ItemCarrito) (*model.Carrito, bool)
	Reemplazar(ctx context.Context, sesionID string, indice int, item model.ItemCarrito) (*model.Carrito, bool)
}

// Wizard holds the ephemeral selection state for one session. Never persisted:
// it dies with the registry entry.
type Wizard struct {
	mu       sync.Mutex
	cargando bool

	sesionID string
	servicio model.Servicio

	paso      Paso
	codigo    string
	contratos []model.Contrato
	contrato  *model.Contrato
	deudas    []model.PeriodoDeuda
	marcados  []bool
	asociado  *model.Asociado
	errorPaso string
	enviado   bool

	backend Pasarela
	carrito Carrito

	// Aviso and Confirmacion are the session's notification surfaces; the
	// handler layer serializes them into every wizard response.
	Aviso        *aviso.Slot
	Confirmacion *confirmar.Servicio
}

func newWizard(sesionID string, servicio model.Servicio, backend Pasarela, carrito Carrito) *Wizard {
	return &Wizard{
		sesionID:     sesionID,
		servicio:     servicio,
		paso:         PasoBusqueda,
		backend:      backend,
		carrito:      carrito,
		Aviso:        aviso.NewSlot(),
		Confirmacion: confirmar.NewServicio(),
	}
}

// ── Re-entrancy guard ────────────────────────────────────────────────────────
// Backend calls are asynchronous from the client's point of view; while one is
// in flight the wizard ignores further mutating actions instead of locking the
// caller out. This is the primary concurrency-correctness mechanism.

func (w *Wizard) empezar() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cargando {
		return ErrOcupado
	}
	w.cargando = true
	return nil
}

func (w *Wizard) terminar() {
	w.mu.Lock()
	w.cargando = false
	w.mu.Unlock()
}

// ── Step 1: search ───────────────────────────────────────────────────────────

// Buscar runs the debt-code query. Zero contracts keeps the wizard on step 1
// with an inline error; exactly one auto-selects it and lands directly on the
// debt step without ever visiting step 2; several move to contract selection.
func (w *Wizard) Buscar(ctx context.Context, codigo string) error {
	codigo = strings.TrimSpace(codigo)
	if codigo == "" {
		w.mu.Lock()
		w.errorPaso = "Ingrese un código de búsqueda"
		w.mu.Unlock()
		return nil
	}

	if err := w.empezar(); err != nil {
		return err
	}
	defer w.terminar()

	contratos, err := w.backend.BuscarContratos(ctx, w.servicio.Alias, codigo)
	if err != nil {
		w.fallaBackend(err, "No se pudo realizar la búsqueda. Intente nuevamente.")
		return nil
	}

	w.mu.Lock()
	w.codigo = codigo
	w.errorPaso = ""
	w.contratos = contratos
	w.contrato = nil
	w.mu.Unlock()

	switch len(contratos) {
	case 0:
		w.mu.Lock()
		w.errorPaso = MensajeSinContratos
		w.mu.Unlock()
		return nil
	case 1:
		w.mu.Lock()
		w.contrato = &contratos[0]
		w.mu.Unlock()
		return w.consultarDeudas(ctx)
	default:
		w.mu.Lock()
		w.paso = PasoContratos
		w.mu.Unlock()
		return nil
	}
}

// ── Step 2: contract selection ───────────────────────────────────────────────

// SeleccionarContrato sets the tentative selection; it does not transition.
func (w *Wizard) SeleccionarContrato(codigoContrato string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.contratos {
		if w.contratos[i].Codigo == codigoContrato {
			w.contrato = &w.contratos[i]
			w.errorPaso = ""
			return
		}
	}
	w.errorPaso = "Seleccione un contrato válido"
}

// Confirmar requires a selection and issues the debts query. Zero debts still
// land on the debt step with an empty list — not an error.
func (w *Wizard) Confirmar(ctx context.Context) error {
	w.mu.Lock()
	if w.contrato == nil {
		w.errorPaso = "Debe seleccionar un contrato"
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	if err := w.empezar(); err != nil {
		return err
	}
	defer w.terminar()
	return w.consultarDeudas(ctx)
}

// consultarDeudas issues the debts query for the selected contract and lands
// on PasoDeudas. Caller holds the cargando guard.
func (w *Wizard) consultarDeudas(ctx context.Context) error {
	w.mu.Lock()
	contrato := w.contrato
	w.mu.Unlock()

	resp, err := w.backend.ConsultarDeudas(ctx, w.servicio.Alias, contrato.Codigo, contrato.Token)
	if err != nil {
		w.fallaBackend(err, "No se pudieron consultar las deudas. Intente nuevamente.")
		return nil
	}

	w.mu.Lock()
	w.deudas = resp.Periodos
	w.marcados = make([]bool, len(resp.Periodos))
	w.asociado = &resp.Asociado
	w.paso = PasoDeudas
	w.errorPaso = ""
	w.mu.Unlock()
	return nil
}

// ── Step 3: period selection ─────────────────────────────────────────────────

// MarcarUno applies the cascading toggle to one period.
func (w *Wizard) MarcarUno(indice int, marcado bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.marcados = AplicarMarcado(w.marcados, indice, marcado)
}

// MarcarTodos selects or deselects every period.
func (w *Wizard) MarcarTodos(marcado bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.marcados = MarcarTodos(w.marcados, marcado)
}

// Enviar validates the selection, runs the sequential currency and duplicate
// pre-checks, and adds (or, after explicit confirmation, replaces) the cart
// line item. Checks short-circuit: currency must pass before the duplicate
// check runs, and the duplicate confirmation must resolve before any cart
// mutation.
func (w *Wizard) Enviar(ctx context.Context) error {
	if err := w.empezar(); err != nil {
		return err
	}
	defer w.terminar()

	w.mu.Lock()
	seleccion := w.seleccionados()
	if len(seleccion) == 0 {
		w.errorPaso = "Debe seleccionar al menos un periodo de deuda"
		w.mu.Unlock()
		return nil
	}

	// Internal consistency: these cannot be missing after the prior steps.
	// A violation is a state-machine bug, surfaced as a hard stop, not a crash.
	if w.contrato == nil || w.asociado == nil || w.servicio.Alias == "" {
		log.Error().Str("sesion", w.sesionID).Msg("cobranza: estado inconsistente en envío")
		w.errorPaso = "Ocurrió un error inesperado. Reinicie la operación."
		w.mu.Unlock()
		return nil
	}
	item := w.construirItem(seleccion)
	contrato := w.contrato.Codigo
	w.mu.Unlock()

	// 1. Currency compatibility — non-recoverable within the flow.
	if ok, existente := w.carrito.PuedeAgregarMoneda(ctx, w.sesionID, w.servicio.Moneda); !ok {
		w.Aviso.Mostrar(aviso.TipoWarning, aviso.Opciones{
			Titulo: "Moneda incompatible",
			Mensaje: fmt.Sprintf(
				"El carrito contiene pagos en %s y este servicio cobra en %s. Complete o vacíe el carrito antes de continuar.",
				existente, w.servicio.Moneda),
		})
		return nil
	}

	// 2. Duplicate (servicio, contrato) — recoverable via explicit replace.
	if idx := w.carrito.IndiceDuplicado(ctx, w.sesionID, w.servicio.Alias, contrato); idx >= 0 {
		existente := w.carrito.Cargar(ctx, w.sesionID).Items[idx]
		w.Confirmacion.Solicitar(confirmar.Config{
			Titulo: "Contrato ya agregado",
			Mensaje: fmt.Sprintf(
				"El contrato %s ya está en el carrito por %s %s. ¿Desea reemplazarlo por el nuevo total de %s %s?",
				contrato, existente.Moneda, existente.TotalGeneral.StringFixed(2),
				item.Moneda, item.TotalGeneral.StringFixed(2)),
			Aceptar:  "Reemplazar",
			Cancelar: "Cancelar",
		}, func(ctx context.Context, aceptado bool) {
			if !aceptado {
				return
			}
			if _, persistido := w.carrito.Reemplazar(ctx, w.sesionID, idx, item); !persistido {
				w.avisoPersistencia()
			}
			w.mu.Lock()
			w.enviado = true
			w.mu.Unlock()
		})
		return nil
	}

	// 3–4. Build and add.
	if _, persistido := w.carrito.Agregar(ctx, w.sesionID, item); !persistido {
		w.avisoPersistencia()
	}
	w.mu.Lock()
	w.enviado = true
	w.mu.Unlock()
	return nil
}

// ResolverDuplicado resolves the pending replace confirmation.
func (w *Wizard) ResolverDuplicado(ctx context.Context, aceptado bool) bool {
	return w.Confirmacion.Resolver(ctx, aceptado)
}

// construirItem sums the selected periods with decimal precision and copies
// the billing info from the associate. Caller holds w.mu.
func (w *Wizard) construirItem(seleccion []model.PeriodoDeuda) model.ItemCarrito {
	servicios := make([]decimal.Decimal, len(seleccion))
	comisiones := make([]decimal.Decimal, len(seleccion))
	for i, p := range seleccion {
		servicios[i] = p.MontoServicio
		comisiones[i] = p.MontoComision
	}
	totalServicio := money.Sum(servicios...)
	totalComision := money.Sum(comisiones...)

	return model.ItemCarrito{
		AgregadoEn:        time.Now(),
		ServicioAlias:     w.servicio.Alias,
		ServicioNombre:    w.servicio.Nombre,
		Moneda:            w.servicio.Moneda,
		DocumentoEtiqueta: w.servicio.DocumentoEtiqueta,
		CodigoBusqueda:    w.codigo,
		CodigoContrato:    w.contrato.Codigo,
		NombreAsociado:    w.asociado.Nombre,
		Facturacion: model.DatosFacturacion{
			TipoDocumento:   w.asociado.TipoDocumento,
			Complemento:     w.asociado.Complemento,
			NumeroDocumento: w.asociado.NumeroDocumento,
			Email:           w.asociado.Email,
			Telefono:        w.asociado.Telefono,
		},
		TotalServicio: totalServicio,
		TotalComision: totalComision,
		TotalGeneral:  money.Sum(totalServicio, totalComision),
		Periodos:      seleccion,
	}
}

// seleccionados returns the periods whose flag is set. Caller holds w.mu.
func (w *Wizard) seleccionados() []model.PeriodoDeuda {
	out := make([]model.PeriodoDeuda, 0, len(w.deudas))
	for i, p := range w.deudas {
		if i < len(w.marcados) && w.marcados[i] {
			out = append(out, p)
		}
	}
	return out
}

// ── Navigation ───────────────────────────────────────────────────────────────

// PasoAnterior steps back one, clamped at step 1, and clears the step error
// like every transition does.
func (w *Wizard) PasoAnterior() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.paso > PasoBusqueda {
		w.paso--
	}
	w.errorPaso = ""
}

// ── Snapshot ─────────────────────────────────────────────────────────────────

// Estado is the read-only snapshot serialized to the client.
type Estado struct {
	Paso      Paso
	Servicio  model.Servicio
	Codigo    string
	Contratos []model.Contrato
	Contrato  *model.Contrato
	Deudas    []model.PeriodoDeuda
	Marcados  []bool
	Asociado  *model.Asociado
	ErrorPaso string
	Cargando  bool
	Enviado   bool
}

func (w *Wizard) Estado() Estado {
	w.mu.Lock()
	defer w.mu.Unlock()
	marcados := make([]bool, len(w.marcados))
	copy(marcados, w.marcados)
	return Estado{
		Paso:      w.paso,
		Servicio:  w.servicio,
		Codigo:    w.codigo,
		Contratos: w.contratos,
		Contrato:  w.contrato,
		Deudas:    w.deudas,
		Marcados:  marcados,
		Asociado:  w.asociado,
		ErrorPaso: w.errorPaso,
		Cargando:  w.cargando,
		Enviado:   w.enviado,
	}
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func (w *Wizard) fallaBackend(err error, generico string) {
	if w.Aviso.DesdeError(err) {
		return
	}
	log.Warn().Err(err).Str("sesion", w.sesionID).Msg("cobranza: falla de pasarela")
	w.mu.Lock()
	w.errorPaso = generico
	w.mu.Unlock()
}

func (w *Wizard) avisoPersistencia() {
	w.Aviso.Mostrar(aviso.TipoAlert, aviso.Opciones{
		Mensaje: "El pago fue agregado, pero el carrito podría no conservarse si recarga la página.",
	})
}
