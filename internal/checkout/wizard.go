// Package checkout implements the five-step payment wizard: cart review,
// payment method, billing info (with conditional NIT verification), summary
// and QR receipt. Step 5 is absorbing — once a QR exists the payment is
// committed from the user's perspective and earlier steps are unreachable.
package checkout

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"pagoqr/internal/aviso"
	"pagoqr/internal/huella"
	"pagoqr/internal/model"
	"pagoqr/internal/money"
	"pagoqr/internal/pasarela"
)

// Steps.
const (
	PasoCarrito     = 1
	PasoMetodo      = 2
	PasoFacturacion = 3
	PasoResumen     = 4
	PasoRecibo      = 5
)

// ErrOcupado: a backend call is in flight; mutating actions no-op.
var ErrOcupado = errors.New("checkout: operación en curso")

// TipoDocumentoNIT is the numeric document-type code for a NIT.
const TipoDocumentoNIT = 5

// nitReservados are the reserved control numbers that bypass verification.
var nitReservados = map[string]bool{
	"99001": true,
	"99002": true,
	"99003": true,
}

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Pasarela is the backend subset the wizard needs.
type Pasarela interface {
	VerificarDocumento(ctx context.Context, numero string) (bool, error)
	Pagar(ctx context.Context, req pasarela.PagoRequest) (*pasarela.PagoResultado, error)
}

// Carrito is the cart-store subset the wizard needs.
type Carrito interface {
	Cargar(ctx context.Context, sesionID string) *model.Carrito
	Eliminar(ctx context.Context, sesionID string, indice int) *model.Carrito
	Vaciar(ctx context.Context, sesionID string)
}

// Huellas generates the best-effort device fingerprint.
type Huellas interface {
	Generar(ctx context.Context, sesionID string, c *huella.Caracteristicas) string
}

// Notificador enqueues the post-payment receipt email. Best-effort.
type Notificador interface {
	EncolarRecibo(ctx context.Context, payload interface{}) error
}

// Resultado is the stored QR receipt.
type Resultado struct {
	Vigencia string `json:"vigencia"`
	QRBase64 string `json:"qr_base64"`
}

// Wizard holds the ephemeral checkout state for one session.
type Wizard struct {
	mu       sync.Mutex
	cargando bool

	sesionID string
	// items is a local snapshot loaded at entry; removals through the wizard
	// sync it back to the store immediately, but external store changes are
	// not observed mid-flow.
	items   []model.ItemCarrito
	metodos []string

	paso              int
	metodo            string
	facturacion       model.DatosFacturacion
	excepcionAceptada bool
	excepcionOfrecida bool
	caracteristicas   *huella.Caracteristicas
	qr                *Resultado
	errores           []string
	fechaPago         time.Time

	backend     Pasarela
	carrito     Carrito
	huellas     Huellas
	notificador Notificador

	Aviso *aviso.Slot
}

func newWizard(ctx context.Context, sesionID string, metodos []string, carac *huella.Caracteristicas,
	backend Pasarela, carrito Carrito, huellas Huellas, notificador Notificador) *Wizard {

	w := &Wizard{
		sesionID:        sesionID,
		metodos:         metodos,
		paso:            PasoCarrito,
		caracteristicas: carac,
		backend:         backend,
		carrito:         carrito,
		huellas:         huellas,
		notificador:     notificador,
		Aviso:           aviso.NewSlot(),
	}
	w.items = carrito.Cargar(ctx, sesionID).Items

	// Billing form prefilled from the first line item's associate data.
	if len(w.items) > 0 {
		w.facturacion = w.items[0].Facturacion
	}
	return w
}

// ── Derived totals ───────────────────────────────────────────────────────────
// Pure derivations over the local snapshot, re-evaluated on every read.

func (w *Wizard) totalServicio() decimal.Decimal {
	montos := make([]decimal.Decimal, len(w.items))
	for i, it := range w.items {
		montos[i] = it.TotalServicio
	}
	return money.Sum(montos...)
}

func (w *Wizard) totalComision() decimal.Decimal {
	montos := make([]decimal.Decimal, len(w.items))
	for i, it := range w.items {
		montos[i] = it.TotalComision
	}
	return money.Sum(montos...)
}

func (w *Wizard) totalGeneral() decimal.Decimal {
	return money.Sum(w.totalServicio(), w.totalComision())
}

func (w *Wizard) hayComisiones() bool {
	return w.totalComision().GreaterThan(decimal.Zero)
}

func (w *Wizard) moneda() string {
	if len(w.items) == 0 {
		return ""
	}
	return w.items[0].Moneda
}

// ── Form mutations ───────────────────────────────────────────────────────────

// FijarMetodo records the payment-method choice.
func (w *Wizard) FijarMetodo(metodo string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, m := range w.metodos {
		if m == metodo {
			w.metodo = metodo
			w.errores = nil
			return
		}
	}
	w.errores = []string{"Método de pago no disponible"}
}

// FijarFacturacion replaces the billing form fields.
func (w *Wizard) FijarFacturacion(f model.DatosFacturacion) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.facturacion = f
	w.errores = nil
}

// AceptarExcepcion opts into proceeding despite a failed NIT verification.
// Only available after a verification failure has offered it.
func (w *Wizard) AceptarExcepcion() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.excepcionOfrecida {
		return false
	}
	w.excepcionAceptada = true
	return true
}

// EliminarItem removes an item through the wizard, keeping the local snapshot
// and the cart store in sync.
func (w *Wizard) EliminarItem(ctx context.Context, indice int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if indice < 0 || indice >= len(w.items) {
		return
	}
	actualizado := w.carrito.Eliminar(ctx, w.sesionID, indice)
	w.items = actualizado.Items
}

// ── Navigation ───────────────────────────────────────────────────────────────

// PasoAnterior steps back one. No-op on the absorbing receipt step and below
// step 1; clears step errors on every transition.
func (w *Wizard) PasoAnterior() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.paso == PasoRecibo {
		return
	}
	if w.paso > PasoCarrito {
		w.paso--
	}
	w.errores = nil
}

// Avanzar validates the current step and moves forward. The 4→5 edge is never
// a plain transition: it runs the payment submission, and only a successful
// response lands on the receipt step.
func (w *Wizard) Avanzar(ctx context.Context) error {
	w.mu.Lock()
	if w.cargando {
		w.mu.Unlock()
		return ErrOcupado
	}
	w.cargando = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.cargando = false
		w.mu.Unlock()
	}()

	w.mu.Lock()
	paso := w.paso
	w.mu.Unlock()

	switch paso {
	case PasoCarrito, PasoMetodo, PasoFacturacion:
		if !w.validarPaso(ctx) {
			return nil
		}
		w.mu.Lock()
		w.paso++
		w.errores = nil
		w.mu.Unlock()
		return nil
	case PasoResumen:
		return w.pagar(ctx)
	default:
		// Receipt step: nothing to advance to.
		return nil
	}
}

// ── Validation ───────────────────────────────────────────────────────────────

// validarPaso gates forward movement, emitting specific error messages.
func (w *Wizard) validarPaso(ctx context.Context) bool {
	w.mu.Lock()
	paso := w.paso
	w.mu.Unlock()

	switch paso {
	case PasoCarrito:
		return w.validarCarrito()
	case PasoMetodo:
		return w.validarMetodo()
	case PasoFacturacion:
		return w.validarFacturacion(ctx)
	}
	return true
}

func (w *Wizard) validarCarrito() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.items) == 0 {
		w.errores = []string{"El carrito está vacío"}
		return false
	}
	return true
}

func (w *Wizard) validarMetodo() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	// Single configured method: selection is bypassed and the default is
	// set automatically before advancing.
	if w.metodo == "" && len(w.metodos) == 1 {
		w.metodo = w.metodos[0]
	}
	if w.metodo == "" {
		w.errores = []string{"Seleccione un método de pago"}
		return false
	}
	return true
}

// validarFacturacion checks the billing form. The NIT verification is a
// network call, so the lock is released while it runs: Estado stays
// answerable (with Cargando=true) for the duration.
func (w *Wizard) validarFacturacion(ctx context.Context) bool {
	w.mu.Lock()
	var errores []string
	if w.facturacion.Email == "" || !emailRe.MatchString(w.facturacion.Email) {
		errores = append(errores, "Ingrese un correo electrónico válido")
	}

	comisiones := w.hayComisiones()
	if comisiones {
		if w.facturacion.RazonSocial == "" {
			errores = append(errores, "Ingrese la razón social")
		}
		if w.facturacion.NumeroDocumento == "" {
			errores = append(errores, "Ingrese el número de documento")
		}
	}
	if len(errores) > 0 {
		w.errores = errores
		w.mu.Unlock()
		return false
	}

	// NIT sub-step: only with commissions, document type NIT, a number outside
	// the reserved control list, and no accepted exception.
	verificar := comisiones && w.facturacion.TipoDocumento == TipoDocumentoNIT &&
		!nitReservados[w.facturacion.NumeroDocumento] && !w.excepcionAceptada
	numero := w.facturacion.NumeroDocumento
	w.mu.Unlock()

	if !verificar {
		return true
	}

	valido, err := w.backend.VerificarDocumento(ctx, numero)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil || !valido {
		w.excepcionOfrecida = true
		w.errores = []string{"No se pudo verificar el NIT. Puede aceptar la excepción y continuar de todas formas."}
		return false
	}
	return true
}

// ── Submission pipeline ──────────────────────────────────────────────────────

// pagar runs the strictly sequential submission: fingerprint (best-effort,
// degraded to "" on failure) → payment request → pasarela → on success store
// the QR, clear the cart and land on the receipt step. On failure nothing
// changes and the wizard stays on the summary step.
func (w *Wizard) pagar(ctx context.Context) error {
	w.mu.Lock()
	carac := w.caracteristicas
	req := pasarela.PagoRequest{
		Metodo:        w.metodo,
		Moneda:        w.moneda(),
		TotalServicio: w.totalServicio(),
		TotalComision: w.totalComision(),
		TotalGeneral:  w.totalGeneral(),
		Facturacion:   w.facturacion,
	}
	for _, it := range w.items {
		req.Items = append(req.Items, pasarela.ItemPago{
			ServicioAlias:  it.ServicioAlias,
			CodigoContrato: it.CodigoContrato,
			CodigoBusqueda: it.CodigoBusqueda,
			Periodos:       it.Periodos,
			TotalServicio:  it.TotalServicio,
			TotalComision:  it.TotalComision,
			TotalGeneral:   it.TotalGeneral,
		})
	}
	w.mu.Unlock()

	req.Huella = w.huellas.Generar(ctx, w.sesionID, carac)

	resultado, err := w.backend.Pagar(ctx, req)
	if err != nil {
		if !w.Aviso.DesdeError(err) {
			log.Warn().Err(err).Str("sesion", w.sesionID).Msg("checkout: pago rechazado")
			w.mu.Lock()
			w.errores = []string{"No se pudo procesar el pago. Intente nuevamente."}
			w.mu.Unlock()
		}
		return nil
	}

	w.mu.Lock()
	w.qr = &Resultado{Vigencia: resultado.Vigencia, QRBase64: resultado.QRBase64}
	w.fechaPago = time.Now()
	w.paso = PasoRecibo
	w.errores = nil
	email := w.facturacion.Email
	w.mu.Unlock()

	w.carrito.Vaciar(ctx, w.sesionID)
	w.encolarRecibo(ctx, email)
	return nil
}

// encolarRecibo fires the best-effort receipt email job.
func (w *Wizard) encolarRecibo(ctx context.Context, email string) {
	if w.notificador == nil || email == "" {
		return
	}
	recibo := w.Recibo()
	if recibo == nil {
		return
	}
	payload := map[string]interface{}{
		"email":  email,
		"recibo": recibo,
	}
	if err := w.notificador.EncolarRecibo(ctx, payload); err != nil {
		log.Warn().Err(err).Msg("checkout: no se pudo encolar el recibo")
	}
}

// ── Snapshot ─────────────────────────────────────────────────────────────────

// Estado is the read-only snapshot serialized to the client.
type Estado struct {
	Paso              int
	Items             []model.ItemCarrito
	Moneda            string
	TotalServicio     decimal.Decimal
	TotalComision     decimal.Decimal
	TotalGeneral      decimal.Decimal
	HayComisiones     bool
	Metodos           []string
	Metodo            string
	Facturacion       model.DatosFacturacion
	ExcepcionOfrecida bool
	ExcepcionAceptada bool
	QR                *Resultado
	Errores           []string
	Cargando          bool
}

func (w *Wizard) Estado() Estado {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Estado{
		Paso:              w.paso,
		Items:             w.items,
		Moneda:            w.moneda(),
		TotalServicio:     w.totalServicio(),
		TotalComision:     w.totalComision(),
		TotalGeneral:      w.totalGeneral(),
		HayComisiones:     w.hayComisiones(),
		Metodos:           w.metodos,
		Metodo:            w.metodo,
		Facturacion:       w.facturacion,
		ExcepcionOfrecida: w.excepcionOfrecida,
		ExcepcionAceptada: w.excepcionAceptada,
		QR:                w.qr,
		Errores:           w.errores,
		Cargando:          w.cargando,
	}
}

// Recibo builds the printable receipt, or nil before a successful payment.
func (w *Wizard) Recibo() *ReciboDatos {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.qr == nil {
		return nil
	}
	items := make([]ReciboItem, len(w.items))
	for i, it := range w.items {
		items[i] = ReciboItem{
			ServicioNombre: it.ServicioNombre,
			CodigoContrato: it.CodigoContrato,
			Total:          it.TotalGeneral,
		}
	}
	return &ReciboDatos{
		Fecha:         w.fechaPago,
		Moneda:        w.moneda(),
		Items:         items,
		TotalServicio: w.totalServicio(),
		TotalComision: w.totalComision(),
		TotalGeneral:  w.totalGeneral(),
		Vigencia:      w.qr.Vigencia,
		QRBase64:      w.qr.QRBase64,
	}
}

// ReciboDatos mirrors infra.Recibo without importing it, keeping the wizard
// free of PDF concerns.
type ReciboDatos struct {
	Fecha         time.Time       `json:"fecha"`
	Moneda        string          `json:"moneda"`
	Items         []ReciboItem    `json:"items"`
	TotalServicio decimal.Decimal `json:"total_servicio"`
	TotalComision decimal.Decimal `json:"total_comision"`
	TotalGeneral  decimal.Decimal `json:"total_general"`
	Vigencia      string          `json:"vigencia"`
	QRBase64      string          `json:"qr_base64"`
}

// ReciboItem is one printed line of the receipt.
type ReciboItem struct {
	ServicioNombre string          `json:"servicio_nombre"`
	CodigoContrato string          `json:"codigo_contrato"`
	Total          decimal.Decimal `json:"total"`
}
