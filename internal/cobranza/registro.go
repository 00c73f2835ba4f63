package cobranza

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"pagoqr/internal/model"
)

// Catalogo is the backend subset needed by the service-eligibility gate.
type Catalogo interface {
	ObtenerServicio(ctx context.Context, alias string) (*model.Servicio, error)
	EstadoServicio(ctx context.Context, alias string) (bool, error)
}

// Registro holds the live wizards keyed by session id. Wizard state is
// ephemeral: entries die on explicit discard or after the idle TTL, they are
// never persisted.
type Registro struct {
	mu       sync.Mutex
	entradas map[string]*entrada

	ttl      time.Duration
	catalogo Catalogo
	backend  Pasarela
	carrito  Carrito
}

type entrada struct {
	wizard    *Wizard
	ultimoUso time.Time
}

func NewRegistro(catalogo Catalogo, backend Pasarela, carrito Carrito, ttl time.Duration) *Registro {
	r := &Registro{
		entradas: make(map[string]*entrada),
		ttl:      ttl,
		catalogo: catalogo,
		backend:  backend,
		carrito:  carrito,
	}
	go r.purga()
	return r
}

// Iniciar runs the service-eligibility gate and, when it passes, creates a
// fresh wizard for the session (replacing any previous one). The gate runs
// before any wizard state exists: an inactive or unknown service blocks with
// ErrServicioInactivo, and a non-collection modality yields
// ErrModalidadNoSoportada so the handler can redirect to the placeholder.
func (r *Registro) Iniciar(ctx context.Context, sesionID, alias string) (*Wizard, error) {
	activo, err := r.catalogo.EstadoServicio(ctx, alias)
	if err != nil || !activo {
		return nil, ErrServicioInactivo
	}

	servicio, err := r.catalogo.ObtenerServicio(ctx, alias)
	if err != nil {
		return nil, ErrServicioInactivo
	}
	if servicio.Modalidad != model.ModalidadCobranza {
		return nil, ErrModalidadNoSoportada
	}

	w := newWizard(sesionID, *servicio, r.backend, r.carrito)
	r.mu.Lock()
	r.entradas[sesionID] = &entrada{wizard: w, ultimoUso: time.Now()}
	r.mu.Unlock()
	return w, nil
}

// Obtener returns the session's wizard, refreshing its idle timer.
func (r *Registro) Obtener(sesionID string) (*Wizard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entradas[sesionID]
	if !ok {
		return nil, false
	}
	e.ultimoUso = time.Now()
	return e.wizard, true
}

// Descartar tears the wizard down (navigation away).
func (r *Registro) Descartar(sesionID string) {
	r.mu.Lock()
	delete(r.entradas, sesionID)
	r.mu.Unlock()
}

// purga drops wizards idle beyond the TTL. In-flight backend calls are not
// cancelled; their results are discarded with the entry.
func (r *Registro) purga() {
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()

	for range ticker.C {
		limite := time.Now().Add(-r.ttl)
		r.mu.Lock()
		purgados := 0
		for id, e := range r.entradas {
			if e.ultimoUso.Before(limite) {
				delete(r.entradas, id)
				purgados++
			}
		}
		restantes := len(r.entradas)
		r.mu.Unlock()
		if purgados > 0 {
			log.Debug().Int("purgados", purgados).Int("restantes", restantes).Msg("cobranza: sesiones inactivas purgadas")
		}
	}
}
