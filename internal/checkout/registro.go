package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"pagoqr/internal/huella"
)

// ErrCarritoVacio blocks checkout entry when the session's cart is empty.
var ErrCarritoVacio = errors.New("checkout: el carrito está vacío")

// Registro holds the live checkout wizards keyed by session id, mirroring the
// collection registry: ephemeral entries, idle-TTL purge, explicit discard.
type Registro struct {
	mu       sync.Mutex
	entradas map[string]*entrada

	ttl         time.Duration
	metodos     []string
	backend     Pasarela
	carrito     Carrito
	huellas     Huellas
	notificador Notificador
}

type entrada struct {
	wizard    *Wizard
	ultimoUso time.Time
}

func NewRegistro(metodos []string, backend Pasarela, carrito Carrito, huellas Huellas,
	notificador Notificador, ttl time.Duration) *Registro {

	r := &Registro{
		entradas:    make(map[string]*entrada),
		ttl:         ttl,
		metodos:     metodos,
		backend:     backend,
		carrito:     carrito,
		huellas:     huellas,
		notificador: notificador,
	}
	go r.purga()
	return r
}

// Iniciar creates a fresh wizard for the session, replacing any previous one.
// An empty cart blocks entry. A wizard already sitting on its receipt step is
// NOT replaced: the committed payment outlives a re-entry attempt and the
// caller gets the existing wizard back.
func (r *Registro) Iniciar(ctx context.Context, sesionID string, carac *huella.Caracteristicas) (*Wizard, error) {
	r.mu.Lock()
	if e, ok := r.entradas[sesionID]; ok && e.wizard.Estado().Paso == PasoRecibo {
		e.ultimoUso = time.Now()
		r.mu.Unlock()
		return e.wizard, nil
	}
	r.mu.Unlock()

	w := newWizard(ctx, sesionID, r.metodos, carac, r.backend, r.carrito, r.huellas, r.notificador)
	if len(w.items) == 0 {
		return nil, ErrCarritoVacio
	}

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

// Descartar tears the wizard down.
func (r *Registro) Descartar(sesionID string) {
	r.mu.Lock()
	delete(r.entradas, sesionID)
	r.mu.Unlock()
}

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
			log.Debug().Int("purgados", purgados).Int("restantes", restantes).Msg("checkout: sesiones inactivas purgadas")
		}
	}
}
