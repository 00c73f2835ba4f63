// Package carrito owns the session-bound cart: the only mutable state shared
// between the two wizards. Every mutation goes through the Store so the
// currency-consistency and duplicate-identity invariants hold at each boundary.
//
// Persistence is best-effort: storage failures never propagate as errors. A
// mutation that could not be persisted still returns the updated cart for the
// current request, flagged persistido=false so callers can warn the user the
// cart may not survive a reload.
package carrito

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"pagoqr/internal/model"
	"pagoqr/internal/money"
	"pagoqr/internal/session"
)

// Session-store keys: cart blob plus the separate cart session stamp.
const (
	claveCarrito = "carrito"
	claveStamp   = "carrito_sesion"
)

// Store mediates all cart access over the session-scoped KV store.
type Store struct {
	kv            session.Store
	monedaDefecto string
	ahora         func() time.Time
}

func NewStore(kv session.Store, monedaDefecto string) *Store {
	return &Store{kv: kv, monedaDefecto: monedaDefecto, ahora: time.Now}
}

// ── Load ─────────────────────────────────────────────────────────────────────

// Cargar reads the persisted cart for the session. Fail-safe, not fail-loud:
//   - parse failure discards the blob entirely;
//   - a blob whose stamp does not match the stored session stamp is discarded;
//   - legacy items without a currency are migrated to the default currency and
//     their grand total is recomputed when it no longer matches its parts.
// Always returns a usable (possibly empty) cart.
func (s *Store) Cargar(ctx context.Context, sesionID string) *model.Carrito {
	raw, err := s.kv.Get(ctx, sesionID, claveCarrito)
	if err != nil {
		return s.vacio()
	}

	var c model.Carrito
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		log.Warn().Str("sesion", sesionID).Err(err).Msg("carrito: blob ilegible, descartado")
		_ = s.kv.Remove(ctx, sesionID, claveCarrito)
		return s.vacio()
	}

	stamp, err := s.kv.Get(ctx, sesionID, claveStamp)
	if err != nil || c.SesionID != stamp {
		log.Warn().Str("sesion", sesionID).Msg("carrito: stamp de sesión no coincide, descartado")
		_ = s.kv.Remove(ctx, sesionID, claveCarrito)
		return s.vacio()
	}

	for i := range c.Items {
		it := &c.Items[i]
		if it.Moneda == "" {
			it.Moneda = s.monedaDefecto
		}
		// Blobs anteriores no guardaban el total general; se reconstituye
		// cuando no coincide con sus partes.
		if total := money.Sum(it.TotalServicio, it.TotalComision); !money.Equal(it.TotalGeneral, total) {
			it.TotalGeneral = total
		}
	}
	return &c
}

// ── Mutations ────────────────────────────────────────────────────────────────

// Agregar appends an item, assigning (or reusing) the cart session stamp and
// updating timestamps. The returned bool is false only on persistence failure;
// the returned cart is updated either way.
func (s *Store) Agregar(ctx context.Context, sesionID string, item model.ItemCarrito) (*model.Carrito, bool) {
	c := s.Cargar(ctx, sesionID)

	stamp, err := s.kv.Get(ctx, sesionID, claveStamp)
	if err != nil || stamp == "" {
		stamp = session.NuevoStampID()
	}

	ahora := s.ahora()
	if c.EstaVacio() && c.CreadoEn.IsZero() {
		c.CreadoEn = ahora
	}
	c.SesionID = stamp
	c.Items = append(c.Items, item)
	c.ActualizadoEn = ahora

	return c, s.persistir(ctx, sesionID, c)
}

// Eliminar removes the item at indice (bounds-checked). Removing the last
// remaining item clears the whole cart including the session stamp, so a
// brand-new stamp is issued on the next add.
func (s *Store) Eliminar(ctx context.Context, sesionID string, indice int) *model.Carrito {
	c := s.Cargar(ctx, sesionID)
	if indice < 0 || indice >= len(c.Items) {
		return c
	}

	if len(c.Items) == 1 {
		_ = s.kv.Remove(ctx, sesionID, claveCarrito)
		_ = s.kv.Remove(ctx, sesionID, claveStamp)
		return s.vacio()
	}

	c.Items = append(c.Items[:indice], c.Items[indice+1:]...)
	c.ActualizadoEn = s.ahora()
	s.persistir(ctx, sesionID, c)
	return c
}

// Reemplazar swaps the item at indice in place. Returns false when the index
// is out of bounds or persistence failed.
func (s *Store) Reemplazar(ctx context.Context, sesionID string, indice int, item model.ItemCarrito) (*model.Carrito, bool) {
	c := s.Cargar(ctx, sesionID)
	if indice < 0 || indice >= len(c.Items) {
		return c, false
	}
	c.Items[indice] = item
	c.ActualizadoEn = s.ahora()
	return c, s.persistir(ctx, sesionID, c)
}

// Vaciar removes the items and the persisted blob. The session stamp is left
// intact: a new cart can reuse it.
func (s *Store) Vaciar(ctx context.Context, sesionID string) {
	_ = s.kv.Remove(ctx, sesionID, claveCarrito)
}

// ── Queries ──────────────────────────────────────────────────────────────────

// IndiceDuplicado returns the index of the first item with the same
// (servicio, contrato) identity, or -1.
func (s *Store) IndiceDuplicado(ctx context.Context, sesionID, servicioAlias, codigoContrato string) int {
	return IndiceDuplicado(s.Cargar(ctx, sesionID), servicioAlias, codigoContrato)
}

// IndiceDuplicado is the pure scan over a loaded cart; first match wins.
func IndiceDuplicado(c *model.Carrito, servicioAlias, codigoContrato string) int {
	for i, it := range c.Items {
		if it.ServicioAlias == servicioAlias && it.CodigoContrato == codigoContrato {
			return i
		}
	}
	return -1
}

// PuedeAgregarMoneda reports whether an item of the given currency may enter
// the cart. An empty cart always allows; otherwise only the first item's
// currency is compared — by invariant the rest already match.
func (s *Store) PuedeAgregarMoneda(ctx context.Context, sesionID, moneda string) (bool, string) {
	c := s.Cargar(ctx, sesionID)
	if c.EstaVacio() {
		return true, ""
	}
	existente := c.Items[0].Moneda
	return existente == moneda, existente
}

// ── Internals ────────────────────────────────────────────────────────────────

func (s *Store) vacio() *model.Carrito {
	return &model.Carrito{Items: []model.ItemCarrito{}}
}

func (s *Store) persistir(ctx context.Context, sesionID string, c *model.Carrito) bool {
	encoded, err := json.Marshal(c)
	if err != nil {
		log.Error().Err(err).Msg("carrito: no se pudo serializar")
		return false
	}
	if err := s.kv.Set(ctx, sesionID, claveCarrito, string(encoded)); err != nil {
		log.Warn().Str("sesion", sesionID).Err(err).Msg("carrito: escritura fallida")
		return false
	}
	// The stamp's expiry must track the blob's. A stamp that lapses first
	// would make Cargar discard a live cart as foreign to the session.
	if c.SesionID != "" {
		if err := s.kv.Set(ctx, sesionID, claveStamp, c.SesionID); err != nil {
			log.Warn().Str("sesion", sesionID).Err(err).Msg("carrito: no se pudo refrescar el stamp de sesión")
			return false
		}
	}
	return true
}
