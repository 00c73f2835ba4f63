// Package confirmar implements the blocking two-button confirmation surface.
//
// Contract: at most one pending confirmation at a time. Requesting a new
// confirmation while one is pending replaces the visible config and the held
// resolver; the earlier request is orphaned and its resolver never fires.
// This mirrors the upstream behavior on purpose — it is a documented
// limitation, not a queue.
package confirmar

import (
	"context"
	"sync"
)

// Config is the dialog content.
type Config struct {
	Titulo   string `json:"titulo"`
	Mensaje  string `json:"mensaje"`
	Aceptar  string `json:"aceptar"`
	Cancelar string `json:"cancelar"`
}

// Servicio is a tagged-state holder: idle, or pending with exactly one resolver.
type Servicio struct {
	mu        sync.Mutex
	pendiente *pendiente
}

type pendiente struct {
	config   Config
	resolver func(context.Context, bool)
}

func NewServicio() *Servicio { return &Servicio{} }

// Solicitar registers a confirmation request. resolver runs exactly once,
// when Resolver is called — unless a later Solicitar replaces this request
// first, in which case it never runs.
func (s *Servicio) Solicitar(cfg Config, resolver func(context.Context, bool)) {
	if cfg.Aceptar == "" {
		cfg.Aceptar = "Aceptar"
	}
	if cfg.Cancelar == "" {
		cfg.Cancelar = "Cancelar"
	}
	s.mu.Lock()
	s.pendiente = &pendiente{config: cfg, resolver: resolver}
	s.mu.Unlock()
}

// Pendiente returns the visible config, or nil when idle.
func (s *Servicio) Pendiente() *Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendiente == nil {
		return nil
	}
	cfg := s.pendiente.config
	return &cfg
}

// Resolver fires the held resolver with the user's choice and returns to
// idle. No-op when idle; returns whether a resolver fired.
func (s *Servicio) Resolver(ctx context.Context, aceptado bool) bool {
	s.mu.Lock()
	p := s.pendiente
	s.pendiente = nil
	s.mu.Unlock()

	if p == nil {
		return false
	}
	p.resolver(ctx, aceptado)
	return true
}
