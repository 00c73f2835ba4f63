package infra

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitoAbierto is returned without touching the network while the
// circuit rests after a streak of pasarela failures.
var ErrCircuitoAbierto = errors.New("pasarela: circuito abierto")

// EstadoCircuito is the breaker state, reported by the health endpoint.
type EstadoCircuito int

const (
	CircuitoCerrado EstadoCircuito = iota // traffic flows
	CircuitoAbierto                       // resting, every call fast-fails
	CircuitoSondeo                        // probing whether the pasarela recovered
)

func (e EstadoCircuito) String() string {
	switch e {
	case CircuitoCerrado:
		return "cerrado"
	case CircuitoAbierto:
		return "abierto"
	case CircuitoSondeo:
		return "sondeo"
	}
	return "desconocido"
}

// ConfigCircuito tunes the pasarela breaker.
type ConfigCircuito struct {
	UmbralFallos     int           // consecutive failures that open the circuit
	ExitosParaCerrar int           // consecutive probe successes that close it
	Reposo           time.Duration // rest period before probing again
}

func ConfigCircuitoDefecto() ConfigCircuito {
	return ConfigCircuito{UmbralFallos: 5, ExitosParaCerrar: 2, Reposo: time.Minute}
}

// Circuito shields the pasarela from retry storms while it is down:
// cerrado → abierto after UmbralFallos consecutive failures, sondeo once the
// rest period lapses, back to cerrado after ExitosParaCerrar probe successes.
type Circuito struct {
	mu  sync.Mutex
	cfg ConfigCircuito

	estado EstadoCircuito
	// racha counts consecutive failures while cerrado and consecutive
	// successes while sondeando.
	racha       int
	reposoHasta time.Time
	ahora       func() time.Time
}

func NewCircuito(cfg ConfigCircuito) *Circuito {
	defecto := ConfigCircuitoDefecto()
	if cfg.UmbralFallos <= 0 {
		cfg.UmbralFallos = defecto.UmbralFallos
	}
	if cfg.ExitosParaCerrar <= 0 {
		cfg.ExitosParaCerrar = defecto.ExitosParaCerrar
	}
	if cfg.Reposo <= 0 {
		cfg.Reposo = defecto.Reposo
	}
	return &Circuito{cfg: cfg, ahora: time.Now}
}

// Estado returns the current state, moving abierto → sondeo when the rest
// period has lapsed.
func (c *Circuito) Estado() EstadoCircuito {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.estadoVigente()
}

// estadoVigente must be called under c.mu.
func (c *Circuito) estadoVigente() EstadoCircuito {
	if c.estado == CircuitoAbierto && !c.ahora().Before(c.reposoHasta) {
		c.estado = CircuitoSondeo
		c.racha = 0
	}
	return c.estado
}

// Proteger runs fn unless the circuit is open, recording the outcome for the
// state transitions.
func (c *Circuito) Proteger(fn func() error) error {
	c.mu.Lock()
	if c.estadoVigente() == CircuitoAbierto {
		c.mu.Unlock()
		return ErrCircuitoAbierto
	}
	c.mu.Unlock()

	err := fn()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.registrarFallo()
		return err
	}
	c.registrarExito()
	return nil
}

func (c *Circuito) registrarFallo() {
	switch c.estado {
	case CircuitoCerrado:
		c.racha++
		if c.racha >= c.cfg.UmbralFallos {
			c.abrir()
		}
	case CircuitoSondeo:
		// The probe failed: a full rest period again.
		c.abrir()
	}
}

func (c *Circuito) registrarExito() {
	switch c.estado {
	case CircuitoCerrado:
		c.racha = 0
	case CircuitoSondeo:
		c.racha++
		if c.racha >= c.cfg.ExitosParaCerrar {
			c.estado = CircuitoCerrado
			c.racha = 0
		}
	}
}

// abrir must be called under c.mu.
func (c *Circuito) abrir() {
	c.estado = CircuitoAbierto
	c.racha = 0
	c.reposoHasta = c.ahora().Add(c.cfg.Reposo)
}
