package aviso

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagoqr/internal/pasarela"
)

func TestMostrarAplicaDefectosPorSeveridad(t *testing.T) {
	s := NewSlot()
	s.Mostrar(TipoError, Opciones{})

	a := s.Actual()
	require.NotNil(t, a)
	assert.Equal(t, TipoError, a.Tipo)
	assert.Equal(t, "Error", a.Titulo)
	assert.Equal(t, "/", a.Redirigir, "solo el tipo error redirige al inicio")

	s.Mostrar(TipoWarning, Opciones{})
	assert.Empty(t, s.Actual().Redirigir)
}

func TestMostrarConOverrides(t *testing.T) {
	s := NewSlot()
	quieto := ""
	s.Mostrar(TipoError, Opciones{Mensaje: "propio", Redirigir: &quieto})

	a := s.Actual()
	assert.Equal(t, "propio", a.Mensaje)
	assert.Empty(t, a.Redirigir, "el puntero a cadena vacía anula la redirección")
}

func TestMostrarSeveridadDesconocidaDegradaAError(t *testing.T) {
	s := NewSlot()
	s.Mostrar("???", Opciones{})
	assert.Equal(t, TipoError, s.Actual().Tipo)
}

func TestUltimaLlamadaGana(t *testing.T) {
	s := NewSlot()
	s.Mostrar(TipoInfo, Opciones{Mensaje: "primera"})
	s.Mostrar(TipoAlert, Opciones{Mensaje: "segunda"})
	assert.Equal(t, "segunda", s.Actual().Mensaje)
}

func TestDesdeErrorEstructurado(t *testing.T) {
	s := NewSlot()
	err := fmt.Errorf("fallo al pagar: %w", &pasarela.ErrorEstructurado{
		Tipo:    TipoWarning,
		Codigo:  "DEUDA-409",
		Mensaje: "La deuda ya fue pagada",
	})

	assert.True(t, s.DesdeError(err))
	a := s.Actual()
	require.NotNil(t, a)
	assert.Equal(t, TipoWarning, a.Tipo)
	assert.Equal(t, "La deuda ya fue pagada", a.Mensaje)
}

func TestDesdeErrorGenericoNoManeja(t *testing.T) {
	s := NewSlot()
	assert.False(t, s.DesdeError(errors.New("caída de red")))
	assert.Nil(t, s.Actual())
}

func TestDescartar(t *testing.T) {
	s := NewSlot()
	s.Mostrar(TipoInfo, Opciones{Mensaje: "hola"})
	s.Descartar()
	assert.Nil(t, s.Actual())
}
