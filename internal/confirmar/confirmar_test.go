package confirmar

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolicitarAplicaEtiquetasPorDefecto(t *testing.T) {
	s := NewServicio()
	s.Solicitar(Config{Titulo: "t", Mensaje: "m"}, func(context.Context, bool) {})

	cfg := s.Pendiente()
	require.NotNil(t, cfg)
	assert.Equal(t, "Aceptar", cfg.Aceptar)
	assert.Equal(t, "Cancelar", cfg.Cancelar)
}

func TestResolverDisparaUnaSolaVez(t *testing.T) {
	s := NewServicio()
	llamadas := 0
	var recibido bool
	s.Solicitar(Config{}, func(_ context.Context, aceptado bool) {
		llamadas++
		recibido = aceptado
	})

	assert.True(t, s.Resolver(context.Background(), true))
	assert.Equal(t, 1, llamadas)
	assert.True(t, recibido)
	assert.Nil(t, s.Pendiente())

	// Segunda resolución: ya no hay nada pendiente.
	assert.False(t, s.Resolver(context.Background(), false))
	assert.Equal(t, 1, llamadas)
}

func TestSolicitarReemplazaYHuerfanaLaAnterior(t *testing.T) {
	s := NewServicio()
	primera := 0
	segunda := 0
	s.Solicitar(Config{Mensaje: "primera"}, func(context.Context, bool) { primera++ })
	s.Solicitar(Config{Mensaje: "segunda"}, func(context.Context, bool) { segunda++ })

	cfg := s.Pendiente()
	require.NotNil(t, cfg)
	assert.Equal(t, "segunda", cfg.Mensaje)

	s.Resolver(context.Background(), true)
	assert.Equal(t, 0, primera, "el resolver huérfano nunca debe dispararse")
	assert.Equal(t, 1, segunda)
}

func TestResolverSinPendienteEsNoOp(t *testing.T) {
	s := NewServicio()
	assert.False(t, s.Resolver(context.Background(), true))
	assert.Nil(t, s.Pendiente())
}
