package cobranza

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAplicarMarcadoEnCascadaHaciaAtras(t *testing.T) {
	flags := []bool{false, false, false, false, false}

	out := AplicarMarcado(flags, 2, true)
	assert.Equal(t, []bool{true, true, true, false, false}, out)
}

func TestAplicarDesmarcadoEnCascadaHaciaAdelante(t *testing.T) {
	flags := []bool{true, true, true, true, true}

	out := AplicarMarcado(flags, 1, false)
	assert.Equal(t, []bool{true, false, false, false, false}, out)
}

func TestAplicarMarcadoNoMutaElOriginal(t *testing.T) {
	flags := []bool{false, false, false}
	_ = AplicarMarcado(flags, 2, true)
	assert.Equal(t, []bool{false, false, false}, flags)
}

func TestAplicarMarcadoIndiceFueraDeRango(t *testing.T) {
	flags := []bool{true, false}
	assert.Equal(t, flags, AplicarMarcado(flags, -1, true))
	assert.Equal(t, flags, AplicarMarcado(flags, 2, true))
}

func TestAplicarMarcadoNuncaDejaHuecos(t *testing.T) {
	// Propiedad: tras cualquier secuencia de toggles, los marcados forman un
	// prefijo contiguo desde el periodo más antiguo.
	flags := make([]bool, 6)
	ops := []struct {
		indice  int
		marcado bool
	}{
		{3, true}, {5, true}, {2, false}, {4, true}, {0, false}, {1, true},
	}
	for _, op := range ops {
		flags = AplicarMarcado(flags, op.indice, op.marcado)
		visto := false
		for _, f := range flags {
			if !f {
				visto = true
			} else {
				assert.False(t, visto, "hueco en la selección: %v", flags)
			}
		}
	}
}

func TestMarcarTodos(t *testing.T) {
	flags := []bool{true, false, true}
	assert.Equal(t, []bool{true, true, true}, MarcarTodos(flags, true))
	assert.Equal(t, []bool{false, false, false}, MarcarTodos(flags, false))
}
