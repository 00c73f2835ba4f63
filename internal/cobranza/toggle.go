package cobranza

// AplicarMarcado implements the cascading period selection. Periods are
// presented oldest-first and must be paid in chronological order without
// gaps, so the toggle itself enforces the invariant:
//   - checking index i also checks every earlier period (0..i);
//   - unchecking index i also unchecks every later period (i..end).
// Pure: returns a new slice, never mutates flags. An out-of-range index
// returns the flags unchanged.
func AplicarMarcado(flags []bool, indice int, marcado bool) []bool {
	nuevo := make([]bool, len(flags))
	copy(nuevo, flags)
	if indice < 0 || indice >= len(flags) {
		return nuevo
	}
	if marcado {
		for i := 0; i <= indice; i++ {
			nuevo[i] = true
		}
	} else {
		for i := indice; i < len(nuevo); i++ {
			nuevo[i] = false
		}
	}
	return nuevo
}

// MarcarTodos sets every flag to the same value; all-or-nothing needs no
// cascade.
func MarcarTodos(flags []bool, marcado bool) []bool {
	nuevo := make([]bool, len(flags))
	for i := range nuevo {
		nuevo[i] = marcado
	}
	return nuevo
}
