package carrito

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagoqr/internal/model"
	"pagoqr/internal/session"
)

const sesion = "sesion-prueba"

func d(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func item(alias, contrato, moneda string, total string) model.ItemCarrito {
	return model.ItemCarrito{
		ServicioAlias:  alias,
		ServicioNombre: "Servicio " + alias,
		CodigoContrato: contrato,
		Moneda:         moneda,
		TotalServicio:  d(total),
		TotalGeneral:   d(total),
	}
}

func nuevoStore() (*Store, *session.Memoria) {
	kv := session.NewMemoria()
	return NewStore(kv, "Bs."), kv
}

func TestAgregarYCargar(t *testing.T) {
	ctx := context.Background()
	s, _ := nuevoStore()

	c, persistido := s.Agregar(ctx, sesion, item("agua", "C-1", "Bs.", "50.00"))
	assert.True(t, persistido)
	assert.Equal(t, 1, c.Cantidad())
	assert.NotEmpty(t, c.SesionID, "el stamp se asigna en la primera alta")

	cargado := s.Cargar(ctx, sesion)
	assert.Equal(t, 1, cargado.Cantidad())
	assert.Equal(t, c.SesionID, cargado.SesionID)
	assert.Equal(t, "Bs.", cargado.Moneda())
}

func TestMonedaIncompatible(t *testing.T) {
	ctx := context.Background()
	s, _ := nuevoStore()

	ok, existente := s.PuedeAgregarMoneda(ctx, sesion, "USD.")
	assert.True(t, ok, "el carrito vacío acepta cualquier moneda")
	assert.Empty(t, existente)

	s.Agregar(ctx, sesion, item("agua", "C-1", "Bs.", "50.00"))

	ok, existente = s.PuedeAgregarMoneda(ctx, sesion, "USD.")
	assert.False(t, ok)
	assert.Equal(t, "Bs.", existente)

	ok, _ = s.PuedeAgregarMoneda(ctx, sesion, "Bs.")
	assert.True(t, ok)
}

func TestIndiceDuplicadoPrimeraCoincidencia(t *testing.T) {
	ctx := context.Background()
	s, _ := nuevoStore()
	s.Agregar(ctx, sesion, item("agua", "C-1", "Bs.", "10.00"))
	s.Agregar(ctx, sesion, item("luz", "C-2", "Bs.", "20.00"))

	assert.Equal(t, 1, s.IndiceDuplicado(ctx, sesion, "luz", "C-2"))
	assert.Equal(t, -1, s.IndiceDuplicado(ctx, sesion, "luz", "C-9"))
	// Mismo contrato bajo otro servicio no es duplicado.
	assert.Equal(t, -1, s.IndiceDuplicado(ctx, sesion, "gas", "C-1"))
}

func TestEliminarUltimoItemEmiteStampNuevo(t *testing.T) {
	ctx := context.Background()
	s, _ := nuevoStore()

	c, _ := s.Agregar(ctx, sesion, item("agua", "C-1", "Bs.", "10.00"))
	stampViejo := c.SesionID

	c = s.Eliminar(ctx, sesion, 0)
	assert.True(t, c.EstaVacio())

	c, _ = s.Agregar(ctx, sesion, item("luz", "C-2", "Bs.", "20.00"))
	assert.NotEqual(t, stampViejo, c.SesionID, "vaciar por eliminación renueva el stamp")
}

func TestVaciarConservaElStamp(t *testing.T) {
	ctx := context.Background()
	s, _ := nuevoStore()

	c, _ := s.Agregar(ctx, sesion, item("agua", "C-1", "Bs.", "10.00"))
	stamp := c.SesionID

	s.Vaciar(ctx, sesion)
	assert.True(t, s.Cargar(ctx, sesion).EstaVacio())

	c, _ = s.Agregar(ctx, sesion, item("luz", "C-2", "Bs.", "20.00"))
	assert.Equal(t, stamp, c.SesionID)
}

func TestEliminarIndiceFueraDeRango(t *testing.T) {
	ctx := context.Background()
	s, _ := nuevoStore()
	s.Agregar(ctx, sesion, item("agua", "C-1", "Bs.", "10.00"))

	c := s.Eliminar(ctx, sesion, 5)
	assert.Equal(t, 1, c.Cantidad())
	c = s.Eliminar(ctx, sesion, -1)
	assert.Equal(t, 1, c.Cantidad())
}

func TestReemplazar(t *testing.T) {
	ctx := context.Background()
	s, _ := nuevoStore()
	s.Agregar(ctx, sesion, item("agua", "C-1", "Bs.", "10.00"))

	c, ok := s.Reemplazar(ctx, sesion, 0, item("agua", "C-1", "Bs.", "35.00"))
	assert.True(t, ok)
	assert.True(t, c.TotalGeneral().Equal(d("35.00")))

	_, ok = s.Reemplazar(ctx, sesion, 3, item("agua", "C-1", "Bs.", "1.00"))
	assert.False(t, ok)
}

func TestStampDistintoDescartaElCarrito(t *testing.T) {
	ctx := context.Background()
	s, kv := nuevoStore()
	s.Agregar(ctx, sesion, item("agua", "C-1", "Bs.", "10.00"))

	// Otro stamp persistido: el blob deja de pertenecer a esta sesión de carrito.
	require.NoError(t, kv.Set(ctx, sesion, "carrito_sesion", "0-ffffffffffff"))
	assert.True(t, s.Cargar(ctx, sesion).EstaVacio())
}

func TestBlobIlegibleSeDescarta(t *testing.T) {
	ctx := context.Background()
	s, kv := nuevoStore()
	require.NoError(t, kv.Set(ctx, sesion, "carrito", "{no es json"))

	assert.True(t, s.Cargar(ctx, sesion).EstaVacio())
}

func TestItemsSinMonedaMigranALaDefecto(t *testing.T) {
	ctx := context.Background()
	s, _ := nuevoStore()
	s.Agregar(ctx, sesion, item("agua", "C-1", "", "10.00"))

	cargado := s.Cargar(ctx, sesion)
	assert.Equal(t, "Bs.", cargado.Moneda())
}

func TestPersistenciaFallidaNoPierdeLaRespuesta(t *testing.T) {
	ctx := context.Background()
	s, kv := nuevoStore()
	kv.FallarEscritura = true

	c, persistido := s.Agregar(ctx, sesion, item("agua", "C-1", "Bs.", "10.00"))
	assert.False(t, persistido)
	assert.Equal(t, 1, c.Cantidad(), "la respuesta trae el carrito actualizado aunque no persista")
}

func TestTotalGeneralSeReconstituyeAlCargar(t *testing.T) {
	ctx := context.Background()
	s, _ := nuevoStore()

	// Blob antiguo: partes presentes pero sin total general.
	viejo := item("agua", "C-1", "Bs.", "10.00")
	viejo.TotalComision = d("2.00")
	viejo.TotalGeneral = decimal.Zero
	s.Agregar(ctx, sesion, viejo)

	cargado := s.Cargar(ctx, sesion)
	require.Equal(t, 1, cargado.Cantidad())
	assert.True(t, cargado.Items[0].TotalGeneral.Equal(d("12.00")))
}

// kvConTTL emula la expiración de redis: Set fija (y refresca) el vencimiento
// de la clave, Get falla una vez vencida.
type kvConTTL struct {
	ttl   time.Duration
	ahora func() time.Time
	datos map[string]string
	vence map[string]time.Time
}

func nuevoKVConTTL(ttl time.Duration, ahora func() time.Time) *kvConTTL {
	return &kvConTTL{ttl: ttl, ahora: ahora, datos: map[string]string{}, vence: map[string]time.Time{}}
}

func (k *kvConTTL) Get(_ context.Context, sesionID, clave string) (string, error) {
	key := sesionID + ":" + clave
	v, ok := k.datos[key]
	if !ok || k.ahora().After(k.vence[key]) {
		return "", session.ErrNoExiste
	}
	return v, nil
}

func (k *kvConTTL) Set(_ context.Context, sesionID, clave, valor string) error {
	key := sesionID + ":" + clave
	k.datos[key] = valor
	k.vence[key] = k.ahora().Add(k.ttl)
	return nil
}

func (k *kvConTTL) Remove(_ context.Context, sesionID, clave string) error {
	delete(k.datos, sesionID+":"+clave)
	return nil
}

func TestMutacionesRefrescanElStampJuntoAlBlob(t *testing.T) {
	ctx := context.Background()
	momento := time.Now()
	kv := nuevoKVConTTL(30*time.Minute, func() time.Time { return momento })
	s := NewStore(kv, "Bs.")

	s.Agregar(ctx, sesion, item("agua", "C-1", "Bs.", "10.00"))

	// Segunda alta dentro de la ventana: ambas claves deben renovarse, no
	// solo el blob. Si el stamp venciera primero, la sesión activa perdería
	// el carrito entero al cargarlo.
	momento = momento.Add(20 * time.Minute)
	s.Agregar(ctx, sesion, item("luz", "C-2", "Bs.", "20.00"))

	momento = momento.Add(15 * time.Minute)
	cargado := s.Cargar(ctx, sesion)
	assert.Equal(t, 2, cargado.Cantidad(), "el stamp vence junto al blob, no antes")
}
