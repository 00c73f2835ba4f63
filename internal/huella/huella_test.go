package huella

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagoqr/internal/session"
)

var hexRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

func caracteristicasEjemplo() *Caracteristicas {
	return &Caracteristicas{
		Pantalla:    "1920x1080x24",
		ZonaHoraria: "America/La_Paz",
		Idioma:      "es-BO",
		Plataforma:  "Linux x86_64",
		Nucleos:     8,
		MemoriaGB:   16,
		WebGL:       "Mesa Intel UHD",
		Lienzo:      "c4nv4s-f1rm4",
		Fuentes:     []string{"Arial", "Ubuntu"},
		UserAgent:   "Mozilla/5.0 (X11; Linux x86_64) Chrome/120.0.0.0",
	}
}

func TestCalcularEsDeterminista(t *testing.T) {
	a := Calcular(caracteristicasEjemplo())
	b := Calcular(caracteristicasEjemplo())
	assert.Equal(t, a, b)
	assert.Regexp(t, hexRe, a)
}

func TestCalcularNilEsEstable(t *testing.T) {
	// Todas las sondas fallidas: digest estable de baja entropía, nunca error.
	assert.Equal(t, Calcular(nil), Calcular(&Caracteristicas{}))
	assert.Regexp(t, hexRe, Calcular(nil))
}

func TestCalcularDistingueDispositivos(t *testing.T) {
	otro := caracteristicasEjemplo()
	otro.Pantalla = "1366x768x24"
	assert.NotEqual(t, Calcular(caracteristicasEjemplo()), Calcular(otro))
}

func TestNormalizarUAQuitaVersiones(t *testing.T) {
	ua := NormalizarUA("Mozilla/5.0 (X11; Linux x86_64) Chrome/120.0.0.0 Safari/537.36")
	assert.NotContains(t, ua, "120")
	assert.NotContains(t, ua, "537")
	assert.Contains(t, ua, "Chrome")

	assert.Equal(t, "nd", NormalizarUA(""))
}

func TestVersionDelNavegadorNoCambiaLaHuella(t *testing.T) {
	viejo := caracteristicasEjemplo()
	nuevo := caracteristicasEjemplo()
	nuevo.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) Chrome/121.0.0.1"
	viejo.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) Chrome/120.0.0.0"
	assert.Equal(t, Calcular(viejo), Calcular(nuevo))
}

func TestGenerarUsaCacheDentroDelTTL(t *testing.T) {
	ctx := context.Background()
	kv := session.NewMemoria()
	g := NewGenerador(kv)

	ahora := time.Now()
	g.ahora = func() time.Time { return ahora }

	primero := g.Generar(ctx, "s1", caracteristicasEjemplo())
	require.Regexp(t, hexRe, primero)

	// Dentro del TTL el cache manda, aunque las características cambien.
	otro := caracteristicasEjemplo()
	otro.Idioma = "en-US"
	assert.Equal(t, primero, g.Generar(ctx, "s1", otro))

	// Expirado el TTL se recalcula con las características nuevas.
	ahora = ahora.Add(TTL + time.Second)
	recalculado := g.Generar(ctx, "s1", otro)
	assert.NotEqual(t, primero, recalculado)
	assert.Equal(t, Calcular(otro), recalculado)
}

func TestGenerarDegradaSiElCacheNoEscribe(t *testing.T) {
	ctx := context.Background()
	kv := session.NewMemoria()
	kv.FallarEscritura = true
	g := NewGenerador(kv)

	digest := g.Generar(ctx, "s1", caracteristicasEjemplo())
	assert.Regexp(t, hexRe, digest, "la falla de cache no debe impedir el cálculo")
}

func TestGenerarAislaSesiones(t *testing.T) {
	ctx := context.Background()
	g := NewGenerador(session.NewMemoria())

	a := g.Generar(ctx, "s1", caracteristicasEjemplo())
	otro := caracteristicasEjemplo()
	otro.Plataforma = "Win32"
	b := g.Generar(ctx, "s2", otro)
	assert.NotEqual(t, a, b)
}
