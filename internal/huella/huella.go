// Package huella derives a stable device identifier from the characteristics
// the browser reports when the checkout starts. The digest is a best-effort
// fraud signal only: any failure degrades to an empty string, never an error.
package huella

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"pagoqr/internal/session"
)

const (
	claveCache = "huella"
	// TTL of a cached digest; within the window Generar returns the cached
	// value without recomputing.
	TTL = 5 * time.Minute
)

// Caracteristicas are the probes collected client-side. A missing probe is
// reported as the sentinel value, never dropped, so the serialized form keeps
// a fixed shape and the digest stays stable even on all-sentinel input.
type Caracteristicas struct {
	Pantalla    string   `json:"pantalla"`     // "1920x1080x24"
	ZonaHoraria string   `json:"zona_horaria"` // "America/La_Paz"
	Idioma      string   `json:"idioma"`
	Plataforma  string   `json:"plataforma"`
	Nucleos     int      `json:"nucleos"`
	MemoriaGB   int      `json:"memoria_gb"`
	WebGL       string   `json:"webgl"`  // renderer identifier
	Lienzo      string   `json:"lienzo"` // canvas rendering signature
	Fuentes     []string `json:"fuentes"`
	UserAgent   string   `json:"user_agent"`
}

// sentinel replaces any probe that failed or is unsupported.
const sentinel = "nd"

// versionRe scrubs version numbers out of the user agent to reduce digest
// volatility across browser updates.
var versionRe = regexp.MustCompile(`\d+[\d.]*`)

type cacheEntry struct {
	Huella     string    `json:"huella"`
	GeneradaEn time.Time `json:"generada_en"`
}

// Generador computes and caches fingerprints per session.
type Generador struct {
	kv    session.Store
	ahora func() time.Time
}

func NewGenerador(kv session.Store) *Generador {
	return &Generador{kv: kv, ahora: time.Now}
}

// Generar returns the hex digest for the session's device, serving from the
// TTL-bound cache when possible. Never returns an error: serialization or
// storage trouble degrades to "".
func (g *Generador) Generar(ctx context.Context, sesionID string, c *Caracteristicas) string {
	if cached, ok := g.leerCache(ctx, sesionID); ok {
		return cached
	}

	digest := Calcular(c)
	if digest == "" {
		return ""
	}

	entry, err := json.Marshal(cacheEntry{Huella: digest, GeneradaEn: g.ahora()})
	if err == nil {
		if err := g.kv.Set(ctx, sesionID, claveCache, string(entry)); err != nil {
			log.Debug().Err(err).Msg("huella: cache no persistida")
		}
	}
	return digest
}

func (g *Generador) leerCache(ctx context.Context, sesionID string) (string, bool) {
	raw, err := g.kv.Get(ctx, sesionID, claveCache)
	if err != nil {
		return "", false
	}
	var entry cacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return "", false
	}
	if g.ahora().Sub(entry.GeneradaEn) > TTL {
		return "", false
	}
	return entry.Huella, true
}

// Calcular is the pure digest over a set of characteristics. A nil input is
// treated as all probes failed: the result is a stable, low-entropy digest
// rather than an error.
func Calcular(c *Caracteristicas) string {
	if c == nil {
		c = &Caracteristicas{}
	}

	campos := []string{
		valor(c.Pantalla),
		valor(c.ZonaHoraria),
		valor(c.Idioma),
		valor(c.Plataforma),
		numero(c.Nucleos),
		numero(c.MemoriaGB),
		valor(c.WebGL),
		valor(c.Lienzo),
		fuentes(c.Fuentes),
		NormalizarUA(c.UserAgent),
	}

	h := sha256.Sum256([]byte(strings.Join(campos, "|")))
	return hex.EncodeToString(h[:])
}

// NormalizarUA strips version numbers from a user-agent string; an empty
// input yields the sentinel.
func NormalizarUA(ua string) string {
	if ua == "" {
		return sentinel
	}
	return strings.TrimSpace(versionRe.ReplaceAllString(ua, ""))
}

func valor(s string) string {
	if s == "" {
		return sentinel
	}
	return s
}

func numero(n int) string {
	if n <= 0 {
		return sentinel
	}
	return fmt.Sprintf("%d", n)
}

func fuentes(fs []string) string {
	if len(fs) == 0 {
		return sentinel
	}
	return strings.Join(fs, ",")
}
