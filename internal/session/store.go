// Package session implements the session-scoped key-value store backing the
// cart blob, the cart session stamp and the fingerprint cache. Scope mirrors a
// per-tab browser session: every key lives under the transport session id and
// expires with it (idle TTL refreshed on write).
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoExiste is returned by Get when the key is absent or expired.
var ErrNoExiste = errors.New("session: clave no existe")

// Store is the scoped key-value contract used by the cart store and the
// fingerprint cache. Implementations must keep keys isolated per session id.
type Store interface {
	Get(ctx context.Context, sesionID, clave string) (string, error)
	Set(ctx context.Context, sesionID, clave, valor string) error
	Remove(ctx context.Context, sesionID, clave string) error
}

// NuevoStampID issues a cart session stamp of the documented form
// "<timestamp>-<random>". The stamp is persisted alongside the cart blob and
// re-validated at load time.
func NuevoStampID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), hex.EncodeToString(b))
}

// ── Redis implementation ─────────────────────────────────────────────────────

// RedisStore scopes keys as "sesion:{id}:{clave}" with an idle TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) key(sesionID, clave string) string {
	return "sesion:" + sesionID + ":" + clave
}

func (s *RedisStore) Get(ctx context.Context, sesionID, clave string) (string, error) {
	val, err := s.rdb.Get(ctx, s.key(sesionID, clave)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoExiste
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, sesionID, clave, valor string) error {
	return s.rdb.Set(ctx, s.key(sesionID, clave), valor, s.ttl).Err()
}

func (s *RedisStore) Remove(ctx context.Context, sesionID, clave string) error {
	return s.rdb.Del(ctx, s.key(sesionID, clave)).Err()
}

// ── In-memory implementation ─────────────────────────────────────────────────

// Memoria is a map-backed Store for unit tests and single-node development.
// No TTL: entries live until removed.
type Memoria struct {
	datos map[string]string
	// FallarEscritura forces Set to fail — exercises the "persistence failed,
	// flow continues" contract of the cart store.
	FallarEscritura bool
}

func NewMemoria() *Memoria {
	return &Memoria{datos: make(map[string]string)}
}

func (m *Memoria) Get(_ context.Context, sesionID, clave string) (string, error) {
	v, ok := m.datos[sesionID+":"+clave]
	if !ok {
		return "", ErrNoExiste
	}
	return v, nil
}

func (m *Memoria) Set(_ context.Context, sesionID, clave, valor string) error {
	if m.FallarEscritura {
		return errors.New("session: escritura forzada a fallar")
	}
	m.datos[sesionID+":"+clave] = valor
	return nil
}

func (m *Memoria) Remove(_ context.Context, sesionID, clave string) error {
	delete(m.datos, sesionID+":"+clave)
	return nil
}
