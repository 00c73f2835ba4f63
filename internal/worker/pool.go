// Package worker runs the background job pool over redis lists. Producers
// LPUSH serialized jobs; workers BRPOP them with a short timeout so the pool
// drains cleanly on shutdown. Jobs that keep failing land in a dead-letter
// queue instead of looping forever.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	// ColaRecibos is the receipt-email queue.
	ColaRecibos = "jobs:recibos"
	// ColaRecibosDLQ holds receipt jobs that exhausted their retries.
	ColaRecibosDLQ = "jobs:recibos:dlq"

	maxIntentos = 3
	popTimeout  = 5 * time.Second
)

// trabajo is the queue envelope: retry counter plus the opaque payload.
type trabajo struct {
	Intentos int             `json:"intentos"`
	Datos    json.RawMessage `json:"datos"`
}

// Dispatcher enqueues jobs from the request path.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EncolarRecibo serializes the payload and pushes it onto the receipt queue.
func (d *Dispatcher) EncolarRecibo(ctx context.Context, payload interface{}) error {
	datos, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("worker: marshal payload: %w", err)
	}
	encoded, err := json.Marshal(trabajo{Intentos: 0, Datos: datos})
	if err != nil {
		return fmt.Errorf("worker: marshal job: %w", err)
	}
	return d.rdb.LPush(ctx, ColaRecibos, encoded).Err()
}

// Handlers binds each queue to its processor.
type Handlers struct {
	Recibo func(ctx context.Context, datos []byte) error
}

// StartWorkerPool launches size workers consuming the receipt queue until ctx
// is cancelled.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, size int, h Handlers) {
	for i := 0; i < size; i++ {
		go consumir(ctx, rdb, i, h)
	}
	log.Info().Int("workers", size).Msg("worker: pool iniciado")
}

func consumir(ctx context.Context, rdb *redis.Client, id int, h Handlers) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := rdb.BRPop(ctx, popTimeout, ColaRecibos).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			log.Warn().Err(err).Int("worker", id).Msg("worker: error leyendo cola")
			time.Sleep(time.Second)
			continue
		}
		// BRPOP returns [queue, value].
		if len(res) < 2 {
			continue
		}
		procesar(ctx, rdb, id, []byte(res[1]), h)
	}
}

func procesar(ctx context.Context, rdb *redis.Client, id int, raw []byte, h Handlers) {
	var t trabajo
	if err := json.Unmarshal(raw, &t); err != nil {
		log.Error().Err(err).Int("worker", id).Msg("worker: trabajo ilegible, descartado")
		return
	}

	if err := h.Recibo(ctx, t.Datos); err != nil {
		t.Intentos++
		if t.Intentos >= maxIntentos {
			enviarDLQ(ctx, rdb, t, err)
			return
		}
		log.Warn().Err(err).Int("intento", t.Intentos).Msg("worker: trabajo reencolado")
		if encoded, mErr := json.Marshal(t); mErr == nil {
			_ = rdb.LPush(ctx, ColaRecibos, encoded).Err()
		}
	}
}
