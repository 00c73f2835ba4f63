package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// entradaDLQ wraps an exhausted job with its failure context for inspection.
type entradaDLQ struct {
	Trabajo   trabajoDLQ `json:"trabajo"`
	Error     string     `json:"error"`
	FallidoEn time.Time  `json:"fallido_en"`
}

type trabajoDLQ struct {
	Intentos int             `json:"intentos"`
	Datos    json.RawMessage `json:"datos"`
}

func enviarDLQ(ctx context.Context, rdb *redis.Client, t trabajo, causa error) {
	entry := entradaDLQ{
		Trabajo:   trabajoDLQ{Intentos: t.Intentos, Datos: t.Datos},
		Error:     causa.Error(),
		FallidoEn: time.Now(),
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Msg("worker: no se pudo serializar entrada DLQ")
		return
	}
	if err := rdb.LPush(ctx, ColaRecibosDLQ, encoded).Err(); err != nil {
		log.Error().Err(err).Msg("worker: no se pudo escribir en DLQ")
		return
	}
	log.Error().Str("causa", causa.Error()).Int("intentos", t.Intentos).Msg("worker: trabajo enviado a DLQ")
}

// TamanoDLQ returns the number of dead-lettered jobs, for the health endpoint.
func TamanoDLQ(ctx context.Context, rdb *redis.Client) (int64, error) {
	return rdb.LLen(ctx, ColaRecibosDLQ).Result()
}

// ReprocesarDLQ moves every dead-lettered job back onto the live queue with a
// reset retry counter. Operational tool, invoked manually.
func ReprocesarDLQ(ctx context.Context, rdb *redis.Client) (int, error) {
	movidos := 0
	for {
		raw, err := rdb.RPop(ctx, ColaRecibosDLQ).Result()
		if err == redis.Nil {
			return movidos, nil
		}
		if err != nil {
			return movidos, err
		}
		var entry entradaDLQ
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			log.Warn().Err(err).Msg("worker: entrada DLQ ilegible, descartada")
			continue
		}
		encoded, err := json.Marshal(trabajo{Intentos: 0, Datos: entry.Trabajo.Datos})
		if err != nil {
			continue
		}
		if err := rdb.LPush(ctx, ColaRecibos, encoded).Err(); err != nil {
			return movidos, err
		}
		movidos++
	}
}
