// Command server runs the payment-checkout API: catalog, debt-collection
// wizard, session cart and QR checkout over the pasarela de pagos.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pagoqr/internal/carrito"
	"pagoqr/internal/checkout"
	"pagoqr/internal/cobranza"
	"pagoqr/internal/config"
	"pagoqr/internal/handler"
	"pagoqr/internal/huella"
	"pagoqr/internal/infra"
	"pagoqr/internal/pasarela"
	"pagoqr/internal/router"
	"pagoqr/internal/session"
	"pagoqr/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("no se pudo cargar la configuración")
	}

	if cfg.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	rdb, err := infra.NewRedis(context.Background(), cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("no se pudo conectar a redis")
	}
	defer rdb.Close()

	// Shared infrastructure.
	circuito := infra.NewCircuito(infra.ConfigCircuitoDefecto())
	backend := pasarela.NewClient(cfg.PasarelaBaseURL, circuito)

	sesionTTL := time.Duration(cfg.SesionTTLMinutos) * time.Minute
	kv := session.NewRedisStore(rdb, sesionTTL)
	carritoStore := carrito.NewStore(kv, cfg.MonedaDefecto)
	huellas := huella.NewGenerador(kv)

	// Background workers: receipt emails.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mailer := infra.NewMailer(cfg)
	recibos := worker.NewReciboWorker(mailer, cfg.ReciboStoragePath)
	worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, worker.Handlers{Recibo: recibos.Procesar})
	dispatcher := worker.NewDispatcher(rdb)

	// Wizard registries.
	cobranzas := cobranza.NewRegistro(backend, backend, carritoStore, sesionTTL)
	checkouts := checkout.NewRegistro(cfg.Metodos(), backend, carritoStore, huellas, dispatcher, sesionTTL)

	engine := router.New(cfg, router.Handlers{
		Health:    handler.NewHealthHandler(rdb, circuito),
		Servicios: handler.NewServiciosHandler(backend),
		Cobranza:  handler.NewCobranzaHandler(cobranzas),
		Checkout:  handler.NewCheckoutHandler(checkouts),
		Carrito:   handler.NewCarritoHandler(carritoStore),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: engine,
	}

	go func() {
		log.Info().Int("puerto", cfg.Port).Str("entorno", cfg.Env).Msg("servidor iniciado")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("el servidor terminó con error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("apagando servidor…")

	cancel() // stop the worker pool

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado forzado")
	}
	log.Info().Msg("servidor detenido")
}
