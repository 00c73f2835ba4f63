package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field maps 1:1 to a documented env var.
type Config struct {
	// Server
	Port           int    `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"` // development | production
	WorkerPoolSize int    `mapstructure:"WORKER_POOL_SIZE"`

	// Redis — session-scoped store + job queues
	RedisURL string `mapstructure:"REDIS_URL"`

	// Pasarela de pagos (backend remoto)
	PasarelaBaseURL string `mapstructure:"PASARELA_BASE_URL"`

	// SMTP
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`

	// Business
	MonedaDefecto    string `mapstructure:"MONEDA_DEFECTO"`
	SesionTTLMinutos int    `mapstructure:"SESION_TTL_MINUTOS"`
	// MetodosPago is a CSV list; with a single entry the checkout skips the
	// payment-method step and preselects it.
	MetodosPago       string `mapstructure:"METODOS_PAGO"`
	ReciboStoragePath string `mapstructure:"RECIBO_STORAGE_PATH"`
}

// Load reads configuration from environment variables (and optional .env file).
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Sensible defaults for development
	viper.SetDefault("PORT", 8000)
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("WORKER_POOL_SIZE", 5)
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("PASARELA_BASE_URL", "http://localhost:8001")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("MONEDA_DEFECTO", "Bs.")
	viper.SetDefault("SESION_TTL_MINUTOS", 30)
	viper.SetDefault("METODOS_PAGO", "qr")
	viper.SetDefault("RECIBO_STORAGE_PATH", "/tmp/pagoqr/recibos")

	// Optional .env file for local development — does not fail if missing
	_ = viper.ReadInConfig()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Metodos returns the configured payment methods as a slice.
func (c *Config) Metodos() []string {
	parts := strings.Split(c.MetodosPago, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if m := strings.TrimSpace(p); m != "" {
			out = append(out, m)
		}
	}
	return out
}
