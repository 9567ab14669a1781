// Package config reads the API configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"coffeeshop/pkg/logger"
)

// Cart store backends.
const (
	CartStoreMemory = "memory"
	CartStoreRedis  = "redis"
)

type Config struct {
	ServiceName string
	Addr        string
	TLSCertFile string
	TLSKeyFile  string

	DataDir        string
	AllowedOrigins []string

	RedisAddr   string
	CartStore   string
	DatabaseURL string

	AMQPURL      string
	AMQPExchange string

	OTELHost        string
	OTELExporter    string
	OTELSampleRatio float64

	LogLevel logger.Level

	SessionTTL          time.Duration
	MaxItemQuantity     int
	ClearCartOnCheckout bool
	ShutdownTimeout     time.Duration
}

// TLSEnabled reports whether both certificate and key are configured.
func (c *Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// Load builds a Config from environment variables, applying defaults for
// anything unset. Malformed values are reported together.
func Load() (*Config, error) {
	var errs []error

	cfg := &Config{
		ServiceName:    envOr("SERVICE_NAME", "coffeeshop"),
		Addr:           envOr("ADDR", ":8000"),
		TLSCertFile:    os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:     os.Getenv("TLS_KEY_FILE"),
		DataDir:        os.Getenv("DATA_DIR"),
		AllowedOrigins: splitList(envOr("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		CartStore:      strings.ToLower(envOr("CART_STORE", CartStoreMemory)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		AMQPURL:        os.Getenv("AMQP_URL"),
		AMQPExchange:   envOr("AMQP_EXCHANGE", "coffeeshop.orders"),
		OTELHost:       os.Getenv("OTEL_HOST"),
		OTELExporter:   os.Getenv("OTEL_EXPORTER"),
	}

	var err error
	if cfg.LogLevel, err = logger.ParseLevel(os.Getenv("LOG_LEVEL")); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if cfg.OTELSampleRatio, err = floatEnv("OTEL_SAMPLE_RATIO", 1.0); err != nil {
		errs = append(errs, err)
	} else if cfg.OTELSampleRatio < 0 || cfg.OTELSampleRatio > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATIO: %v not in [0,1]", cfg.OTELSampleRatio))
	}
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", 7*24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.MaxItemQuantity, err = intEnv("MAX_ITEM_QUANTITY", 10); err != nil {
		errs = append(errs, err)
	} else if cfg.MaxItemQuantity < 0 {
		errs = append(errs, fmt.Errorf("MAX_ITEM_QUANTITY: must not be negative"))
	}
	if cfg.ClearCartOnCheckout, err = boolEnv("CLEAR_CART_ON_CHECKOUT", true); err != nil {
		errs = append(errs, err)
	}

	switch cfg.CartStore {
	case CartStoreMemory:
	case CartStoreRedis:
		if cfg.RedisAddr == "" {
			errs = append(errs, errors.New("CART_STORE=redis requires REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("CART_STORE: unknown store %q", cfg.CartStore))
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		errs = append(errs, errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together"))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
