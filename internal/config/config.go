package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgconfig "github.com/utafrali/wholesale-storefront/pkg/config"
	"github.com/utafrali/wholesale-storefront/pkg/database"
)

// Config holds all configuration for the storefront server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"" envSeparator:","`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`
	// RedisTimeout bounds dial, read and write on the cart store connection.
	RedisTimeout time.Duration `env:"REDIS_TIMEOUT" envDefault:"3s"`

	// Cart storage. The namespace prefixes the cartProducts keys; TTL 0 keeps
	// carts until they are cleared.
	CartNamespace string        `env:"CART_NAMESPACE" envDefault:""`
	CartTTL       time.Duration `env:"CART_TTL" envDefault:"0s"`

	// Wholesale API
	APIBaseURL         string        `env:"WHOLESALE_API_URL" envDefault:"https://wholesale.techjodo.xyz/api"`
	APITimeout         time.Duration `env:"WHOLESALE_API_TIMEOUT" envDefault:"15s"`
	APIMaxRetries      int           `env:"WHOLESALE_API_MAX_RETRIES" envDefault:"3"`
	WholesellerID      int64         `env:"WHOLESELLER_ID" envDefault:"4"`
	ResellerID         int64         `env:"RESELLER_ID" envDefault:"3"`
	StaticToken        string        `env:"WHOLESALE_API_TOKEN" envDefault:""`
	OrderSubmitTimeout time.Duration `env:"ORDER_SUBMIT_TIMEOUT" envDefault:"30s"`

	// Kafka. Empty disables event publishing.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"" envSeparator:","`

	// PostgreSQL receipt journal
	ReceiptsEnabled bool   `env:"RECEIPTS_ENABLED" envDefault:"false"`
	PostgresHost    string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort    int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser    string `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPass    string `env:"POSTGRES_PASSWORD" envDefault:"storefront_secret"`
	PostgresDB      string `env:"STOREFRONT_DB_NAME" envDefault:"storefront"`
	PostgresSSL     string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	// SlowQueryThreshold logs journal queries slower than this; 0 disables.
	SlowQueryThreshold time.Duration `env:"DB_SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	cfg.KafkaBrokers = compact(cfg.KafkaBrokers)
	cfg.AllowedOrigins = compact(cfg.AllowedOrigins)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.RequestTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_REQUEST_TIMEOUT and HTTP_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.RedisTimeout <= 0 {
		return fmt.Errorf("REDIS_TIMEOUT must be positive: %s", c.RedisTimeout)
	}
	if c.CartTTL < 0 {
		return fmt.Errorf("CART_TTL must not be negative: %s", c.CartTTL)
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid WHOLESALE_API_URL: %q", c.APIBaseURL)
	}
	if c.APIMaxRetries < 0 {
		return fmt.Errorf("WHOLESALE_API_MAX_RETRIES must not be negative: %d", c.APIMaxRetries)
	}
	if c.WholesellerID <= 0 || c.ResellerID <= 0 {
		return fmt.Errorf("WHOLESELLER_ID and RESELLER_ID must be positive")
	}
	if c.OrderSubmitTimeout <= 0 {
		return fmt.Errorf("ORDER_SUBMIT_TIMEOUT must be positive: %s", c.OrderSubmitTimeout)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate)
	}
	return nil
}

// APIBase returns the API base URL without a trailing slash.
func (c *Config) APIBase() string {
	return strings.TrimRight(c.APIBaseURL, "/")
}

// RedisConfig returns the Redis connection settings.
func (c *Config) RedisConfig() database.RedisConfig {
	host, portStr, err := net.SplitHostPort(c.RedisAddr)
	if err != nil {
		host, portStr = c.RedisAddr, "6379"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = 6379
	}
	return database.RedisConfig{
		Host:         host,
		Port:         port,
		Password:     c.RedisPass,
		DB:           c.RedisDB,
		DialTimeout:  c.RedisTimeout,
		ReadTimeout:  c.RedisTimeout,
		WriteTimeout: c.RedisTimeout,
	}
}

// PostgresConfig returns the receipt journal pool settings.
func (c *Config) PostgresConfig() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	return pg
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
