package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the action chat client.
type Config struct {
	ServiceName       string        `env:"SERVICE_NAME" envDefault:"jan-actions"`
	Environment       string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	APIURL            string        `env:"ACTIONS_API_URL" envDefault:"http://localhost:3000/api/v1"`
	AccessToken       string        `env:"ACTIONS_ACCESS_TOKEN"`
	HTTPPort          int           `env:"HTTP_PORT" envDefault:"8095"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	HistoryMaxRetries int           `env:"HISTORY_MAX_RETRIES" envDefault:"2"`
	HistoryRetryDelay time.Duration `env:"HISTORY_RETRY_DELAY" envDefault:"500ms"`
	CacheSize         int           `env:"CACHE_SIZE" envDefault:"128"`
	EnableTracing     bool          `env:"ENABLE_TRACING" envDefault:"false"`
	EnableOTELMetrics bool          `env:"ENABLE_OTEL_METRICS" envDefault:"false"`
	OTLPEndpoint      string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	TraceSamplingRate float64       `env:"TRACE_SAMPLING_RATE" envDefault:"1.0"`
	PIILevel          string        `env:"PII_LEVEL" envDefault:"hashed"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("ACTIONS_API_URL must be an absolute URL, got %q", c.APIURL)
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")

	switch strings.ToLower(c.PIILevel) {
	case "none", "hashed", "full":
		c.PIILevel = strings.ToLower(c.PIILevel)
	default:
		return fmt.Errorf("PII_LEVEL must be one of none, hashed, full, got %q", c.PIILevel)
	}

	if (c.EnableTracing || c.EnableOTELMetrics) && strings.TrimSpace(c.OTLPEndpoint) == "" {
		return fmt.Errorf("OTEL_EXPORTER_OTLP_ENDPOINT is required when tracing or OTEL metrics are enabled")
	}

	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("TRACE_SAMPLING_RATE must be between 0 and 1, got %v", c.TraceSamplingRate)
	}

	if c.HistoryMaxRetries < 0 {
		c.HistoryMaxRetries = 0
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 128
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
