// Package config loads the intake service configuration from the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/gabrielmiguelok/fundingintake/pkg/relay"
	"github.com/gabrielmiguelok/fundingintake/pkg/transport"
)

// DefaultEnvFile is read when present and no other file is named.
const DefaultEnvFile = ".env"

// Config is the whole process configuration.
type Config struct {
	Server Server
	Relay  relay.Config
	Live   Live
}

// Server configures the HTTP listener and process-wide concerns.
type Server struct {
	Addr              string        `env:"INTAKE_ADDR" envDefault:":8080" validate:"required"`
	LogLevel          string        `env:"INTAKE_LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat         string        `env:"INTAKE_LOG_FORMAT" envDefault:"json" validate:"oneof=json console"`
	RateLimit         int           `env:"INTAKE_RATE_LIMIT" envDefault:"5" validate:"gte=0"`
	ReadHeaderTimeout time.Duration `env:"INTAKE_READ_HEADER_TIMEOUT" envDefault:"10s" validate:"gt=0"`
	ShutdownTimeout   time.Duration `env:"INTAKE_SHUTDOWN_TIMEOUT" envDefault:"30s" validate:"gt=0"`
}

// Live configures the websocket wizard endpoint.
type Live struct {
	AllowedOrigins   []string      `env:"INTAKE_ALLOWED_ORIGINS" envSeparator:","`
	InsecureDevMode  bool          `env:"INTAKE_INSECURE_DEV_MODE"`
	MaxMessageSize   int64         `env:"INTAKE_LIVE_MAX_MESSAGE" envDefault:"37748736" validate:"gt=0"`
	PingInterval     time.Duration `env:"INTAKE_LIVE_PING_INTERVAL" envDefault:"30s" validate:"gte=0"`
	MaxSessions      int           `env:"INTAKE_LIVE_MAX_SESSIONS" envDefault:"0" validate:"gte=0"`
	MaxSessionsPerIP int           `env:"INTAKE_LIVE_MAX_SESSIONS_PER_IP" envDefault:"10" validate:"gte=0"`

	// RelayURL makes the wizard submit through a remote relay instead of
	// the in-process forwarder.
	RelayURL string `env:"INTAKE_LIVE_RELAY_URL" validate:"omitempty,url"`
}

// WebSocketConfig converts the live settings for the transport.
func (l Live) WebSocketConfig() *transport.WebSocketConfig {
	cfg := transport.DefaultWebSocketConfig()
	cfg.AllowedOrigins = l.AllowedOrigins
	cfg.InsecureDevMode = l.InsecureDevMode
	if l.MaxMessageSize > 0 {
		cfg.MaxMessageSize = l.MaxMessageSize
	}
	cfg.PingInterval = l.PingInterval
	return cfg
}

var validate = validator.New()

// Load reads envFile into the environment, then parses and validates the
// configuration. Variables already set win over the file. An empty envFile
// reads DefaultEnvFile if it exists.
//
// The relay settings are not validated here: a service with an incomplete
// relay configuration still starts and reports itself unready.
func Load(envFile string) (Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", DefaultEnvFile, err)
	}
	return nil
}
