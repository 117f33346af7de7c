package relay

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Configuration errors.
var (
	ErrMissingWebhookURL  = errors.New("webhook url is not configured")
	ErrMissingCredentials = errors.New("webhook credentials are not configured")
	ErrUnknownAuthScheme  = errors.New("unknown webhook auth scheme")
)

// AuthScheme selects how the relay authenticates to the webhook.
type AuthScheme string

const (
	AuthBasic  AuthScheme = "basic"
	AuthBearer AuthScheme = "bearer"
)

// Config is the relay's process-wide configuration.
type Config struct {
	WebhookURL   string        `env:"INTAKE_WEBHOOK_URL"`
	Auth         AuthScheme    `env:"INTAKE_WEBHOOK_AUTH" envDefault:"basic"`
	Username     string        `env:"INTAKE_WEBHOOK_USERNAME"`
	Password     string        `env:"INTAKE_WEBHOOK_PASSWORD"`
	Token        string        `env:"INTAKE_WEBHOOK_TOKEN"`
	Timeout      time.Duration `env:"INTAKE_WEBHOOK_TIMEOUT" envDefault:"30s"`
	Retries      int           `env:"INTAKE_WEBHOOK_RETRIES" envDefault:"0"`
	MaxBodyBytes int64         `env:"INTAKE_RELAY_MAX_BODY" envDefault:"136314880"`
	CORSOrigin   string        `env:"INTAKE_CORS_ORIGIN" envDefault:"*"`
}

// LoadConfig reads the relay configuration from the environment.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse relay config: %w", err)
	}
	return cfg, nil
}

var urlValidator = validator.New()

// Validate reports whether the relay can forward requests.
func (c Config) Validate() error {
	if strings.TrimSpace(c.WebhookURL) == "" {
		return ErrMissingWebhookURL
	}
	if err := urlValidator.Var(c.WebhookURL, "url"); err != nil {
		return fmt.Errorf("%w: %q is not a url", ErrMissingWebhookURL, c.WebhookURL)
	}
	switch c.scheme() {
	case AuthBasic:
		if c.Username == "" || c.Password == "" {
			return fmt.Errorf("%w: basic auth needs a username and password", ErrMissingCredentials)
		}
	case AuthBearer:
		if c.Token == "" {
			return fmt.Errorf("%w: bearer auth needs a token", ErrMissingCredentials)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAuthScheme, c.Auth)
	}
	return nil
}

func (c Config) scheme() AuthScheme {
	if c.Auth == "" {
		return AuthBasic
	}
	return AuthScheme(strings.ToLower(string(c.Auth)))
}

func (c Config) corsOrigin() string {
	if c.CORSOrigin == "" {
		return "*"
	}
	return c.CORSOrigin
}
