package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends accepted by STORE_BACKEND.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreNone     = "none"
)

const envDevelopment = "development"

// ErrInvalidConfig is returned by Validate when the environment describes an
// unusable combination of settings.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds all configuration for the server.
type Config struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"3000"`

	CORSOrigin         string `env:"CORS_ORIGIN" envDefault:"*"`
	AdminToken         string `env:"ADMIN_TOKEN"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"20"`
	TrustedProxyCount  int    `env:"TRUSTED_PROXY_COUNT" envDefault:"0"`
	MaxBodyBytes       int64  `env:"MAX_BODY_BYTES" envDefault:"10485760"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Store Store
	Mail  Mail
}

// Store selects and configures the message store.
type Store struct {
	Backend      string `env:"STORE_BACKEND" envDefault:"file"`
	MessagesFile string `env:"MESSAGES_FILE" envDefault:"messages.json"`
	DatabaseURL  string `env:"DATABASE_URL"`
	RedisURL     string `env:"REDIS_URL"`
}

// Mail carries everything the transports and the notifier need.
type Mail struct {
	// Dev mirrors APP_ENV == "development"; it is filled by Load.
	Dev bool

	Host   string `env:"EMAIL_HOST" envDefault:"smtp.gmail.com"`
	Port   int    `env:"EMAIL_PORT" envDefault:"587"`
	Secure bool   `env:"EMAIL_SECURE" envDefault:"false"`
	User   string `env:"EMAIL_USER"`
	Pass   string `env:"EMAIL_PASS"`

	OAuthClientID     string `env:"EMAIL_OAUTH_CLIENT_ID"`
	OAuthClientSecret string `env:"EMAIL_OAUTH_CLIENT_SECRET"`
	OAuthRefreshToken string `env:"EMAIL_OAUTH_REFRESH_TOKEN"`
	OAuthTokenURL     string `env:"EMAIL_OAUTH_TOKEN_URL"`

	Recipient   string        `env:"RECIPIENT_EMAIL"`
	OwnerName   string        `env:"OWNER_NAME"`
	SendTimeout time.Duration `env:"MAIL_SEND_TIMEOUT" envDefault:"30s"`
	DevDir      string        `env:"MAIL_DEV_DIR"`

	DKIMSelector   string `env:"DKIM_SELECTOR"`
	DKIMDomain     string `env:"DKIM_DOMAIN"`
	DKIMPrivateKey string `env:"DKIM_PRIVATE_KEY"`
	DKIMKeyPath    string `env:"DKIM_KEY_PATH"`
}

// Load reads a .env file when present and parses the environment into a Config.
func Load() (*Config, error) {
	// The .env file is optional; a missing file is not an error.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	cfg.Mail.Dev = cfg.IsDevelopment()
	return &cfg, nil
}

// IsDevelopment reports whether APP_ENV selects development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), envDevelopment)
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// AllowedOrigins splits CORS_ORIGIN on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, part := range strings.Split(c.CORSOrigin, ",") {
		if part = strings.TrimSpace(part); part != "" {
			origins = append(origins, part)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreFile:
		if strings.TrimSpace(c.Store.MessagesFile) == "" {
			return fmt.Errorf("%w: MESSAGES_FILE is required for the file store", ErrInvalidConfig)
		}
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for the postgres store", ErrInvalidConfig)
		}
	case StoreRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("%w: REDIS_URL is required for the redis store", ErrInvalidConfig)
		}
	case StoreNone:
	default:
		return fmt.Errorf("%w: unknown STORE_BACKEND %q", ErrInvalidConfig, c.Store.Backend)
	}

	if c.Mail.Live() && strings.TrimSpace(c.Mail.Recipient) == "" {
		return fmt.Errorf("%w: RECIPIENT_EMAIL is required when sending live email", ErrInvalidConfig)
	}
	if c.Mail.SendTimeout < 0 {
		return fmt.Errorf("%w: MAIL_SEND_TIMEOUT must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Live reports whether real mail should be sent: a non-development mode with
// a sender credential configured.
func (m Mail) Live() bool {
	return !m.Dev && strings.TrimSpace(m.User) != ""
}

// Sender is the envelope and header sender address.
func (m Mail) Sender() string {
	if u := strings.TrimSpace(m.User); u != "" {
		return u
	}
	return "no-reply@localhost"
}

// UsesOAuth reports whether XOAUTH2 should be used instead of PLAIN auth.
func (m Mail) UsesOAuth() bool {
	return m.OAuthRefreshToken != "" && m.OAuthClientID != ""
}

// DKIMEnabled reports whether any DKIM setting is present.
func (m Mail) DKIMEnabled() bool {
	return m.DKIMSelector != "" || m.DKIMPrivateKey != "" || m.DKIMKeyPath != "" || m.DKIMDomain != ""
}
