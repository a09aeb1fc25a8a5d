package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`
	CORSOrigins string `envconfig:"CORS_ORIGINS"`

	// Upstream project-management server
	UpstreamURL     string        `envconfig:"UPSTREAM_URL" required:"true"`
	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"30s"`

	// Credentials. GlobalAPIKey is the shared fallback for RPC calls when no
	// personal key is resolvable. UserAPIKeys is an optional static
	// email:key table; when empty, personal keys are resolved at login time
	// from the upstream user directory.
	GlobalAPIKey string `envconfig:"UPSTREAM_API_KEY"`
	UserAPIKeys  string `envconfig:"USER_API_KEYS"`

	// Forwarding the end-user's upstream session cookie alongside the API
	// key makes some upstream versions resolve auth inconsistently, so it
	// is off by default; identity travels in explicit params instead.
	ForwardSessionCookie bool `envconfig:"UPSTREAM_FORWARD_SESSION" default:"false"`

	// Browser session
	SessionSecret      string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionCookieName  string        `envconfig:"SESSION_COOKIE_NAME" default:"lb_sess"`
	SessionTTL         time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	SessionTTLRemember time.Duration `envconfig:"SESSION_TTL_REMEMBER" default:"168h"`

	// Optional Redis backend for sessions and push subscriptions.
	// Empty means in-memory stores.
	RedisURL string `envconfig:"REDIS_URL"`

	// Retry policy for upstream rate limiting
	RetryMaxAttempts    int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryBaseDelay      time.Duration `envconfig:"RETRY_BASE_DELAY" default:"1s"`
	RetryRateLimitDelay time.Duration `envconfig:"RETRY_RATE_LIMIT_DELAY" default:"5s"`

	// Web push (optional — the push endpoints return an error when unset)
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDSubject    string `envconfig:"VAPID_SUBJECT" default:"mailto:admin@example.com"`

	// Optional YAML file overriding login-probe markers and the status
	// i18n table (see probe.go).
	ProbeFile string `envconfig:"PROBE_FILE"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg.UpstreamURL = strings.TrimSuffix(cfg.UpstreamURL, "/")
	return &cfg, nil
}

// IsProduction reports whether the service runs in production mode.
// Controls cookie Secure flags and debug payloads in login responses.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// RedisEnabled reports whether a Redis backend is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != ""
}

// PushEnabled reports whether web-push delivery is configured.
func (c *Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// ParseUserAPIKeys parses the USER_API_KEYS table.
// Format: "email1:key1,email2:key2". Emails are lowercased; keys may
// contain colons, so only the first colon splits.
func (c *Config) ParseUserAPIKeys() (map[string]string, error) {
	keys := make(map[string]string)
	if c.UserAPIKeys == "" {
		return keys, nil
	}
	for _, part := range strings.Split(c.UserAPIKeys, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.Index(part, ":")
		if idx <= 0 {
			return nil, fmt.Errorf("invalid USER_API_KEYS entry %q, expected email:key", part)
		}
		email := strings.ToLower(strings.TrimSpace(part[:idx]))
		key := strings.TrimSpace(part[idx+1:])
		if key == "" {
			return nil, fmt.Errorf("empty key for %q in USER_API_KEYS", email)
		}
		keys[email] = key
	}
	return keys, nil
}
