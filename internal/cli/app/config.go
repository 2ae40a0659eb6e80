package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Authentication modes.
const (
	AuthModeNone              = "none"
	AuthModePAT               = "pat"
	AuthModeClientCredentials = "client_credentials"
	AuthModePrivateKey        = "private_key"
)

var ErrInvalidConfig = errors.New("cli: invalid configuration")

type Config struct {
	Host            string        // Required: instance URL, scheme defaults to https
	AuthMode        string        // Optional: none, pat, client_credentials, private_key (default: guessed from credentials)
	Token           string        // Personal access token (pat)
	ClientID        string        // Client id (client_credentials)
	ClientSecret    string        // Client secret (client_credentials)
	KeyFile         string        // Path to a JSON key file (private_key)
	KeyAlgorithm    string        // Optional: JWS algorithm for the key file (default: RS256)
	Scopes          []string      // Optional: scopes to request (default: auth.DefaultScopes)
	TokenCache      string        // Optional: path to SQLite token cache; empty disables caching
	CachePassphrase string        // Optional: seal cached tokens with this passphrase
	Env             string        // Environment (dev, staging, prod) (default: prod)
	LogLevel        string        // Log level (debug, info, warn, error) (default: warn)
	LogFormat       string        // Log format (json, text) (default: text)
	HTTPTimeout     time.Duration // Per request timeout (default: 10s)
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() Config {
	return Config{
		Host:            os.Getenv("ZITADEL_HOST"),
		AuthMode:        os.Getenv("ZITADEL_AUTH_MODE"),
		Token:           os.Getenv("ZITADEL_TOKEN"),
		ClientID:        os.Getenv("ZITADEL_CLIENT_ID"),
		ClientSecret:    os.Getenv("ZITADEL_CLIENT_SECRET"),
		KeyFile:         os.Getenv("ZITADEL_KEY_FILE"),
		KeyAlgorithm:    getEnvOrDefault("ZITADEL_KEY_ALG", "RS256"),
		Scopes:          splitScopes(os.Getenv("ZITADEL_SCOPES")),
		TokenCache:      os.Getenv("ZITADEL_TOKEN_CACHE"),
		CachePassphrase: os.Getenv("ZITADEL_CACHE_PASSPHRASE"),
		Env:             getEnvOrDefault("ENV", "prod"),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "warn"),
		LogFormat:       getEnvOrDefault("LOG_FORMAT", "text"),
		HTTPTimeout:     getEnvDurationOrDefault("HTTP_TIMEOUT", 10*time.Second),
	}
}

// fileConfig is the YAML form. Only fields that are set override what the
// environment said.
type fileConfig struct {
	Host         string   `yaml:"host"`
	AuthMode     string   `yaml:"auth_mode"`
	Token        string   `yaml:"token"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	KeyFile      string   `yaml:"key_file"`
	KeyAlgorithm string   `yaml:"key_algorithm"`
	Scopes       []string `yaml:"scopes"`
	TokenCache   string   `yaml:"token_cache"`
	Passphrase   string   `yaml:"cache_passphrase"`
	Log          struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	HTTPTimeout string `yaml:"http_timeout"`
}

// LoadFile overlays the YAML file at path onto c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	overlay(&c.Host, fc.Host)
	overlay(&c.AuthMode, fc.AuthMode)
	overlay(&c.Token, fc.Token)
	overlay(&c.ClientID, fc.ClientID)
	overlay(&c.ClientSecret, fc.ClientSecret)
	overlay(&c.KeyFile, fc.KeyFile)
	overlay(&c.KeyAlgorithm, fc.KeyAlgorithm)
	overlay(&c.TokenCache, fc.TokenCache)
	overlay(&c.CachePassphrase, fc.Passphrase)
	overlay(&c.LogLevel, fc.Log.Level)
	overlay(&c.LogFormat, fc.Log.Format)
	if len(fc.Scopes) > 0 {
		c.Scopes = fc.Scopes
	}
	if fc.HTTPTimeout != "" {
		d, err := time.ParseDuration(fc.HTTPTimeout)
		if err != nil {
			return fmt.Errorf("invalid http_timeout %q: %w", fc.HTTPTimeout, err)
		}
		c.HTTPTimeout = d
	}

	return nil
}

// ResolveAuthMode returns AuthMode, or if it is empty, the mode implied by
// whichever credentials are present.
func (c Config) ResolveAuthMode() string {
	if c.AuthMode != "" {
		return strings.ToLower(c.AuthMode)
	}

	switch {
	case c.KeyFile != "":
		return AuthModePrivateKey
	case c.ClientID != "" || c.ClientSecret != "":
		return AuthModeClientCredentials
	case c.Token != "":
		return AuthModePAT
	default:
		return AuthModeNone
	}
}

// Validate checks that the chosen mode has what it needs.
func (c Config) Validate() error {
	mode := c.ResolveAuthMode()

	if c.Host == "" && mode != AuthModeNone {
		return fmt.Errorf("%w: host is required (ZITADEL_HOST or --host)", ErrInvalidConfig)
	}

	switch mode {
	case AuthModeNone:
	case AuthModePAT:
		if c.Token == "" {
			return fmt.Errorf("%w: pat mode needs a token", ErrInvalidConfig)
		}
	case AuthModeClientCredentials:
		if c.ClientID == "" || c.ClientSecret == "" {
			return fmt.Errorf("%w: client_credentials mode needs a client id and secret", ErrInvalidConfig)
		}
	case AuthModePrivateKey:
		if c.KeyFile == "" {
			return fmt.Errorf("%w: private_key mode needs a key file", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown auth mode %q", ErrInvalidConfig, c.AuthMode)
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: http timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

func overlay(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func splitScopes(s string) []string {
	s = strings.ReplaceAll(s, ",", " ")
	return strings.Fields(s)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "30s", "1m")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
