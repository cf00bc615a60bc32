// Package config loads the server configuration once at startup.
//
// SOURCES (highest precedence first):
//  1. command-line flags (-port, -db, -mode, -api-mode)
//  2. PULSEPY_* environment variables
//  3. hosting-platform variables without the prefix (PORT, GEMINI_API_KEY)
//  4. built-in defaults
//
// Each source is parsed into its own Config and the results are merged with
// mergo: a field set by a higher source is never overwritten by a lower one.
// Load validates the merged result and returns it by value. Nothing else in
// the program reads the environment.
package config

import (
	"fmt"
	"time"

	"github.com/sakif/pulsepy/internal/deploy"
	"github.com/sakif/pulsepy/internal/origin"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "PULSEPY_"

// MinJWTSecretLength matches auth.NewTokenService's requirement.
const MinJWTSecretLength = 16

// Config is the immutable server configuration.
type Config struct {
	// Port is the HTTP listen port. Env: PULSEPY_PORT (or PORT)
	Port int `env:"PORT"`

	// DBPath is the SQLite file. ":memory:" for throwaway runs. Env: PULSEPY_DB_PATH
	DBPath string `env:"DB_PATH"`

	// ModeName is "local", "static-dev" or "production". Env: PULSEPY_MODE
	ModeName string `env:"MODE"`

	// JWTSecret signs session tokens; at least 16 characters. Env: PULSEPY_JWT_SECRET
	JWTSecret string `env:"JWT_SECRET"`

	// SessionTTL is the token and cookie lifetime. Env: PULSEPY_SESSION_TTL (e.g. "168h")
	SessionTTL time.Duration `env:"SESSION_TTL"`

	// AllowedOrigins may call the API with credentials. Env: PULSEPY_ALLOWED_ORIGINS (comma-separated)
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// RemoteBases are extra backend origins tried before the production default.
	// Env: PULSEPY_REMOTE_BASES (comma-separated)
	RemoteBases []string `env:"REMOTE_BASES" envSeparator:","`

	// APIMode is "functions" to prefer the serverless origin. Env: PULSEPY_API_MODE
	APIMode string `env:"API_MODE"`

	// GeminiAPIKey enables the AI mentor. Env: PULSEPY_GEMINI_API_KEY (or GEMINI_API_KEY)
	GeminiAPIKey string `env:"GEMINI_API_KEY"`

	// GeminiBaseURL is a comma-separated list of model API origins. Env: PULSEPY_GEMINI_BASE_URL
	GeminiBaseURL string `env:"GEMINI_BASE_URL"`

	// RequestTimeout bounds each outbound attempt. Env: PULSEPY_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// HashWorkers caps concurrent bcrypt operations; 0 means GOMAXPROCS. Env: PULSEPY_HASH_WORKERS
	HashWorkers int `env:"HASH_WORKERS"`

	// BcryptCost is the bcrypt work factor. Env: PULSEPY_BCRYPT_COST
	BcryptCost int `env:"BCRYPT_COST"`

	// Mode is ModeName parsed. Filled in by Load.
	Mode deploy.Mode
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:           8080,
		DBPath:         "data/pulsepy.db",
		ModeName:       deploy.Local.String(),
		SessionTTL:     7 * 24 * time.Hour,
		RequestTimeout: origin.DefaultTimeout,
		BcryptCost:     12,
		GeminiBaseURL:  "https://generativelanguage.googleapis.com",
		AllowedOrigins: []string{
			"http://localhost:5500",
			"http://127.0.0.1:5500",
			"http://localhost:8080",
		},
	}
}

// Load builds the configuration from args (usually os.Args[1:]) and the
// environment. environ overrides the process environment when non-nil,
// which is how tests inject variables.
func Load(args []string, environ map[string]string) (Config, error) {
	return newBuilder(environ).
		withFlags(args).
		withEnv().
		withPlatformEnv().
		withDefaults().
		build()
}

// validate checks the merged configuration and resolves derived fields.
func (c *Config) validate() error {
	mode, err := deploy.ParseMode(c.ModeName)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Mode = mode

	if len(c.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("config: %sJWT_SECRET must be at least %d characters", EnvPrefix, MinJWTSecretLength)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: session TTL must be positive, got %s", c.SessionTTL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.HashWorkers < 0 {
		return fmt.Errorf("config: hash workers must not be negative, got %d", c.HashWorkers)
	}
	if c.DBPath == "" {
		return fmt.Errorf("config: database path is required")
	}
	return nil
}

// APIModeHint is APIMode parsed for the origin resolver.
func (c Config) APIModeHint() origin.APIMode {
	return origin.ParseAPIMode(c.APIMode)
}

// GeminiBaseURLs splits GeminiBaseURL into its origins.
func (c Config) GeminiBaseURLs() []string {
	return origin.ParseList(c.GeminiBaseURL)
}

// Addr is the listen address for net/http.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
