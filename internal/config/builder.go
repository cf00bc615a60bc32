package config

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
)

// builder collects one Config per source, highest precedence first.
type builder struct {
	environ map[string]string
	configs []*Config
	err     error
}

func newBuilder(environ map[string]string) *builder {
	return &builder{
		environ: environ,
		configs: make([]*Config, 0, 4),
	}
}

// build merges every source into one Config and validates it.
//
// mergo.Merge only fills fields that are still zero in the destination, so
// merging in precedence order means the first source to set a field wins.
func (b *builder) build() (Config, error) {
	if b.err != nil {
		return Config{}, fmt.Errorf("config: reading sources: %w", b.err)
	}

	var cfg Config
	for _, src := range b.configs {
		if err := mergo.Merge(&cfg, src); err != nil {
			return Config{}, fmt.Errorf("config: merging sources: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// withFlags parses command-line flags into a Config.
//
// Flags:
//
//	-port      HTTP listen port
//	-db        SQLite database path
//	-mode      deployment mode (local, static-dev, production)
//	-api-mode  origin ordering hint ("functions" prefers serverless)
//
// A private FlagSet keeps tests from fighting over flag.CommandLine.
func (b *builder) withFlags(args []string) *builder {
	fs := flag.NewFlagSet("pulsepy", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &Config{}
	fs.IntVar(&cfg.Port, "port", 0, "HTTP listen port")
	fs.StringVar(&cfg.DBPath, "db", "", "SQLite database path")
	fs.StringVar(&cfg.ModeName, "mode", "", "deployment mode: local, static-dev, production")
	fs.StringVar(&cfg.APIMode, "api-mode", "", `origin ordering hint ("functions" prefers serverless)`)

	if err := fs.Parse(args); err != nil {
		b.err = errors.Join(b.err, fmt.Errorf("parsing flags: %w", err))
		return b
	}

	b.configs = append(b.configs, cfg)
	return b
}

// withEnv reads PULSEPY_* variables.
func (b *builder) withEnv() *builder {
	return b.parseEnv(EnvPrefix)
}

// platformEnv holds the unprefixed variables hosting platforms set for us
// (Render sets PORT; the serverless runtime used GEMINI_API_KEY).
type platformEnv struct {
	Port         int    `env:"PORT"`
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
}

// withPlatformEnv reads the unprefixed platform variables.
func (b *builder) withPlatformEnv() *builder {
	var p platformEnv
	if err := env.ParseWithOptions(&p, env.Options{Environment: b.environ}); err != nil {
		b.err = errors.Join(b.err, fmt.Errorf("parsing platform env: %w", err))
		return b
	}

	b.configs = append(b.configs, &Config{Port: p.Port, GeminiAPIKey: p.GeminiAPIKey})
	return b
}

func (b *builder) withDefaults() *builder {
	d := Defaults()
	b.configs = append(b.configs, &d)
	return b
}

func (b *builder) parseEnv(prefix string) *builder {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: prefix, Environment: b.environ}); err != nil {
		b.err = errors.Join(b.err, fmt.Errorf("parsing env: %w", err))
		return b
	}

	b.configs = append(b.configs, cfg)
	return b
}
