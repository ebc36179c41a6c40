// Package config holds process settings shared by the daqs commands.
// Values come from DAQS_* environment variables; command-line flags override them.
package config

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// World formats.
const (
	FormatAtlas = "atlas"
	FormatLoam  = "loam"
)

// Session store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config is the process configuration.
type Config struct {
	Dir    string `env:"DAQS_DIR" envDefault:"."`
	Format string `env:"DAQS_FORMAT" envDefault:"atlas"`
	// Strict fails the load on malformed world files instead of skipping them.
	Strict bool `env:"DAQS_STRICT" envDefault:"true"`
	// StrictMoves rejects moves that are not currently legal.
	StrictMoves bool `env:"DAQS_STRICT_MOVES" envDefault:"true"`

	Store         string        `env:"DAQS_STORE" envDefault:"memory"`
	SessionDir    string        `env:"DAQS_SESSION_DIR" envDefault:".daqs/sessions"`
	SQLitePath    string        `env:"DAQS_SQLITE_PATH" envDefault:".daqs/sessions.db"`
	RedisAddr     string        `env:"DAQS_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"DAQS_REDIS_PASSWORD"`
	RedisDB       int           `env:"DAQS_REDIS_DB" envDefault:"0"`
	SessionTTL    time.Duration `env:"DAQS_SESSION_TTL" envDefault:"24h"`
	// SessionKeys are base64 AES-256 keys. The first seals new saves; the
	// rest only open older ones.
	SessionKeys []string `env:"DAQS_SESSION_KEYS" envSeparator:","`

	PlannerConfig  string        `env:"DAQS_PLANNER_CONFIG" envDefault:"planners.yaml"`
	Planner        string        `env:"DAQS_PLANNER"`
	PlannerTimeout time.Duration `env:"DAQS_PLANNER_TIMEOUT" envDefault:"10s"`
	PDDLDumpDir    string        `env:"DAQS_PDDL_DUMP_DIR"`

	Agent   string `env:"DAQS_AGENT" envDefault:"player"`
	Persona string `env:"DAQS_PERSONA"`

	Port        int      `env:"DAQS_PORT" envDefault:"8080"`
	CORSOrigins []string `env:"DAQS_CORS_ORIGINS" envSeparator:","`
	LogLevel    string   `env:"DAQS_LOG_LEVEL" envDefault:"warn"`
}

// ParseEnv parses environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated settings and ranges.
func (c Config) Validate() error {
	switch c.Format {
	case FormatAtlas, FormatLoam:
	default:
		return fmt.Errorf("unknown world format %q (want %s or %s)", c.Format, FormatAtlas, FormatLoam)
	}
	switch c.Store {
	case StoreMemory, StoreFile, StoreRedis, StoreSQLite:
	default:
		return fmt.Errorf("unknown session store %q", c.Store)
	}
	if c.PlannerTimeout <= 0 {
		return fmt.Errorf("planner timeout must be positive, got %s", c.PlannerTimeout)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := c.EncryptionKeys(); err != nil {
		return err
	}
	return nil
}

// EncryptionKeys decodes SessionKeys. It returns nil when sealing is off.
func (c Config) EncryptionKeys() ([][]byte, error) {
	var keys [][]byte
	for i, k := range c.SessionKeys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(k)
		if err != nil {
			return nil, fmt.Errorf("session key %d: %w", i, err)
		}
		if len(raw) != 32 {
			return nil, fmt.Errorf("session key %d: want 32 bytes, got %d", i, len(raw))
		}
		keys = append(keys, raw)
	}
	return keys, nil
}

// Level returns the parsed log level, falling back to warn.
func (c Config) Level() slog.Level {
	lvl, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return lvl
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ParseLevel accepts debug, info, warn/warning and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
