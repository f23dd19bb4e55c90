package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/DoyleJ11/fleet-bracket/internal/catalog"
)

// Config holds the server's and the terminal client's runtime settings.
type Config struct {
	ListenAddr string

	Sources        []catalog.Source
	SourceTimeout  time.Duration
	MinCatalogSize int
	CacheTTL       time.Duration
	CacheBucket    string

	SelectSettle time.Duration
	PickSettle   time.Duration

	LogLevel  string
	LogFormat string
}

func Default() Config {
	return Config{
		ListenAddr:     ":8080",
		Sources:        catalog.DefaultSources(),
		SourceTimeout:  catalog.DefaultTimeout,
		MinCatalogSize: catalog.DefaultMinItems,
		CacheTTL:       time.Hour,
		SelectSettle:   380 * time.Millisecond,
		PickSettle:     600 * time.Millisecond,
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

// Load reads envFile when it exists (a missing file is fine), then the
// process environment, then validates. Every problem is reported at once.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, which has the shape of os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	var problems []string

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", key, err))
			return
		}
		*dst = d
	}

	str("LISTEN_ADDR", &cfg.ListenAddr)
	dur("SOURCE_TIMEOUT", &cfg.SourceTimeout)
	dur("SELECT_SETTLE", &cfg.SelectSettle)
	dur("PICK_SETTLE", &cfg.PickSettle)
	dur("CATALOG_CACHE_TTL", &cfg.CacheTTL)
	str("CATALOG_CACHE_BUCKET", &cfg.CacheBucket)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)

	if v, ok := lookup("MIN_CATALOG_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("MIN_CATALOG_SIZE: %q is not a number", v))
		} else {
			cfg.MinCatalogSize = n
		}
	}
	if path, ok := lookup("SOURCES_FILE"); ok && path != "" {
		sources, err := catalog.LoadSources(path)
		if err != nil {
			problems = append(problems, fmt.Sprintf("SOURCES_FILE: %v", err))
		} else {
			cfg.Sources = sources
		}
	}

	problems = append(problems, cfg.validate()...)
	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return &cfg, nil
}

func (c *Config) validate() []string {
	var problems []string
	if c.SourceTimeout <= 0 {
		problems = append(problems, "SOURCE_TIMEOUT must be positive")
	}
	if c.SelectSettle < 0 {
		problems = append(problems, "SELECT_SETTLE must not be negative")
	}
	if c.PickSettle < 0 {
		problems = append(problems, "PICK_SETTLE must not be negative")
	}
	if c.CacheTTL < 0 {
		problems = append(problems, "CATALOG_CACHE_TTL must not be negative")
	}
	if c.MinCatalogSize < 1 {
		problems = append(problems, "MIN_CATALOG_SIZE must be at least 1")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("LOG_LEVEL: unknown level %q", c.LogLevel))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		problems = append(problems, fmt.Sprintf("LOG_FORMAT: want json or console, got %q", c.LogFormat))
	}
	return problems
}

// Logger builds the process logger. console selects zap's development
// encoder, which is easier to read in a terminal.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
