package ioc

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment variables read by LoadConfig.
const (
	EnvLogLevel         = "IOC_LOG_LEVEL"
	EnvLogFormat        = "IOC_LOG_FORMAT"
	EnvMaxDepth         = "IOC_MAX_DEPTH"
	EnvSelfRegistration = "IOC_SELF_REGISTRATION"
	EnvMetricsNamespace = "IOC_METRICS_NAMESPACE"
)

// Config is the environment-driven configuration of a container.
type Config struct {
	LogLevel         string // debug | info | warn | error
	LogFormat        string // json | console
	MaxDepth         int
	SelfRegistration bool
	MetricsNamespace string
}

// LoadConfig reads .env files (".env" when none are given) and populates a
// Config from the environment. Missing files are skipped; a file that
// exists but cannot be parsed is an error. Variables already set in the
// process environment take precedence.
func LoadConfig(envFiles ...string) (Config, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	return Config{
		LogLevel:         env(EnvLogLevel, "info"),
		LogFormat:        env(EnvLogFormat, "json"),
		MaxDepth:         envInt(EnvMaxDepth, DefaultMaxDepth),
		SelfRegistration: envBool(EnvSelfRegistration, true),
		MetricsNamespace: env(EnvMetricsNamespace, "ioc"),
	}, nil
}

// Logger builds a zap logger for the configured level and format.
func (cfg Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvLogLevel, cfg.LogLevel, err)
	}

	var zc zap.Config
	switch strings.ToLower(cfg.LogFormat) {
	case "", "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid %s %q: want json or console", EnvLogFormat, cfg.LogFormat)
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}

// NewFromEnv loads a Config with LoadConfig and creates a container from
// it. Additional options are applied after the environment settings.
func NewFromEnv(envFiles []string, opts ...Option) (*Container, error) {
	cfg, err := LoadConfig(envFiles...)
	if err != nil {
		return nil, err
	}

	logger, err := cfg.Logger()
	if err != nil {
		return nil, err
	}

	all := append([]Option{WithConfig(cfg), WithLogger(logger)}, opts...)
	return New(all...), nil
}

// EnvEnabled reports whether the environment variable key is set. Any
// value enables it, including an empty one, except a value that parses as
// false ("0", "false", ...). It is meant for conditional provider
// registration:
//
//	c.AddProviderIf(ioc.EnvEnabled("ENABLE_AUDIT"), &AuditProvider{})
func EnvEnabled(key string) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return false
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return true
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
