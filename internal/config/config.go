package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultListenAddr  = ":9001"
	defaultDBPath      = "snakebridge.db"
	defaultCallTimeout = 450 * time.Millisecond
	defaultEngineQueue = 16
	defaultDecider     = "starter"

	envListenAddr   = "SNAKEBRIDGE_LISTEN_ADDR"
	envPort         = "PORT"
	envDBPath       = "SNAKEBRIDGE_DB_PATH"
	envLogLevel     = "SNAKEBRIDGE_LOG_LEVEL"
	envCallTimeout  = "SNAKEBRIDGE_CALL_TIMEOUT"
	envEngineQueue  = "SNAKEBRIDGE_ENGINE_QUEUE"
	envDecider      = "SNAKEBRIDGE_DECIDER"
	envOTELEndpoint = "SNAKEBRIDGE_OTEL_ENDPOINT"
	envOTELEnabled  = "SNAKEBRIDGE_OTEL_ENABLED"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr string `env:"SNAKEBRIDGE_LISTEN_ADDR"`
	// Port is honoured for platforms that only hand out a port number. An
	// explicit listen address wins.
	Port         string        `env:"PORT"`
	DBPath       string        `env:"SNAKEBRIDGE_DB_PATH" envDefault:"snakebridge.db"`
	LogLevelName string        `env:"SNAKEBRIDGE_LOG_LEVEL" envDefault:"info"`
	CallTimeout  time.Duration `env:"SNAKEBRIDGE_CALL_TIMEOUT" envDefault:"450ms"`
	EngineQueue  int           `env:"SNAKEBRIDGE_ENGINE_QUEUE" envDefault:"16"`
	Decider      string        `env:"SNAKEBRIDGE_DECIDER" envDefault:"starter"`
	OTELEndpoint string        `env:"SNAKEBRIDGE_OTEL_ENDPOINT"`
	OTELEnabled  bool          `env:"SNAKEBRIDGE_OTEL_ENABLED" envDefault:"true"`

	LogLevel slog.Level `env:"-"`
}

// Load reads configuration from a .env file, if present, and the
// environment. Variables already set in the environment take precedence over
// the .env file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	switch {
	case cfg.ListenAddr != "":
	case cfg.Port != "":
		cfg.ListenAddr = ":" + cfg.Port
	default:
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.EngineQueue < 1 {
		cfg.EngineQueue = defaultEngineQueue
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelName)

	return cfg, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
