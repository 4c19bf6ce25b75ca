package cli

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/wodrun/internal/runtime"
)

const (
	defaultDBPath = "wodrun.db"

	envDBPath        = "WODRUN_DB_PATH"
	envLogLevel      = "WODRUN_LOG_LEVEL"
	envLogFile       = "WODRUN_LOG_FILE"
	envTick          = "WODRUN_TICK"
	envMaxIterations = "WODRUN_MAX_ITERATIONS"
)

// Config holds defaults loaded from environment variables. Command-line
// flags start from these values and override them.
type Config struct {
	DBPath        string
	LogLevel      slog.Level
	LogFile       string
	Tick          time.Duration
	MaxIterations int
}

// LoadConfig reads configuration from environment variables with sensible
// defaults. Malformed numbers and durations fall back to the default.
func LoadConfig() Config {
	cfg := Config{
		DBPath:        defaultDBPath,
		LogLevel:      slog.LevelWarn,
		Tick:          runtime.DefaultTickInterval,
		MaxIterations: runtime.DefaultMaxIterations,
	}

	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envLogFile); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv(envTick); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Tick = d
		}
	}
	if v := os.Getenv(envMaxIterations); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxIterations = n
		}
	}

	return cfg
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
		return slog.LevelWarn
	}
}
