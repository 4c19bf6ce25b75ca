package cli

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{envDBPath, envLogLevel, envLogFile, envTick, envMaxIterations} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := LoadConfig()
	assert.Equal(t, "wodrun.db", cfg.DBPath)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Empty(t, cfg.LogFile)
	assert.Equal(t, 100*time.Millisecond, cfg.Tick)
	assert.Equal(t, 20, cfg.MaxIterations)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(envDBPath, "/var/lib/wodrun/history.db")
	t.Setenv(envLogLevel, "DEBUG")
	t.Setenv(envLogFile, "/tmp/wodrun.log")
	t.Setenv(envTick, "50ms")
	t.Setenv(envMaxIterations, "64")

	cfg := LoadConfig()
	assert.Equal(t, "/var/lib/wodrun/history.db", cfg.DBPath)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "/tmp/wodrun.log", cfg.LogFile)
	assert.Equal(t, 50*time.Millisecond, cfg.Tick)
	assert.Equal(t, 64, cfg.MaxIterations)
}

func TestLoadConfig_MalformedValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv(envTick, "soon")
	t.Setenv(envMaxIterations, "-3")
	t.Setenv(envLogLevel, "chatty")

	cfg := LoadConfig()
	assert.Equal(t, 100*time.Millisecond, cfg.Tick)
	assert.Equal(t, 20, cfg.MaxIterations)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"Warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelWarn,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}
