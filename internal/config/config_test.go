package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.BindAddr)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "smartdoc", cfg.MetricsNamespace)
	assert.False(t, cfg.AllowAnyOrigin)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "auto", cfg.OracleMode)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 30*time.Second, cfg.OracleTimeout)
	assert.Equal(t, 1, cfg.OracleMaxAttempts)
	assert.Empty(t, cfg.GeminiAPIURL)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoadReadsEnvironment(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9191")
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "yes")
	t.Setenv("ORACLE_MODE", " HTTP ")
	t.Setenv("GEMINI_API_URL", "https://generativelanguage.googleapis.com/v1beta/models/gemini-pro:generateContent")
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("ORACLE_TIMEOUT", "5s")
	t.Setenv("ORACLE_MAX_ATTEMPTS", "3")
	t.Setenv("DATABASE_URL", "sqlite:///tmp/smartdoc.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9191", cfg.BindAddr)
	assert.True(t, cfg.AllowAnyOrigin)
	assert.Equal(t, "http", cfg.OracleMode)
	assert.Equal(t, "k", cfg.GeminiAPIKey)
	assert.Equal(t, 5*time.Second, cfg.OracleTimeout)
	assert.Equal(t, 3, cfg.OracleMaxAttempts)
	assert.Equal(t, "sqlite:///tmp/smartdoc.db", cfg.DatabaseURL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"APP_SHUTDOWN_TIMEOUT": "soon",
		"ORACLE_TIMEOUT":       "500ms",
		"ORACLE_MAX_ATTEMPTS":  "many",
		"APP_ALLOW_ANY_ORIGIN": "maybe",
		"ORACLE_MODE":          "psychic",
		"APP_LOG_FORMAT":       "xml",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(key, value)
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoadRejectsOracleTimeoutAboveBound(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("ORACLE_TIMEOUT", "3m")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadConfigFileWithEnvOverride(t *testing.T) {
	setCoreEnvEmpty(t)
	path := filepath.Join(t.TempDir(), "smartdoc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app_bind_addr: \":7070\"\noracle_mode: mock\napp_log_level: debug\n"), 0o600))
	t.Setenv("APP_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.BindAddr)
	assert.Equal(t, "mock", cfg.OracleMode)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadMissingConfigFile(t *testing.T) {
	setCoreEnvEmpty(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	for key := range defaults {
		t.Setenv(key, "")
	}
}
