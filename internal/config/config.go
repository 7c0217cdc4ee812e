package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config contains all runtime settings for the interview service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	LogLevel  string
	LogFormat string

	OracleMode        string
	GeminiAPIURL      string
	GeminiAPIKey      string
	GeminiModel       string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OracleTimeout     time.Duration
	OracleMaxAttempts int

	DatabaseURL string
}

var defaults = map[string]string{
	"APP_BIND_ADDR":         ":8080",
	"APP_SHUTDOWN_TIMEOUT":  "15s",
	"APP_METRICS_NAMESPACE": "smartdoc",
	"APP_ALLOW_ANY_ORIGIN":  "false",
	"APP_LOG_LEVEL":         "info",
	"APP_LOG_FORMAT":        "json",
	"ORACLE_MODE":           "auto",
	"GEMINI_API_URL":        "",
	"GEMINI_API_KEY":        "",
	"GEMINI_MODEL":          "gemini-2.0-flash",
	"OPENAI_API_KEY":        "",
	"OPENAI_BASE_URL":       "",
	"OPENAI_MODEL":          "gpt-4o-mini",
	"ORACLE_TIMEOUT":        "30s",
	"ORACLE_MAX_ATTEMPTS":   "1",
	"DATABASE_URL":          "",
}

var (
	oracleModes = map[string]bool{"auto": true, "http": true, "genai": true, "openai": true, "mock": true}
	logFormats  = map[string]bool{"json": true, "console": true}
)

// Load reads the optional config file at path, then environment variables, and applies safe defaults.
// Environment variables win over the file.
func Load(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	get := func(key string) string { return strings.TrimSpace(v.GetString(key)) }

	cfg := Config{
		BindAddr:         get("APP_BIND_ADDR"),
		MetricsNamespace: get("APP_METRICS_NAMESPACE"),
		LogLevel:         strings.ToLower(get("APP_LOG_LEVEL")),
		LogFormat:        strings.ToLower(get("APP_LOG_FORMAT")),
		OracleMode:       strings.ToLower(get("ORACLE_MODE")),
		GeminiAPIURL:     get("GEMINI_API_URL"),
		GeminiAPIKey:     get("GEMINI_API_KEY"),
		GeminiModel:      get("GEMINI_MODEL"),
		OpenAIAPIKey:     get("OPENAI_API_KEY"),
		OpenAIBaseURL:    get("OPENAI_BASE_URL"),
		OpenAIModel:      get("OPENAI_MODEL"),
		DatabaseURL:      get("DATABASE_URL"),
	}

	var err error
	if cfg.ShutdownTimeout, err = parseDuration("APP_SHUTDOWN_TIMEOUT", get("APP_SHUTDOWN_TIMEOUT")); err != nil {
		return Config{}, err
	}
	if cfg.OracleTimeout, err = parseDuration("ORACLE_TIMEOUT", get("ORACLE_TIMEOUT")); err != nil {
		return Config{}, err
	}
	if cfg.OracleMaxAttempts, err = parseInt("ORACLE_MAX_ATTEMPTS", get("ORACLE_MAX_ATTEMPTS")); err != nil {
		return Config{}, err
	}
	if cfg.AllowAnyOrigin, err = parseBool("APP_ALLOW_ANY_ORIGIN", get("APP_ALLOW_ANY_ORIGIN")); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.BindAddr == "" {
		return fmt.Errorf("APP_BIND_ADDR must not be empty")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("APP_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.OracleTimeout < time.Second || c.OracleTimeout > 120*time.Second {
		return fmt.Errorf("ORACLE_TIMEOUT must be between 1s and 120s, got %s", c.OracleTimeout)
	}
	if c.OracleMaxAttempts < 1 || c.OracleMaxAttempts > 5 {
		return fmt.Errorf("ORACLE_MAX_ATTEMPTS must be between 1 and 5")
	}
	if !oracleModes[c.OracleMode] {
		return fmt.Errorf("ORACLE_MODE %q is not one of auto, http, genai, openai, mock", c.OracleMode)
	}
	if !logFormats[c.LogFormat] {
		return fmt.Errorf("APP_LOG_FORMAT %q is not one of json, console", c.LogFormat)
	}
	return nil
}

func parseDuration(key, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func parseInt(key, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func parseBool(key, v string) (bool, error) {
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
