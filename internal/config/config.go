// Package config provides configuration loading for relnotesd.
//
// Configuration is read from a YAML file and then overridden by RELNOTESD_*
// environment variables. Every section has working defaults; an empty config
// starts a server that can analyze submitted diffs without any GitHub or
// telemetry setup.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete relnotesd configuration.
type Config struct {
	Server        ServerConfig
	GitHub        GitHubConfig
	LLM           LLMConfig
	Stream        StreamConfig
	Redact        RedactConfig
	Observability ObservabilityConfig
	Logging       LoggingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// GitHubConfig selects the repository the listing endpoint reads from.
// Owner and repo are optional; without them the server still analyzes
// submitted diffs but cannot list merged pull requests.
type GitHubConfig struct {
	Token    Secret `koanf:"token"`
	Owner    string `koanf:"owner"`
	Repo     string `koanf:"repo"`
	BaseURL  string `koanf:"base_url"`
	PerPage  int    `koanf:"per_page"`
	MaxPages int    `koanf:"max_pages"`
}

// Configured reports whether a repository is set.
func (c GitHubConfig) Configured() bool {
	return c.Owner != "" && c.Repo != ""
}

// LLMConfig holds generation backend configuration. Zero values defer to
// the backend package defaults; note that a zero temperature therefore
// means the default, not greedy sampling.
type LLMConfig struct {
	BaseURL           string  `koanf:"base_url"`
	Model             string  `koanf:"model"`
	APIKey            Secret  `koanf:"api_key"`
	Temperature       float64 `koanf:"temperature"`
	MaxTokens         int     `koanf:"max_tokens"`
	RequestsPerMinute int     `koanf:"requests_per_minute"`
	MaxRetries        int     `koanf:"max_retries"`
	MaxDiffChars      int     `koanf:"max_diff_chars"`
}

// StreamConfig tunes streaming sessions. A zero MinChangedLines means the
// relevance package default.
type StreamConfig struct {
	ProgressBatchSize int           `koanf:"progress_batch_size"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	MinChangedLines   int           `koanf:"min_changed_lines"`
}

// RedactConfig controls secret scanning of incoming diffs.
type RedactConfig struct {
	Enabled       bool   `koanf:"enabled"`
	AllowlistPath string `koanf:"allowlist_path"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	Endpoint        string `koanf:"endpoint"`
	Insecure        bool   `koanf:"insecure"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level       string `koanf:"level"`
	Development bool   `koanf:"development"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9300
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Stream.ProgressBatchSize == 0 {
		cfg.Stream.ProgressBatchSize = 5
	}
	if cfg.Stream.IdleTimeout == 0 {
		cfg.Stream.IdleTimeout = 120 * time.Second
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "relnotesd"
	}
	if cfg.Observability.Endpoint == "" {
		cfg.Observability.Endpoint = "localhost:4318"
		cfg.Observability.Insecure = true
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if (c.GitHub.Owner == "") != (c.GitHub.Repo == "") {
		return errors.New("github owner and repo must be set together")
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm temperature out of range: %v (must be 0-2)", c.LLM.Temperature)
	}
	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm max_tokens cannot be negative: %d", c.LLM.MaxTokens)
	}
	if c.LLM.MaxDiffChars < 0 {
		return fmt.Errorf("llm max_diff_chars cannot be negative: %d", c.LLM.MaxDiffChars)
	}

	if c.Stream.ProgressBatchSize <= 0 {
		return fmt.Errorf("stream progress_batch_size must be positive: %d", c.Stream.ProgressBatchSize)
	}
	if c.Stream.IdleTimeout <= 0 {
		return errors.New("stream idle_timeout must be positive")
	}
	if c.Stream.MinChangedLines < 0 {
		return fmt.Errorf("stream min_changed_lines cannot be negative: %d", c.Stream.MinChangedLines)
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}

	return nil
}
