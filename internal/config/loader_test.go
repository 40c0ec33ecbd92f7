package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// writeTestConfig places a config file in the allowed directory under a
// fake home and returns its path.
func writeTestConfig(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	configDir := filepath.Join(home, ".config", "relnotesd")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), perm); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoadWithFileValidYAML(t *testing.T) {
	configPath := writeTestConfig(t, `server:
  http_port: 9400
  shutdown_timeout: 3s

github:
  owner: acme
  repo: widgets
  token: ghp_testtoken

llm:
  model: gpt-4o
  temperature: 0.4

stream:
  idle_timeout: 90s

redact:
  enabled: true
`, 0600)

	cfg, err := LoadWithFile(configPath)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v", err)
	}

	if cfg.Server.Port != 9400 {
		t.Errorf("Server.Port = %d, want 9400", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 3*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 3s", cfg.Server.ShutdownTimeout)
	}
	if cfg.GitHub.Owner != "acme" || cfg.GitHub.Repo != "widgets" {
		t.Errorf("GitHub = %+v", cfg.GitHub)
	}
	if cfg.GitHub.Token.Value() != "ghp_testtoken" {
		t.Errorf("GitHub.Token.Value() = %q", cfg.GitHub.Token.Value())
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("LLM.Model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.Temperature != 0.4 {
		t.Errorf("LLM.Temperature = %v", cfg.LLM.Temperature)
	}
	if cfg.Stream.IdleTimeout != 90*time.Second {
		t.Errorf("Stream.IdleTimeout = %v, want 90s", cfg.Stream.IdleTimeout)
	}
	if !cfg.Redact.Enabled {
		t.Error("Redact.Enabled = false, want true")
	}

	// Untouched sections still get defaults.
	if cfg.Stream.ProgressBatchSize != 5 {
		t.Errorf("Stream.ProgressBatchSize = %d, want default 5", cfg.Stream.ProgressBatchSize)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default info", cfg.Logging.Level)
	}
}

func TestLoadWithFileEnvironmentOverride(t *testing.T) {
	configPath := writeTestConfig(t, `server:
  http_port: 9400

llm:
  model: yaml-model
`, 0600)

	t.Setenv("RELNOTESD_SERVER_HTTP_PORT", "7777")
	t.Setenv("RELNOTESD_LLM_MODEL", "env-model")
	t.Setenv("RELNOTESD_GITHUB_OWNER", "acme")
	t.Setenv("RELNOTESD_GITHUB_REPO", "widgets")

	cfg, err := LoadWithFile(configPath)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v", err)
	}

	if cfg.Server.Port != 7777 {
		t.Errorf("Server.Port = %d, want 7777 (from env override)", cfg.Server.Port)
	}
	if cfg.LLM.Model != "env-model" {
		t.Errorf("LLM.Model = %q, want env-model (from env override)", cfg.LLM.Model)
	}
	if cfg.GitHub.Owner != "acme" || cfg.GitHub.Repo != "widgets" {
		t.Errorf("GitHub = %+v, want env values", cfg.GitHub)
	}
}

func TestLoadWithFileMissingFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	configPath := filepath.Join(home, ".config", "relnotesd", "config.yaml")

	cfg, err := LoadWithFile(configPath)
	if err != nil {
		t.Fatalf("LoadWithFile() should not error on missing file, got: %v", err)
	}
	if cfg.Server.Port != 9300 {
		t.Errorf("Server.Port = %d, want default 9300", cfg.Server.Port)
	}
}

func TestLoadWithFileSecretFromEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("RELNOTESD_LLM_API_KEY", "sk-test-12345")

	cfg, err := LoadWithFile(filepath.Join(home, ".config", "relnotesd", "config.yaml"))
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v", err)
	}

	if cfg.LLM.APIKey.Value() != "sk-test-12345" {
		t.Errorf("LLM.APIKey.Value() = %q", cfg.LLM.APIKey.Value())
	}
	if cfg.LLM.APIKey.String() != "[REDACTED]" {
		t.Errorf("LLM.APIKey.String() = %q", cfg.LLM.APIKey.String())
	}
}

func TestLoadWithFileInvalidYAML(t *testing.T) {
	configPath := writeTestConfig(t, `server:
  http_port: [not, closed
`, 0600)

	if _, err := LoadWithFile(configPath); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestLoadWithFileRejectsOutsideAllowedDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	outside := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(outside, []byte("server:\n  http_port: 9400\n"), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := LoadWithFile(outside)
	if err == nil || !strings.Contains(err.Error(), "config path validation failed") {
		t.Fatalf("LoadWithFile() error = %v, want path validation failure", err)
	}
}

func TestLoadWithFileRejectsInsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on windows")
	}

	configPath := writeTestConfig(t, "server:\n  http_port: 9400\n", 0644)

	_, err := LoadWithFile(configPath)
	if err == nil || !strings.Contains(err.Error(), "insecure config file permissions") {
		t.Fatalf("LoadWithFile() error = %v, want permissions failure", err)
	}
}

func TestLoadWithFileRejectsOversizedFile(t *testing.T) {
	big := strings.Repeat("# padding\n", maxConfigFileSize/10+1)
	configPath := writeTestConfig(t, big, 0600)

	_, err := LoadWithFile(configPath)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("LoadWithFile() error = %v, want size failure", err)
	}
}

func TestLoadWithFileValidationFailure(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("RELNOTESD_GITHUB_OWNER", "acme") // repo missing

	_, err := LoadWithFile(filepath.Join(home, ".config", "relnotesd", "config.yaml"))
	if err == nil || !strings.Contains(err.Error(), "config validation failed") {
		t.Fatalf("LoadWithFile() error = %v, want validation failure", err)
	}
}
