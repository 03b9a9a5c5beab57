package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Server.ListenAddr != ":8000" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskmesh.toml")
	content := `
[server]
listen_addr = ":9000"
read_timeout = "5s"

[logging]
level = "debug"

[nats]
url = "nats://localhost:4222"

[llm]
model = "qwen/qwen-2.5-coder"

[toolchain]
output_dir = "/tmp/assets"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Server.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %q, want :9000", cfg.Server.ListenAddr)
	}
	if cfg.Server.ReadTimeout.Duration() != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout.Duration())
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
	if cfg.LLM.Model != "qwen/qwen-2.5-coder" {
		t.Errorf("Model = %q", cfg.LLM.Model)
	}

	// Unset sections keep their defaults.
	if cfg.Toolchain.QueueSize != 64 {
		t.Errorf("QueueSize = %d, want default 64", cfg.Toolchain.QueueSize)
	}
	if cfg.LLM.BaseURL == "" {
		t.Error("BaseURL default lost")
	}
}

func TestLoadFileBadDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskmesh.toml")
	if err := os.WriteFile(path, []byte("[server]\nread_timeout = \"soon\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for unparseable duration")
	}
}

func TestValidateRejectsEmptyListenAddr(t *testing.T) {
	cfg := Default()
	cfg.Server.ListenAddr = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(orig)

	cfg, path, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if path != "" && filepath.Dir(path) == dir {
		t.Errorf("unexpected config file found: %s", path)
	}
	if cfg.Server.ListenAddr != ":8000" {
		t.Errorf("expected defaults, got %q", cfg.Server.ListenAddr)
	}
}
