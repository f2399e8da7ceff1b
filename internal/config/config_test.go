package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected default host '0.0.0.0', got %q", cfg.Server.Host)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected default shutdown timeout 10s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Storage.Type != StorageFile {
		t.Errorf("Expected default storage type 'file', got %q", cfg.Storage.Type)
	}
	if cfg.Tracing.MaxTraces != 1000 {
		t.Errorf("Expected default max traces 1000, got %d", cfg.Tracing.MaxTraces)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default log level 'info', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected default log format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Engine.Seed != 0 {
		t.Errorf("Expected clock seeded engine by default, got seed %d", cfg.Engine.Seed)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to be valid, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  host: localhost
  readTimeout: 5s
storage:
  type: sqlite
  path: /tmp/data
  watch: true
tracing:
  maxTraces: 500
logging:
  level: debug
  format: console
engine:
  seed: 42
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("Expected host 'localhost', got %q", cfg.Server.Host)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("Expected read timeout 5s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Storage.Type != StorageSQLite {
		t.Errorf("Expected storage type 'sqlite', got %q", cfg.Storage.Type)
	}
	if cfg.Storage.SQLitePath() != filepath.Join("/tmp/data", SQLiteFileName) {
		t.Errorf("Unexpected sqlite path %q", cfg.Storage.SQLitePath())
	}
	if !cfg.Storage.Watch {
		t.Error("Expected watch enabled")
	}
	if cfg.Tracing.MaxTraces != 500 {
		t.Errorf("Expected max traces 500, got %d", cfg.Tracing.MaxTraces)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Expected log format 'console', got %q", cfg.Logging.Format)
	}
	if cfg.Engine.Seed != 42 {
		t.Errorf("Expected seed 42, got %d", cfg.Engine.Seed)
	}
}

func TestLoad_PartialConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 3000\n"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Expected port 3000, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected default host '0.0.0.0', got %q", cfg.Server.Host)
	}
	if cfg.Storage.Type != StorageFile {
		t.Errorf("Expected default storage type 'file', got %q", cfg.Storage.Type)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Expected error for non-existent file")
	}

	if _, err := Load(writeConfig(t, "server:\n  port: [invalid yaml\n")); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
}

func TestDecode(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(writeConfig(t, "server:\n  port: 7000\nstorage:\n  type: memory\n"))
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig failed: %v", err)
	}
	v.Set("server.writeTimeout", "45s")
	v.Set("engine.seed", 9)

	cfg, err := Decode(v)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if cfg.Server.Port != 7000 {
		t.Errorf("Expected port 7000, got %d", cfg.Server.Port)
	}
	if cfg.Server.WriteTimeout != 45*time.Second {
		t.Errorf("Expected write timeout 45s, got %v", cfg.Server.WriteTimeout)
	}
	if cfg.Server.IdleTimeout != 60*time.Second {
		t.Errorf("Expected default idle timeout 60s, got %v", cfg.Server.IdleTimeout)
	}
	if cfg.Storage.Type != StorageMemory {
		t.Errorf("Expected storage type 'memory', got %q", cfg.Storage.Type)
	}
	if cfg.Engine.Seed != 9 {
		t.Errorf("Expected seed 9, got %d", cfg.Engine.Seed)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "Port"},
		{"unknown storage", func(c *Config) { c.Storage.Type = "redis" }, "Type"},
		{"file storage needs path", func(c *Config) { c.Storage.Path = "" }, "Path"},
		{"memory storage without path", func(c *Config) { c.Storage.Type = StorageMemory; c.Storage.Path = "" }, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "Level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "text" }, "Format"},
		{"no traces", func(c *Config) { c.Tracing.MaxTraces = 0 }, "MaxTraces"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected valid config, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error mentioning %s", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCertStorePath(t *testing.T) {
	cfg := Default()
	cfg.Storage.Path = "/srv/mock"
	if got := cfg.CertStorePath(); got != filepath.Join("/srv/mock", "certs") {
		t.Errorf("Expected certs under storage path, got %q", got)
	}

	cfg.Server.TLS.StorePath = "/etc/mock/tls"
	if got := cfg.CertStorePath(); got != "/etc/mock/tls" {
		t.Errorf("Expected explicit store path, got %q", got)
	}

	if got := cfg.Server.Addr(); got != "0.0.0.0:8080" {
		t.Errorf("Unexpected address %q", got)
	}
}
