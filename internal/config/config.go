package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Storage types
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// SQLiteFileName is the database file created under the storage path
const SQLiteFileName = "mockapi.db"

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Engine  EngineConfig  `yaml:"engine" mapstructure:"engine"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" mapstructure:"port" validate:"min=1,max=65535"`
	Host            string        `yaml:"host" mapstructure:"host"`
	ReadTimeout     time.Duration `yaml:"readTimeout" mapstructure:"readTimeout" validate:"min=0"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" mapstructure:"writeTimeout" validate:"min=0"`
	IdleTimeout     time.Duration `yaml:"idleTimeout" mapstructure:"idleTimeout" validate:"min=0"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" mapstructure:"shutdownTimeout" validate:"min=0"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes" mapstructure:"maxBodyBytes" validate:"min=0"`
	TLS             TLSConfig     `yaml:"tls" mapstructure:"tls"`
}

// TLSConfig holds TLS configuration
type TLSConfig struct {
	Enabled      bool   `yaml:"enabled" mapstructure:"enabled"`           // Serve HTTPS next to HTTP on the same port
	CertFile     string `yaml:"certFile" mapstructure:"certFile"`         // Path to certificate file
	KeyFile      string `yaml:"keyFile" mapstructure:"keyFile"`           // Path to private key file
	AutoGenerate bool   `yaml:"autoGenerate" mapstructure:"autoGenerate"` // Create a self-signed certificate when none is found
	StorePath    string `yaml:"storePath" mapstructure:"storePath"`       // Empty means <storage.path>/certs
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type  string `yaml:"type" mapstructure:"type" validate:"oneof=memory file sqlite"`
	Path  string `yaml:"path" mapstructure:"path" validate:"required_unless=Type memory"`
	Watch bool   `yaml:"watch" mapstructure:"watch"` // Reload file storage on change
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	MaxTraces int `yaml:"maxTraces" mapstructure:"maxTraces" validate:"min=1"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// EngineConfig holds response synthesis settings
type EngineConfig struct {
	Seed int64 `yaml:"seed" mapstructure:"seed"` // 0 seeds from the clock
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
			TLS: TLSConfig{
				Enabled:      false,
				AutoGenerate: true,
			},
		},
		Storage: StorageConfig{
			Type: StorageFile,
			Path: "./data",
		},
		Tracing: TracingConfig{
			MaxTraces: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// SetDefaults registers the default configuration with v
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.readTimeout", d.Server.ReadTimeout)
	v.SetDefault("server.writeTimeout", d.Server.WriteTimeout)
	v.SetDefault("server.idleTimeout", d.Server.IdleTimeout)
	v.SetDefault("server.shutdownTimeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.maxBodyBytes", d.Server.MaxBodyBytes)
	v.SetDefault("server.tls.enabled", d.Server.TLS.Enabled)
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.autoGenerate", d.Server.TLS.AutoGenerate)
	v.SetDefault("server.tls.storePath", "")

	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.watch", d.Storage.Watch)

	v.SetDefault("tracing.maxTraces", d.Tracing.MaxTraces)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("engine.seed", d.Engine.Seed)
}

// Load reads configuration from a YAML file on top of the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// Decode builds a Config from everything v has resolved (file, env, flags)
func Decode(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return cfg, nil
}

var structValidator = validator.New()

// Validate checks the configuration values
func (c *Config) Validate() error {
	err := structValidator.Struct(c)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	issues := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		issue := fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			issue += "=" + fe.Param()
		}
		issues = append(issues, issue)
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(issues, "; "))
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CertStorePath returns where generated certificates are kept
func (c *Config) CertStorePath() string {
	if c.Server.TLS.StorePath != "" {
		return c.Server.TLS.StorePath
	}
	return filepath.Join(c.Storage.Path, "certs")
}

// SQLitePath returns the database file used by sqlite storage
func (s StorageConfig) SQLitePath() string {
	return filepath.Join(s.Path, SQLiteFileName)
}
