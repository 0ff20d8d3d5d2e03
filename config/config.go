// Package config loads the apidoc server configuration from standard locations.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/westshgit/apidoc/logging"
	"github.com/westshgit/apidoc/telemetry"
)

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = fmt.Errorf("invalid configuration")

// Config is the contents of apidoc.toml.
type Config struct {
	Server    Server    `toml:"server"`
	Log       Log       `toml:"log"`
	Telemetry Telemetry `toml:"telemetry"`
}

// Server configures the HTTP listener.
type Server struct {
	// Addr is the listen address. Default "127.0.0.1:3000".
	Addr string `toml:"addr"`

	// ShutdownTimeout bounds the drain after a stop request. Default 10s.
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// Log configures the process logger.
type Log struct {
	Level string `toml:"level"`
}

// Telemetry configures OTLP trace export. An empty endpoint disables it.
type Telemetry struct {
	Endpoint    string  `toml:"endpoint"`
	Protocol    string  `toml:"protocol"`
	Insecure    bool    `toml:"insecure"`
	ServiceName string  `toml:"service_name"`
	SampleRatio float64 `toml:"sample_ratio"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:            "127.0.0.1:3000",
			ShutdownTimeout: 10 * time.Second,
		},
		Log: Log{Level: "info"},
		Telemetry: Telemetry{
			Protocol:    "grpc",
			ServiceName: "apidoc",
		},
	}
}

// StandardPaths returns the config file locations in order of priority.
func StandardPaths() []string {
	paths := []string{"apidoc.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "apidoc", "config.toml"))
	}
	return paths
}

// Load reads the first config file found in StandardPaths and applies
// environment overrides. It returns the path used, or "" when no file
// exists; a missing file is not an error.
func Load() (*Config, string, error) {
	for _, path := range StandardPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := LoadFile(path)
		return cfg, path, err
	}

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, "", err
	}
	return cfg, "", cfg.Validate()
}

// LoadFile reads path on top of Default and applies environment overrides.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: %s: unknown keys %s", ErrInvalid, path, strings.Join(keys, ", "))
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from APIDOC_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("APIDOC_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("APIDOC_SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: APIDOC_SHUTDOWN_TIMEOUT: %v", ErrInvalid, err)
		}
		c.Server.ShutdownTimeout = d
	}
	if v := os.Getenv("APIDOC_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("APIDOC_OTEL_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	}
	if v := os.Getenv("APIDOC_OTEL_PROTOCOL"); v != "" {
		c.Telemetry.Protocol = v
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is empty", ErrInvalid)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: server.shutdown_timeout must be positive", ErrInvalid)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: telemetry.sample_ratio must be within [0, 1]", ErrInvalid)
	}
	switch c.Telemetry.Protocol {
	case "", "grpc", "http":
	default:
		return fmt.Errorf("%w: telemetry.protocol %q (want grpc or http)", ErrInvalid, c.Telemetry.Protocol)
	}
	return nil
}

// LogLevel returns the parsed log level. Validate must have passed.
func (c *Config) LogLevel() logging.Level {
	level, _ := logging.ParseLevel(c.Log.Level)
	return level
}

// ProviderConfig maps the telemetry section onto the tracing provider.
func (c *Config) ProviderConfig() telemetry.ProviderConfig {
	return telemetry.ProviderConfig{
		ServiceName: c.Telemetry.ServiceName,
		Endpoint:    c.Telemetry.Endpoint,
		Protocol:    c.Telemetry.Protocol,
		Insecure:    c.Telemetry.Insecure,
		SampleRatio: c.Telemetry.SampleRatio,
	}
}
