// Package config loads the console configuration from a YAML file with
// environment variable overrides layered on top.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Auth    AuthConfig    `yaml:"auth"`
	Audit   AuditConfig   `yaml:"audit"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type ServerConfig struct {
	ListenAddr string    `yaml:"listen_addr" env:"AVISO_LISTEN_ADDR"`
	TLS        TLSConfig `yaml:"tls"`
}

type TLSConfig struct {
	Enabled  bool   `yaml:"enabled" env:"AVISO_TLS_ENABLED"`
	CertFile string `yaml:"cert_file" env:"AVISO_TLS_CERT_FILE"`
	KeyFile  string `yaml:"key_file" env:"AVISO_TLS_KEY_FILE"`
}

type BackendConfig struct {
	BaseURL string        `yaml:"base_url" env:"AVISO_BACKEND_URL"`
	APIKey  string        `yaml:"api_key" env:"AVISO_BACKEND_API_KEY"`
	Timeout time.Duration `yaml:"timeout" env:"AVISO_BACKEND_TIMEOUT"`
}

// AuthConfig describes how operator identity reaches the console. The
// console sits behind an authenticating reverse proxy; it trusts the
// headers that proxy injects.
type AuthConfig struct {
	RoleHeader     string `yaml:"role_header" env:"AVISO_ROLE_HEADER"`
	OperatorHeader string `yaml:"operator_header" env:"AVISO_OPERATOR_HEADER"`
	AdminRole      string `yaml:"admin_role" env:"AVISO_ADMIN_ROLE"`
}

type AuditConfig struct {
	Path string `yaml:"path" env:"AVISO_AUDIT_PATH"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"AVISO_LOG_LEVEL"`
	Format string `yaml:"format" env:"AVISO_LOG_FORMAT"`
}

type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled" env:"AVISO_METRICS_ENABLED"`
	ListenAddr string `yaml:"listen_addr" env:"AVISO_METRICS_ADDR"`
	Path       string `yaml:"path" env:"AVISO_METRICS_PATH"`
}

// Load reads the YAML file at path, applies environment overrides, fills
// defaults, and validates the result. An empty path skips the file and
// builds the config from environment and defaults alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8090"
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 30 * time.Second
	}
	if cfg.Auth.RoleHeader == "" {
		cfg.Auth.RoleHeader = "X-Operator-Role"
	}
	if cfg.Auth.OperatorHeader == "" {
		cfg.Auth.OperatorHeader = "X-Operator-Name"
	}
	if cfg.Auth.AdminRole == "" {
		cfg.Auth.AdminRole = "admin"
	}
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = "/var/lib/aviso-console/audit.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = ":9090"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if cfg.Backend.APIKey == "" {
		return fmt.Errorf("backend.api_key is required")
	}
	if cfg.Server.TLS.Enabled {
		if cfg.Server.TLS.CertFile == "" {
			return fmt.Errorf("server.tls.cert_file is required when TLS is enabled")
		}
		if cfg.Server.TLS.KeyFile == "" {
			return fmt.Errorf("server.tls.key_file is required when TLS is enabled")
		}
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text")
	}
	return nil
}
