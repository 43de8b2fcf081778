// Package config loads the tutormesh configuration from a YAML file with
// ${VAR_NAME} environment variable expansion and duration parsing.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete tutormesh configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Model      ModelConfig      `yaml:"model"`
	Delegation DelegationConfig `yaml:"delegation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds the HTTP listener configuration.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StorageConfig selects and configures the thread store backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // memory | sqlite
	Path    string `yaml:"path"`    // sqlite database file
}

// ModelConfig selects and configures the decision model.
type ModelConfig struct {
	Provider string `yaml:"provider"` // mock | anthropic | openai
	Name     string `yaml:"name"`     // provider-specific model id
	APIKey   string `yaml:"api_key"`
}

// DelegationConfig tunes the delegation loop.
type DelegationConfig struct {
	MaxRounds        int           `yaml:"max_rounds"`
	TopK             int           `yaml:"top_k"`
	ResponderTimeout time.Duration `yaml:"-"`

	ResponderTimeoutRaw string `yaml:"responder_timeout"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | text
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Addr: ":8080"},
		Storage: StorageConfig{Backend: "memory"},
		Model:   ModelConfig{Provider: "mock"},
		Delegation: DelegationConfig{
			MaxRounds:        5,
			TopK:             3,
			ResponderTimeout: 60 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads a configuration file, expands ${VAR_NAME} references against the
// environment, and fills unset fields with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.Delegation.ResponderTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Delegation.ResponderTimeoutRaw)
		if err != nil {
			return nil, fmt.Errorf("parsing delegation.responder_timeout: %w", err)
		}
		cfg.Delegation.ResponderTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required fields are present and consistent.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	switch c.Storage.Backend {
	case "memory":
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}

	switch c.Model.Provider {
	case "mock", "anthropic", "openai":
	default:
		return fmt.Errorf("unknown model.provider %q", c.Model.Provider)
	}

	if c.Delegation.MaxRounds < 0 {
		return fmt.Errorf("delegation.max_rounds must not be negative")
	}
	if c.Delegation.ResponderTimeout <= 0 {
		return fmt.Errorf("delegation.responder_timeout must be positive")
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values; unset variables become empty strings.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}
