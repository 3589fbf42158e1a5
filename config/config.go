// Package config loads runtime configuration from a YAML file and the
// environment. Every key has a default, so the demo runs with no config file
// at all; environment variables use the AGENTS_ prefix with dots replaced by
// underscores (AGENTS_MODEL_PROVIDER, AGENTS_STORAGE_BACKEND, ...).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/santis84/agents/session/sqlite"
)

// Provider names accepted by Config.Model.Provider.
const (
	ProviderMock      = "mock"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Storage backend names accepted by Config.Storage.Backend.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// ModelConfig selects the LLM backend for the specialist agents.
type ModelConfig struct {
	Provider string `mapstructure:"provider"`
	// Name is the provider-specific model identifier; empty means the
	// provider adapter's default.
	Name string `mapstructure:"name"`
	// Host applies to the ollama provider only.
	Host string `mapstructure:"host"`
}

// StorageConfig selects where sessions are persisted.
type StorageConfig struct {
	Backend string        `mapstructure:"backend"`
	SQLite  sqlite.Config `mapstructure:"sqlite"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	AddSource bool   `mapstructure:"add_source"`
}

// Config is the full runtime configuration.
type Config struct {
	Model   ModelConfig   `mapstructure:"model"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`

	// Workspace is the directory the file tools operate in.
	Workspace string `mapstructure:"workspace"`
	// Stream enables partial model responses where the provider supports it.
	Stream bool `mapstructure:"stream"`
	// MaxSteps bounds a single graph run; zero means unlimited.
	MaxSteps int `mapstructure:"max_steps"`
}

// Load reads configuration from cfgFile (or the default search paths when
// empty), layers the environment on top and validates the result.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.agents")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("AGENTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No config file: defaults plus environment.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the runtime could not honor.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case ProviderMock, ProviderOpenAI, ProviderAnthropic, ProviderOllama:
	default:
		return fmt.Errorf("model.provider %q is not one of mock, openai, anthropic, ollama", c.Model.Provider)
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageSQLite:
		if !c.Storage.SQLite.InMemory && c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required when storage.backend is sqlite")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of memory, sqlite", c.Storage.Backend)
	}

	if c.Workspace == "" {
		return fmt.Errorf("workspace must not be empty")
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative, got %d", c.MaxSteps)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model.provider", ProviderMock)
	v.SetDefault("model.name", "")
	v.SetDefault("model.host", "")

	v.SetDefault("storage.backend", StorageMemory)
	v.SetDefault("storage.sqlite.path", "agents.db")
	v.SetDefault("storage.sqlite.in_memory", false)
	v.SetDefault("storage.sqlite.enable_wal", true)
	v.SetDefault("storage.sqlite.busy_timeout", 5*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.add_source", false)

	v.SetDefault("workspace", "./workspace")
	v.SetDefault("stream", true)
	v.SetDefault("max_steps", 0)
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() Config {
	return Config{
		Model:   ModelConfig{Provider: ProviderMock},
		Storage: StorageConfig{Backend: StorageMemory, SQLite: sqlite.Config{Path: "agents.db", EnableWAL: true, BusyTimeout: 5 * time.Second}},
		Log:     LogConfig{Level: "info", Format: "text"},

		Workspace: "./workspace",
		Stream:    true,
	}
}
