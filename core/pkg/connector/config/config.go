// Package config loads the daemon's ambient configuration: the connectors
// directory, the two log destinations (API/daemon log vs. workflow/action
// log), the HTTP server bind address, and the optional distributed reload
// signal.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvVar names the environment variable that locates the config file.
const EnvVar = "CONDUIT_CONFIG"

// DefaultRelativePath is joined with $HOME when EnvVar is unset.
const DefaultRelativePath = ".conduit/config.yaml"

// Config is the daemon's top-level configuration document.
type Config struct {
	Connector ConnectorConfig `mapstructure:"connector" validate:"required"`
	Log       LogConfig       `mapstructure:"log" validate:"required"`
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Redis     RedisConfig     `mapstructure:"redis"`
}

// ConnectorConfig locates the directory tree of connector subdirectories,
// one per service name, that the loader and watcher operate over.
type ConnectorConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// LogConfig names the two separate log destinations: the daemon/API log,
// and the workflow/action log that coderunner's capability object writes
// to.
type LogConfig struct {
	APIPath      string `mapstructure:"api_path" validate:"required"`
	WorkflowPath string `mapstructure:"workflow_path" validate:"required"`
	Level        string `mapstructure:"level"`
}

// ServerConfig is the HTTP RPC surface's bind address.
type ServerConfig struct {
	Host string `mapstructure:"host" validate:"required"`
	Port int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
}

// KafkaConfig is the optional distributed reload trigger, disabled unless
// Enabled is set.
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
}

// RedisConfig gates the optional redis read-through cache in front of the
// in-memory connector repository, disabled unless Enabled is set.
type RedisConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Addr       string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// Load resolves the config file location from EnvVar (default
// $HOME/DefaultRelativePath), reads it with Viper, and validates it.
func Load() (*Config, error) {
	path, err := Location()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// Location resolves the config file path per EnvVar/DefaultRelativePath,
// without reading it.
func Location() (string, error) {
	if path := os.Getenv(EnvVar); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: %s unset and $HOME unavailable: %w", EnvVar, err)
	}
	return filepath.Join(home, DefaultRelativePath), nil
}

// LoadFrom reads and validates the config file at path.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validating %s: %w", path, err)
	}
	return cfg, nil
}
