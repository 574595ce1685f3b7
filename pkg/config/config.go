package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/kvfile/pkg/codec"
	"github.com/ssargent/kvfile/pkg/storage"
)

// Config represents the kvfile configuration
type Config struct {
	Database     string  `yaml:"database" toml:"database"`
	Backend      string  `yaml:"backend" toml:"backend"`
	Sync         bool    `yaml:"sync" toml:"sync"`
	MaxKeySize   uint32  `yaml:"max_key_size" toml:"max_key_size"`
	MaxValueSize uint32  `yaml:"max_value_size" toml:"max_value_size"`
	Logging      Logging `yaml:"logging" toml:"logging"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: "./kvfile.db",
		Backend:  string(storage.KindFile),
		Sync:     true,
		Logging: Logging{
			Level:  "warn",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from the specified path. Files ending in
// .toml are parsed as TOML, anything else as YAML. Fields missing from the
// file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if isTOML(configPath) {
		if _, err := toml.Decode(string(data), config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return config, nil
}

// SaveConfig writes the configuration in the format implied by the extension
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	if isTOML(configPath) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(config); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = yaml.Marshal(config)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that cannot be caught by the parsers
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Database) == "" {
		errs = append(errs, errors.New("database path must not be empty"))
	}
	if _, err := storage.ParseKind(c.Backend); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// StorageOptions translates the configuration into backend options
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Kind:  storage.Kind(c.Backend),
		Path:  c.Database,
		Sync:  c.Sync,
		Codec: codec.NewRecordCodecWithLimits(c.MaxKeySize, c.MaxValueSize),
	}
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "./kvfile.yaml"
	}
	return filepath.Join(configDir, "kvfile", "config.yaml")
}

// ConfigExists checks if a configuration file exists. A path that cannot be
// stat'ed, for example because a parent is not a directory, does not exist.
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return err == nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
