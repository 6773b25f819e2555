package config

import (
	"fmt"
	"os"

	"weather-observer/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// applyDefaults fills optional settings that may be omitted from the file.
func (c *Config) applyDefaults() {
	if c.Storage.Mode == "" {
		c.Storage.Mode = "auto"
	}
	if c.Network.RequestTimeout == 0 {
		c.Network.RequestTimeout = 30
	}
	if c.Timeline.PollIntervalMS == 0 {
		c.Timeline.PollIntervalMS = 250
	}
	if c.Timeline.PollTimeoutSec == 0 {
		c.Timeline.PollTimeoutSec = 30
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Storage configuration
	if c.Storage.WeatherDir == "" {
		return fmt.Errorf("weather directory cannot be empty")
	}
	if c.Storage.Mode != "auto" && c.Storage.Mode != "filesys" {
		return fmt.Errorf("invalid storage mode '%s' (must be auto or filesys)", c.Storage.Mode)
	}

	// Validate Server configuration (only enforced when a host is set)
	if c.Host != "" {
		if c.Port <= 1024 || c.Port > 65535 {
			return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
		}
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Validate Timeline configuration
	if c.Timeline.PollIntervalMS <= 0 {
		return fmt.Errorf("poll interval must be greater than 0")
	}
	if c.Timeline.PollTimeoutSec <= 0 {
		return fmt.Errorf("poll timeout must be greater than 0")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
