package config

import (
	"fmt"
	"os"

	"github.com/ahfrd/grpc-stream-client-side/src/helpers"
	"github.com/ahfrd/grpc-stream-client-side/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Debounce applied to parameter changes when the config does not say.
const DefaultDebounceMillis = 100

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
		return nil, &helpers.ConfigurationError{StreamClientError: helpers.StreamClientError{
			Message: fmt.Sprintf("failed to read config file '%s'", configPath), Cause: err}}
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, &helpers.ConfigurationError{StreamClientError: helpers.StreamClientError{
			Message: "failed to parse config from YAML", Cause: err}}
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, &helpers.ConfigurationError{StreamClientError: helpers.StreamClientError{
			Message: "config validation failed", Cause: err}}
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// applyDefaults fills the optional fields callers usually leave out.
func (c *Config) applyDefaults() {
	if c.Subscription.Filter == "" {
		c.Subscription.Filter = models.FilterAll
	}
	if c.Subscription.SortKey == "" {
		c.Subscription.SortKey = models.SortByCode
	}
	if c.Subscription.DebounceMillis <= 0 {
		c.Subscription.DebounceMillis = DefaultDebounceMillis
	}
	if c.Subscription.DialTimeoutSeconds <= 0 {
		c.Subscription.DialTimeoutSeconds = 5
	}
	if c.Subscription.HistoryMinutes <= 0 {
		c.Subscription.HistoryMinutes = 30
	}
	if c.Storage.RetentionHours <= 0 {
		c.Storage.RetentionHours = 24
	}
	if c.Market.MIC == "" {
		c.Market.MIC = "xidx"
	}
	if c.Market.Timezone == "" {
		c.Market.Timezone = "Asia/Jakarta"
	}
	if c.Cache.Channel == "" {
		c.Cache.Channel = "stream:snapshot"
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.ControlPort != 0 {
		if c.ControlPort <= 1024 || c.ControlPort > 65535 {
			return fmt.Errorf("invalid control port number: %d (must be between 1025 and 65535)", c.ControlPort)
		}
		if c.ControlPort == c.Port {
			return fmt.Errorf("control port must differ from server port: %d", c.ControlPort)
		}
	}

	// Validate Feed configuration
	if c.FeedHost == "" {
		return fmt.Errorf("feed host cannot be empty")
	}
	if c.FeedPort <= 0 || c.FeedPort > 65535 {
		return fmt.Errorf("invalid feed port number: %d", c.FeedPort)
	}
	for _, backup := range c.FeedBackups {
		if backup == "" {
			return fmt.Errorf("feed backup target cannot be empty")
		}
	}

	// Validate Subscription configuration
	params := models.MSubscriptionParams{Filter: c.Subscription.Filter, SortKey: c.Subscription.SortKey}
	if !params.Valid() {
		return fmt.Errorf("unknown subscription filter or sort key: %s/%s", params.Filter, params.SortKey)
	}

	// Validate Storage configuration
	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("connection string cannot be empty for postgres")
	}

	// Validate Cache configuration
	if c.Cache.Enabled && c.Cache.Address == "" {
		return fmt.Errorf("cache address cannot be empty when cache is enabled")
	}

	return nil
}

// -----------------------------------------------------------------------------

// FeedTarget returns the host:port the stream transport dials.
func (c *Config) FeedTarget() string {
	return fmt.Sprintf("%s:%d", c.FeedHost, c.FeedPort)
}

// FeedTargets returns the primary target followed by the configured backups.
func (c *Config) FeedTargets() []string {
	return append([]string{c.FeedTarget()}, c.FeedBackups...)
}

// DefaultParams returns the subscription requested before any user input.
func (c *Config) DefaultParams() models.MSubscriptionParams {
	return models.MSubscriptionParams{Filter: c.Subscription.Filter, SortKey: c.Subscription.SortKey}
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return &helpers.ConfigurationError{StreamClientError: helpers.StreamClientError{
			Message: "failed to marshal config to YAML", Cause: err}}
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return &helpers.ConfigurationError{StreamClientError: helpers.StreamClientError{
			Message: fmt.Sprintf("failed to write config to file '%s'", configPath), Cause: err}}
	}

	return nil
}
