// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Token     TokenConfig     `yaml:"token"`
	Rewards   RewardsConfig   `yaml:"rewards"`
	Assistant AssistantConfig `yaml:"assistant"`
	// Operators are the identities allowed to perform privileged token
	// operations.
	Operators []string      `yaml:"operators"`
	Logging   LoggingConfig `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080"`
	RequestTimeout  time.Duration `yaml:"request_timeout" default:"30s"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s"`
}

// StorageConfig selects and parameterizes the persistence backend
type StorageConfig struct {
	// Backend is either "memory" or "sqlite".
	Backend string `yaml:"backend" default:"memory" validate:"oneof=memory sqlite"`
	// Path is the database file for the sqlite backend.
	Path string `yaml:"path" default:"inkforge.db"`
}

// TokenConfig contains the token metadata used at creation time
type TokenConfig struct {
	Name          string `yaml:"name" default:"Inkforge Token"`
	Symbol        string `yaml:"symbol" default:"INK"`
	Logo          string `yaml:"logo"`
	InitialSupply string `yaml:"initial_supply" default:"1000000000000000"`
	// TransferFee and Decimals fall back to the ledger defaults when empty.
	TransferFee string `yaml:"transfer_fee"`
	Decimals    *uint8 `yaml:"decimals,omitempty"`
}

// RewardsConfig contains the token amounts granted by the platform
type RewardsConfig struct {
	// WelcomeAmount is minted to each newly onboarded account.
	WelcomeAmount string `yaml:"welcome_amount" default:"100000000"`
}

// AssistantConfig contains the writing-assistant gating settings
type AssistantConfig struct {
	// StakeThreshold is the minimum staked balance unlocking assistant
	// features.
	StakeThreshold string `yaml:"stake_threshold" default:"500000000"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info"`
	Format     string `yaml:"format" default:"json"`
	OutputPath string `yaml:"output_path" default:"stdout"`
}

// Load reads, defaults and validates the configuration file
func Load(configPath string) (*Config, error) {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := defaults.Set(&config); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}
	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

// IsOperator reports whether the identity is a configured operator.
func (c *Config) IsOperator(identity string) bool {
	for _, op := range c.Operators {
		if op == identity {
			return true
		}
	}
	return false
}
