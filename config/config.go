// Package config loads and validates the survey configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration
type Config struct {
	Version  string    `yaml:"version"`
	Provider string    `yaml:"provider"`
	Accounts []Account `yaml:"accounts"`

	// Services limits which services are scanned. Empty scans every
	// service the provider supports.
	Services []string `yaml:"services,omitempty"`

	// Resources are the resource types to survey, as
	// "service.resource" refs. Empty surveys everything defined for
	// the selected services.
	Resources []string `yaml:"resources,omitempty"`

	// Skip lists resource types that stay in the dependency graph but
	// are never fetched. Entries are "service.resource" refs or a bare
	// service name covering every type of that service.
	Skip []string `yaml:"skip,omitempty"`

	// Params overrides the call parameters of a resource type, keyed
	// by "service.resource" ref. Merged over the definition's params.
	Params map[string]map[string]any `yaml:"params,omitempty"`

	// Definitions points at a YAML catalog merged over the builtin
	// resource definitions.
	Definitions string `yaml:"definitions,omitempty"`

	// Checks points at a directory of Rego check modules.
	Checks string `yaml:"checks,omitempty"`

	// StorageDir is where scan archives are written.
	StorageDir string `yaml:"storage_dir,omitempty"`

	Telemetry Telemetry `yaml:"telemetry,omitempty"`
	Daemon    Daemon    `yaml:"daemon,omitempty"`
}

// Account is one cloud account to survey.
type Account struct {
	Name    string   `yaml:"name"`
	Profile string   `yaml:"profile,omitempty"`
	Role    string   `yaml:"role,omitempty"`
	Regions []string `yaml:"regions"`
}

// Telemetry configures the OTEL export targets.
type Telemetry struct {
	Environment  string `yaml:"environment,omitempty"`
	OTELEndpoint string `yaml:"otel_endpoint,omitempty"`
	Insecure     bool   `yaml:"insecure,omitempty"`
}

// Daemon configures continuous scanning.
type Daemon struct {
	// Interval between scans, e.g. "1h". Empty disables the ticker.
	Interval string `yaml:"interval,omitempty"`
	// MetricsAddr serves the Prometheus endpoint, e.g. ":9090".
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

// LoadConfig loads configuration from file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate ensures config has required fields
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if len(c.Accounts) == 0 {
		return fmt.Errorf("at least one account is required")
	}
	for i, account := range c.Accounts {
		if account.Name == "" {
			return fmt.Errorf("account %d: name is required", i)
		}
		if len(account.Regions) == 0 {
			return fmt.Errorf("account %s: at least one region is required", account.Name)
		}
	}
	return nil
}
