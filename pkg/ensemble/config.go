package ensemble

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by configuration validation errors.
var ErrInvalidConfig = errors.New("invalid ensemble config")

// Config is the top-level policy configuration file.
type Config struct {
	Policies []PolicyConfig `yaml:"policies"`
}

// PolicyConfig configures one policy. Every key other than name, priority and
// max_history is passed to the policy as a hyperparameter override.
type PolicyConfig struct {
	Name       string         `yaml:"name"`
	Priority   *int           `yaml:"priority,omitempty"`
	MaxHistory *int           `yaml:"max_history,omitempty"`
	Overrides  map[string]any `yaml:",inline"`
}

// LoadConfig reads a YAML file and returns a Config.
// Environment variables referenced as ${VAR} or $VAR in the YAML are expanded
// before parsing.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("ensemble: load config: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML configuration data, expanding environment
// variables first.
func ParseConfig(data []byte) (Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("ensemble: parse config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration names at least one policy and that
// every policy has a name. Hyperparameter values are validated by the
// policies themselves when they are built.
func (c Config) Validate() error {
	if len(c.Policies) == 0 {
		return fmt.Errorf("ensemble: config: %w: at least one policy is required", ErrInvalidConfig)
	}

	for i, p := range c.Policies {
		if p.Name == "" {
			return fmt.Errorf("ensemble: config: %w: policy %d: name is required", ErrInvalidConfig, i)
		}
	}

	return nil
}
