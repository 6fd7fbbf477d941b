// Package config loads the sesrotate runtime configuration from an
// optional YAML file with environment variable overrides.
package config

import (
	"fmt"
	"os"

	dserrors "github.com/systmms/sesrotate/internal/errors"
	"github.com/systmms/sesrotate/internal/logging"
	"gopkg.in/yaml.v3"
)

// Environment variable names. USERNAME and SECRETS_MANAGER_ENDPOINT match
// what the Secrets Manager rotation configuration has historically injected.
const (
	EnvUsername = "USERNAME"
	EnvEndpoint = "SECRETS_MANAGER_ENDPOINT"
	EnvRegion   = "SESROTATE_REGION"
)

// Config holds the runtime configuration.
type Config struct {
	Path   string
	Logger *logging.Logger

	// Username is the IAM user the rotated access keys belong to, and the
	// identity a candidate credential must authenticate as.
	Username string `yaml:"username"`

	// SecretsManagerEndpoint overrides the Secrets Manager endpoint, for
	// VPC endpoints or LocalStack.
	SecretsManagerEndpoint string `yaml:"secrets_manager_endpoint"`

	// Region is the AWS region for client construction. Empty falls back
	// to the SDK's default resolution chain.
	Region string `yaml:"region"`
}

// Load reads the config file at path (if it exists), applies environment
// overrides, and validates the result. The file is optional; environment
// variables alone are a complete configuration.
func Load(path string, logger *logging.Logger) (*Config, error) {
	cfg := &Config{Path: path, Logger: logger}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, dserrors.ConfigError{
					Field:      "file",
					Value:      path,
					Message:    fmt.Sprintf("invalid YAML: %v", err),
					Suggestion: "Check for indentation errors and missing quotes",
				}
			}
			logger.Debug("Loaded configuration from %s", path)
		case os.IsNotExist(err):
			logger.Debug("No config file at %s, using environment only", path)
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvUsername); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv(EnvEndpoint); v != "" {
		cfg.SecretsManagerEndpoint = v
	}
	if v := os.Getenv(EnvRegion); v != "" {
		cfg.Region = v
	}
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if c.Username == "" {
		return dserrors.ConfigError{
			Field:      "username",
			Message:    "the SMTP IAM user name is required",
			Suggestion: fmt.Sprintf("Set %s or add 'username' to the config file", EnvUsername),
		}
	}
	return nil
}
