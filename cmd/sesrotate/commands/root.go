// Package commands implements the sesrotate CLI commands.
package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/systmms/sesrotate/internal/config"
	"github.com/systmms/sesrotate/internal/logging"
)

// RootOptions holds the persistent flags shared by all commands.
type RootOptions struct {
	ConfigPath string
	Debug      bool
	NoColor    bool
}

// Logger builds a logger from the persistent flags.
func (o *RootOptions) Logger() *logging.Logger {
	return logging.New(o.Debug, o.NoColor)
}

// LoadConfig loads and validates the runtime configuration.
func (o *RootOptions) LoadConfig(logger *logging.Logger) (*config.Config, error) {
	return config.Load(o.ConfigPath, logger)
}

// readSecretKey returns the secret key from the flag value, or reads one
// line from r when the flag is empty. Passing key material on the command
// line leaks it into process listings, so stdin is the default.
func readSecretKey(flagValue string, r io.Reader) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	fmt.Fprint(os.Stderr, "Secret access key: ")
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read secret key: %w", err)
		}
		return "", fmt.Errorf("no secret key provided on stdin")
	}

	key := strings.TrimSpace(scanner.Text())
	if key == "" {
		return "", fmt.Errorf("no secret key provided on stdin")
	}
	return key, nil
}
