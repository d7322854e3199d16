// Package config sources the documentation-platform connection settings
// from the environment, with CLI flags layered on top by the command.
package config

import (
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// DefaultBaseURL is the documentation platform API root.
const DefaultBaseURL = "https://api.getpostman.com"

// Environment variable names.
const (
	EnvAPIKey      = "SPECSYNC_API_KEY"
	EnvWorkspaceID = "SPECSYNC_WORKSPACE_ID"
	EnvBaseURL     = "SPECSYNC_BASE_URL"
)

// Config holds the platform connection settings. There are deliberately no
// package-level mutable settings: the resolved Config is passed explicitly
// into the reconciliation engine's collaborators.
type Config struct {
	APIKey      string
	WorkspaceID string
	BaseURL     string
}

// FromEnv reads the configuration from environment variables, applying the
// default base URL.
func FromEnv() Config {
	cfg := Config{
		APIKey:      os.Getenv(EnvAPIKey),
		WorkspaceID: os.Getenv(EnvWorkspaceID),
		BaseURL:     os.Getenv(EnvBaseURL),
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return cfg
}

// Validate reports whether the config is complete enough to reach the
// platform.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.APIKey, validation.Required),
		validation.Field(&c.WorkspaceID, validation.Required),
		validation.Field(&c.BaseURL, validation.Required, is.URL),
	)
	if err != nil {
		return fmt.Errorf("invalid configuration (set %s/%s or pass flags): %w",
			EnvAPIKey, EnvWorkspaceID, err)
	}
	return nil
}
