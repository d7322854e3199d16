// Package envconfig loads the optional multi-environment service
// configuration used to enrich pushed documents and to provision per-stage
// remote environments.
package envconfig

import (
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

var whitespace = regexp.MustCompile(`\s+`)

// SanitizeName normalizes a service or identity component for use in remote
// display names and config lookups: every whitespace run becomes a single
// underscore.
func SanitizeName(name string) string {
	return whitespace.ReplaceAllString(name, "_")
}

// Environment describes one deployment of a service.
type Environment struct {
	Name    string `yaml:"name"`
	Region  string `yaml:"region"`
	Stage   string `yaml:"stage"`
	APIID   string `yaml:"apiId"`
	Enabled bool   `yaml:"enabled"`
}

// Service holds a URL template with {apiId}, {region} and {stage}
// placeholders plus the ordered environments it is deployed to.
type Service struct {
	URLTemplate  string        `yaml:"urlTemplate"`
	Environments []Environment `yaml:"environments"`
}

// EnabledEnvironments returns the enabled environments in declaration order.
func (s *Service) EnabledEnvironments() []Environment {
	var enabled []Environment
	for _, env := range s.Environments {
		if env.Enabled {
			enabled = append(enabled, env)
		}
	}
	return enabled
}

// Config maps sanitized service names to their descriptors.
type Config struct {
	Services map[string]Service `yaml:"services"`
}

// Service looks up a service descriptor by name. The name is sanitized
// before the lookup so callers can pass the raw service identity.
func (c *Config) Service(name string) (Service, bool) {
	if c == nil {
		return Service{}, false
	}
	svc, ok := c.Services[SanitizeName(name)]
	return svc, ok
}

// Load reads a YAML environment configuration from fs. A missing file is not
// an error: enrichment is optional, so Load returns (nil, nil) and the
// caller proceeds without it. An unparsable file is an error.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read environment config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment config %s: %w", path, err)
	}
	return &cfg, nil
}
