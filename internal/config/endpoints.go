package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Endpoints maps a deployment environment to its workflow webhook.
type Endpoints struct {
	Default      string            `yaml:"default"`
	Environments map[string]string `yaml:"environments"`
}

func LoadEndpoints(path string) (Endpoints, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Endpoints{}, fmt.Errorf("failed to read webhook endpoints: %w", err)
	}
	var eps Endpoints
	if err := yaml.Unmarshal(b, &eps); err != nil {
		return Endpoints{}, fmt.Errorf("failed to parse webhook endpoints %s: %w", path, err)
	}
	return eps, nil
}

// URL returns the webhook for env, falling back to the default environment.
func (e Endpoints) URL(env string) (string, error) {
	env = strings.TrimSpace(env)
	if env == "" {
		env = e.Default
	}
	if u := strings.TrimSpace(e.Environments[env]); u != "" {
		return u, nil
	}
	if u := strings.TrimSpace(e.Environments[e.Default]); u != "" {
		return u, nil
	}
	return "", fmt.Errorf("no webhook configured for environment %q", env)
}
