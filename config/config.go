// Package config loads and persists the client configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"gitstore/internal/model"
)

// Config represents the application configuration. OAuth client
// credentials may also come from the environment, which takes
// precedence over the file.
type Config struct {
	// GitHubClientID is the OAuth app used for the GitHub device flow.
	GitHubClientID string `yaml:"github_client_id,omitempty" json:"github_client_id,omitempty"`

	// GitLabClientID and GitLabClientSecret identify the OAuth app on
	// the GitLab instance; the device token exchange requires both.
	GitLabClientID     string `yaml:"gitlab_client_id,omitempty" json:"gitlab_client_id,omitempty"`
	GitLabClientSecret string `yaml:"gitlab_client_secret,omitempty" json:"gitlab_client_secret,omitempty"`

	// GitLabURL selects the GitLab instance.
	GitLabURL string `yaml:"gitlab_url,omitempty" json:"gitlab_url,omitempty"`

	// Platform overrides installer-platform detection: android,
	// windows, macos, linux or "auto".
	Platform string `yaml:"platform,omitempty" json:"platform,omitempty"`

	// ResultCount is how many confirmed repositories a discovery run
	// collects before stopping.
	ResultCount int `yaml:"result_count,omitempty" json:"result_count,omitempty"`
}

const (
	defaultGitLabURL   = "https://gitlab.com"
	defaultResultCount = 10
)

// DefaultConfigDir returns the default config directory
func DefaultConfigDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ".gitstore"
	}
	return filepath.Join(configDir, "gitstore")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// ConfigFileExists returns true if the config file exists on disk
func ConfigFileExists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// Load reads the config file if present, fills in defaults, and applies
// environment overrides.
func Load() (*Config, error) {
	return loadFrom(ConfigPath())
}

func loadFrom(path string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment beats the file for anything credential-shaped.
	if v := os.Getenv("GITHUB_CLIENT_ID"); v != "" {
		cfg.GitHubClientID = v
	}
	if v := os.Getenv("GITLAB_CLIENT_ID"); v != "" {
		cfg.GitLabClientID = v
	}
	if v := os.Getenv("GITLAB_CLIENT_SECRET"); v != "" {
		cfg.GitLabClientSecret = v
	}
	if v := os.Getenv("GITSTORE_GITLAB_URL"); v != "" {
		cfg.GitLabURL = v
	}

	if cfg.GitLabURL == "" {
		cfg.GitLabURL = defaultGitLabURL
	}
	if cfg.ResultCount <= 0 {
		cfg.ResultCount = defaultResultCount
	}
	if cfg.Platform == "" {
		cfg.Platform = "auto"
	}

	return cfg, nil
}

// ResolvePlatform turns the configured platform into a model.Platform,
// detecting from the running OS when set to auto.
func (c *Config) ResolvePlatform() (model.Platform, error) {
	if c.Platform == "" || c.Platform == "auto" {
		return model.CurrentPlatform(), nil
	}
	return model.ParsePlatform(c.Platform)
}

// GitHubAPIURL returns the GitHub REST endpoint. Overridable through
// the environment for testing against a stub server.
func (c *Config) GitHubAPIURL() string {
	if v := os.Getenv("GITSTORE_GITHUB_API_URL"); v != "" {
		return v
	}
	return "https://api.github.com"
}

// GitLabAPIURL returns the REST endpoint of the configured instance.
func (c *Config) GitLabAPIURL() string {
	return c.GitLabURL + "/api/v4"
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	configDir := DefaultConfigDir()

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ToYAML returns the config as a YAML string
func (c *Config) ToYAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(data), nil
}

// MinimalConfig returns a minimal config template with comments
func MinimalConfig() string {
	return `# gitstore configuration file

# OAuth client id of your GitHub app (device flow)
# github_client_id: Iv1.xxxxxxxxxxxxxxxx

# OAuth application on the GitLab instance
# gitlab_client_id: xxxxxxxx
# gitlab_client_secret: xxxxxxxx

# Self-hosted GitLab instance (default: https://gitlab.com)
# gitlab_url: https://gitlab.example.com

# Installer platform: auto, android, windows, macos or linux
platform: auto

# Repositories to collect per browse/search run
result_count: 10
`
}

// SaveTo writes content to a specific path, creating directories as needed
func SaveTo(path string, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return nil
}
