package clientcli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sagarc03/storehouse"
)

// DefaultEndpoint is the default server endpoint URL.
const DefaultEndpoint = "http://localhost:8888"

// Default request paths, matching the server defaults.
const (
	DefaultUploadPath = "/upload"
	DefaultFetchPath  = "/fetch"
)

// Profile holds configuration for a single server profile.
type Profile struct {
	Name       string `yaml:"name"`
	Endpoint   string `yaml:"endpoint"`
	Secret     string `yaml:"secret,omitempty"`
	Algorithm  string `yaml:"algorithm,omitempty"`
	UploadPath string `yaml:"upload_path,omitempty"`
	FetchPath  string `yaml:"fetch_path,omitempty"`
	Default    bool   `yaml:"default,omitempty"`
}

// ConfigFile holds the full config file structure with multiple profiles.
type ConfigFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// GetProfile returns the profile by name.
// If name is empty, returns the default profile.
func (c *ConfigFile) GetProfile(name string) (*Profile, error) {
	if len(c.Profiles) == 0 {
		return nil, ErrNoProfiles
	}

	if name == "" {
		return c.GetDefaultProfile()
	}

	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			return &c.Profiles[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
}

// GetDefaultProfile returns the default profile.
// If no profile is marked as default, returns the first profile.
func (c *ConfigFile) GetDefaultProfile() (*Profile, error) {
	if len(c.Profiles) == 0 {
		return nil, ErrNoProfiles
	}

	for i := range c.Profiles {
		if c.Profiles[i].Default {
			return &c.Profiles[i], nil
		}
	}

	return &c.Profiles[0], nil
}

// AddProfile adds a new profile. Returns ErrProfileExists if a profile
// with the same name already exists.
func (c *ConfigFile) AddProfile(p Profile) error {
	for i := range c.Profiles {
		if c.Profiles[i].Name == p.Name {
			return fmt.Errorf("%w: %s", ErrProfileExists, p.Name)
		}
	}
	c.Profiles = append(c.Profiles, p)
	return nil
}

// UpdateProfile replaces an existing profile.
func (c *ConfigFile) UpdateProfile(p Profile) error {
	for i := range c.Profiles {
		if c.Profiles[i].Name == p.Name {
			c.Profiles[i] = p
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrProfileNotFound, p.Name)
}

// RemoveProfile removes a profile by name.
func (c *ConfigFile) RemoveProfile(name string) error {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			c.Profiles = append(c.Profiles[:i], c.Profiles[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
}

// SetDefault marks name as the default profile and clears the flag on
// every other one.
func (c *ConfigFile) SetDefault(name string) error {
	found := false
	for i := range c.Profiles {
		c.Profiles[i].Default = c.Profiles[i].Name == name
		if c.Profiles[i].Default {
			found = true
		}
	}

	if !found {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return nil
}

// ProfileNames returns a list of all profile names.
func (c *ConfigFile) ProfileNames() []string {
	names := make([]string, len(c.Profiles))
	for i := range c.Profiles {
		names[i] = c.Profiles[i].Name
	}
	return names
}

// Save writes the config to path, creating the parent directory if needed.
func (c *ConfigFile) Save(path string) error {
	cleanPath := filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(cleanPath, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// LoadConfigFile loads the config file from the specified path.
func LoadConfigFile(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(filepath.Clean(path)) //#nosec G304 -- path is user-provided config file
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg ConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return &cfg, nil
}

// DefaultConfigPath returns the default config file path (~/.storehouse/config.yaml).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".storehouse", "config.yaml")
}

// Config holds resolved client configuration for a single server.
type Config struct {
	Endpoint   string
	Secret     string
	Algorithm  string
	UploadPath string
	FetchPath  string
}

// WithDefaults returns a copy of the config with default values applied.
func (c *Config) WithDefaults() *Config {
	cfg := *c
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = string(storehouse.AlgorithmSHA1)
	}
	if cfg.UploadPath == "" {
		cfg.UploadPath = DefaultUploadPath
	}
	if cfg.FetchPath == "" {
		cfg.FetchPath = DefaultFetchPath
	}
	return &cfg
}

// Validate checks that the secret is set and the algorithm is known.
func (c *Config) Validate() error {
	if c.Secret == "" {
		return ErrSecretRequired
	}
	if _, err := storehouse.ParseAlgorithm(c.Algorithm); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// ConfigFromProfile creates a Config from a Profile.
func ConfigFromProfile(p *Profile) *Config {
	if p == nil {
		return &Config{}
	}
	return &Config{
		Endpoint:   p.Endpoint,
		Secret:     p.Secret,
		Algorithm:  p.Algorithm,
		UploadPath: p.UploadPath,
		FetchPath:  p.FetchPath,
	}
}

// ConfigFromEnv loads config from STOREHOUSE_* environment variables.
func ConfigFromEnv() *Config {
	return &Config{
		Endpoint:  os.Getenv("STOREHOUSE_ENDPOINT"),
		Secret:    os.Getenv("STOREHOUSE_SECRET"),
		Algorithm: os.Getenv("STOREHOUSE_ALGORITHM"),
	}
}

// ProfileFromEnv returns the profile name from STOREHOUSE_PROFILE.
func ProfileFromEnv() string {
	return os.Getenv("STOREHOUSE_PROFILE")
}

// ConfigPathFromEnv returns the config file path from STOREHOUSE_CLIENT_CONFIG.
func ConfigPathFromEnv() string {
	return os.Getenv("STOREHOUSE_CLIENT_CONFIG")
}

// MergeConfig merges configs left to right. Empty strings never override.
func MergeConfig(configs ...*Config) *Config {
	result := &Config{}
	for _, cfg := range configs {
		if cfg == nil {
			continue
		}
		if cfg.Endpoint != "" {
			result.Endpoint = cfg.Endpoint
		}
		if cfg.Secret != "" {
			result.Secret = cfg.Secret
		}
		if cfg.Algorithm != "" {
			result.Algorithm = cfg.Algorithm
		}
		if cfg.UploadPath != "" {
			result.UploadPath = cfg.UploadPath
		}
		if cfg.FetchPath != "" {
			result.FetchPath = cfg.FetchPath
		}
	}
	return result
}
