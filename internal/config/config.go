// Package config manages the user's SSO connection profiles
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fastertools/ftl-sso/internal/sso"
)

// Config represents the user's ftl-sso configuration
type Config struct {
	// CurrentProfile is the profile used when none is named
	CurrentProfile string `json:"current_profile,omitempty"`

	// Profiles stores the known connections by name
	Profiles map[string]Profile `json:"profiles,omitempty"`

	// Preferences stores user preferences
	Preferences Preferences `json:"preferences,omitempty"`

	// Version of the config schema
	Version string `json:"version"`
}

// Profile is one SSO connection
type Profile struct {
	Name     string `json:"name"`
	StartURL string `json:"start_url"`
	Region   string `json:"region"`
	// Scopes selects the cache key shape: empty means the legacy layout
	Scopes []string `json:"scopes,omitempty"`
	// ConnectionID is generated once and keeps scoped cache entries apart
	ConnectionID string `json:"connection_id"`
	ClientName   string `json:"client_name,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// Preferences stores user preferences
type Preferences struct {
	// ColorOutput controls whether to use colored output
	ColorOutput bool `json:"color_output"`

	// CacheBackend is the default cache backend
	CacheBackend string `json:"cache_backend,omitempty"`
}

var (
	instance *Config
	once     sync.Once
	mu       sync.RWMutex
)

// configPath returns the path to the config file
func configPath() (string, error) {
	var configDir string

	// XDG_CONFIG_HOME first, for tests and Linux
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		configDir = xdgConfig
	} else {
		var err error
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to get config directory: %w", err)
		}
	}

	return filepath.Join(configDir, "ftl-sso", "config.json"), nil
}

// Path returns the location of the config file
func Path() (string, error) {
	return configPath()
}

// NewProfile validates the connection parameters and assigns a connection ID
func NewProfile(name, startURL, region string, scopes []string) (Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Profile{}, fmt.Errorf("profile name is required")
	}
	if err := ValidateStartURL(startURL); err != nil {
		return Profile{}, err
	}
	if strings.TrimSpace(region) == "" {
		return Profile{}, fmt.Errorf("region is required")
	}

	return Profile{
		Name:         name,
		StartURL:     strings.TrimSpace(startURL),
		Region:       strings.TrimSpace(region),
		Scopes:       cleanScopes(scopes),
		ConnectionID: uuid.NewString(),
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// ValidateStartURL checks that u is an absolute https URL
func ValidateStartURL(u string) error {
	parsed, err := url.Parse(strings.TrimSpace(u))
	if err != nil {
		return fmt.Errorf("invalid start URL: %w", err)
	}
	if parsed.Scheme != "https" || parsed.Host == "" {
		return fmt.Errorf("start URL must be an absolute https URL, got %q", u)
	}
	return nil
}

func cleanScopes(scopes []string) []string {
	var out []string
	for _, s := range scopes {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Settings converts the profile into provider settings
func (p Profile) Settings() sso.Settings {
	return sso.Settings{
		ConnectionID: p.ConnectionID,
		StartURL:     p.StartURL,
		Region:       p.Region,
		Scopes:       p.Scopes,
		ClientName:   p.ClientName,
	}
}

// Load loads the configuration from disk or creates a new one
func Load() (*Config, error) {
	var err error
	once.Do(func() {
		instance, err = load()
	})

	if err != nil {
		return nil, err
	}

	return instance, nil
}

// Reload discards the loaded configuration and reads it again
func Reload() (*Config, error) {
	mu.Lock()
	instance = nil
	once = sync.Once{}
	mu.Unlock()
	return Load()
}

// load reads the config from disk or creates default
func load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) // #nosec G304 - path is controlled via configPath()
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}

	// Profiles written by hand may lack a connection ID
	changed := false
	for name, p := range cfg.Profiles {
		if p.ConnectionID == "" {
			p.ConnectionID = uuid.NewString()
			cfg.Profiles[name] = p
			changed = true
		}
	}
	if changed {
		if err := cfg.Save(); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// defaultConfig returns a default configuration
func defaultConfig() *Config {
	return &Config{
		Version:  "1.0",
		Profiles: make(map[string]Profile),
		Preferences: Preferences{
			ColorOutput: true,
		},
	}
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	mu.Lock()
	defer mu.Unlock()
	return c.save()
}

func (c *Config) save() error {
	path, err := configPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically by writing to temp file then renaming
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// AddProfile adds or replaces a profile. The first profile becomes current.
// Replacing a profile keeps its connection ID so cached tokens stay valid.
func (c *Config) AddProfile(p Profile) error {
	mu.Lock()
	defer mu.Unlock()

	if c.Profiles == nil {
		c.Profiles = make(map[string]Profile)
	}
	if existing, ok := c.Profiles[p.Name]; ok && existing.ConnectionID != "" {
		p.ConnectionID = existing.ConnectionID
	}
	if p.ConnectionID == "" {
		p.ConnectionID = uuid.NewString()
	}
	c.Profiles[p.Name] = p
	if c.CurrentProfile == "" {
		c.CurrentProfile = p.Name
	}

	return c.save()
}

// GetProfile retrieves a profile by name
func (c *Config) GetProfile(name string) (Profile, bool) {
	mu.RLock()
	defer mu.RUnlock()

	p, exists := c.Profiles[name]
	return p, exists
}

// ListProfiles returns all profiles sorted by name
func (c *Config) ListProfiles() []Profile {
	mu.RLock()
	defer mu.RUnlock()

	profiles := make([]Profile, 0, len(c.Profiles))
	for _, p := range c.Profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })

	return profiles
}

// RemoveProfile deletes a profile; removing the current one clears the selection
func (c *Config) RemoveProfile(name string) error {
	mu.Lock()
	defer mu.Unlock()

	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("profile %q not found", name)
	}
	delete(c.Profiles, name)
	if c.CurrentProfile == name {
		c.CurrentProfile = ""
	}

	return c.save()
}

// GetCurrentProfile returns the name of the current profile
func (c *Config) GetCurrentProfile() string {
	mu.RLock()
	defer mu.RUnlock()
	return c.CurrentProfile
}

// SetCurrentProfile selects an existing profile
func (c *Config) SetCurrentProfile(name string) error {
	mu.Lock()
	defer mu.Unlock()

	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("profile %q not found", name)
	}
	c.CurrentProfile = name

	return c.save()
}

// ResolveProfile returns the named profile, or the current one when name is empty
func (c *Config) ResolveProfile(name string) (Profile, error) {
	mu.RLock()
	defer mu.RUnlock()

	if name == "" {
		name = c.CurrentProfile
	}
	if name == "" {
		return Profile{}, fmt.Errorf("no profile selected; run 'ftl-sso profile add' first")
	}
	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("profile %q not found", name)
	}
	return p, nil
}

// Reset resets the configuration to defaults
func (c *Config) Reset() error {
	mu.Lock()
	defer mu.Unlock()

	*c = *defaultConfig()
	return c.save()
}
