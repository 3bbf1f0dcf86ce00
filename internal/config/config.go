package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Intensity values accepted for the thinking-intensity setting.
const (
	IntensityFast    = "fast"
	IntensityThink   = "think"
	IntensityDeep    = "deep"
	IntensityInstant = "instant"
)

// Config holds the settings the orchestrator needs: provider credentials,
// default model identifiers and diagnostics. Stored as JSON in the user
// config directory; environment variables override file values.
type Config struct {
	// GoogleAPIKey authenticates against the native provider.
	GoogleAPIKey string `json:"google_api_key,omitempty"`
	// RelayAPIKey authenticates against the third-party relay.
	RelayAPIKey string `json:"relay_api_key,omitempty"`
	// RelayBaseURL overrides the relay endpoint (mainly for tests).
	RelayBaseURL string `json:"relay_base_url,omitempty"`

	// Model is the default model identifier. Relay models carry a vendor
	// prefix ("vendor/model"), native models do not.
	Model string `json:"model,omitempty"`
	// Intensity is the thinking intensity: fast, think, deep or instant.
	Intensity string `json:"intensity,omitempty"`

	LogLevel string `json:"log_level,omitempty"`
	LogPath  string `json:"log_path,omitempty"`
}

// envAPIKeys maps config fields to the environment variables that can supply
// them. Multiple variables allow aliases (GEMINI_API_KEY vs GOOGLE_API_KEY).
var envAPIKeys = map[string][]string{
	"google": {"GEMINI_API_KEY", "GOOGLE_API_KEY", "GOOGLE_GENAI_API_KEY"},
	"relay":  {"OPENROUTER_API_KEY", "RELAY_API_KEY"},
}

// DefaultPath returns the location of the config file inside the user config
// directory.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, "chatschnell", "config.json"), nil
}

// Load reads the config file at path (DefaultPath when empty), applies
// environment overrides and fills defaults. A missing file is not an error;
// env-only setups are common.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env + defaults
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as indented JSON, creating parent directories.
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return os.WriteFile(path, append(data, '\n'), 0600)
}

func (c *Config) applyEnv() {
	if key := firstEnv(envAPIKeys["google"]); key != "" {
		c.GoogleAPIKey = key
	}
	if key := firstEnv(envAPIKeys["relay"]); key != "" {
		c.RelayAPIKey = key
	}
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Intensity) == "" {
		c.Intensity = IntensityFast
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = "none"
	}
}

func (c *Config) validate() error {
	switch c.Intensity {
	case IntensityFast, IntensityThink, IntensityDeep, IntensityInstant:
	default:
		return fmt.Errorf("invalid intensity %q (want fast, think, deep or instant)", c.Intensity)
	}
	return nil
}

func firstEnv(names []string) string {
	for _, name := range names {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			return value
		}
	}
	return ""
}
