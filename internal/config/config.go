// Package config provides persistent configuration for the namaz CLI.
//
// Preferences are stored as JSON at ~/.config/namaz/config.json
// (XDG-compliant). The merge priority is: CLI flags > config file > defaults.
// Service settings come from the environment; see Env.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/smokyabdulrahman/namaz/internal/prayer"
	"github.com/smokyabdulrahman/namaz/internal/zakaat"
)

const (
	configDirName  = "namaz"
	configFileName = "config.json"
	stateFileName  = "state.json"
)

// State backends for the saved location.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// ValidKeys lists all config keys that can be set via `config set`.
var ValidKeys = []string{
	"method", "school",
	"time_format",
	"prayers",
	"cache_dir",
	"currency",
	"state_backend",
}

// Config holds all user-configurable settings.
// Zero values mean "not set" (use defaults or auto-detect).
// The selected location is not part of Config; it lives in the location store.
type Config struct {
	Method       *int   `json:"method,omitempty"`      // pointer so we can distinguish "not set" from 0
	School       *int   `json:"school,omitempty"`      // pointer so we can distinguish "not set" from 0
	TimeFormat   string `json:"time_format,omitempty"` // "12h" or "24h"
	Prayers      string `json:"prayers,omitempty"`     // comma-separated list
	CacheDir     string `json:"cache_dir,omitempty"`
	Currency     string `json:"currency,omitempty"`      // INR, USD or EUR
	StateBackend string `json:"state_backend,omitempty"` // "file" or "redis"
}

// Defaults returns a Config with all default values applied.
func Defaults() Config {
	method := -1
	school := -1
	return Config{
		Method:       &method,
		School:       &school,
		TimeFormat:   "24h",
		Currency:     string(zakaat.DefaultCurrency),
		StateBackend: BackendFile,
	}
}

// Dir returns the config directory path.
// It respects $XDG_CONFIG_HOME if set, otherwise uses ~/.config/.
func Dir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, configDirName), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// StatePath returns the file the location is saved in by the file backend.
func StatePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, stateFileName), nil
}

// Load reads the config file from disk.
// If the file does not exist, it returns an empty Config (not an error).
// If the file exists but is invalid JSON, it returns an error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	return LoadFrom(path)
}

// LoadFrom reads the config from a specific file path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Config{}
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes the config to disk, creating the directory if needed.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}

	return c.SaveTo(path)
}

// SaveTo writes the config to a specific file path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Reset deletes the config file.
func Reset() error {
	path, err := Path()
	if err != nil {
		return err
	}

	return ResetAt(path)
}

// ResetAt deletes the config file at a specific path.
func ResetAt(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

// Set sets a config key to the given value.
// It validates the key name and parses the value into the correct type.
func (c *Config) Set(key, value string) error {
	switch key {
	case "method":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid method %q: must be an integer", value)
		}
		if v < 0 || v > 23 {
			return fmt.Errorf("invalid method %q: must be between 0 and 23", value)
		}
		c.Method = &v
	case "school":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid school %q: must be an integer", value)
		}
		if v != 0 && v != 1 {
			return fmt.Errorf("invalid school %q: must be 0 (Shafi) or 1 (Hanafi)", value)
		}
		c.School = &v
	case "time_format":
		if value != "12h" && value != "24h" {
			return fmt.Errorf("invalid time_format %q: must be \"12h\" or \"24h\"", value)
		}
		c.TimeFormat = value
	case "prayers":
		// Validate each prayer name.
		names := strings.Split(value, ",")
		for i, n := range names {
			canonical, ok := prayer.NormalizeName(n)
			if !ok {
				return fmt.Errorf("invalid prayer name %q in prayers list", strings.TrimSpace(n))
			}
			names[i] = canonical
		}
		c.Prayers = strings.Join(names, ",")
	case "cache_dir":
		c.CacheDir = value
	case "currency":
		cur, err := zakaat.ParseCurrency(value)
		if err != nil {
			return fmt.Errorf("invalid currency %q: must be INR, USD or EUR", value)
		}
		c.Currency = string(cur)
	case "state_backend":
		if value != BackendFile && value != BackendRedis {
			return fmt.Errorf("invalid state_backend %q: must be \"file\" or \"redis\"", value)
		}
		c.StateBackend = value
	default:
		return fmt.Errorf("unknown config key %q; valid keys: %s", key, strings.Join(ValidKeys, ", "))
	}

	return nil
}

// Get returns the string value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "method":
		if c.Method == nil {
			return "", nil
		}
		return strconv.Itoa(*c.Method), nil
	case "school":
		if c.School == nil {
			return "", nil
		}
		return strconv.Itoa(*c.School), nil
	case "time_format":
		return c.TimeFormat, nil
	case "prayers":
		return c.Prayers, nil
	case "cache_dir":
		return c.CacheDir, nil
	case "currency":
		return c.Currency, nil
	case "state_backend":
		return c.StateBackend, nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

// MethodOrDefault returns the method value, falling back to the given default.
func (c *Config) MethodOrDefault(def int) int {
	if c.Method != nil {
		return *c.Method
	}
	return def
}

// SchoolOrDefault returns the school value, falling back to the given default.
func (c *Config) SchoolOrDefault(def int) int {
	if c.School != nil {
		return *c.School
	}
	return def
}

// CurrencyOrDefault returns the configured currency, or INR.
func (c *Config) CurrencyOrDefault() zakaat.Currency {
	if cur, err := zakaat.ParseCurrency(c.Currency); err == nil {
		return cur
	}
	return zakaat.DefaultCurrency
}

// PrayerNames returns the configured prayer list, or def when unset.
func (c *Config) PrayerNames(def []string) []string {
	if c.Prayers == "" {
		return def
	}
	var names []string
	for _, n := range strings.Split(c.Prayers, ",") {
		if canonical, ok := prayer.NormalizeName(n); ok {
			names = append(names, canonical)
		}
	}
	if len(names) == 0 {
		return def
	}
	return names
}
