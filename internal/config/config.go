package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider backends for the enhance section.
const (
	ProviderMemory = "memory"
	ProviderSQLite = "sqlite"
)

// Config represents the casenote configuration.
type Config struct {
	Enhance EnhanceConfig `yaml:"enhance"`
	Log     LogConfig     `yaml:"log"`
	UI      UIConfig      `yaml:"ui"`
}

// EnhanceConfig holds suggestion-session settings.
type EnhanceConfig struct {
	MaxRetries   int     `yaml:"max_retries"`   // Retries allowed from a shown suggestion
	Provider     string  `yaml:"provider"`      // memory or sqlite
	CorpusPath   string  `yaml:"corpus_path"`   // YAML corpus (empty = bundled)
	DatabasePath string  `yaml:"database_path"` // SQLite corpus (empty = default)
	ErrorRate    float64 `yaml:"error_rate"`    // Simulated transient failure rate
	MinDelayMs   int     `yaml:"min_delay_ms"`  // Simulated latency lower bound
	MaxDelayMs   int     `yaml:"max_delay_ms"`  // Simulated latency upper bound
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // Log file path (overrides default)
}

// UIConfig holds the note editor settings.
type UIConfig struct {
	Title       string `yaml:"title"`
	Label       string `yaml:"label"`
	Placeholder string `yaml:"placeholder"`
	Width       int    `yaml:"width"`  // Editor width in columns (0 = fit terminal)
	Height      int    `yaml:"height"` // Editor height in rows
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Enhance: EnhanceConfig{
			MaxRetries: 3,
			Provider:   ProviderMemory,
			ErrorRate:  0.1,
			MinDelayMs: 300,
			MaxDelayMs: 1200,
		},
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			Title:       "Patient Case Description",
			Label:       "Enter patient case description:",
			Placeholder: "Type the patient's case description here...",
			Height:      5,
		},
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	return LoadFromFile(DefaultPaths().ConfigFile())
}

// LoadFromFile loads configuration from the specified file.
// If the file doesn't exist, returns default configuration.
// Environment variable overrides are applied after file loading.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves the configuration to the specified file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DatabasePath returns the configured SQLite corpus path or the default.
func (c *Config) DatabasePath(p *Paths) string {
	if c.Enhance.DatabasePath != "" {
		return c.Enhance.DatabasePath
	}
	return p.DatabaseFile()
}

// LogFile returns the configured log file or the default.
func (c *Config) LogFile(p *Paths) string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return p.LogFile()
}

// Get retrieves a configuration value by dot-separated key.
// For example: "enhance.max_retries" or "log.level"
func (c *Config) Get(key string) (string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", errors.New("key must be in format 'section.key'")
	}

	section, field := parts[0], parts[1]

	switch section {
	case "enhance":
		return c.getEnhanceField(field)
	case "log":
		return c.getLogField(field)
	case "ui":
		return c.getUIField(field)
	default:
		return "", fmt.Errorf("unknown section: %s", section)
	}
}

// Set sets a configuration value by dot-separated key.
func (c *Config) Set(key, value string) error {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return errors.New("key must be in format 'section.key'")
	}

	section, field := parts[0], parts[1]

	switch section {
	case "enhance":
		return c.setEnhanceField(field, value)
	case "log":
		return c.setLogField(field, value)
	case "ui":
		return c.setUIField(field, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func (c *Config) getEnhanceField(field string) (string, error) {
	switch field {
	case "max_retries":
		return strconv.Itoa(c.Enhance.MaxRetries), nil
	case "provider":
		return c.Enhance.Provider, nil
	case "corpus_path":
		return c.Enhance.CorpusPath, nil
	case "database_path":
		return c.Enhance.DatabasePath, nil
	case "error_rate":
		return strconv.FormatFloat(c.Enhance.ErrorRate, 'g', -1, 64), nil
	case "min_delay_ms":
		return strconv.Itoa(c.Enhance.MinDelayMs), nil
	case "max_delay_ms":
		return strconv.Itoa(c.Enhance.MaxDelayMs), nil
	default:
		return "", fmt.Errorf("unknown field: enhance.%s", field)
	}
}

func (c *Config) setEnhanceField(field, value string) error {
	switch field {
	case "max_retries":
		v, err := parseNonNegative(field, value)
		if err != nil {
			return err
		}
		c.Enhance.MaxRetries = v
	case "provider":
		if !isValidProvider(value) {
			return fmt.Errorf("invalid provider: %s (must be memory or sqlite)", value)
		}
		c.Enhance.Provider = value
	case "corpus_path":
		c.Enhance.CorpusPath = value
	case "database_path":
		c.Enhance.DatabasePath = value
	case "error_rate":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for error_rate: %w", err)
		}
		if v < 0 || v > 1 {
			return fmt.Errorf("invalid error_rate: must be between 0 and 1")
		}
		c.Enhance.ErrorRate = v
	case "min_delay_ms":
		v, err := parseNonNegative(field, value)
		if err != nil {
			return err
		}
		c.Enhance.MinDelayMs = v
	case "max_delay_ms":
		v, err := parseNonNegative(field, value)
		if err != nil {
			return err
		}
		c.Enhance.MaxDelayMs = v
	default:
		return fmt.Errorf("unknown field: enhance.%s", field)
	}
	return nil
}

func (c *Config) getLogField(field string) (string, error) {
	switch field {
	case "level":
		return c.Log.Level, nil
	case "file":
		return c.Log.File, nil
	default:
		return "", fmt.Errorf("unknown field: log.%s", field)
	}
}

func (c *Config) setLogField(field, value string) error {
	switch field {
	case "level":
		if !isValidLogLevel(value) {
			return fmt.Errorf("invalid level: %s (must be debug, info, warn, or error)", value)
		}
		c.Log.Level = value
	case "file":
		c.Log.File = value
	default:
		return fmt.Errorf("unknown field: log.%s", field)
	}
	return nil
}

func (c *Config) getUIField(field string) (string, error) {
	switch field {
	case "title":
		return c.UI.Title, nil
	case "label":
		return c.UI.Label, nil
	case "placeholder":
		return c.UI.Placeholder, nil
	case "width":
		return strconv.Itoa(c.UI.Width), nil
	case "height":
		return strconv.Itoa(c.UI.Height), nil
	default:
		return "", fmt.Errorf("unknown field: ui.%s", field)
	}
}

func (c *Config) setUIField(field, value string) error {
	switch field {
	case "title":
		c.UI.Title = value
	case "label":
		c.UI.Label = value
	case "placeholder":
		c.UI.Placeholder = value
	case "width":
		v, err := parseNonNegative(field, value)
		if err != nil {
			return err
		}
		c.UI.Width = v
	case "height":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for height: %w", err)
		}
		if v < 1 {
			return fmt.Errorf("invalid height: must be at least 1")
		}
		c.UI.Height = v
	default:
		return fmt.Errorf("unknown field: ui.%s", field)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Enhance.MaxRetries < 0 {
		return errors.New("enhance.max_retries must be >= 0")
	}

	if !isValidProvider(c.Enhance.Provider) {
		return fmt.Errorf("enhance.provider must be memory or sqlite (got: %s)", c.Enhance.Provider)
	}

	if c.Enhance.ErrorRate < 0 || c.Enhance.ErrorRate > 1 {
		return fmt.Errorf("enhance.error_rate must be between 0 and 1 (got: %g)", c.Enhance.ErrorRate)
	}

	if c.Enhance.MinDelayMs < 0 || c.Enhance.MaxDelayMs < 0 {
		return errors.New("enhance delays must be >= 0")
	}

	if c.Enhance.MaxDelayMs < c.Enhance.MinDelayMs {
		return fmt.Errorf("enhance.max_delay_ms (%d) must be >= enhance.min_delay_ms (%d)",
			c.Enhance.MaxDelayMs, c.Enhance.MinDelayMs)
	}

	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn, or error (got: %s)", c.Log.Level)
	}

	if c.UI.Width < 0 {
		return errors.New("ui.width must be >= 0")
	}

	// Height is clamped, not rejected.
	if c.UI.Height < 1 {
		c.UI.Height = 1
	}

	return nil
}

func parseNonNegative(field, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", field, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid %s: must be non-negative", field)
	}
	return v, nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidProvider(provider string) bool {
	switch provider {
	case ProviderMemory, ProviderSQLite:
		return true
	default:
		return false
	}
}

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CASENOTE_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Log.Level = "debug"
		}
	}
	if v := os.Getenv("CASENOTE_LOG_LEVEL"); v != "" {
		if isValidLogLevel(v) {
			c.Log.Level = v
		}
	}
	if v := os.Getenv("CASENOTE_PROVIDER"); v != "" {
		if isValidProvider(v) {
			c.Enhance.Provider = v
		}
	}
	if v := os.Getenv("CASENOTE_CORPUS"); v != "" {
		c.Enhance.CorpusPath = v
	}
}

// ListKeys returns user-facing configuration keys.
func ListKeys() []string {
	return []string{
		"enhance.max_retries",
		"enhance.provider",
		"enhance.corpus_path",
		"enhance.database_path",
		"enhance.error_rate",
		"enhance.min_delay_ms",
		"enhance.max_delay_ms",
		"log.level",
		"log.file",
		"ui.title",
		"ui.label",
		"ui.placeholder",
		"ui.width",
		"ui.height",
	}
}
