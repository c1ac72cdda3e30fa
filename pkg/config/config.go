package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredentials is returned when no account username or password is configured
var ErrMissingCredentials = errors.New("INSTAGRAM_USERNAME and INSTAGRAM_PASSWORD must be set")

// Config holds all configuration options for the feed probe
type Config struct {
	// Instagram account and transport settings
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Experiment settings
	Probe ProbeConfig `yaml:"probe" json:"probe"`

	// Retry behaviour around whole-feed fetches
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Run history database
	History HistoryConfig `yaml:"history" json:"history"`
}

// InstagramConfig holds account credentials and client settings
type InstagramConfig struct {
	Username          string        `yaml:"username" json:"username"`
	Password          string        `yaml:"password" json:"password"`
	SessionFile       string        `yaml:"session_file" json:"session_file"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// ProbeConfig holds the experiment parameters
type ProbeConfig struct {
	PrimaryAuthor    string          `yaml:"primary_author" json:"primary_author"`
	TargetCount      int             `yaml:"target_count" json:"target_count"`
	MaxPages         int             `yaml:"max_pages" json:"max_pages"`
	PageDelay        time.Duration   `yaml:"page_delay" json:"page_delay"`
	VariantDelay     time.Duration   `yaml:"variant_delay" json:"variant_delay"`
	SuccessThreshold int             `yaml:"success_threshold" json:"success_threshold"`
	ProfileCount     int             `yaml:"profile_count" json:"profile_count"`
	OutputDir        string          `yaml:"output_dir" json:"output_dir"`
	Variants         []VariantConfig `yaml:"variants" json:"variants,omitempty"`
}

// VariantConfig describes an extra timeline parameter set to test.
// Params are sent verbatim and may override any field of the request body.
type VariantConfig struct {
	Key    string            `yaml:"key" json:"key"`
	Label  string            `yaml:"label" json:"label"`
	Params map[string]string `yaml:"params" json:"params"`
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// HistoryConfig controls the SQLite run history
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// reservedVariantKeys name the fixed experiment steps; their outcomes share
// the key space with variants in the run record and history
var reservedVariantKeys = map[string]bool{
	"baseline":           true,
	"following_endpoint": true,
	"user_profile":       true,
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			SessionFile:       "./data/instagram_session.json",
			Timeout:           30 * time.Second,
			RequestsPerMinute: 30,
		},
		Probe: ProbeConfig{
			PrimaryAuthor:    "radionewzealand",
			TargetCount:      50,
			MaxPages:         15,
			PageDelay:        time.Second,
			VariantDelay:     3 * time.Second,
			SuccessThreshold: 10,
			ProfileCount:     50,
			OutputDir:        "./results",
		},
		Retry: RetryConfig{
			Enabled:     true,
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    60 * time.Second,
			Multiplier:  2.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "./results/history.db",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// Credential variable names match the ones the account .env files already use
	if username := os.Getenv("INSTAGRAM_USERNAME"); username != "" {
		c.Instagram.Username = username
	}
	if password := os.Getenv("INSTAGRAM_PASSWORD"); password != "" {
		c.Instagram.Password = password
	}
	if sessionFile := os.Getenv("SESSION_FILE"); sessionFile != "" {
		c.Instagram.SessionFile = sessionFile
	}
	if userAgent := os.Getenv("IGFEEDPROBE_USER_AGENT"); userAgent != "" {
		c.Instagram.UserAgent = userAgent
	}

	if author := os.Getenv("IGFEEDPROBE_PRIMARY_AUTHOR"); author != "" {
		c.Probe.PrimaryAuthor = author
	}
	if outputDir := os.Getenv("IGFEEDPROBE_OUTPUT_DIR"); outputDir != "" {
		c.Probe.OutputDir = outputDir
	}
	if target := os.Getenv("IGFEEDPROBE_TARGET_COUNT"); target != "" {
		val, err := strconv.Atoi(target)
		if err != nil {
			return fmt.Errorf("invalid IGFEEDPROBE_TARGET_COUNT %q: %w", target, err)
		}
		c.Probe.TargetCount = val
	}

	if logLevel := os.Getenv("IGFEEDPROBE_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if historyPath := os.Getenv("IGFEEDPROBE_HISTORY_PATH"); historyPath != "" {
		c.History.Path = historyPath
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"igfeedprobe.yaml",
		".igfeedprobe.yaml",
		".igfeedprobe.yml",
		filepath.Join(home, ".config", "igfeedprobe", "config.yaml"),
		filepath.Join(home, ".igfeedprobe.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks value ranges. Credentials are checked by RequireCredentials.
func (c *Config) Validate() error {
	var errs []error

	if c.Instagram.Timeout <= 0 {
		errs = append(errs, errors.New("instagram timeout must be positive"))
	}
	if c.Instagram.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	if strings.TrimSpace(c.Probe.PrimaryAuthor) == "" {
		errs = append(errs, errors.New("primary author is required"))
	}
	if c.Probe.TargetCount <= 0 {
		errs = append(errs, errors.New("target count must be positive"))
	}
	if c.Probe.MaxPages <= 0 {
		errs = append(errs, errors.New("max pages must be positive"))
	}
	if c.Probe.PageDelay < 0 || c.Probe.VariantDelay < 0 {
		errs = append(errs, errors.New("delays cannot be negative"))
	}
	if c.Probe.SuccessThreshold <= 0 {
		errs = append(errs, errors.New("success threshold must be positive"))
	}
	if c.Probe.OutputDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	seen := make(map[string]bool, len(c.Probe.Variants))
	for _, v := range c.Probe.Variants {
		if v.Key == "" {
			errs = append(errs, errors.New("variant key is required"))
			continue
		}
		if reservedVariantKeys[v.Key] {
			errs = append(errs, fmt.Errorf("variant key %q is reserved", v.Key))
		} else if seen[v.Key] {
			errs = append(errs, fmt.Errorf("duplicate variant key %q", v.Key))
		}
		seen[v.Key] = true
		if len(v.Params) == 0 {
			errs = append(errs, fmt.Errorf("variant %q has no params", v.Key))
		}
	}

	if c.Retry.MaxAttempts < 0 || c.Retry.MaxAttempts > 10 {
		errs = append(errs, errors.New("retry max attempts must be between 0 and 10"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		errs = append(errs, errors.New("log format must be console or json"))
	}

	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, errors.New("history path is required when history is enabled"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// RequireCredentials reports ErrMissingCredentials unless both username and password are set
func (c *Config) RequireCredentials() error {
	if strings.TrimSpace(c.Instagram.Username) == "" || c.Instagram.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if author, ok := flags["primary-author"].(string); ok && author != "" {
		c.Probe.PrimaryAuthor = author
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Probe.OutputDir = outputDir
	}
	if target, ok := flags["count"].(int); ok && target > 0 {
		c.Probe.TargetCount = target
	}
	if pages, ok := flags["max-pages"].(int); ok && pages > 0 {
		c.Probe.MaxPages = pages
	}
	if threshold, ok := flags["threshold"].(int); ok && threshold > 0 {
		c.Probe.SuccessThreshold = threshold
	}
	if sessionFile, ok := flags["session-file"].(string); ok && sessionFile != "" {
		c.Instagram.SessionFile = sessionFile
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if noHistory, ok := flags["no-history"].(bool); ok && noHistory {
		c.History.Enabled = false
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igfeedprobe.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
