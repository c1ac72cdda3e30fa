package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Probe.TargetCount != 50 {
		t.Errorf("Expected default target count to be 50, got %d", config.Probe.TargetCount)
	}

	if config.Probe.MaxPages != 15 {
		t.Errorf("Expected default max pages to be 15, got %d", config.Probe.MaxPages)
	}

	if config.Probe.SuccessThreshold != 10 {
		t.Errorf("Expected default success threshold to be 10, got %d", config.Probe.SuccessThreshold)
	}

	if config.Instagram.SessionFile != "./data/instagram_session.json" {
		t.Errorf("Unexpected default session file %s", config.Instagram.SessionFile)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("INSTAGRAM_USERNAME", "probe-user")
	t.Setenv("INSTAGRAM_PASSWORD", "hunter2")
	t.Setenv("SESSION_FILE", "/tmp/session.json")
	t.Setenv("IGFEEDPROBE_PRIMARY_AUTHOR", "someaccount")
	t.Setenv("IGFEEDPROBE_OUTPUT_DIR", "/tmp/probe-out")
	t.Setenv("IGFEEDPROBE_TARGET_COUNT", "25")
	t.Setenv("IGFEEDPROBE_LOG_LEVEL", "debug")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.Instagram.Username != "probe-user" {
		t.Errorf("Expected username probe-user, got %s", config.Instagram.Username)
	}
	if config.Instagram.Password != "hunter2" {
		t.Errorf("Expected password to be loaded")
	}
	if config.Instagram.SessionFile != "/tmp/session.json" {
		t.Errorf("Expected session file /tmp/session.json, got %s", config.Instagram.SessionFile)
	}
	if config.Probe.PrimaryAuthor != "someaccount" {
		t.Errorf("Expected primary author someaccount, got %s", config.Probe.PrimaryAuthor)
	}
	if config.Probe.OutputDir != "/tmp/probe-out" {
		t.Errorf("Expected output dir /tmp/probe-out, got %s", config.Probe.OutputDir)
	}
	if config.Probe.TargetCount != 25 {
		t.Errorf("Expected target count 25, got %d", config.Probe.TargetCount)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromEnvInvalidNumber(t *testing.T) {
	t.Setenv("IGFEEDPROBE_TARGET_COUNT", "many")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err == nil {
		t.Error("Expected error for non-numeric target count")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError bool
	}{
		{
			name:      "defaults",
			mutate:    func(c *Config) {},
			wantError: false,
		},
		{
			name:      "zero target count",
			mutate:    func(c *Config) { c.Probe.TargetCount = 0 },
			wantError: true,
		},
		{
			name:      "zero page ceiling",
			mutate:    func(c *Config) { c.Probe.MaxPages = 0 },
			wantError: true,
		},
		{
			name:      "negative delay",
			mutate:    func(c *Config) { c.Probe.PageDelay = -time.Second },
			wantError: true,
		},
		{
			name:      "empty primary author",
			mutate:    func(c *Config) { c.Probe.PrimaryAuthor = "  " },
			wantError: true,
		},
		{
			name:      "invalid log level",
			mutate:    func(c *Config) { c.Logging.Level = "invalid" },
			wantError: true,
		},
		{
			name:      "invalid log format",
			mutate:    func(c *Config) { c.Logging.Format = "xml" },
			wantError: true,
		},
		{
			name: "variant shadows baseline",
			mutate: func(c *Config) {
				c.Probe.Variants = []VariantConfig{{Key: "baseline", Params: map[string]string{"a": "b"}}}
			},
			wantError: true,
		},
		{
			name: "variant shadows following endpoint",
			mutate: func(c *Config) {
				c.Probe.Variants = []VariantConfig{{Key: "following_endpoint", Params: map[string]string{"a": "b"}}}
			},
			wantError: true,
		},
		{
			name: "variant shadows user profile",
			mutate: func(c *Config) {
				c.Probe.Variants = []VariantConfig{{Key: "user_profile", Params: map[string]string{"a": "b"}}}
			},
			wantError: true,
		},
		{
			name: "duplicate variant keys",
			mutate: func(c *Config) {
				c.Probe.Variants = []VariantConfig{
					{Key: "chrono", Params: map[string]string{"a": "b"}},
					{Key: "chrono", Params: map[string]string{"c": "d"}},
				}
			},
			wantError: true,
		},
		{
			name: "variant without params",
			mutate: func(c *Config) {
				c.Probe.Variants = []VariantConfig{{Key: "empty"}}
			},
			wantError: true,
		},
		{
			name: "valid custom variant",
			mutate: func(c *Config) {
				c.Probe.Variants = []VariantConfig{{Key: "chrono", Label: "chrono", Params: map[string]string{"feed_view_mode": "chronological"}}}
			},
			wantError: false,
		},
		{
			name: "history enabled without path",
			mutate: func(c *Config) {
				c.History.Enabled = true
				c.History.Path = ""
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestRequireCredentials(t *testing.T) {
	config := DefaultConfig()
	if err := config.RequireCredentials(); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("Expected ErrMissingCredentials, got %v", err)
	}

	config.Instagram.Username = "user"
	if err := config.RequireCredentials(); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("Expected ErrMissingCredentials without password, got %v", err)
	}

	config.Instagram.Password = "secret"
	if err := config.RequireCredentials(); err != nil {
		t.Errorf("Expected credentials to be accepted, got %v", err)
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()

	flags := map[string]interface{}{
		"primary-author": "flagauthor",
		"output":         "/flag/output",
		"count":          7,
		"max-pages":      3,
		"threshold":      2,
		"log-level":      "error",
		"no-history":     true,
	}

	config.MergeCommandLineFlags(flags)

	if config.Probe.PrimaryAuthor != "flagauthor" {
		t.Errorf("Expected primary author flagauthor, got %s", config.Probe.PrimaryAuthor)
	}
	if config.Probe.OutputDir != "/flag/output" {
		t.Errorf("Expected output directory /flag/output, got %s", config.Probe.OutputDir)
	}
	if config.Probe.TargetCount != 7 {
		t.Errorf("Expected target count 7, got %d", config.Probe.TargetCount)
	}
	if config.Probe.MaxPages != 3 {
		t.Errorf("Expected max pages 3, got %d", config.Probe.MaxPages)
	}
	if config.Probe.SuccessThreshold != 2 {
		t.Errorf("Expected threshold 2, got %d", config.Probe.SuccessThreshold)
	}
	if config.Logging.Level != "error" {
		t.Errorf("Expected log level error, got %s", config.Logging.Level)
	}
	if config.History.Enabled {
		t.Error("Expected history to be disabled")
	}
}

func TestSaveAndLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	config := DefaultConfig()
	config.Probe.PrimaryAuthor = "saved-author"
	config.Probe.PageDelay = 1500 * time.Millisecond
	config.Probe.Variants = []VariantConfig{
		{Key: "chrono", Label: "Chronological", Params: map[string]string{"feed_view_mode": "chronological"}},
	}

	if err := config.Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded := DefaultConfig()
	if err := loaded.LoadFromFile(configPath); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.Probe.PrimaryAuthor != "saved-author" {
		t.Errorf("Expected saved-author, got %s", loaded.Probe.PrimaryAuthor)
	}
	if loaded.Probe.PageDelay != 1500*time.Millisecond {
		t.Errorf("Expected page delay 1.5s, got %v", loaded.Probe.PageDelay)
	}
	if len(loaded.Probe.Variants) != 1 || loaded.Probe.Variants[0].Params["feed_view_mode"] != "chronological" {
		t.Errorf("Expected custom variant to round-trip, got %+v", loaded.Probe.Variants)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	config := DefaultConfig()
	if err := config.LoadFromFile("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("probe: [unterminated"), 0644); err != nil {
		t.Fatalf("Failed to write bad config: %v", err)
	}
	if err := config.LoadFromFile(bad); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "igfeedprobe.yaml")
	content := []byte("probe:\n  primary_author: fromfile\n  max_pages: 4\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	t.Setenv("IGFEEDPROBE_PRIMARY_AUTHOR", "fromenv")

	cfg, err := Load(path, map[string]interface{}{"max-pages": 9})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Probe.PrimaryAuthor != "fromenv" {
		t.Errorf("Expected environment to override file, got %s", cfg.Probe.PrimaryAuthor)
	}
	if cfg.Probe.MaxPages != 9 {
		t.Errorf("Expected flag to override file, got %d", cfg.Probe.MaxPages)
	}
}
