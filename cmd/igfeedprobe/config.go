package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igfeedprobe/pkg/config"
	"igfeedprobe/pkg/experiment"
	"igfeedprobe/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage igfeedprobe configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as 'igfeedprobe.yaml' in the current directory unless a
different path is given with --config.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging every source.
The password is masked.`,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# igfeedprobe configuration
#
# Credentials are best kept out of this file: set INSTAGRAM_USERNAME and
# INSTAGRAM_PASSWORD in the environment or a .env file, or run
# 'igfeedprobe auth login'.

instagram:
  username: ""
  password: ""
  # Persisted device fingerprint and session headers
  session_file: "./data/instagram_session.json"
  # Leave empty for the built-in Android user agent
  user_agent: ""
  timeout: 30s
  requests_per_minute: 30

probe:
  # Account whose posts measure feed coverage
  primary_author: "radionewzealand"
  # Posts to collect per timeline fetch
  target_count: 50
  max_pages: 15
  page_delay: 1s
  # Pause between experiment steps
  variant_delay: 3s
  # Primary posts a variant needs to count as a success
  success_threshold: 10
  profile_count: 50
  output_dir: "./results"
  # Extra parameter sets to test after the built-in ones.
  # A key matching a built-in variant replaces it.
  variants: []
  #  - key: "pull_to_refresh_following"
  #    label: "Pull to refresh with following mode"
  #    params:
  #      feed_view_mode: "following"
  #      is_pull_to_refresh: "1"

retry:
  enabled: true
  max_attempts: 3
  base_delay: 2s
  max_delay: 60s
  multiplier: 2.0

logging:
  # debug, info, warn, error
  level: "info"
  # console or json
  format: "console"
  # Optional log file in addition to stderr
  file: ""

history:
  enabled: true
  path: "./results/history.db"
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "igfeedprobe.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		ui.Println("\nTo overwrite, first remove the existing file:")
		ui.Printf("  rm %s\n", configPath)
		return fmt.Errorf("%s already exists", configPath)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	ui.Println("\nNext steps:")
	ui.Println("1. Store credentials with 'igfeedprobe auth login' or set INSTAGRAM_USERNAME and INSTAGRAM_PASSWORD")
	ui.Println("2. Run 'igfeedprobe config validate' to check the configuration")
	ui.Println("3. Start the investigation with 'igfeedprobe probe'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	data, err := yaml.Marshal(masked(cfg))
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

// masked returns a copy of cfg safe to print
func masked(cfg *config.Config) config.Config {
	display := *cfg
	if display.Instagram.Password != "" {
		display.Instagram.Password = "********"
	}
	return display
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err)
		return err
	}

	if err := cfg.RequireCredentials(); err != nil {
		ui.PrintWarning("Credentials not configured", "stored accounts will be used if present")
	}

	ui.PrintSuccess("Configuration is valid")

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nConfiguration summary:")
	fmt.Fprintf(out, "  Primary author: @%s\n", cfg.Probe.PrimaryAuthor)
	fmt.Fprintf(out, "  Success threshold: %d\n", cfg.Probe.SuccessThreshold)
	fmt.Fprintf(out, "  Target count: %d (max %d pages)\n", cfg.Probe.TargetCount, cfg.Probe.MaxPages)
	fmt.Fprintf(out, "  Output directory: %s\n", cfg.Probe.OutputDir)
	fmt.Fprintf(out, "  Rate limit: %d requests/minute\n", cfg.Instagram.RequestsPerMinute)
	fmt.Fprintf(out, "  Max retries: %d\n", cfg.Retry.MaxAttempts)
	fmt.Fprintf(out, "  Log level: %s\n", cfg.Logging.Level)

	variants := experiment.Configured(cfg.Probe.Variants)
	fmt.Fprintf(out, "  Variants (%d):\n", len(variants))
	for _, v := range variants {
		fmt.Fprintf(out, "    - %s: %s\n", v.Key, v.Label)
	}
	return nil
}
