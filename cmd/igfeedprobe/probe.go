package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"igfeedprobe/pkg/auth"
	"igfeedprobe/pkg/config"
	"igfeedprobe/pkg/experiment"
	"igfeedprobe/pkg/history"
	"igfeedprobe/pkg/instagram"
	"igfeedprobe/pkg/logger"
	"igfeedprobe/pkg/report"
	"igfeedprobe/pkg/session"
	"igfeedprobe/pkg/storage"
	"igfeedprobe/pkg/ui"
)

var (
	// Probe command flags
	primaryAuthor string
	outputDir     string
	targetCount   int
	maxPages      int
	threshold     int
	accountName   string
	sessionFile   string
	keepSession   bool
	noHistory     bool
)

// probeCmd represents the probe command
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Run the following-feed investigation",
	Long: `Run the full investigation: baseline timeline, every parameter variant,
the feed/following/ endpoint probe and a direct profile fetch of the primary
author.

Credentials come from INSTAGRAM_USERNAME / INSTAGRAM_PASSWORD, the config file,
or an account stored with 'igfeedprobe auth login'. The report is printed to
stdout and saved with the JSON record in the output directory.`,
	Example: `  # Run with defaults
  igfeedprobe probe

  # Measure a different account with a lower bar
  igfeedprobe probe --author nasa --threshold 5

  # Keep the session file for the next run
  igfeedprobe probe --keep-session`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().StringVar(&primaryAuthor, "author", "", "primary author to measure (default radionewzealand)")
	probeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for the report and record")
	probeCmd.Flags().IntVar(&targetCount, "count", 0, "posts to collect per timeline fetch")
	probeCmd.Flags().IntVar(&maxPages, "max-pages", 0, "page ceiling per fetch")
	probeCmd.Flags().IntVar(&threshold, "threshold", 0, "primary posts needed for a variant to succeed")
	probeCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")
	probeCmd.Flags().StringVar(&sessionFile, "session-file", "", "session file path")
	probeCmd.Flags().BoolVar(&keepSession, "keep-session", false, "do not log out when the run ends")
	probeCmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the run in the history database")
}

func probeFlags() map[string]interface{} {
	return map[string]interface{}{
		"primary-author": primaryAuthor,
		"output":         outputDir,
		"count":          targetCount,
		"max-pages":      maxPages,
		"threshold":      threshold,
		"session-file":   sessionFile,
		"no-history":     noHistory,
	}
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(probeFlags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := resolveCredentials(cfg, accountName, credentialLookup(log), log); err != nil {
		ui.PrintError("No Instagram credentials found")
		ui.Println("\nSet INSTAGRAM_USERNAME and INSTAGRAM_PASSWORD, or store an account with:")
		ui.Println("  igfeedprobe auth login")
		return err
	}

	ctx := cmd.Context()
	client, err := login(ctx, cfg, log)
	if err != nil {
		return err
	}
	if !keepSession {
		defer logout(client, log)
	}

	ui.PrintInfo("Primary author", "@"+cfg.Probe.PrimaryAuthor)
	ui.PrintHighlight("[RUNNING FEED EXPERIMENTS]")

	rec, err := investigate(ctx, client, cfg, log, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Results saved to %s", filepath.Join(cfg.Probe.OutputDir, rec.ResultsFile)))
	return nil
}

// investigate runs every experiment step, saves both artifacts, records the
// run in history and prints the report to out
func investigate(ctx context.Context, client experiment.Client, cfg *config.Config, log logger.Logger, out io.Writer) (report.Record, error) {
	runner := experiment.NewRunner(client, cfg, log)
	results, err := runner.Run(ctx)
	if err != nil {
		log.WithError(err).Error("Probe run failed")
		return report.Record{}, err
	}

	rec := report.Build(results)
	text := report.Render(rec)

	store, err := storage.NewManager(cfg.Probe.OutputDir)
	if err != nil {
		return rec, err
	}
	jsonPath, textPath, err := report.Write(store, rec, text)
	if err != nil {
		return rec, err
	}
	log.InfoWithFields("Saved artifacts", map[string]interface{}{
		"results": jsonPath,
		"report":  textPath,
	})

	if cfg.History.Enabled {
		recordHistory(ctx, cfg.History.Path, results, rec.Recommendation, log)
	}

	fmt.Fprint(out, text)
	return rec, nil
}

// credentialSource is the part of auth.Manager used to fill in credentials
type credentialSource interface {
	Retrieve(username string) (*auth.Account, error)
	RetrieveDefault() (*auth.Account, error)
}

// credentialLookup opens the stored-credential manager, or returns nil when
// no store can be opened
func credentialLookup(log logger.Logger) credentialSource {
	m, err := auth.NewManager(log)
	if err != nil {
		log.WithError(err).Debug("Credential stores unavailable")
		return nil
	}
	return m
}

// resolveCredentials fills cfg from a stored account when the config and
// environment carry none. A named account always comes from the store.
func resolveCredentials(cfg *config.Config, account string, source credentialSource, log logger.Logger) error {
	if account == "" && cfg.RequireCredentials() == nil {
		return nil
	}
	if source == nil {
		return config.ErrMissingCredentials
	}

	var (
		acct *auth.Account
		err  error
	)
	if account != "" {
		acct, err = source.Retrieve(account)
	} else {
		acct, err = source.RetrieveDefault()
	}
	if err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			return fmt.Errorf("%w: %v", config.ErrMissingCredentials, err)
		}
		return err
	}

	cfg.Instagram.Username = acct.Username
	cfg.Instagram.Password = acct.Password
	if acct.SessionFile != "" && sessionFile == "" {
		cfg.Instagram.SessionFile = acct.SessionFile
	}
	log.WithField("account", acct.Username).Info("Using stored credentials")

	return cfg.RequireCredentials()
}

// login builds the API client over the persisted session and authenticates
func login(ctx context.Context, cfg *config.Config, log logger.Logger) (*instagram.Client, error) {
	store := session.NewStore(cfg.Instagram.SessionFile, log)
	client := instagram.NewClient(cfg.Instagram, store, log)
	if apiURL != "" {
		client.SetBaseURL(apiURL)
	}

	ui.PrintInfo("Account", cfg.Instagram.Username)
	if err := client.Login(ctx, cfg.Instagram.Username, cfg.Instagram.Password); err != nil {
		log.WithError(err).Error("Authentication failed")
		ui.PrintError("Authentication failed", err)
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	return client, nil
}

// logout ends the session with its own deadline so it still runs after an interrupt
func logout(client *instagram.Client, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := client.Logout(ctx); err != nil {
		log.WithError(err).Warn("Logout failed")
	}
}

func recordHistory(ctx context.Context, path string, results *experiment.Results, rec report.Recommendation, log logger.Logger) {
	h, err := history.Open(path, log)
	if err != nil {
		log.WithError(err).Warn("Could not open run history")
		return
	}
	defer h.Close()

	if _, err := h.RecordRun(ctx, results, rec); err != nil {
		log.WithError(err).Warn("Could not record run history")
	}
}
