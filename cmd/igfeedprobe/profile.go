package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"igfeedprobe/pkg/feed"
	"igfeedprobe/pkg/instagram"
	"igfeedprobe/pkg/report"
	"igfeedprobe/pkg/retry"
	"igfeedprobe/pkg/ui"
)

var profileCount int

// profileCmd represents the profile command
var profileCmd = &cobra.Command{
	Use:   "profile [username]",
	Short: "List recent posts read directly from an account's profile",
	Long: `Fetch recent posts straight from an account's profile feed, bypassing the
timeline entirely, and print them with their age plus a short summary.

Without a username the configured primary author is used.`,
	Example: `  igfeedprobe profile
  igfeedprobe profile nasa --count 20`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProfile,
}

func init() {
	rootCmd.AddCommand(profileCmd)

	profileCmd.Flags().IntVar(&profileCount, "count", 50, "number of posts to fetch")
	profileCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")
	profileCmd.Flags().BoolVar(&keepSession, "keep-session", false, "do not log out when done")
}

func runProfile(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	target := cfg.Probe.PrimaryAuthor
	if len(args) == 1 {
		target = instagram.SanitizeUsername(args[0])
	}
	if !instagram.IsValidUsername(target) {
		return fmt.Errorf("invalid username %q", target)
	}
	if profileCount <= 0 {
		return fmt.Errorf("count must be positive")
	}

	if err := resolveCredentials(cfg, accountName, credentialLookup(log), log); err != nil {
		ui.PrintError("No Instagram credentials found")
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

	ui.PrintInfo("Target user", "@"+target)
	user, err := client.UserInfoByUsername(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to get user info: %w", err)
	}

	pageSize := profileCount
	if pageSize > instagram.MaxUserFeedCount {
		pageSize = instagram.MaxUserFeedCount
	}
	fetcher := feed.NewFetcher(cfg.Probe.PageDelay, log)
	source := feed.UserFeedSource(client, user.PK.String(), pageSize)
	opts := feed.Options{Target: profileCount, MaxPages: cfg.Probe.MaxPages}

	result, err := retry.DoWithResult(ctx, func(ctx context.Context) (feed.Result, error) {
		return fetcher.Fetch(ctx, source, opts)
	}, retry.FromConfig(cfg.Retry, log))
	if err != nil {
		return fmt.Errorf("failed to fetch user posts: %w", err)
	}
	if result.Err != nil {
		log.WithError(result.Err).Warn("Profile fetch stopped early")
	}

	posts := result.Posts
	if len(posts) > profileCount {
		posts = posts[:profileCount]
	}
	fmt.Fprint(cmd.OutOrStdout(), report.RenderProfile(user, posts, time.Now()))
	if strings.EqualFold(user.Username, cfg.Probe.PrimaryAuthor) && len(posts) >= cfg.Probe.SuccessThreshold {
		ui.PrintSuccess("Profile fetching covers the primary author without algorithmic filtering")
	}
	return nil
}
