package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"igfeedprobe/pkg/history"
)

var (
	historyLimit   int
	historyVariant string
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show previous probe runs",
	Long: `Show previous probe runs recorded in the history database, or with
--variant, how one variant's outcome changed across runs.`,
	Example: `  igfeedprobe history
  igfeedprobe history --variant feed_view_mode --limit 20`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show (0 for all)")
	historyCmd.Flags().StringVar(&historyVariant, "variant", "", "show the trend of one variant key")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := history.Open(cfg.History.Path, log)
	if err != nil {
		return err
	}
	defer store.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	if historyVariant != "" {
		points, err := store.VariantTrend(cmd.Context(), historyVariant, historyLimit)
		if err != nil {
			return err
		}
		if len(points) == 0 {
			fmt.Fprintf(w, "No recorded outcomes for %q\n", historyVariant)
			return nil
		}
		fmt.Fprintln(w, "WHEN\tTOTAL\tPRIMARY\tCHRONOLOGICAL\tSUCCESS\tERROR")
		for _, p := range points {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%s\n",
				humanize.Time(p.StartedAt), p.TotalPosts, p.PrimaryPosts,
				yesNo(p.IsChronological), yesNo(p.Success), p.Error)
		}
		return nil
	}

	runs, err := store.ListRuns(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded yet")
		return nil
	}
	fmt.Fprintln(w, "WHEN\tAUTHOR\tTHRESHOLD\tSTATUS\tDURATION\tSUCCESSFUL VARIANTS")
	for _, r := range runs {
		successful := strings.Join(r.SuccessfulVariants, ", ")
		if successful == "" {
			successful = "-"
		}
		fmt.Fprintf(w, "%s\t@%s\t%d\t%s\t%s\t%s\n",
			humanize.Time(r.StartedAt), r.PrimaryAuthor, r.Threshold, r.Status,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second), successful)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
