package report

import (
	"fmt"
	"strings"
	"time"

	"igfeedprobe/pkg/analysis"
)

const ruleWidth = 80

// Render formats the record as the human-readable report
func Render(rec Record) string {
	var b strings.Builder
	rule := strings.Repeat("=", ruleWidth)
	heading := func(title string) {
		b.WriteString(rule + "\n")
		b.WriteString(title + "\n")
		b.WriteString(rule + "\n")
	}
	primary := primaryLabel(rec.PrimaryAuthor)

	heading("INSTAGRAM FOLLOWING FEED INVESTIGATION RESULTS")
	fmt.Fprintf(&b, "\nTest completed: %s\n", formatTime(rec.FinishedAt))
	fmt.Fprintf(&b, "\nGoal: %s\n", rec.Goal)
	fmt.Fprintf(&b, "Success Criteria: %s\n\n\n", rec.SuccessCriteria)

	base := rec.Baseline
	heading("BASELINE: Current Algorithmic Timeline")
	fmt.Fprintf(&b, "Total posts: %d\n", base.TotalPosts)
	fmt.Fprintf(&b, "%s: %d %s\n", primary, base.PrimaryPosts, mark(base.PrimaryPosts >= rec.Threshold && rec.Threshold > 0))
	fmt.Fprintf(&b, "Other accounts: %d (should be 0 - these are ads)\n", base.OtherAuthorsCount)
	writeOutcomeDetails(&b, base)
	b.WriteString("\n")

	for _, t := range rec.Tests {
		heading("TEST: " + t.Label)
		writeTest(&b, t, primary, rec.Baseline.PrimaryPosts, rec.Threshold)
		b.WriteString("\n")
	}

	probe := rec.FollowingEndpoint
	heading("TEST: " + orDefault(probe.Label, "feed/following/ Endpoint"))
	fmt.Fprintf(&b, "Endpoint exists: %s\n", yesNo(probe.EndpointExists))
	fmt.Fprintf(&b, "Result: %s\n", orDefault(probe.Message, "Endpoint not available"))
	if probe.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", probe.Error)
	}
	b.WriteString("\n")

	profile := rec.UserProfile
	heading("TEST: " + orDefault(profile.Label, "User Profile Feed"))
	writeTest(&b, profile, primary, rec.Baseline.PrimaryPosts, rec.Threshold)
	b.WriteString("\n")

	heading("RECOMMENDATION")
	r := rec.Recommendation
	if r.Status == StatusSuccess {
		fmt.Fprintf(&b, "\n✅ SUCCESS! %s:\n", r.Summary)
		for _, t := range rec.Tests {
			if !t.Success {
				continue
			}
			fmt.Fprintf(&b, "\n  • %s\n", t.Label)
			fmt.Fprintf(&b, "    %s: %d\n", primary, t.PrimaryPosts)
			fmt.Fprintf(&b, "    Chronological: %s\n", yesNo(t.IsChronological))
		}
		b.WriteString("\nNext Steps:\n")
	} else {
		fmt.Fprintf(&b, "\n❌ %s\n", r.Summary)
		b.WriteString("\nRecommendation: Implement user profile fetching\n")
	}
	for i, step := range r.NextSteps {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, step)
	}
	if r.ProfileConfirmed {
		fmt.Fprintf(&b, "\n✅ User profile feed returned %d %s\n", profile.PrimaryPosts, strings.ToLower(primary))
		b.WriteString("   This confirms comprehensive coverage is possible via profile fetching\n")
	}

	fmt.Fprintf(&b, "\n%s\n", rule)
	fmt.Fprintf(&b, "For detailed results, see: %s\n", orDefault(rec.ResultsFile, ResultsFile))
	b.WriteString(rule + "\n")

	return b.String()
}

func writeTest(b *strings.Builder, t TestEntry, primary string, baseline, threshold int) {
	success := t.Success && threshold > 0

	fmt.Fprintf(b, "Total posts: %d\n", t.TotalPosts)
	status := "❌"
	if success {
		status = "✅ SUCCESS!"
	}
	fmt.Fprintf(b, "%s: %d %s (baseline: %d, diff: %+d)\n", primary, t.PrimaryPosts, status, baseline, t.BaselineDiff)
	fmt.Fprintf(b, "Other accounts: %d (should be 0)\n", t.OtherAuthorsCount)
	writeOutcomeDetails(b, t.Outcome)

	switch {
	case success:
		fmt.Fprintf(b, "\nTHIS TEST MET SUCCESS CRITERIA! (%d %s)\n", t.PrimaryPosts, strings.ToLower(primary))
	case t.BetterThanBaseline:
		fmt.Fprintf(b, "\nBetter than baseline but didn't meet %d+ threshold\n", threshold)
	}
}

func writeOutcomeDetails(b *strings.Builder, o analysis.Outcome) {
	if len(o.OtherAuthors) > 0 {
		fmt.Fprintf(b, "  Accounts: %s\n", strings.Join(o.OtherAuthors, ", "))
	}
	fmt.Fprintf(b, "Chronological order: %s\n", checkYesNo(o.IsChronological))
	if o.DateRange != nil {
		fmt.Fprintf(b, "Date range: %s to %s\n", formatTime(o.DateRange.Oldest), formatTime(o.DateRange.Newest))
	} else {
		b.WriteString("Date range: N/A to N/A\n")
	}
	if o.Pages > 0 {
		fmt.Fprintf(b, "Pages: %d (stopped: %s, ads skipped: %d, malformed: %d)\n",
			o.Pages, orDefault(string(o.StopReason), "unknown"), o.AdsSkipped, o.ConversionFailures)
	}
	if o.Error != "" {
		fmt.Fprintf(b, "Error: %s\n", o.Error)
	}
}

func primaryLabel(author string) string {
	if author == "" {
		return "Primary posts"
	}
	return fmt.Sprintf("Posts from @%s", author)
}

func mark(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}

func checkYesNo(ok bool) string {
	if ok {
		return "Yes ✅"
	}
	return "No ❌"
}

func yesNo(ok bool) string {
	if ok {
		return "Yes"
	}
	return "No"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.UTC().Format(time.RFC3339)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
