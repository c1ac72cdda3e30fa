package report

import (
	"fmt"
	"time"

	"igfeedprobe/pkg/analysis"
	"igfeedprobe/pkg/experiment"
)

// Artifact names written into the output directory
const (
	ResultsFile = "following_feed_test_results.json"
	ReportFile  = "following_feed_test_report.txt"
)

const goal = "Find method to access chronological following feed"

// Recommendation statuses
const (
	StatusSuccess  = "success"
	StatusFallback = "fallback"
)

// TestEntry is one non-baseline timeline test compared against the baseline
type TestEntry struct {
	analysis.Outcome
	BaselineDiff       int  `json:"baseline_diff"`
	BetterThanBaseline bool `json:"better_than_baseline"`
}

// Totals aggregates counts over every classified step
type Totals struct {
	Tests              int `json:"tests"`
	PostsFetched       int `json:"posts_fetched"`
	PrimaryPosts       int `json:"primary_posts"`
	AdsSkipped         int `json:"ads_skipped"`
	ConversionFailures int `json:"conversion_failures"`
	FailedTests        int `json:"failed_tests"`
}

// Recommendation is the conclusion drawn from the run
type Recommendation struct {
	Status           string   `json:"status"`
	Summary          string   `json:"summary"`
	Methods          []string `json:"methods,omitempty"`
	NextSteps        []string `json:"next_steps"`
	ProfileConfirmed bool     `json:"profile_confirmed"`
}

// Record is the machine-readable form of a run
type Record struct {
	StartedAt          time.Time              `json:"started_at"`
	FinishedAt         time.Time              `json:"finished_at"`
	Goal               string                 `json:"goal"`
	SuccessCriteria    string                 `json:"success_criteria"`
	PrimaryAuthor      string                 `json:"primary_author"`
	Threshold          int                    `json:"threshold"`
	Baseline           analysis.Outcome       `json:"baseline"`
	Tests              []TestEntry            `json:"tests"`
	FollowingEndpoint  experiment.ProbeResult `json:"following_endpoint"`
	UserProfile        TestEntry              `json:"user_profile"`
	Totals             Totals                 `json:"totals"`
	SuccessfulVariants []string               `json:"successful_variants"`
	Recommendation     Recommendation         `json:"recommendation"`
	ResultsFile        string                 `json:"results_file"`
}

// Build derives the record from run results. It reads nothing but its input,
// so the same results always give the same record. A nil or empty Results
// yields a record with every count at zero.
func Build(results *experiment.Results) Record {
	if results == nil {
		results = &experiment.Results{}
	}

	rec := Record{
		StartedAt:          results.StartedAt,
		FinishedAt:         results.FinishedAt,
		Goal:               goal,
		SuccessCriteria:    successCriteria(results.Threshold, results.PrimaryAuthor),
		PrimaryAuthor:      results.PrimaryAuthor,
		Threshold:          results.Threshold,
		Baseline:           normalize(results.Baseline),
		Tests:              make([]TestEntry, 0, len(results.Variants)),
		FollowingEndpoint:  results.Probe,
		SuccessfulVariants: []string{},
		ResultsFile:        ResultsFile,
	}

	for _, v := range results.Variants {
		entry := compare(normalize(v), rec.Baseline)
		rec.Tests = append(rec.Tests, entry)
		if entry.Success {
			rec.SuccessfulVariants = append(rec.SuccessfulVariants, entry.Key)
		}
	}
	rec.UserProfile = compare(normalize(results.Profile), rec.Baseline)

	rec.Totals = totals(rec)
	rec.Recommendation = recommend(rec)

	return rec
}

func compare(o, baseline analysis.Outcome) TestEntry {
	diff := o.PrimaryPosts - baseline.PrimaryPosts
	return TestEntry{
		Outcome:            o,
		BaselineDiff:       diff,
		BetterThanBaseline: diff > 0,
	}
}

// normalize replaces nil collections so the JSON record never carries nulls
// where a list is expected
func normalize(o analysis.Outcome) analysis.Outcome {
	if o.AuthorCounts == nil {
		o.AuthorCounts = map[string]int{}
	}
	if o.OtherAuthors == nil {
		o.OtherAuthors = []string{}
	}
	if o.PrimaryPostsList == nil {
		o.PrimaryPostsList = []analysis.PostPreview{}
	}
	if o.PostsDetail == nil {
		o.PostsDetail = []analysis.PostPreview{}
	}
	return o
}

func totals(rec Record) Totals {
	var t Totals
	add := func(o analysis.Outcome) {
		if o.Key == "" {
			return
		}
		t.Tests++
		t.PostsFetched += o.TotalPosts
		t.PrimaryPosts += o.PrimaryPosts
		t.AdsSkipped += o.AdsSkipped
		t.ConversionFailures += o.ConversionFailures
		if o.Error != "" {
			t.FailedTests++
		}
	}

	add(rec.Baseline)
	for _, e := range rec.Tests {
		add(e.Outcome)
	}
	add(rec.UserProfile.Outcome)
	return t
}

func recommend(rec Record) Recommendation {
	profileConfirmed := rec.Threshold > 0 && rec.UserProfile.PrimaryPosts >= rec.Threshold

	if len(rec.SuccessfulVariants) > 0 {
		methods := make([]string, 0, len(rec.SuccessfulVariants))
		for _, e := range rec.Tests {
			if e.Success {
				methods = append(methods, e.Label)
			}
		}
		return Recommendation{
			Status:  StatusSuccess,
			Summary: fmt.Sprintf("Found %d working method(s)", len(methods)),
			Methods: methods,
			NextSteps: []string{
				"Add the successful parameters to the timeline request",
				"Expose them as an option on the timeline feed fetch",
				"Update config to enable chronological feed",
			},
			ProfileConfirmed: profileConfirmed,
		}
	}

	return Recommendation{
		Status:  StatusFallback,
		Summary: "No method successfully accessed chronological following feed",
		NextSteps: []string{
			"Add support for tracking specific accounts",
			"Use feed/user/{user_id}/ for each tracked account",
			"Configure priority accounts in settings",
		},
		ProfileConfirmed: profileConfirmed,
	}
}

func successCriteria(threshold int, author string) string {
	if author == "" {
		return fmt.Sprintf("%d+ primary author posts (vs baseline)", threshold)
	}
	return fmt.Sprintf("%d+ posts from @%s (vs baseline)", threshold, author)
}
