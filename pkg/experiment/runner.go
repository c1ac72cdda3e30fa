package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"igfeedprobe/pkg/analysis"
	"igfeedprobe/pkg/config"
	errs "igfeedprobe/pkg/errors"
	"igfeedprobe/pkg/feed"
	"igfeedprobe/pkg/instagram"
	"igfeedprobe/pkg/logger"
	"igfeedprobe/pkg/ratelimit"
	"igfeedprobe/pkg/retry"
)

// Client is the API surface a run needs
type Client interface {
	feed.TimelineClient
	feed.UserFeedClient
	UserIDFromUsername(ctx context.Context, username string) (string, error)
	ProbeEndpoint(ctx context.Context, endpoint string) (bool, error)
}

// ProbeResult reports whether the dedicated following endpoint answered
type ProbeResult struct {
	Label          string `json:"test_name"`
	Endpoint       string `json:"endpoint"`
	EndpointExists bool   `json:"endpoint_exists"`
	TotalPosts     int    `json:"total_posts"`
	PrimaryPosts   int    `json:"primary_posts"`
	Message        string `json:"message"`
	Error          string `json:"error,omitempty"`
}

// Results is everything one run produced
type Results struct {
	StartedAt     time.Time          `json:"started_at"`
	FinishedAt    time.Time          `json:"finished_at"`
	PrimaryAuthor string             `json:"primary_author"`
	Threshold     int                `json:"threshold"`
	Baseline      analysis.Outcome   `json:"baseline"`
	Variants      []analysis.Outcome `json:"variants"`
	Probe         ProbeResult        `json:"following_endpoint"`
	Profile       analysis.Outcome   `json:"user_profile"`
}

// ByLabel maps every classified step's label to its outcome
func (r *Results) ByLabel() map[string]analysis.Outcome {
	out := make(map[string]analysis.Outcome, len(r.Variants)+2)
	if r.Baseline.Key != "" {
		out[r.Baseline.Label] = r.Baseline
	}
	for _, v := range r.Variants {
		out[v.Label] = v
	}
	if r.Profile.Key != "" {
		out[r.Profile.Label] = r.Profile
	}
	return out
}

// SuccessfulVariants returns the keys of variants that met the threshold
func (r *Results) SuccessfulVariants() []string {
	var keys []string
	for _, v := range r.Variants {
		if v.Success {
			keys = append(keys, v.Key)
		}
	}
	return keys
}

// Runner executes the baseline, every variant, the endpoint probe and the
// direct profile fetch, one after another
type Runner struct {
	client     Client
	fetcher    *feed.Fetcher
	classifier *analysis.Classifier
	retry      *retry.Config
	variants   []Variant
	probe      config.ProbeConfig
	logger     logger.Logger
	now        func() time.Time
}

// NewRunner builds a runner from the probe, retry and variant settings in cfg
func NewRunner(client Client, cfg *config.Config, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Runner{
		client:     client,
		fetcher:    feed.NewFetcher(cfg.Probe.PageDelay, log),
		classifier: analysis.NewClassifier(cfg.Probe.PrimaryAuthor, cfg.Probe.SuccessThreshold),
		retry:      retry.FromConfig(cfg.Retry, log),
		variants:   Configured(cfg.Probe.Variants),
		probe:      cfg.Probe,
		logger:     log,
		now:        time.Now,
	}
}

// SetRetry replaces the retry policy around whole-feed fetches
func (r *Runner) SetRetry(cfg *retry.Config) {
	r.retry = cfg
}

// Variants returns the variants this runner will try, in order
func (r *Runner) Variants() []Variant {
	return append([]Variant(nil), r.variants...)
}

// Run executes all steps. Failures of a single step are recorded in its
// outcome; authentication failures and cancellation abort the run.
func (r *Runner) Run(ctx context.Context) (*Results, error) {
	results := &Results{
		StartedAt:     r.now().UTC(),
		PrimaryAuthor: r.probe.PrimaryAuthor,
		Threshold:     r.probe.SuccessThreshold,
		Variants:      make([]analysis.Outcome, 0, len(r.variants)),
	}

	logger.LogComponentStart(r.logger, "experiment", map[string]interface{}{
		"primary_author": r.probe.PrimaryAuthor,
		"variants":       len(r.variants),
		"target":         r.probe.TargetCount,
		"max_pages":      r.probe.MaxPages,
	})

	pacer := ratelimit.NewPacer(r.probe.VariantDelay)
	step := func(name string) error {
		if err := pacer.Wait(ctx); err != nil {
			return err
		}
		r.logger.InfoWithFields("Running test", map[string]interface{}{"test": name})
		return nil
	}

	if err := step(BaselineKey); err != nil {
		return nil, err
	}
	baseline, err := r.timeline(ctx, BaselineKey, "Baseline (Algorithmic Timeline)", instagram.TimelineParams{})
	if err != nil {
		return nil, err
	}
	results.Baseline = baseline

	for _, v := range r.variants {
		if err := step(v.Key); err != nil {
			return nil, err
		}
		outcome, err := r.timeline(ctx, v.Key, v.Label, v.Params)
		if err != nil {
			return nil, err
		}
		results.Variants = append(results.Variants, outcome)
	}

	if err := step(FollowingEndpointKey); err != nil {
		return nil, err
	}
	probe, err := r.ProbeFollowing(ctx)
	if err != nil {
		return nil, err
	}
	results.Probe = probe

	if err := step(UserProfileKey); err != nil {
		return nil, err
	}
	profile, err := r.Profile(ctx, r.probe.PrimaryAuthor)
	if err != nil {
		return nil, err
	}
	results.Profile = profile

	results.FinishedAt = r.now().UTC()

	r.logger.InfoWithFields("Experiment finished", map[string]interface{}{
		"duration":            results.FinishedAt.Sub(results.StartedAt).Round(time.Second).String(),
		"successful_variants": results.SuccessfulVariants(),
	})

	return results, nil
}

// timeline fetches the home feed with params under the retry policy and
// classifies the result
func (r *Runner) timeline(ctx context.Context, key, label string, params instagram.TimelineParams) (analysis.Outcome, error) {
	source := feed.TimelineSource(r.client, params)
	opts := feed.Options{Target: r.probe.TargetCount, MaxPages: r.probe.MaxPages}

	r.logger.DebugWithFields("Timeline overrides", map[string]interface{}{
		"test":      key,
		"overrides": params.Overrides(),
	})

	result, err := retry.DoWithResult(ctx, func(ctx context.Context) (feed.Result, error) {
		return r.fetcher.Fetch(ctx, source, opts)
	}, r.retry)
	if err != nil {
		if fatal(err) {
			return analysis.Outcome{}, fmt.Errorf("%s: %w", key, err)
		}
		r.logger.WithError(err).ErrorWithFields("Timeline fetch failed", map[string]interface{}{
			"test": key,
		})
		outcome := r.classifier.Classify(key, label, nil)
		outcome.Error = err.Error()
		return outcome, nil
	}

	outcome := r.classifier.ClassifyResult(key, label, result)
	r.logOutcome(outcome)
	return outcome, nil
}

// ProbeFollowing checks whether the dedicated following endpoint exists.
// Not-found is a normal negative. Other errors, including permission errors
// from an endpoint the account may not use, are recorded in the result.
func (r *Runner) ProbeFollowing(ctx context.Context) (ProbeResult, error) {
	result := ProbeResult{
		Label:    "feed/following/ Endpoint",
		Endpoint: instagram.FollowingEndpoint,
		Message:  "Endpoint not available",
	}

	exists, err := r.client.ProbeEndpoint(ctx, instagram.FollowingEndpoint)
	switch {
	case err != nil && cancelled(err):
		return result, fmt.Errorf("%s: %w", FollowingEndpointKey, err)
	case err != nil:
		r.logger.WithError(err).Error("Error testing following endpoint")
		result.Error = err.Error()
	case exists:
		r.logger.Info("Following endpoint exists")
		result.EndpointExists = true
		result.Message = "Endpoint exists (parsing needed)"
	default:
		r.logger.Info("Following endpoint does not exist (404)")
	}

	return result, nil
}

// Profile fetches the author's own posts directly, bypassing the timeline.
// Errors other than authentication failures yield an empty outcome.
func (r *Runner) Profile(ctx context.Context, username string) (analysis.Outcome, error) {
	label := fmt.Sprintf("User Profile Feed (@%s)", username)

	result, err := r.profilePosts(ctx, username)
	if err != nil {
		if fatal(err) {
			return analysis.Outcome{}, fmt.Errorf("%s: %w", UserProfileKey, err)
		}
		r.logger.WithError(err).ErrorWithFields("Failed to fetch user profile posts", map[string]interface{}{
			"username": username,
		})
		outcome := r.classifier.Classify(UserProfileKey, label, nil)
		outcome.Error = err.Error()
		return outcome, nil
	}

	outcome := r.classifier.ClassifyResult(UserProfileKey, label, result)
	r.logOutcome(outcome)
	return outcome, nil
}

func (r *Runner) profilePosts(ctx context.Context, username string) (feed.Result, error) {
	userID, err := r.client.UserIDFromUsername(ctx, username)
	if err != nil {
		return feed.Result{}, fmt.Errorf("resolve @%s: %w", username, err)
	}

	count := r.probe.ProfileCount
	if count <= 0 {
		count = instagram.MaxUserFeedCount
	}
	pageSize := count
	if pageSize > instagram.MaxUserFeedCount {
		pageSize = instagram.MaxUserFeedCount
	}
	opts := feed.Options{Target: count, MaxPages: r.probe.MaxPages}

	source := feed.UserFeedSource(r.client, userID, pageSize)
	return retry.DoWithResult(ctx, func(ctx context.Context) (feed.Result, error) {
		return r.fetcher.Fetch(ctx, source, opts)
	}, r.retry)
}

func (r *Runner) logOutcome(o analysis.Outcome) {
	r.logger.InfoWithFields("Test complete", map[string]interface{}{
		"test":             o.Key,
		"total_posts":      o.TotalPosts,
		"primary_posts":    o.PrimaryPosts,
		"other_accounts":   o.OtherAuthorsCount,
		"is_chronological": o.IsChronological,
		"pages":            o.Pages,
		"ads_skipped":      o.AdsSkipped,
		"stop_reason":      string(o.StopReason),
	})
}

// fatal reports errors that end the whole run
func fatal(err error) bool {
	return cancelled(err) ||
		errs.IsType(err, errs.ErrorTypeAuth) ||
		errs.IsType(err, errs.ErrorTypeChallenge)
}

func cancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
