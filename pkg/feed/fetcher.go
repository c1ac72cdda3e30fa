package feed

import (
	"context"
	"fmt"
	"time"

	"igfeedprobe/pkg/instagram"
	"igfeedprobe/pkg/logger"
	"igfeedprobe/pkg/ratelimit"
)

// StopReason records why pagination ended
type StopReason string

const (
	StopTargetReached  StopReason = "target_reached"
	StopPageLimit      StopReason = "page_limit"
	StopEmptyPage      StopReason = "empty_page"
	StopEndOfFeed      StopReason = "end_of_feed"
	StopRepeatedCursor StopReason = "repeated_cursor"
	StopRequestFailed  StopReason = "request_failed"
)

// Options bound a single fetch
type Options struct {
	Target   int
	MaxPages int
}

// Result is the ordered output of one fetch
type Result struct {
	Posts              []Post     `json:"posts"`
	Pages              int        `json:"pages"`
	AdsSkipped         int        `json:"ads_skipped"`
	ConversionFailures int        `json:"conversion_failures"`
	StopReason         StopReason `json:"stop_reason"`
	LastCursor         string     `json:"last_cursor,omitempty"`
	Err                error      `json:"-"`
}

// Fetcher accumulates posts from a PageSource
type Fetcher struct {
	pageDelay time.Duration
	logger    logger.Logger
}

// NewFetcher creates a fetcher that waits pageDelay between page requests
func NewFetcher(pageDelay time.Duration, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Fetcher{pageDelay: pageDelay, logger: log}
}

// Fetch pages through source until Target posts are collected, MaxPages pages
// have been requested, a page comes back empty, or the cursor is exhausted or
// repeats. Ads are skipped and malformed items are counted and skipped.
//
// A failed request on the first page is returned as the error so the caller
// may retry the whole fetch. A failure on a later page ends pagination and the
// posts gathered so far are returned with StopRequestFailed and Result.Err set.
func (f *Fetcher) Fetch(ctx context.Context, source PageSource, opts Options) (Result, error) {
	if opts.Target <= 0 {
		return Result{}, fmt.Errorf("target must be positive, got %d", opts.Target)
	}
	if opts.MaxPages <= 0 {
		return Result{}, fmt.Errorf("max pages must be positive, got %d", opts.MaxPages)
	}

	pacer := ratelimit.NewPacer(f.pageDelay)
	result := Result{Posts: make([]Post, 0, opts.Target)}
	cursor := ""

	for {
		if err := pacer.Wait(ctx); err != nil {
			return result, err
		}

		page, err := source.Page(ctx, cursor)
		result.Pages++
		if err != nil {
			if result.Pages == 1 {
				return Result{Pages: 1}, err
			}
			f.logger.WithError(err).ErrorWithFields("Page request failed, keeping partial results", map[string]interface{}{
				"page":   result.Pages,
				"cursor": cursor,
				"posts":  len(result.Posts),
			})
			result.StopReason = StopRequestFailed
			result.Err = err
			return result, nil
		}

		if len(page.Items) == 0 {
			if result.Pages >= opts.MaxPages {
				result.StopReason = StopPageLimit
			} else {
				result.StopReason = StopEmptyPage
			}
			return result, nil
		}

		added := f.collect(&result, page.Items, opts.Target)

		f.logger.DebugWithFields("Feed page processed", map[string]interface{}{
			"page":        result.Pages,
			"items":       len(page.Items),
			"added":       added,
			"total":       len(result.Posts),
			"next_max_id": page.NextMaxID,
		})

		switch {
		case len(result.Posts) >= opts.Target:
			result.StopReason = StopTargetReached
		case result.Pages >= opts.MaxPages:
			result.StopReason = StopPageLimit
		case page.NextMaxID == "":
			result.StopReason = StopEndOfFeed
		case page.NextMaxID == cursor:
			result.StopReason = StopRepeatedCursor
		}
		if result.StopReason != "" {
			result.LastCursor = page.NextMaxID
			return result, nil
		}

		cursor = page.NextMaxID
		result.LastCursor = cursor
	}
}

// collect converts items into posts until target is reached and returns how
// many were added
func (f *Fetcher) collect(result *Result, items []instagram.RawItem, target int) int {
	added := 0
	for i, item := range items {
		if len(result.Posts) >= target {
			break
		}
		if !item.Present() {
			continue
		}

		media, err := item.Media()
		if err != nil {
			result.ConversionFailures++
			f.logger.WithError(err).WarnWithFields("Skipping malformed feed item", map[string]interface{}{
				"page":  result.Pages,
				"index": i,
			})
			continue
		}
		if media.IsAd() {
			result.AdsSkipped++
			continue
		}

		post, err := NewPost(media)
		if err != nil {
			result.ConversionFailures++
			f.logger.WithError(err).WarnWithFields("Skipping unconvertible feed item", map[string]interface{}{
				"page":  result.Pages,
				"index": i,
			})
			continue
		}

		result.Posts = append(result.Posts, post)
		added++
	}
	return added
}
