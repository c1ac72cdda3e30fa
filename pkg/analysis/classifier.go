package analysis

import (
	"sort"
	"time"

	"igfeedprobe/pkg/feed"
)

const (
	DefaultThreshold     = 10
	DefaultSampleSize    = 20
	DefaultPreviewLength = 60
)

// DateRange spans the oldest and newest post of a result
type DateRange struct {
	Oldest time.Time `json:"oldest"`
	Newest time.Time `json:"newest"`
}

// Days returns the span in whole days
func (d *DateRange) Days() int {
	if d == nil {
		return 0
	}
	return int(d.Newest.Sub(d.Oldest).Hours() / 24)
}

// PostPreview is the abbreviated form of a post kept in outcomes
type PostPreview struct {
	Author         string    `json:"author"`
	PostedAt       time.Time `json:"posted_at"`
	Kind           feed.Kind `json:"type"`
	CaptionPreview string    `json:"caption_preview,omitempty"`
}

// Outcome summarises one fetch against the primary author
type Outcome struct {
	Key                string          `json:"key"`
	Label              string          `json:"test_name"`
	TotalPosts         int             `json:"total_posts"`
	PrimaryPosts       int             `json:"primary_posts"`
	PrimaryPostsList   []PostPreview   `json:"primary_posts_list"`
	AuthorCounts       map[string]int  `json:"author_counts"`
	OtherAuthors       []string        `json:"other_accounts"`
	OtherAuthorsCount  int             `json:"other_accounts_count"`
	DateRange          *DateRange      `json:"date_range"`
	IsChronological    bool            `json:"is_chronological"`
	Success            bool            `json:"success"`
	PostsDetail        []PostPreview   `json:"posts_detail"`
	Pages              int             `json:"pages"`
	AdsSkipped         int             `json:"ads_skipped"`
	ConversionFailures int             `json:"conversion_failures"`
	StopReason         feed.StopReason `json:"stop_reason,omitempty"`
	Error              string          `json:"error,omitempty"`
}

// Classifier measures how well a post list covers the primary author
type Classifier struct {
	PrimaryAuthor string
	Threshold     int
	SampleSize    int
	PreviewLength int
}

// NewClassifier returns a classifier with the default sample and preview sizes
func NewClassifier(primaryAuthor string, threshold int) *Classifier {
	return &Classifier{
		PrimaryAuthor: primaryAuthor,
		Threshold:     threshold,
		SampleSize:    DefaultSampleSize,
		PreviewLength: DefaultPreviewLength,
	}
}

// Classify builds the outcome for posts in fetch order
func (c *Classifier) Classify(key, label string, posts []feed.Post) Outcome {
	out := Outcome{
		Key:              key,
		Label:            label,
		TotalPosts:       len(posts),
		PrimaryPostsList: []PostPreview{},
		AuthorCounts:     map[string]int{},
		OtherAuthors:     []string{},
		PostsDetail:      []PostPreview{},
	}
	if len(posts) == 0 {
		out.Success = c.Threshold <= 0
		return out
	}

	others := make(map[string]struct{})
	for i, p := range posts {
		out.AuthorCounts[p.AuthorUsername]++
		if p.AuthorUsername == c.PrimaryAuthor {
			out.PrimaryPosts++
			out.PrimaryPostsList = append(out.PrimaryPostsList, c.preview(p))
		} else {
			others[p.AuthorUsername] = struct{}{}
		}
		if i < c.sampleSize() {
			out.PostsDetail = append(out.PostsDetail, c.preview(p))
		}
	}

	for author := range others {
		out.OtherAuthors = append(out.OtherAuthors, author)
	}
	sort.Strings(out.OtherAuthors)
	out.OtherAuthorsCount = len(out.OtherAuthors)

	out.IsChronological = IsNewestFirst(posts)
	out.DateRange = Span(posts)
	out.Success = out.PrimaryPosts >= c.Threshold

	return out
}

// ClassifyResult classifies a fetch result and carries its paging statistics
func (c *Classifier) ClassifyResult(key, label string, result feed.Result) Outcome {
	out := c.Classify(key, label, result.Posts)
	out.Pages = result.Pages
	out.AdsSkipped = result.AdsSkipped
	out.ConversionFailures = result.ConversionFailures
	out.StopReason = result.StopReason
	if result.Err != nil {
		out.Error = result.Err.Error()
	}
	return out
}

// IsNewestFirst reports whether timestamps never increase in fetch order.
// An empty list is not considered ordered.
func IsNewestFirst(posts []feed.Post) bool {
	if len(posts) == 0 {
		return false
	}
	for i := 1; i < len(posts); i++ {
		if posts[i].PostedAt.After(posts[i-1].PostedAt) {
			return false
		}
	}
	return true
}

// Span returns the oldest and newest timestamps, or nil for no posts
func Span(posts []feed.Post) *DateRange {
	if len(posts) == 0 {
		return nil
	}
	r := &DateRange{Oldest: posts[0].PostedAt, Newest: posts[0].PostedAt}
	for _, p := range posts[1:] {
		if p.PostedAt.Before(r.Oldest) {
			r.Oldest = p.PostedAt
		}
		if p.PostedAt.After(r.Newest) {
			r.Newest = p.PostedAt
		}
	}
	return r
}

func (c *Classifier) preview(p feed.Post) PostPreview {
	return PostPreview{
		Author:         p.AuthorUsername,
		PostedAt:       p.PostedAt,
		Kind:           p.Kind,
		CaptionPreview: Truncate(p.Caption, c.previewLength()),
	}
}

func (c *Classifier) sampleSize() int {
	if c.SampleSize <= 0 {
		return DefaultSampleSize
	}
	return c.SampleSize
}

func (c *Classifier) previewLength() int {
	if c.PreviewLength <= 0 {
		return DefaultPreviewLength
	}
	return c.PreviewLength
}

// Truncate shortens s to n runes, appending "..." when it was cut
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
