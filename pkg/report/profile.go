package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"igfeedprobe/pkg/analysis"
	"igfeedprobe/pkg/feed"
	"igfeedprobe/pkg/instagram"
)

// RecentWindow is how far back a post counts as recent in the profile summary
const RecentWindow = 3 * 24 * time.Hour

// ProfileStats summarises posts fetched straight from one account
type ProfileStats struct {
	Total    int
	Oldest   time.Time
	Newest   time.Time
	SpanDays float64
	Recent   int
}

// SummarizeProfile computes the profile summary relative to now
func SummarizeProfile(posts []feed.Post, now time.Time) ProfileStats {
	stats := ProfileStats{Total: len(posts)}
	span := analysis.Span(posts)
	if span == nil {
		return stats
	}
	stats.Oldest = span.Oldest
	stats.Newest = span.Newest
	stats.SpanDays = span.Newest.Sub(span.Oldest).Hours() / 24
	for _, p := range posts {
		if now.Sub(p.PostedAt) <= RecentWindow {
			stats.Recent++
		}
	}
	return stats
}

// RenderProfile formats the account info, its recent posts and the summary
func RenderProfile(user *instagram.User, posts []feed.Post, now time.Time) string {
	var b strings.Builder
	rule := strings.Repeat("=", 70)

	if user != nil {
		name := user.FullName
		if name == "" {
			name = user.Username
		}
		fmt.Fprintf(&b, "Found user: %s\n", name)
		fmt.Fprintf(&b, "   Username: @%s\n", user.Username)
		fmt.Fprintf(&b, "   User ID: %s\n", user.PK)
		fmt.Fprintf(&b, "   Followers: %s\n", humanize.Comma(int64(user.FollowerCount)))
		fmt.Fprintf(&b, "   Posts: %s\n", humanize.Comma(int64(user.MediaCount)))
		if user.IsPrivate {
			b.WriteString("   Private account\n")
		}
	}

	fmt.Fprintf(&b, "\n%s\nPOSTS FETCHED:\n%s\n", rule, rule)
	for i, p := range posts {
		ageDays := now.Sub(p.PostedAt).Hours() / 24
		fmt.Fprintf(&b, "%2d. [%-8s] %s (%.1fd ago) - %s\n",
			i+1, p.Kind, p.PostedAt.UTC().Format("2006-01-02 15:04:05"), ageDays,
			analysis.Truncate(p.Caption, analysis.DefaultPreviewLength))
	}

	stats := SummarizeProfile(posts, now)
	fmt.Fprintf(&b, "\n%s\nSUMMARY:\n%s\n", rule, rule)
	fmt.Fprintf(&b, "Total posts fetched: %d\n", stats.Total)
	if stats.Total > 0 {
		fmt.Fprintf(&b, "Oldest post: %s (%s)\n", stats.Oldest.UTC().Format("2006-01-02 15:04:05"), humanize.RelTime(stats.Oldest, now, "ago", "from now"))
		fmt.Fprintf(&b, "Newest post: %s (%s)\n", stats.Newest.UTC().Format("2006-01-02 15:04:05"), humanize.RelTime(stats.Newest, now, "ago", "from now"))
		fmt.Fprintf(&b, "Timespan: %.1f days\n", stats.SpanDays)
		fmt.Fprintf(&b, "\nPosts from last 3 days: %d\n", stats.Recent)
	}

	return b.String()
}
