package analysis

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igfeedprobe/pkg/feed"
)

var base = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func post(author string, at time.Time) feed.Post {
	return feed.Post{
		ID:             fmt.Sprintf("%s-%d", author, at.Unix()),
		AuthorUsername: author,
		PostedAt:       at,
		Kind:           feed.KindPhoto,
	}
}

func TestChronologicalFlag(t *testing.T) {
	tests := []struct {
		name  string
		times []time.Time
		want  bool
	}{
		{"newest first", []time.Time{base, base.Add(-time.Hour), base.Add(-2 * time.Hour)}, true},
		{"oldest first", []time.Time{base.Add(-2 * time.Hour), base.Add(-time.Hour), base}, false},
		{"unsorted", []time.Time{base, base.Add(-time.Hour), base.Add(-30 * time.Minute)}, false},
		{"equal timestamps", []time.Time{base, base, base}, true},
		{"single post", []time.Time{base}, true},
		{"empty", nil, false},
	}

	c := NewClassifier("a", 10)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var posts []feed.Post
			for _, ts := range tt.times {
				posts = append(posts, post("a", ts))
			}
			assert.Equal(t, tt.want, c.Classify("k", "label", posts).IsChronological)
		})
	}
}

func TestClassifyPrimaryThreshold(t *testing.T) {
	var posts []feed.Post
	for i := 0; i < 12; i++ {
		posts = append(posts, post("A", base.Add(-time.Duration(i)*time.Minute)))
	}
	for i := 0; i < 3; i++ {
		posts = append(posts, post("B", base.Add(-time.Duration(20+i)*time.Minute)))
	}

	out := NewClassifier("A", 10).Classify("baseline", "Baseline", posts)

	assert.True(t, out.Success)
	assert.Equal(t, 15, out.TotalPosts)
	assert.Equal(t, 12, out.PrimaryPosts)
	assert.Len(t, out.PrimaryPostsList, 12)
	assert.Equal(t, []string{"B"}, out.OtherAuthors)
	assert.Equal(t, 1, out.OtherAuthorsCount)
	assert.True(t, out.IsChronological)
}

func TestClassifyAuthorPartition(t *testing.T) {
	posts := []feed.Post{
		post("c", base),
		post("primary", base.Add(-time.Minute)),
		post("b", base.Add(-2*time.Minute)),
		post("c", base.Add(-3*time.Minute)),
		post("b", base.Add(-4*time.Minute)),
	}

	out := NewClassifier("primary", 10).Classify("k", "l", posts)

	sum := 0
	for _, n := range out.AuthorCounts {
		sum += n
	}
	assert.Equal(t, out.TotalPosts, sum)
	assert.Equal(t, []string{"b", "c"}, out.OtherAuthors)
	assert.False(t, out.Success)
}

func TestClassifyDateRange(t *testing.T) {
	posts := []feed.Post{
		post("a", base.Add(-time.Hour)),
		post("a", base),
		post("a", base.Add(-72*time.Hour)),
	}

	out := NewClassifier("a", 1).Classify("k", "l", posts)
	require.NotNil(t, out.DateRange)
	assert.Equal(t, base.Add(-72*time.Hour), out.DateRange.Oldest)
	assert.Equal(t, base, out.DateRange.Newest)
	assert.Equal(t, 3, out.DateRange.Days())
}

func TestClassifyEmpty(t *testing.T) {
	out := NewClassifier("a", 10).Classify("k", "l", nil)

	assert.Equal(t, 0, out.TotalPosts)
	assert.Equal(t, 0, out.PrimaryPosts)
	assert.Nil(t, out.DateRange)
	assert.False(t, out.IsChronological)
	assert.False(t, out.Success)
	assert.NotNil(t, out.OtherAuthors)
	assert.NotNil(t, out.PostsDetail)
	assert.Equal(t, 0, out.DateRange.Days())
}

func TestClassifySampleAndPreview(t *testing.T) {
	var posts []feed.Post
	for i := 0; i < 30; i++ {
		p := post("a", base.Add(-time.Duration(i)*time.Minute))
		p.Caption = strings.Repeat("x", 80)
		posts = append(posts, p)
	}

	out := NewClassifier("a", 10).Classify("k", "l", posts)
	require.Len(t, out.PostsDetail, 20)
	assert.Equal(t, strings.Repeat("x", 60)+"...", out.PostsDetail[0].CaptionPreview)
}

func TestClassifyResultCarriesStats(t *testing.T) {
	result := feed.Result{
		Posts:              []feed.Post{post("a", base)},
		Pages:              3,
		AdsSkipped:         2,
		ConversionFailures: 1,
		StopReason:         feed.StopRequestFailed,
		Err:                errors.New("timeout"),
	}

	out := NewClassifier("a", 1).ClassifyResult("k", "l", result)
	assert.Equal(t, 3, out.Pages)
	assert.Equal(t, 2, out.AdsSkipped)
	assert.Equal(t, 1, out.ConversionFailures)
	assert.Equal(t, feed.StopRequestFailed, out.StopReason)
	assert.Equal(t, "timeout", out.Error)
	assert.True(t, out.Success)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 60))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
	assert.Equal(t, "kō...", Truncate("kōrero", 2))
	assert.Equal(t, "", Truncate("", 5))
}
