package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igfeedprobe/pkg/errors"
	"igfeedprobe/pkg/instagram"
	"igfeedprobe/pkg/logger"
)

func mediaJSON(id int, author string, takenAt int64) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"pk":%d,"id":"%d_1","code":"C%d","taken_at":%d,"media_type":1,"user":{"pk":1,"username":%q}}`,
		id, id, id, takenAt, author))
}

func pageOf(next string, items ...json.RawMessage) *instagram.FeedPage {
	page := &instagram.FeedPage{NextMaxID: next, MoreAvailable: next != ""}
	for _, item := range items {
		page.Items = append(page.Items, instagram.NewRawItem(item))
	}
	return page
}

// scripted serves pages in order and records the cursors it was asked for
type scripted struct {
	pages   []*instagram.FeedPage
	errs    map[int]error
	cursors []string
}

func (s *scripted) Page(ctx context.Context, cursor string) (*instagram.FeedPage, error) {
	idx := len(s.cursors)
	s.cursors = append(s.cursors, cursor)
	if err, ok := s.errs[idx]; ok {
		return nil, err
	}
	if idx >= len(s.pages) {
		return pageOf(""), nil
	}
	return s.pages[idx], nil
}

// endless returns a full page with a fresh cursor on every call
type endless struct {
	perPage int
	calls   int
}

func (e *endless) Page(ctx context.Context, cursor string) (*instagram.FeedPage, error) {
	e.calls++
	items := make([]json.RawMessage, e.perPage)
	for i := range items {
		items[i] = mediaJSON(e.calls*1000+i, "someone", int64(1700000000-e.calls*100-i))
	}
	return pageOf(fmt.Sprintf("cursor-%d", e.calls), items...), nil
}

func TestFetchStopsAtTarget(t *testing.T) {
	src := &endless{perPage: 8}
	f := NewFetcher(0, logger.NewTestLogger())

	result, err := f.Fetch(context.Background(), src, Options{Target: 20, MaxPages: 15})
	require.NoError(t, err)

	assert.Len(t, result.Posts, 20)
	assert.Equal(t, 3, result.Pages)
	assert.Equal(t, StopTargetReached, result.StopReason)
}

func TestFetchNeverExceedsLimits(t *testing.T) {
	f := NewFetcher(0, nil)

	for _, tc := range []struct{ perPage, target, maxPages int }{
		{1, 50, 15},
		{7, 10, 3},
		{50, 50, 1},
		{3, 100, 4},
		{0, 5, 5},
	} {
		t.Run(fmt.Sprintf("per%d_target%d_pages%d", tc.perPage, tc.target, tc.maxPages), func(t *testing.T) {
			src := &endless{perPage: tc.perPage}
			result, err := f.Fetch(context.Background(), src, Options{Target: tc.target, MaxPages: tc.maxPages})
			require.NoError(t, err)
			assert.LessOrEqual(t, len(result.Posts), tc.target)
			assert.LessOrEqual(t, result.Pages, tc.maxPages)
			assert.LessOrEqual(t, src.calls, tc.maxPages)
		})
	}
}

func TestFetchPageLimit(t *testing.T) {
	src := &endless{perPage: 2}
	result, err := NewFetcher(0, nil).Fetch(context.Background(), src, Options{Target: 50, MaxPages: 4})
	require.NoError(t, err)

	assert.Equal(t, 4, src.calls)
	assert.Len(t, result.Posts, 8)
	assert.Equal(t, StopPageLimit, result.StopReason)
}

func TestFetchEmptyPage(t *testing.T) {
	src := &scripted{pages: []*instagram.FeedPage{
		pageOf("c1", mediaJSON(1, "a", 1700000000)),
		pageOf("c2"),
	}}

	result, err := NewFetcher(0, nil).Fetch(context.Background(), src, Options{Target: 50, MaxPages: 15})
	require.NoError(t, err)

	assert.Equal(t, StopEmptyPage, result.StopReason)
	assert.Equal(t, 2, result.Pages)
	assert.Len(t, result.Posts, 1)
	assert.Equal(t, []string{"", "c1"}, src.cursors)
}

func TestFetchRepeatedCursor(t *testing.T) {
	src := &scripted{pages: []*instagram.FeedPage{
		pageOf("same", mediaJSON(1, "a", 1700000003)),
		pageOf("same", mediaJSON(2, "a", 1700000002)),
		pageOf("same", mediaJSON(3, "a", 1700000001)),
	}}

	result, err := NewFetcher(0, nil).Fetch(context.Background(), src, Options{Target: 50, MaxPages: 15})
	require.NoError(t, err)

	assert.Equal(t, StopRepeatedCursor, result.StopReason)
	assert.Equal(t, 2, result.Pages)
	assert.Len(t, result.Posts, 2)
}

func TestFetchEndOfFeed(t *testing.T) {
	src := &scripted{pages: []*instagram.FeedPage{
		pageOf("", mediaJSON(1, "a", 1700000000)),
	}}

	result, err := NewFetcher(0, nil).Fetch(context.Background(), src, Options{Target: 50, MaxPages: 15})
	require.NoError(t, err)

	assert.Equal(t, StopEndOfFeed, result.StopReason)
	assert.Equal(t, 1, result.Pages)
}

func TestFetchTargetTakesPriorityOverCursor(t *testing.T) {
	src := &scripted{pages: []*instagram.FeedPage{
		pageOf("", mediaJSON(1, "a", 1700000001), mediaJSON(2, "a", 1700000000)),
	}}

	result, err := NewFetcher(0, nil).Fetch(context.Background(), src, Options{Target: 2, MaxPages: 1})
	require.NoError(t, err)
	assert.Equal(t, StopTargetReached, result.StopReason)
}

func TestFetchSkipsAdsAndMalformedItems(t *testing.T) {
	log := logger.NewTestLogger()
	src := &scripted{pages: []*instagram.FeedPage{
		{
			Items: []instagram.RawItem{
				instagram.NewRawItem(mediaJSON(1, "a", 1700000005)),
				instagram.NewRawItem(json.RawMessage(`{"pk":2,"taken_at":1700000004,"user":{"username":"brand"},"dr_ad_type":1}`)),
				instagram.NewRawItem(json.RawMessage(`{"pk":3,"taken_at":1700000003,"user":{"username":"partner"},"is_paid_partnership":true}`)),
				instagram.NewRawItem(json.RawMessage(`{"pk":4,"taken_at":1700000002}`)),
				instagram.NewRawItem(json.RawMessage(`{"pk":"x","taken_at":"yesterday"}`)),
				instagram.NewRawItem(nil),
				instagram.NewRawItem(mediaJSON(5, "b", 1700000001)),
			},
		},
	}}

	result, err := NewFetcher(0, log).Fetch(context.Background(), src, Options{Target: 50, MaxPages: 15})
	require.NoError(t, err)

	require.Len(t, result.Posts, 2)
	assert.Equal(t, "a", result.Posts[0].AuthorUsername)
	assert.Equal(t, "b", result.Posts[1].AuthorUsername)
	assert.Equal(t, 2, result.AdsSkipped)
	assert.Equal(t, 2, result.ConversionFailures)
	assert.Len(t, log.GetMessagesByLevel("WARN"), 2)
}

func TestFetchFirstPageErrorIsReturned(t *testing.T) {
	boom := errors.New(errors.ErrorTypeNetwork, 0, "connection reset")
	src := &scripted{errs: map[int]error{0: boom}}

	result, err := NewFetcher(0, nil).Fetch(context.Background(), src, Options{Target: 50, MaxPages: 15})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNetwork))
	assert.Empty(t, result.Posts)
}

func TestFetchLaterPageErrorKeepsPartialResults(t *testing.T) {
	log := logger.NewTestLogger()
	src := &scripted{
		pages: []*instagram.FeedPage{
			pageOf("c1", mediaJSON(1, "a", 1700000002), mediaJSON(2, "a", 1700000001)),
		},
		errs: map[int]error{1: errors.New(errors.ErrorTypeServerError, 502, "bad gateway")},
	}

	result, err := NewFetcher(0, log).Fetch(context.Background(), src, Options{Target: 50, MaxPages: 15})
	require.NoError(t, err)

	assert.Len(t, result.Posts, 2)
	assert.Equal(t, StopRequestFailed, result.StopReason)
	assert.Error(t, result.Err)
	assert.True(t, log.HasError())
}

func TestFetchInvalidOptions(t *testing.T) {
	f := NewFetcher(0, nil)
	_, err := f.Fetch(context.Background(), &endless{perPage: 1}, Options{Target: 0, MaxPages: 1})
	assert.Error(t, err)
	_, err = f.Fetch(context.Background(), &endless{perPage: 1}, Options{Target: 1, MaxPages: 0})
	assert.Error(t, err)
}

func TestFetchHonoursPageDelay(t *testing.T) {
	src := &endless{perPage: 1}
	start := time.Now()

	_, err := NewFetcher(20*time.Millisecond, nil).Fetch(context.Background(), src, Options{Target: 3, MaxPages: 3})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestFetchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := PageFunc(func(ctx context.Context, cursor string) (*instagram.FeedPage, error) {
		cancel()
		return pageOf("next", mediaJSON(1, "a", 1700000000)), nil
	})

	result, err := NewFetcher(time.Hour, nil).Fetch(ctx, src, Options{Target: 10, MaxPages: 5})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, result.Posts, 1)
}

type fakeTimeline struct {
	params instagram.TimelineParams
	maxIDs []string
}

func (f *fakeTimeline) TimelinePage(ctx context.Context, maxID string, params instagram.TimelineParams) (*instagram.FeedPage, error) {
	f.params = params
	f.maxIDs = append(f.maxIDs, maxID)
	return pageOf(""), nil
}

func TestTimelineSourcePassesParams(t *testing.T) {
	client := &fakeTimeline{}
	src := TimelineSource(client, instagram.TimelineParams{FeedViewMode: "following"})

	_, err := src.Page(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "following", client.params.FeedViewMode)
	assert.Equal(t, []string{"abc"}, client.maxIDs)
}
