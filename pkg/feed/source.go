package feed

import (
	"context"

	"igfeedprobe/pkg/instagram"
)

// PageSource returns one page of a cursor-paginated feed. The cursor is empty
// for the first page.
type PageSource interface {
	Page(ctx context.Context, cursor string) (*instagram.FeedPage, error)
}

// PageFunc adapts a function to PageSource
type PageFunc func(ctx context.Context, cursor string) (*instagram.FeedPage, error)

func (f PageFunc) Page(ctx context.Context, cursor string) (*instagram.FeedPage, error) {
	return f(ctx, cursor)
}

// TimelineClient is the part of the API client needed for the home timeline
type TimelineClient interface {
	TimelinePage(ctx context.Context, maxID string, params instagram.TimelineParams) (*instagram.FeedPage, error)
}

// UserFeedClient is the part of the API client needed for a user's own posts
type UserFeedClient interface {
	UserFeedPage(ctx context.Context, userID, maxID string, count int) (*instagram.FeedPage, error)
}

// TimelineSource pages through the home timeline with fixed overrides
func TimelineSource(client TimelineClient, params instagram.TimelineParams) PageSource {
	return PageFunc(func(ctx context.Context, cursor string) (*instagram.FeedPage, error) {
		return client.TimelinePage(ctx, cursor, params)
	})
}

// UserFeedSource pages through one account's own posts
func UserFeedSource(client UserFeedClient, userID string, pageSize int) PageSource {
	return PageFunc(func(ctx context.Context, cursor string) (*instagram.FeedPage, error) {
		return client.UserFeedPage(ctx, userID, cursor, pageSize)
	})
}
