// Package instagram is a minimal client for Instagram's private mobile API.
//
// It covers only what the feed probe needs:
//   - a persisted device fingerprint and session (login, session reuse, logout)
//   - PrivateRequest, which signs or sends raw JSON bodies and maps failures to
//     typed errors from pkg/errors
//   - one page of the home timeline with arbitrary parameter overrides
//   - username lookup, user info and one page of a user's own feed
//   - a bare probe of an endpoint's existence
//
// Feed pages are returned undecoded per item (RawItem) so callers decide how to
// treat a malformed entry.
//
//	client := instagram.NewClient(cfg.Instagram, session.NewStore(cfg.Instagram.SessionFile, log), log)
//	if err := client.Login(ctx, cfg.Instagram.Username, cfg.Instagram.Password); err != nil {
//	    return err
//	}
//	page, err := client.TimelinePage(ctx, "", instagram.TimelineParams{FeedViewMode: "following"})
package instagram
