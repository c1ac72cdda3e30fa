package instagram

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"igfeedprobe/pkg/errors"
)

const (
	// TimelineEndpoint serves the home feed
	TimelineEndpoint = "feed/timeline/"

	// FollowingEndpoint is the candidate dedicated following feed
	FollowingEndpoint = "feed/following/"

	// DefaultUserFeedCount is the page size requested from feed/user/{id}/
	DefaultUserFeedCount = 12

	// MaxUserFeedCount is the largest page size the user feed accepts
	MaxUserFeedCount = 50
)

// TimelineParams are named overrides applied on top of the base timeline body.
// Empty fields are left out. Extra is applied last and may replace any field,
// including fingerprint values.
type TimelineParams struct {
	FeedViewMode    string
	TimelineType    string
	Variant         string
	IsFollowingOnly string
	FeedType        string
	Reason          string
	Extra           map[string]string
}

// Overrides flattens the params into request body fields
func (p TimelineParams) Overrides() map[string]string {
	out := make(map[string]string)
	set := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}
	set("feed_view_mode", p.FeedViewMode)
	set("timeline_type", p.TimelineType)
	set("variant", p.Variant)
	set("is_following_only", p.IsFollowingOnly)
	set("feed_type", p.FeedType)
	set("reason", p.Reason)
	for key, value := range p.Extra {
		out[key] = value
	}
	return out
}

// TimelineParamsFromMap sorts well-known keys into their named fields and keeps the rest in Extra
func TimelineParamsFromMap(params map[string]string) TimelineParams {
	var p TimelineParams
	for key, value := range params {
		switch key {
		case "feed_view_mode":
			p.FeedViewMode = value
		case "timeline_type":
			p.TimelineType = value
		case "variant":
			p.Variant = value
		case "is_following_only":
			p.IsFollowingOnly = value
		case "feed_type":
			p.FeedType = value
		case "reason":
			p.Reason = value
		default:
			if p.Extra == nil {
				p.Extra = make(map[string]string)
			}
			p.Extra[key] = value
		}
	}
	return p
}

// timelineBody builds the request body the app sends for a timeline page
func (c *Client) timelineBody(maxID string, params TimelineParams) map[string]interface{} {
	d := c.state.Device

	reason := "pull_to_refresh"
	pullToRefresh := "1"
	if maxID != "" {
		reason = "pagination"
		pullToRefresh = "0"
	}

	body := map[string]interface{}{
		"has_camera_permission": "1",
		"feed_view_info":        "[]",
		"phone_id":              d.PhoneID,
		"reason":                reason,
		"battery_level":         100,
		"timezone_offset":       d.TimezoneOffsetString(),
		"device_id":             d.UUID,
		"request_id":            d.RequestID,
		"_uuid":                 d.UUID,
		"is_charging":           0,
		"is_dark_mode":          1,
		"will_sound_on":         0,
		"session_id":            d.ClientSessionID,
		"bloks_versioning_id":   d.BloksVersioningID,
		"is_pull_to_refresh":    pullToRefresh,
	}
	if maxID != "" {
		body["max_id"] = maxID
	}

	for key, value := range params.Overrides() {
		body[key] = value
	}
	return body
}

// TimelinePage requests one page of the home feed. maxID is empty for the first page.
func (c *Client) TimelinePage(ctx context.Context, maxID string, params TimelineParams) (*FeedPage, error) {
	d := c.state.Device
	opts := RequestOptions{
		WithSignature: false,
		Headers: map[string]string{
			"X-Ads-Opt-Out":       "0",
			"X-DEVICE-ID":         d.UUID,
			"X-CM-Bandwidth-KBPS": "-1.000",
			"X-CM-Latency":        "2",
		},
	}

	var resp timelineResponse
	if err := c.PrivateRequest(ctx, TimelineEndpoint, c.timelineBody(maxID, params), opts, &resp); err != nil {
		return nil, err
	}
	return resp.page(), nil
}

// UserIDFromUsername resolves a username to its numeric account id
func (c *Client) UserIDFromUsername(ctx context.Context, username string) (string, error) {
	user, err := c.UserInfoByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	return user.PK.String(), nil
}

// UserInfoByUsername fetches the profile of username
func (c *Client) UserInfoByUsername(ctx context.Context, username string) (*User, error) {
	username = SanitizeUsername(username)
	if !IsValidUsername(username) {
		return nil, errors.New(errors.ErrorTypeNotFound, 0, "invalid username %q", username)
	}

	var resp userResponse
	endpoint := fmt.Sprintf("users/%s/usernameinfo/", url.PathEscape(username))
	if err := c.PrivateRequest(ctx, endpoint, nil, RequestOptions{}, &resp); err != nil {
		return nil, err
	}
	if resp.User.PK == "" {
		return nil, errors.New(errors.ErrorTypeNotFound, 0, "user %q not found", username)
	}
	return &resp.User, nil
}

// UserInfo fetches the profile of a numeric account id
func (c *Client) UserInfo(ctx context.Context, userID string) (*User, error) {
	var resp userResponse
	endpoint := fmt.Sprintf("users/%s/info/", url.PathEscape(userID))
	if err := c.PrivateRequest(ctx, endpoint, nil, RequestOptions{}, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// UserFeedPage requests one page of a user's own posts, newest first
func (c *Client) UserFeedPage(ctx context.Context, userID, maxID string, count int) (*FeedPage, error) {
	if count <= 0 {
		count = DefaultUserFeedCount
	} else if count > MaxUserFeedCount {
		count = MaxUserFeedCount
	}

	query := url.Values{}
	query.Set("count", strconv.Itoa(count))
	if maxID != "" {
		query.Set("max_id", maxID)
	}

	var resp userFeedResponse
	endpoint := fmt.Sprintf("feed/user/%s/", url.PathEscape(userID))
	if err := c.PrivateRequest(ctx, endpoint, nil, RequestOptions{Query: query}, &resp); err != nil {
		return nil, err
	}
	return resp.page(), nil
}

// ProbeEndpoint sends a minimal device-identified request to endpoint.
// It reports exists=false with a nil error when the server answers not-found;
// any other failure is returned as the error.
func (c *Client) ProbeEndpoint(ctx context.Context, endpoint string) (bool, error) {
	d := c.state.Device
	payload := map[string]interface{}{
		"phone_id":  d.PhoneID,
		"device_id": d.UUID,
		"_uuid":     d.UUID,
	}

	err := c.PrivateRequest(ctx, endpoint, payload, RequestOptions{WithSignature: false}, nil)
	switch {
	case err == nil:
		return true, nil
	case errors.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername strips a leading @ and trailing slashes or spaces
func SanitizeUsername(username string) string {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	return strings.TrimRight(username, "/ ")
}
