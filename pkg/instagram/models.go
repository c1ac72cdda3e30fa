package instagram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Media types as reported in media_type
const (
	MediaTypePhoto    = 1
	MediaTypeVideo    = 2
	MediaTypeCarousel = 8
)

// ID is an identifier the API sends either as a JSON number or a string
type ID string

// UnmarshalJSON accepts 123, "123" and null
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Flag is a loosely typed marker: non-zero numbers, true, and non-empty strings
// other than "0" and "false" are set
type Flag bool

// UnmarshalJSON implements truthiness over numbers, booleans and strings
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")), bytes.Equal(data, []byte("false")):
		*f = false
	case bytes.Equal(data, []byte("true")):
		*f = true
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Flag(s != "" && s != "0" && s != "false")
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			// Objects and arrays count as present
			*f = true
			return nil
		}
		*f = n != 0
	}
	return nil
}

// User is the account block embedded in media and user info responses
type User struct {
	PK             ID     `json:"pk"`
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	IsPrivate      bool   `json:"is_private"`
	IsVerified     bool   `json:"is_verified"`
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
	MediaCount     int    `json:"media_count"`
}

// Caption holds the post text
type Caption struct {
	Text string `json:"text"`
}

// Media is one post as returned by the feed endpoints
type Media struct {
	PK                 ID       `json:"pk"`
	ID                 string   `json:"id"`
	Code               string   `json:"code"`
	TakenAt            int64    `json:"taken_at"`
	MediaType          int      `json:"media_type"`
	ProductType        string   `json:"product_type"`
	User               *User    `json:"user"`
	Caption            *Caption `json:"caption"`
	CarouselMediaCount int      `json:"carousel_media_count"`
	DrAdType           Flag     `json:"dr_ad_type"`
	IsPaidPartnership  Flag     `json:"is_paid_partnership"`
}

// IsAd reports whether the item carries a sponsored-content marker
func (m *Media) IsAd() bool {
	return bool(m.DrAdType) || bool(m.IsPaidPartnership)
}

// TakenAtTime returns the capture time in UTC
func (m *Media) TakenAtTime() time.Time {
	return time.Unix(m.TakenAt, 0).UTC()
}

// CaptionText returns the caption or an empty string
func (m *Media) CaptionText() string {
	if m.Caption == nil {
		return ""
	}
	return m.Caption.Text
}

// RawItem is one undecoded feed entry. Decoding is deferred so that a single
// malformed item does not fail the whole page.
type RawItem struct {
	raw json.RawMessage
	err error
}

// NewRawItem wraps an undecoded media document
func NewRawItem(raw json.RawMessage) RawItem {
	return RawItem{raw: raw}
}

// Present reports whether the entry carries a media document at all
func (r RawItem) Present() bool {
	if r.err != nil {
		return true
	}
	trimmed := bytes.TrimSpace(r.raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Media decodes the entry
func (r RawItem) Media() (*Media, error) {
	if r.err != nil {
		return nil, r.err
	}
	if !r.Present() {
		return nil, fmt.Errorf("feed item has no media")
	}
	var m Media
	if err := json.Unmarshal(r.raw, &m); err != nil {
		return nil, fmt.Errorf("decode media: %w", err)
	}
	return &m, nil
}

// FeedPage is one page of any paginated media feed
type FeedPage struct {
	Items         []RawItem
	NextMaxID     string
	MoreAvailable bool
}

// timelineResponse is the feed/timeline/ body; each entry wraps its media in media_or_ad
type timelineResponse struct {
	FeedItems     []json.RawMessage `json:"feed_items"`
	NextMaxID     ID                `json:"next_max_id"`
	MoreAvailable bool              `json:"more_available"`
}

func (r *timelineResponse) page() *FeedPage {
	page := &FeedPage{
		Items:         make([]RawItem, 0, len(r.FeedItems)),
		NextMaxID:     r.NextMaxID.String(),
		MoreAvailable: r.MoreAvailable,
	}
	for _, entry := range r.FeedItems {
		var wrapper struct {
			MediaOrAd json.RawMessage `json:"media_or_ad"`
		}
		if err := json.Unmarshal(entry, &wrapper); err != nil {
			page.Items = append(page.Items, RawItem{raw: entry, err: fmt.Errorf("decode feed item: %w", err)})
			continue
		}
		page.Items = append(page.Items, RawItem{raw: wrapper.MediaOrAd})
	}
	return page
}

// userFeedResponse is the feed/user/{id}/ body; items are bare media documents
type userFeedResponse struct {
	Items         []json.RawMessage `json:"items"`
	NextMaxID     ID                `json:"next_max_id"`
	MoreAvailable bool              `json:"more_available"`
}

func (r *userFeedResponse) page() *FeedPage {
	page := &FeedPage{
		Items:         make([]RawItem, 0, len(r.Items)),
		NextMaxID:     r.NextMaxID.String(),
		MoreAvailable: r.MoreAvailable,
	}
	for _, item := range r.Items {
		page.Items = append(page.Items, RawItem{raw: item})
	}
	return page
}

// userResponse wraps user lookups
type userResponse struct {
	User User `json:"user"`
}

// loginResponse is the accounts/login/ body
type loginResponse struct {
	LoggedInUser User `json:"logged_in_user"`
}
