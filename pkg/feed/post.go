package feed

import (
	"fmt"
	"time"

	"igfeedprobe/pkg/instagram"
)

// Kind is the broad category of a post
type Kind string

const (
	KindPhoto    Kind = "photo"
	KindVideo    Kind = "video"
	KindReel     Kind = "reel"
	KindCarousel Kind = "carousel"
	KindUnknown  Kind = "unknown"
)

// Post is a validated feed item. It is built once from raw media and not
// modified afterwards.
type Post struct {
	ID             string    `json:"id"`
	Code           string    `json:"code,omitempty"`
	AuthorUsername string    `json:"author_username"`
	AuthorID       string    `json:"author_id,omitempty"`
	PostedAt       time.Time `json:"posted_at"`
	Kind           Kind      `json:"kind"`
	Caption        string    `json:"caption,omitempty"`
}

// NewPost converts raw media into a Post. Media without an identifier, an
// author or a capture time is rejected.
func NewPost(m *instagram.Media) (Post, error) {
	if m == nil {
		return Post{}, fmt.Errorf("media is nil")
	}

	id := m.ID
	if id == "" {
		id = m.PK.String()
	}
	if id == "" {
		return Post{}, fmt.Errorf("media has no id")
	}
	if m.User == nil || m.User.Username == "" {
		return Post{}, fmt.Errorf("media %s has no author", id)
	}
	if m.TakenAt <= 0 {
		return Post{}, fmt.Errorf("media %s has no timestamp", id)
	}

	return Post{
		ID:             id,
		Code:           m.Code,
		AuthorUsername: m.User.Username,
		AuthorID:       m.User.PK.String(),
		PostedAt:       m.TakenAtTime(),
		Kind:           kindOf(m),
		Caption:        m.CaptionText(),
	}, nil
}

func kindOf(m *instagram.Media) Kind {
	switch m.MediaType {
	case instagram.MediaTypePhoto:
		return KindPhoto
	case instagram.MediaTypeVideo:
		if m.ProductType == "clips" {
			return KindReel
		}
		return KindVideo
	case instagram.MediaTypeCarousel:
		return KindCarousel
	default:
		return KindUnknown
	}
}
