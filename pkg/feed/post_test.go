package feed

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igfeedprobe/pkg/instagram"
)

func decode(t *testing.T, doc string) *instagram.Media {
	t.Helper()
	m, err := instagram.NewRawItem(json.RawMessage(doc)).Media()
	require.NoError(t, err)
	return m
}

func TestNewPost(t *testing.T) {
	m := decode(t, `{"pk":"311","id":"311_42","code":"Cabc","taken_at":1700000000,"media_type":8,
		"user":{"pk":42,"username":"radionewzealand"},"caption":{"text":"News at six"}}`)

	post, err := NewPost(m)
	require.NoError(t, err)

	assert.Equal(t, "311_42", post.ID)
	assert.Equal(t, "Cabc", post.Code)
	assert.Equal(t, "radionewzealand", post.AuthorUsername)
	assert.Equal(t, "42", post.AuthorID)
	assert.Equal(t, KindCarousel, post.Kind)
	assert.Equal(t, "News at six", post.Caption)
	assert.Equal(t, time.UTC, post.PostedAt.Location())
}

func TestNewPostKinds(t *testing.T) {
	tests := []struct {
		doc  string
		kind Kind
	}{
		{`{"pk":1,"taken_at":1,"media_type":1,"user":{"username":"u"}}`, KindPhoto},
		{`{"pk":1,"taken_at":1,"media_type":2,"user":{"username":"u"}}`, KindVideo},
		{`{"pk":1,"taken_at":1,"media_type":2,"product_type":"clips","user":{"username":"u"}}`, KindReel},
		{`{"pk":1,"taken_at":1,"media_type":8,"user":{"username":"u"}}`, KindCarousel},
		{`{"pk":1,"taken_at":1,"media_type":99,"user":{"username":"u"}}`, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			post, err := NewPost(decode(t, tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, post.Kind)
		})
	}
}

func TestNewPostRejectsMalformed(t *testing.T) {
	tests := map[string]string{
		"no id":        `{"taken_at":1,"user":{"username":"u"}}`,
		"no author":    `{"pk":1,"taken_at":1}`,
		"empty author": `{"pk":1,"taken_at":1,"user":{"username":""}}`,
		"no timestamp": `{"pk":1,"user":{"username":"u"}}`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewPost(decode(t, doc))
			assert.Error(t, err)
		})
	}

	_, err := NewPost(nil)
	assert.Error(t, err)
}
