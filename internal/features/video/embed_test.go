package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leap-learning/leap-server/pkg/types"
)

func TestEmbedID(t *testing.T) {
	cases := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":       "dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s": "dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ":         "dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ/extra":   "dQw4w9WgXcQ",
		"https://www.youtube.com/watch/dQw4w9WgXcQ":         "dQw4w9WgXcQ",
		"https://youtube.com/shorts/abc123":                 "abc123",
		"https://youtu.be/dQw4w9WgXcQ?si=share":             "dQw4w9WgXcQ",
		"  dQw4w9WgXcQ  ":                                   "dQw4w9WgXcQ",
		"youtube.com/watch?v=xyz&list=1":                    "xyz",
		"not a url at all":                                  "not a url at all",
		"":                                                  "",
		"https://example.com/some/page":                     "https://example.com/some/page",
	}
	for in, want := range cases {
		assert.Equal(t, want, EmbedID(in), in)
	}
}

func TestPlaybackID(t *testing.T) {
	assert.Equal(t, "abc", Selection{Kind: types.VideoKindVideo, VideoID: "abc"}.PlaybackID())
	assert.Equal(t, "xyz", Selection{Kind: types.VideoKindCustom, CustomURL: "https://youtu.be/xyz"}.PlaybackID())
	assert.Empty(t, Selection{Kind: types.VideoKindSkipped}.PlaybackID())
}
