package background

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitTestResolveJSONPath(t *testing.T) {
	var document any
	err := json.Unmarshal([]byte(`{
		"url": "https://img.example/a.png",
		"data": {"images": [{"src": "https://img.example/b.jpg"}, {"src": 3}]},
		"count": 2
	}`), &document)
	require.NoError(t, err)

	testCases := []struct {
		path     string
		expected string
		ok       bool
	}{
		{path: "url", expected: "https://img.example/a.png", ok: true},
		{path: "data.images.0.src", expected: "https://img.example/b.jpg", ok: true},
		{path: "data.images.1.src"},
		{path: "data.images.2.src"},
		{path: "data.images.x"},
		{path: "count"},
		{path: "missing.path"},
		{path: "url.deeper"},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			value, ok := ResolveJSONPath(document, tc.path)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, value)
		})
	}
}

func TestUnitTestResolveText(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "embedded image url",
			text:     `<a href="https://img.example/photos/cat.JPEG">cat</a>`,
			expected: "https://img.example/photos/cat.JPEG",
		},
		{
			name:     "first of many",
			text:     "http://a.example/1.png http://a.example/2.png",
			expected: "http://a.example/1.png",
		},
		{
			name:     "plain url falls back to last line",
			text:     "header\nhttps://img.example/random?id=4\n\n",
			expected: "https://img.example/random?id=4",
		},
		{
			name:     "single line",
			text:     "  /local/image  ",
			expected: "/local/image",
		},
		{
			name: "blank",
			text: " \n ",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ResolveText(tc.text))
		})
	}
}

func TestUnitTestCacheBustedURL(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	assert.Equal(t, "http://x/img?_t=1700000000123", CacheBustedURL("http://x/img", now))
	assert.Equal(t, "http://x/img?foo=1&_t=1700000000123", CacheBustedURL("http://x/img?foo=1", now))
	assert.Regexp(t, `^http://x/img\?foo=1&_t=\d+$`, CacheBustedURL("http://x/img?foo=1", time.Now()))
}
