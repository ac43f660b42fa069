package background

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrNoImage = errors.New("no image url could be resolved")

var imageURLPattern = regexp.MustCompile(`(?i)https?://[^\s<>"]+\.(jpg|jpeg|png|gif|webp|bmp)`)

// ResolveJSONPath walks a dotted path like "data.images.0.url" through
// a decoded json document. Only string leaves resolve.
func ResolveJSONPath(document any, path string) (string, bool) {
	current := document

	for _, key := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[key]
			if !ok {
				return "", false
			}
			current = value
		case []any:
			index, err := strconv.Atoi(key)
			if err != nil || index < 0 || index >= len(node) {
				return "", false
			}
			current = node[index]
		default:
			return "", false
		}
	}

	value, ok := current.(string)
	return value, ok
}

// ResolveText returns the first image url embedded in text,
// falling back to the last line of the trimmed text
func ResolveText(text string) string {
	if match := imageURLPattern.FindString(text); match != "" {
		return match
	}

	lines := strings.Split(strings.TrimSpace(text), "\n")

	return strings.TrimSpace(lines[len(lines)-1])
}

// CacheBustedURL appends a `_t` query parameter holding the
// epoch milliseconds of now so every request fetches a new image
func CacheBustedURL(apiURL string, now time.Time) string {
	separator := "?"
	if strings.Contains(apiURL, "?") {
		separator = "&"
	}

	return apiURL + separator + "_t=" + strconv.FormatInt(now.UnixMilli(), 10)
}
