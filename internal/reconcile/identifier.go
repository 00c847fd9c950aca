package reconcile

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ytvault/playlist-tracker-go/internal/models"
)

// PlaceholderPrefix marks identifiers synthesized for entries whose real
// identifier could not be recovered. Placeholder identifiers must never be
// used for cross-playlist deduplication or archival naming; callers check
// with IsPlaceholderID before anything externally visible.
const PlaceholderPrefix = "missing:"

// videoIDPattern is the canonical 11-character identifier shape.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// embeddedIDPatterns locate an identifier inside URL-shaped strings, in
// order of specificity.
var embeddedIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{11})(?:[&#]|$)`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})(?:[?&#/]|$)`),
	regexp.MustCompile(`/(?:shorts|embed|live|v)/([A-Za-z0-9_-]{11})(?:[?&#/]|$)`),
	regexp.MustCompile(`/vi/([A-Za-z0-9_-]{11})/`),
}

// IsValidVideoID reports whether id matches the canonical identifier shape.
func IsValidVideoID(id string) bool {
	return videoIDPattern.MatchString(id)
}

// IsPlaceholderID reports whether id was synthesized for an unresolvable
// entry.
func IsPlaceholderID(id string) bool {
	return strings.HasPrefix(id, PlaceholderPrefix)
}

// PlaceholderID synthesizes the identifier for an unresolvable entry at the
// given 1-based playlist position. The result is deterministic in the
// position so the same missing entry resolves identically across fetches.
func PlaceholderID(index int) string {
	return fmt.Sprintf("%s%04d", PlaceholderPrefix, index)
}

// ExtractVideoID scans a URL-shaped string for an embedded identifier.
func ExtractVideoID(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	for _, p := range embeddedIDPatterns {
		if m := p.FindStringSubmatch(raw); m != nil {
			return m[1], true
		}
	}
	// A bare watch URL sometimes arrives percent-encoded.
	if decoded, err := url.QueryUnescape(raw); err == nil && decoded != raw {
		for _, p := range embeddedIDPatterns {
			if m := p.FindStringSubmatch(decoded); m != nil {
				return m[1], true
			}
		}
	}
	return "", false
}

// ResolveVideoID resolves the identifier for a fetched entry at the given
// 1-based position. Recovery is attempted in order: the explicit identifier
// field when it has the expected shape, then identifiers embedded in
// URL-shaped fields, then a synthesized placeholder. The second return is
// false when a placeholder was synthesized.
func ResolveVideoID(entry models.FetchEntry, index int) (string, bool) {
	if entry.VideoID != nil && IsValidVideoID(*entry.VideoID) {
		return *entry.VideoID, true
	}
	for _, raw := range []*string{entry.URL, entry.WebpageURL, entry.Thumbnail} {
		if raw == nil {
			continue
		}
		if id, ok := ExtractVideoID(*raw); ok {
			return id, true
		}
	}
	return PlaceholderID(index), false
}
