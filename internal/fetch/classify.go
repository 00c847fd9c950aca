package fetch

import (
	"strings"

	"github.com/ytvault/playlist-tracker-go/internal/models"
)

// ClassifyAvailability maps the free-text availability value reported by the
// extraction tool onto the closed status set. Unknown values default to LIVE;
// absence of the video entirely is handled by the reconciler, not here.
func ClassifyAvailability(availability string) models.VideoStatus {
	switch strings.ToLower(strings.TrimSpace(availability)) {
	case "private", "premium_only", "subscriber_only":
		return models.StatusPrivate
	case "needs_auth", "unlisted", "public", "":
		return models.StatusLive
	default:
		return models.StatusLive
	}
}

// ClassifyErrorText maps a per-entry extraction error message onto the closed
// status set. The tool reports failures as free text; this heuristic is kept
// out of the reconciler so it can be tested and revised on its own.
func ClassifyErrorText(msg string) models.VideoStatus {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "private"):
		return models.StatusPrivate
	case strings.Contains(lower, "deleted"), strings.Contains(lower, "removed"),
		strings.Contains(lower, "not available"), strings.Contains(lower, "no longer available"):
		return models.StatusDeleted
	default:
		return models.StatusUnavailable
	}
}
