package transcode

import (
	"strings"
	"time"
)

// correlationTag prefixes every generated correlation ID.
const correlationTag = "test"

// NewCorrelationID returns a lexically sortable, human-readable identifier
// for one interactive tuning session: the current instant truncated to whole
// seconds, with colons replaced so the value stays filesystem- and URL-safe,
// e.g. "test-2026-08-25T09-30-12Z". Two calls within the same second collide;
// that is acceptable for its use as a session-scoped default identifier and
// callers needing uniqueness supply their own.
func NewCorrelationID() string {
	return newCorrelationIDAt(time.Now())
}

func newCorrelationIDAt(now time.Time) string {
	ts := now.UTC().Truncate(time.Second).Format(time.RFC3339)
	return correlationTag + "-" + strings.ReplaceAll(ts, ":", "-")
}
