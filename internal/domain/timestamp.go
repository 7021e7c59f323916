package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// spaceDateTimeRe matches "YYYY-MM-DD HH:MM..." which some integrations emit
// instead of the ISO "T" separator.
var spaceDateTimeRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s+(\d{2}:\d{2})`)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseTimestamp parses the timestamp-like strings found in alert records:
// RFC 3339 (with or without zone), the space-separated variant, date-only
// values and epoch milliseconds. Values without a zone are taken as UTC.
// It never fails loudly; ok is false when nothing matched.
func ParseTimestamp(value string) (time.Time, bool) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return time.Time{}, false
	}

	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), true
	}

	raw = spaceDateTimeRe.ReplaceAllString(raw, "${1}T${2}")

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
