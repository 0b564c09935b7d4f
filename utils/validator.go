package utils

import (
	"strings"
	"time"
)

// timestampLayouts are the formats accepted for imported timestamps; token
// history exports use RFC3339, some older dumps use a space-separated form.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp parses a timestamp string in any of the accepted layouts.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// IsValidISODate checks that a string parses as an ISO-8601 timestamp.
func IsValidISODate(value string) bool {
	if !strings.Contains(value, "T") {
		return false
	}
	_, ok := ParseTimestamp(value)
	return ok
}
