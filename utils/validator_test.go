package utils

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{"RFC3339", "2024-01-01T10:00:00Z", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), true},
		{"RFC3339 with millis", "2024-01-01T10:00:00.500Z", time.Date(2024, 1, 1, 10, 0, 0, 500000000, time.UTC), true},
		{"Space separated", "2024-01-01 10:00:00", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), true},
		{"Space separated no seconds", "2024-01-01 10:00", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), true},
		{"Leading whitespace", "  2024-01-01T10:00:00Z", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), true},
		{"Empty", "", time.Time{}, false},
		{"Garbage", "not a date", time.Time{}, false},
		{"Date only", "2024-01-01", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseTimestamp(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValidISODate(t *testing.T) {
	if !IsValidISODate("2024-01-01T10:00:00Z") {
		t.Error("expected RFC3339 timestamp to be valid")
	}
	if IsValidISODate("2024-01-01 10:00:00") {
		t.Error("expected timestamp without T separator to be rejected")
	}
	if IsValidISODate("") {
		t.Error("expected empty string to be rejected")
	}
}
