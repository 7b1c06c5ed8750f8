package utils

import (
	"strings"
	"testing"
	"time"
)

func TestHumanizedDate(t *testing.T) {
	stamp := time.Date(2025, 6, 5, 14, 3, 9, 0, time.Local)
	if got := HumanizedDate(stamp); got != "2025-06-05@14h03m09s" {
		t.Errorf("HumanizedDate = %q", got)
	}
}

func TestMessageDateRoundTrip(t *testing.T) {
	stamp := time.Date(2025, 6, 5, 14, 3, 0, 0, time.Local)
	formatted := MessageDate(stamp)
	if !strings.Contains(formatted, "June 5, 2025") {
		t.Fatalf("unexpected format: %q", formatted)
	}
	if !strings.HasSuffix(formatted, "pm") {
		t.Fatalf("expected lowercase meridiem suffix: %q", formatted)
	}
	if got := ParseMessageDate(formatted); got != stamp.UnixMilli() {
		t.Errorf("ParseMessageDate(%q) = %d, want %d", formatted, got, stamp.UnixMilli())
	}
}

func TestParseMessageDateInvalid(t *testing.T) {
	if got := ParseMessageDate("not a date"); got != 0 {
		t.Errorf("expected 0 for garbage, got %d", got)
	}
	if got := ParseMessageDate(""); got != 0 {
		t.Errorf("expected 0 for empty, got %d", got)
	}
}

func TestBackupTimestamp(t *testing.T) {
	stamp := time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)
	if got := BackupTimestamp(stamp); got != "20250102-030405" {
		t.Errorf("BackupTimestamp = %q", got)
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("line one\nline two"); got != "line one line two" {
		t.Errorf("Preview = %q", got)
	}
	long := strings.Repeat("a", 150)
	got := Preview(long)
	if len([]rune(got)) != 100 {
		t.Errorf("expected 100 runes, got %d", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipsis suffix: %q", got)
	}
}
