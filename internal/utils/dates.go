package utils

import (
	"strings"
	"time"
)

// HumanizedDate formats a timestamp the way chat file stems and create_date
// headers expect: YYYY-MM-DD@HHhMMmSSs.
func HumanizedDate(t time.Time) string {
	return t.Local().Format("2006-01-02@15h04m05s")
}

// MessageDate formats a timestamp for message send_date fields:
// "January 2, 2006 3:04pm".
func MessageDate(t time.Time) string {
	local := t.Local()
	return local.Format("January 2, 2006 3:04") + strings.ToLower(local.Format("PM"))
}

// ParseMessageDate parses a send_date previously produced by MessageDate and
// returns the timestamp in milliseconds, or 0 when it does not parse.
func ParseMessageDate(value string) int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	for _, layout := range []string{"January 2, 2006 3:04pm", "January 2, 2006 15:04"} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}

// BackupTimestamp builds a filename-safe timestamp: YYYYMMDD-HHMMSS.
func BackupTimestamp(t time.Time) string {
	return t.Local().Format("20060102-150405")
}

// Preview collapses a message to a single line of at most 100 characters,
// appending an ellipsis when truncated.
func Preview(text string) string {
	flat := strings.NewReplacer("\r", " ", "\n", " ").Replace(text)
	runes := []rune(flat)
	if len(runes) > 100 {
		return string(runes[:97]) + "..."
	}
	return flat
}
