package utils

import (
	"strings"
)

// reservedNames are Windows device names that cannot be used as file stems.
var reservedNames = map[string]struct{}{
	"con": {}, "prn": {}, "aux": {}, "nul": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {},
	"com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {},
	"lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

func isReserved(name string) bool {
	lower := strings.ToLower(name)
	if lower == "" || lower == "." || lower == ".." {
		return true
	}
	_, ok := reservedNames[lower]
	return ok
}

// SanitizeFilename makes a name safe to use as a path component. Filesystem
// separators and other characters that are invalid on Windows become
// underscores; surrounding whitespace and dots are trimmed; reserved device
// names collapse to the empty string so callers can substitute a fallback.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			b.WriteRune('_')
		default:
			if r < 0x20 {
				b.WriteRune('_')
			} else {
				b.WriteRune(r)
			}
		}
	}
	trimmed := strings.Trim(b.String(), " .")
	if isReserved(trimmed) {
		return ""
	}
	return trimmed
}

// SanitizePathComponent sanitizes name and substitutes fallback when the
// result is empty.
func SanitizePathComponent(name, fallback string) string {
	sanitized := SanitizeFilename(strings.TrimSpace(name))
	if sanitized == "" {
		return fallback
	}
	return sanitized
}

// SanitizeBackupName mirrors SillyTavern's backup name normalization:
// strip invalid characters, lowercase, then map every non-alphanumeric rune
// to an underscore. Reserved names become the empty string, which callers
// treat as a refusal signal.
func SanitizeBackupName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
		default:
			if r >= 0x20 {
				b.WriteRune(r)
			}
		}
	}
	trimmed := strings.Trim(b.String(), " .")
	if isReserved(trimmed) {
		return ""
	}
	lowered := strings.ToLower(trimmed)
	var out strings.Builder
	out.Grow(len(lowered))
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			out.WriteRune(r)
		} else {
			out.WriteRune('_')
		}
	}
	return out.String()
}
