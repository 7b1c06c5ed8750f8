package utils

import "testing"

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"normal_name", "normal_name"},
		{"name with spaces", "name with spaces"},
		{`name/with\unsafe:chars`, "name_with_unsafe_chars"},
		{`name*with?more"unsafe<chars>`, "name_with_more_unsafe_chars_"},
		{"  trimmed  ", "trimmed"},
		{"dots...", "dots"},
		{"CON", ""},
		{"com7", ""},
		{"LPT3", ""},
		{"..", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SanitizeFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeFilenameIdempotent(t *testing.T) {
	inputs := []string{"Alice", `a/b:c`, "  padded  ", "x?y*z", "Señorita 🌸"}
	for _, in := range inputs {
		once := SanitizeFilename(in)
		twice := SanitizeFilename(once)
		if once != twice {
			t.Errorf("sanitize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestSanitizePathComponentFallback(t *testing.T) {
	if got := SanitizePathComponent("CON", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %q", got)
	}
	if got := SanitizePathComponent("Alice", "fallback"); got != "Alice" {
		t.Errorf("expected Alice, got %q", got)
	}
}

func TestSanitizeBackupName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Alice", "alice"},
		{"Seraphina the 2nd!", "seraphina_the_2nd_"},
		{"日本語", "___"},
		{"NUL", ""},
	}
	for _, tc := range cases {
		if got := SanitizeBackupName(tc.in); got != tc.want {
			t.Errorf("SanitizeBackupName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
