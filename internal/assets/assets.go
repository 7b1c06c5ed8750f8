// Package assets carries the build-time manifest of default content and
// copies it into a fresh data root on first run.
package assets

import (
	"embed"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

//go:embed content
var content embed.FS

const initializedMarker = "content_initialized"

// IsInitialized reports whether default content was already copied.
func IsInitialized(defaultUserDir string) bool {
	_, err := os.Stat(filepath.Join(defaultUserDir, initializedMarker))
	return err == nil
}

// Lookup resolves a virtual asset path to its embedded bytes.
func Lookup(virtualPath string) ([]byte, error) {
	return content.ReadFile(filepath.ToSlash(filepath.Join("content", virtualPath)))
}

// CopyDefaults copies every embedded default into the user directory, then
// writes the initialized marker. Existing files are never overwritten.
func CopyDefaults(defaultUserDir string) error {
	err := fs.WalkDir(content, "content", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relative, err := filepath.Rel("content", path)
		if err != nil {
			return err
		}
		target := filepath.Join(defaultUserDir, relative)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if _, err := os.Stat(target); err == nil {
			return nil
		}
		data, err := content.ReadFile(path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		slog.Debug("installing default content", "file", relative)
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(defaultUserDir, initializedMarker), []byte("1"), 0o644)
}
