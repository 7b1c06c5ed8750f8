// Package watch observes the user settings document so external edits reach
// the UI as settings-updated events.
package watch

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"tauritavern/internal/events"
)

// SettingsWatcher emits settings-updated when the settings file changes on
// disk outside the app.
type SettingsWatcher struct {
	watcher *fsnotify.Watcher
	emitter *events.Emitter
	file    string
}

// NewSettingsWatcher watches the directory containing settingsFile.
func NewSettingsWatcher(settingsFile string, emitter *events.Emitter) (*SettingsWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(settingsFile)); err != nil {
		watcher.Close()
		return nil, err
	}
	return &SettingsWatcher{watcher: watcher, emitter: emitter, file: settingsFile}, nil
}

// Run pumps filesystem events until Close is called.
func (w *SettingsWatcher) Run() {
	base := filepath.Base(w.file)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			// Writes land via temp+rename, so watch for Create too.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			slog.Debug("settings file changed on disk", "file", event.Name)
			w.emitter.Emit(events.SettingsUpdated, nil)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("settings watcher error", "error", err)
		}
	}
}

// Close stops the watcher.
func (w *SettingsWatcher) Close() error {
	return w.watcher.Close()
}
