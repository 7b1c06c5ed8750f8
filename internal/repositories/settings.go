package repositories

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"tauritavern/internal/domain"
	"tauritavern/internal/models"
	"tauritavern/internal/persistence"
)

const snapshotDirName = "settings_snapshots"

// SettingsRepository stores the application settings, the free-form user
// settings document and timestamped snapshots of the latter.
type SettingsRepository struct {
	settingsFile     string
	userSettingsFile string
	snapshotsDir     string
}

// NewSettingsRepository creates a settings repository under the default-user
// directory.
func NewSettingsRepository(defaultUserDir string) *SettingsRepository {
	return &SettingsRepository{
		settingsFile:     filepath.Join(defaultUserDir, "settings.json"),
		userSettingsFile: filepath.Join(defaultUserDir, "user-settings.json"),
		snapshotsDir:     filepath.Join(defaultUserDir, snapshotDirName),
	}
}

// Load reads the app settings, falling back to defaults on first run.
func (r *SettingsRepository) Load() (models.AppSettings, error) {
	var settings models.AppSettings
	if err := persistence.ReadJSONFile(r.settingsFile, &settings); err != nil {
		if domain.IsNotFound(err) {
			return models.DefaultAppSettings(), nil
		}
		return settings, err
	}
	return settings, nil
}

// Save writes the app settings atomically.
func (r *SettingsRepository) Save(settings models.AppSettings) error {
	return persistence.WriteJSONFile(r.settingsFile, settings)
}

// LoadUserSettings reads the free-form frontend settings document.
func (r *SettingsRepository) LoadUserSettings() (models.UserSettings, error) {
	var settings models.UserSettings
	if err := persistence.ReadJSONFile(r.userSettingsFile, &settings); err != nil {
		if domain.IsNotFound(err) {
			return models.UserSettings{Data: []byte("{}")}, nil
		}
		return settings, err
	}
	return settings, nil
}

// SaveUserSettings writes the frontend settings document atomically.
func (r *SettingsRepository) SaveUserSettings(settings models.UserSettings) error {
	return persistence.WriteJSONFile(r.userSettingsFile, settings)
}

func snapshotName(t time.Time) string {
	return fmt.Sprintf("settings_%d.json", t.UnixMilli())
}

// CreateSnapshot copies the current user settings into the snapshot
// directory.
func (r *SettingsRepository) CreateSnapshot() error {
	settings, err := r.LoadUserSettings()
	if err != nil {
		return err
	}
	path := filepath.Join(r.snapshotsDir, snapshotName(time.Now()))
	return persistence.WriteJSONFile(path, settings)
}

// Snapshots lists stored snapshots, newest first.
func (r *SettingsRepository) Snapshots() ([]models.SettingsSnapshot, error) {
	files, err := persistence.ListFilesWithExtension(r.snapshotsDir, "json")
	if err != nil {
		return nil, err
	}
	snapshots := make([]models.SettingsSnapshot, 0, len(files))
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		name := filepath.Base(path)
		snapshot := models.SettingsSnapshot{Name: name, Size: info.Size()}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, "settings_"), ".json")
		if millis, err := strconv.ParseInt(stamp, 10, 64); err == nil {
			snapshot.Date = millis
		} else {
			snapshot.Date = info.ModTime().UnixMilli()
		}
		snapshots = append(snapshots, snapshot)
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Date > snapshots[j].Date })
	return snapshots, nil
}

// LoadSnapshot reads one snapshot document by file name.
func (r *SettingsRepository) LoadSnapshot(name string) (models.UserSettings, error) {
	var settings models.UserSettings
	path := filepath.Join(r.snapshotsDir, filepath.Base(name))
	if err := persistence.ReadJSONFile(path, &settings); err != nil {
		if domain.IsNotFound(err) {
			return settings, domain.NotFound("settings snapshot not found: %s", name)
		}
		return settings, err
	}
	return settings, nil
}

// RestoreSnapshot replaces the live user settings with a snapshot's content.
func (r *SettingsRepository) RestoreSnapshot(name string) error {
	settings, err := r.LoadSnapshot(name)
	if err != nil {
		return err
	}
	return r.SaveUserSettings(settings)
}

// UserSettingsFile exposes the live settings path for the file watcher.
func (r *SettingsRepository) UserSettingsFile() string { return r.userSettingsFile }
