package repositories

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tauritavern/internal/domain"
	"tauritavern/internal/models"
	"tauritavern/internal/persistence"
	"tauritavern/internal/utils"
)

// PresetRepository persists presets as JSON files in type-specific
// directories.
type PresetRepository struct {
	data *persistence.DataDirectory
}

// NewPresetRepository creates a preset repository over the data root.
func NewPresetRepository(data *persistence.DataDirectory) *PresetRepository {
	return &PresetRepository{data: data}
}

func (r *PresetRepository) dir(presetType models.PresetType) string {
	return r.data.PresetDir(presetType.DirectoryName())
}

func (r *PresetRepository) path(presetType models.PresetType, name string) string {
	return filepath.Join(r.dir(presetType), utils.SanitizePathComponent(name, "preset")+".json")
}

// FindAll lists the presets of one type, sorted by name.
func (r *PresetRepository) FindAll(presetType models.PresetType) ([]*models.Preset, error) {
	files, err := persistence.ListFilesWithExtension(r.dir(presetType), "json")
	if err != nil {
		return nil, err
	}
	presets := make([]*models.Preset, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil || !json.Valid(data) {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(path), ".json")
		presets = append(presets, &models.Preset{Name: name, Type: presetType, Data: data})
	}
	sort.Slice(presets, func(i, j int) bool {
		return strings.ToLower(presets[i].Name) < strings.ToLower(presets[j].Name)
	})
	return presets, nil
}

// Find loads one preset by type and name.
func (r *PresetRepository) Find(presetType models.PresetType, name string) (*models.Preset, error) {
	path := r.path(presetType, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NotFound("preset not found: %s/%s", presetType, name)
		}
		return nil, domain.Wrap(domain.KindInternal, err, "failed to read %s", path)
	}
	if !json.Valid(data) {
		return nil, domain.InvalidData("preset %s/%s is not valid JSON", presetType, name)
	}
	return &models.Preset{Name: name, Type: presetType, Data: data}, nil
}

// Save writes a preset atomically. The data must be a JSON object.
func (r *PresetRepository) Save(preset *models.Preset) error {
	if strings.TrimSpace(preset.Name) == "" {
		return domain.InvalidData("preset name cannot be empty")
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(preset.Data, &probe); err != nil {
		return domain.InvalidData("preset data must be a JSON object")
	}
	pretty, err := json.MarshalIndent(probe, "", "  ")
	if err != nil {
		return domain.Wrap(domain.KindInvalidData, err, "failed to serialize preset %s", preset.Name)
	}
	return persistence.WriteFileAtomic(r.path(preset.Type, preset.Name), pretty)
}

// Delete removes a preset file.
func (r *PresetRepository) Delete(presetType models.PresetType, name string) error {
	path := r.path(presetType, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return domain.NotFound("preset not found: %s/%s", presetType, name)
	}
	return persistence.DeleteFile(path)
}
