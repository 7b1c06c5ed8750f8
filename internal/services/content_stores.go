package services

import (
	"encoding/json"
	"log/slog"

	"tauritavern/internal/events"
	"tauritavern/internal/models"
	"tauritavern/internal/repositories"
)

// PresetService handles preset CRUD.
type PresetService struct {
	presets *repositories.PresetRepository
	emitter *events.Emitter
}

// NewPresetService creates a new preset service.
func NewPresetService(presets *repositories.PresetRepository, emitter *events.Emitter) *PresetService {
	return &PresetService{presets: presets, emitter: emitter}
}

// GetAll lists the presets of one type.
func (s *PresetService) GetAll(presetType models.PresetType) ([]*models.Preset, error) {
	return s.presets.FindAll(presetType)
}

// Get loads one preset.
func (s *PresetService) Get(presetType models.PresetType, name string) (*models.Preset, error) {
	return s.presets.Find(presetType, name)
}

// Save writes a preset.
func (s *PresetService) Save(preset *models.Preset) error {
	if err := s.presets.Save(preset); err != nil {
		return err
	}
	s.emitter.EntityEvent("preset", "updated", preset.Name)
	return nil
}

// Delete removes a preset.
func (s *PresetService) Delete(presetType models.PresetType, name string) error {
	if err := s.presets.Delete(presetType, name); err != nil {
		return err
	}
	s.emitter.EntityEvent("preset", "deleted", name)
	return nil
}

// DocumentService handles the named-JSON stores (themes, movingUI, quick
// replies) behind one CRUD surface.
type DocumentService struct {
	store   *repositories.NamedDocumentStore
	entity  string
	emitter *events.Emitter
}

// NewDocumentService creates a service over one named-document store.
func NewDocumentService(store *repositories.NamedDocumentStore, entity string, emitter *events.Emitter) *DocumentService {
	return &DocumentService{store: store, entity: entity, emitter: emitter}
}

// Names lists stored document names.
func (s *DocumentService) Names() ([]string, error) { return s.store.Names() }

// Get loads one document.
func (s *DocumentService) Get(name string) (json.RawMessage, error) { return s.store.Find(name) }

// Save writes one document.
func (s *DocumentService) Save(name string, data json.RawMessage) error {
	if err := s.store.Save(name, data); err != nil {
		return err
	}
	s.emitter.EntityEvent(s.entity, "updated", name)
	return nil
}

// Delete removes one document.
func (s *DocumentService) Delete(name string) error {
	if err := s.store.Delete(name); err != nil {
		return err
	}
	s.emitter.EntityEvent(s.entity, "deleted", name)
	return nil
}

// WorldInfoService handles lorebook CRUD and imports.
type WorldInfoService struct {
	worlds  *repositories.WorldInfoRepository
	emitter *events.Emitter
}

// NewWorldInfoService creates a new world-info service.
func NewWorldInfoService(worlds *repositories.WorldInfoRepository, emitter *events.Emitter) *WorldInfoService {
	return &WorldInfoService{worlds: worlds, emitter: emitter}
}

// Names lists stored lorebook names.
func (s *WorldInfoService) Names() ([]string, error) { return s.worlds.Names() }

// Get loads one lorebook.
func (s *WorldInfoService) Get(name string) (json.RawMessage, error) { return s.worlds.Find(name) }

// Save validates and writes one lorebook.
func (s *WorldInfoService) Save(name string, data json.RawMessage) error {
	if err := s.worlds.Save(name, data); err != nil {
		return err
	}
	s.emitter.EntityEvent("world-info", "updated", name)
	return nil
}

// Delete removes one lorebook.
func (s *WorldInfoService) Delete(name string) error {
	if err := s.worlds.Delete(name); err != nil {
		return err
	}
	s.emitter.EntityEvent("world-info", "deleted", name)
	return nil
}

// Import installs a lorebook from JSON, PNG naidata or raw text.
func (s *WorldInfoService) Import(name, sourcePath, converted string) error {
	slog.Info("importing world info", "name", name)
	if err := s.worlds.Import(name, sourcePath, converted); err != nil {
		return err
	}
	s.emitter.EntityEvent("world-info", "created", name)
	return nil
}

// BackgroundService handles background bitmaps.
type BackgroundService struct {
	backgrounds *repositories.BackgroundRepository
	emitter     *events.Emitter
}

// NewBackgroundService creates a new background service.
func NewBackgroundService(backgrounds *repositories.BackgroundRepository, emitter *events.Emitter) *BackgroundService {
	return &BackgroundService{backgrounds: backgrounds, emitter: emitter}
}

// GetAll lists backgrounds.
func (s *BackgroundService) GetAll() ([]models.Background, error) { return s.backgrounds.FindAll() }

// Upload stores a background and its metadata.
func (s *BackgroundService) Upload(fileName string, data []byte) (*models.Background, error) {
	background, err := s.backgrounds.Save(fileName, data)
	if err != nil {
		return nil, err
	}
	s.emitter.EntityEvent("background", "created", background.FileName)
	return background, nil
}

// Rename moves a background.
func (s *BackgroundService) Rename(oldName, newName string) error {
	if err := s.backgrounds.Rename(oldName, newName); err != nil {
		return err
	}
	s.emitter.EntityEvent("background", "updated", newName)
	return nil
}

// Delete removes a background.
func (s *BackgroundService) Delete(fileName string) error {
	if err := s.backgrounds.Delete(fileName); err != nil {
		return err
	}
	s.emitter.EntityEvent("background", "deleted", fileName)
	return nil
}

// AvatarService handles user persona avatars.
type AvatarService struct {
	avatars *repositories.AvatarRepository
	emitter *events.Emitter
}

// NewAvatarService creates a new avatar service.
func NewAvatarService(avatars *repositories.AvatarRepository, emitter *events.Emitter) *AvatarService {
	return &AvatarService{avatars: avatars, emitter: emitter}
}

// GetAll lists avatars.
func (s *AvatarService) GetAll() ([]models.Avatar, error) { return s.avatars.FindAll() }

// Upload stores an avatar at the canonical size.
func (s *AvatarService) Upload(fileName string, data []byte, crop *repositories.AvatarCrop) (*models.Avatar, error) {
	avatar, err := s.avatars.Save(fileName, data, crop)
	if err != nil {
		return nil, err
	}
	s.emitter.EntityEvent("avatar", "created", avatar.FileName)
	return avatar, nil
}

// Delete removes an avatar.
func (s *AvatarService) Delete(fileName string) error {
	if err := s.avatars.Delete(fileName); err != nil {
		return err
	}
	s.emitter.EntityEvent("avatar", "deleted", fileName)
	return nil
}
