package services

import (
	"log"
	"log/slog"

	"tauritavern/internal/events"
	"tauritavern/internal/models"
	"tauritavern/internal/repositories"
)

// ExtensionService handles extension snapshots.
type ExtensionService struct {
	extensions *repositories.ExtensionRepository
	emitter    *events.Emitter
}

// NewExtensionService creates a new extension service.
func NewExtensionService(extensions *repositories.ExtensionRepository, emitter *events.Emitter) *ExtensionService {
	return &ExtensionService{extensions: extensions, emitter: emitter}
}

// GetAll lists local and global extensions.
func (s *ExtensionService) GetAll() ([]models.Extension, error) {
	local, err := s.extensions.FindAll(false)
	if err != nil {
		return nil, err
	}
	global, err := s.extensions.FindAll(true)
	if err != nil {
		return nil, err
	}
	return append(local, global...), nil
}

// Install snapshots a GitHub repository into the extensions root.
func (s *ExtensionService) Install(url string, global bool, branch string) (*models.ExtensionInstallResult, error) {
	slog.Info("installing extension", "url", url, "global", global)
	result, err := s.extensions.Install(url, global, branch)
	if err != nil {
		return nil, err
	}
	s.emitter.EntityEvent("extension", "created", result.DisplayName)
	return result, nil
}

// Update refreshes one extension to the latest commit of its reference.
func (s *ExtensionService) Update(name string, global bool) (*models.ExtensionUpdateResult, error) {
	result, err := s.extensions.Update(name, global)
	if err != nil {
		return nil, err
	}
	if !result.IsUpToDate {
		s.emitter.EntityEvent("extension", "updated", name)
	}
	return result, nil
}

// Delete removes one extension.
func (s *ExtensionService) Delete(name string, global bool) error {
	if err := s.extensions.Delete(name, global); err != nil {
		return err
	}
	s.emitter.EntityEvent("extension", "deleted", name)
	return nil
}

// Move relocates an extension between the local and global roots.
func (s *ExtensionService) Move(name, src, dst string) error {
	if err := s.extensions.Move(name, src, dst); err != nil {
		return err
	}
	s.emitter.EntityEvent("extension", "updated", name)
	return nil
}

// Version reports the installed revision of one extension.
func (s *ExtensionService) Version(name string, global bool) (*models.ExtensionVersion, error) {
	return s.extensions.Version(name, global)
}

// AutoUpdateAll refreshes every extension whose manifest opted into
// auto-update. Called from the scheduler.
func (s *ExtensionService) AutoUpdateAll() {
	for _, global := range []bool{false, true} {
		extensions, err := s.extensions.FindAll(global)
		if err != nil {
			continue
		}
		for _, extension := range extensions {
			if extension.Manifest == nil || !extension.Manifest.AutoUpdate {
				continue
			}
			result, err := s.Update(extension.Name, global)
			if err != nil {
				slog.Warn("extension auto-update failed", "extension", extension.Name, "error", err)
				continue
			}
			if !result.IsUpToDate {
				log.Printf("🧩 Extension %s updated to %s", extension.Name, result.ShortCommitHash)
			}
		}
	}
}
