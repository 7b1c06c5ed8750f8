package services

import (
	"log"

	"tauritavern/internal/assets"
)

// ContentService copies the embedded default content into a fresh data root.
type ContentService struct {
	defaultUserDir string
}

// NewContentService creates a content service.
func NewContentService(defaultUserDir string) *ContentService {
	return &ContentService{defaultUserDir: defaultUserDir}
}

// Initialize installs default content on first run; later runs are no-ops.
func (s *ContentService) Initialize() error {
	if assets.IsInitialized(s.defaultUserDir) {
		return nil
	}
	log.Println("📦 Installing default content...")
	return assets.CopyDefaults(s.defaultUserDir)
}
