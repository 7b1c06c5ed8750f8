package repositories

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"tauritavern/internal/domain"
	"tauritavern/internal/models"
	"tauritavern/internal/persistence"
	"tauritavern/internal/utils"
)

// backgroundExtensions are the bitmap types accepted into backgrounds/.
var backgroundExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true,
	".avif": true, ".bmp": true,
}

// BackgroundRepository stores background bitmaps plus a metadata.json sidecar
// index.
type BackgroundRepository struct {
	dir string
}

// NewBackgroundRepository creates a background repository.
func NewBackgroundRepository(dir string) *BackgroundRepository {
	return &BackgroundRepository{dir: dir}
}

func (r *BackgroundRepository) metadataPath() string {
	return filepath.Join(r.dir, "metadata.json")
}

func (r *BackgroundRepository) filePath(fileName string) string {
	return filepath.Join(r.dir, utils.SanitizePathComponent(fileName, "background"))
}

func (r *BackgroundRepository) loadMetadata() map[string]models.BackgroundMeta {
	meta := map[string]models.BackgroundMeta{}
	if err := persistence.ReadJSONFile(r.metadataPath(), &meta); err != nil {
		return map[string]models.BackgroundMeta{}
	}
	return meta
}

func (r *BackgroundRepository) saveMetadata(meta map[string]models.BackgroundMeta) error {
	return persistence.WriteJSONFile(r.metadataPath(), meta)
}

// FindAll lists every background with its sidecar metadata when present.
func (r *BackgroundRepository) FindAll() ([]models.Background, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, domain.Wrap(domain.KindInternal, err, "failed to read backgrounds directory %s", r.dir)
	}
	meta := r.loadMetadata()
	var backgrounds []models.Background
	for _, entry := range entries {
		if entry.IsDir() || !backgroundExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		background := models.Background{FileName: entry.Name()}
		if m, ok := meta[entry.Name()]; ok {
			copied := m
			background.Meta = &copied
		}
		backgrounds = append(backgrounds, background)
	}
	sort.Slice(backgrounds, func(i, j int) bool {
		return strings.ToLower(backgrounds[i].FileName) < strings.ToLower(backgrounds[j].FileName)
	})
	return backgrounds, nil
}

// Save stores an uploaded background and records its metadata.
func (r *BackgroundRepository) Save(fileName string, data []byte) (*models.Background, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if !backgroundExtensions[ext] {
		return nil, domain.InvalidData("unsupported background type: %s", ext)
	}
	name := utils.SanitizePathComponent(fileName, "background")
	if err := persistence.WriteFileAtomic(r.filePath(name), data); err != nil {
		return nil, err
	}

	entry := models.BackgroundMeta{
		Animated:            ext == ".gif",
		AddedTimestamp:      time.Now().UnixMilli(),
		ThumbnailResolution: [2]int{160, 90},
	}
	if img, err := imaging.Decode(bytes.NewReader(data)); err == nil {
		bounds := img.Bounds()
		if bounds.Dy() > 0 {
			entry.AspectRatio = float64(bounds.Dx()) / float64(bounds.Dy())
		}
	}
	meta := r.loadMetadata()
	meta[name] = entry
	if err := r.saveMetadata(meta); err != nil {
		return nil, err
	}
	return &models.Background{FileName: name, Meta: &entry}, nil
}

// Rename moves a background and its metadata entry to a new name.
func (r *BackgroundRepository) Rename(oldName, newName string) error {
	oldPath := r.filePath(oldName)
	newPath := r.filePath(newName)
	if _, err := os.Stat(oldPath); os.IsNotExist(err) {
		return domain.NotFound("background not found: %s", oldName)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return domain.Wrap(domain.KindInternal, err, "failed to rename background %s", oldName)
	}
	meta := r.loadMetadata()
	if entry, ok := meta[filepath.Base(oldPath)]; ok {
		delete(meta, filepath.Base(oldPath))
		meta[filepath.Base(newPath)] = entry
		return r.saveMetadata(meta)
	}
	return nil
}

// Delete removes a background and its metadata entry.
func (r *BackgroundRepository) Delete(fileName string) error {
	path := r.filePath(fileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return domain.NotFound("background not found: %s", fileName)
	}
	if err := persistence.DeleteFile(path); err != nil {
		return err
	}
	meta := r.loadMetadata()
	if _, ok := meta[filepath.Base(path)]; ok {
		delete(meta, filepath.Base(path))
		return r.saveMetadata(meta)
	}
	return nil
}
