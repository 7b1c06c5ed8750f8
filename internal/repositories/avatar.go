package repositories

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"tauritavern/internal/domain"
	"tauritavern/internal/models"
	"tauritavern/internal/persistence"
	"tauritavern/internal/utils"
)

// AvatarRepository stores user persona avatars as 400x600 PNGs under
// User Avatars/.
type AvatarRepository struct {
	dir string
}

// NewAvatarRepository creates an avatar repository.
func NewAvatarRepository(dir string) *AvatarRepository {
	return &AvatarRepository{dir: dir}
}

func (r *AvatarRepository) path(fileName string) string {
	name := utils.SanitizePathComponent(fileName, "avatar")
	if !strings.EqualFold(filepath.Ext(name), ".png") {
		name += ".png"
	}
	return filepath.Join(r.dir, name)
}

// FindAll lists stored avatars.
func (r *AvatarRepository) FindAll() ([]models.Avatar, error) {
	files, err := persistence.ListFilesWithExtension(r.dir, "png")
	if err != nil {
		return nil, err
	}
	avatars := make([]models.Avatar, 0, len(files))
	for _, path := range files {
		avatars = append(avatars, models.Avatar{FileName: filepath.Base(path)})
	}
	sort.Slice(avatars, func(i, j int) bool {
		return strings.ToLower(avatars[i].FileName) < strings.ToLower(avatars[j].FileName)
	})
	return avatars, nil
}

// Save decodes an uploaded image, optionally crops it, resizes to the
// canonical 400x600 and stores it as a PNG.
func (r *AvatarRepository) Save(fileName string, data []byte, crop *AvatarCrop) (*models.Avatar, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, domain.Wrap(domain.KindInvalidData, err, "failed to decode avatar image")
	}
	if crop != nil {
		bounds := img.Bounds()
		rect := bounds.Intersect(boundsFromCrop(crop))
		if rect.Empty() {
			return nil, domain.InvalidData("crop rectangle is outside the image")
		}
		img = imaging.Crop(img, rect)
	}
	img = imaging.Resize(img, avatarWidth, avatarHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, domain.Wrap(domain.KindInternal, err, "failed to encode avatar PNG")
	}
	path := r.path(fileName)
	if err := persistence.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return nil, err
	}
	return &models.Avatar{FileName: filepath.Base(path)}, nil
}

// Delete removes an avatar; absent is NotFound.
func (r *AvatarRepository) Delete(fileName string) error {
	path := r.path(fileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return domain.NotFound("avatar not found: %s", fileName)
	}
	return persistence.DeleteFile(path)
}
