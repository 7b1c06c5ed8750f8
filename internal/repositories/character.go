package repositories

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	humanize "github.com/dustin/go-humanize"

	"tauritavern/internal/domain"
	"tauritavern/internal/models"
	"tauritavern/internal/persistence"
	"tauritavern/internal/pngtext"
	"tauritavern/internal/utils"
)

const (
	avatarWidth  = 400
	avatarHeight = 600
)

// CharacterRepository persists characters as PNG cards under characters/.
type CharacterRepository struct {
	charactersDir string
	chatsDir      string
	thumbnailsDir string

	cache *boundedCache

	// defaultAvatar lazily builds the placeholder PNG used when a character
	// is created without an image.
	defaultAvatarOnce sync.Once
	defaultAvatar     []byte
}

// NewCharacterRepository creates a character repository.
func NewCharacterRepository(charactersDir, chatsDir, thumbnailsDir string) *CharacterRepository {
	return &CharacterRepository{
		charactersDir: charactersDir,
		chatsDir:      chatsDir,
		thumbnailsDir: thumbnailsDir,
		cache:         newBoundedCache(chatCacheCapacity, chatCacheTTL),
	}
}

func (r *CharacterRepository) pngPath(stem string) string {
	return filepath.Join(r.charactersDir, utils.SanitizePathComponent(stem, "character")+".png")
}

func (r *CharacterRepository) thumbnailPath(stem string) string {
	return filepath.Join(r.thumbnailsDir, utils.SanitizePathComponent(stem, "character")+".png")
}

// defaultAvatarPNG renders the neutral 400x600 placeholder used for JSON
// imports and fresh characters.
func (r *CharacterRepository) defaultAvatarPNG() []byte {
	r.defaultAvatarOnce.Do(func() {
		img := imaging.New(avatarWidth, avatarHeight, image.White.C)
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			slog.Error("failed to render default avatar", "error", err)
			return
		}
		r.defaultAvatar = buf.Bytes()
	})
	return r.defaultAvatar
}

// FindByName loads a character by its sanitized stem.
func (r *CharacterRepository) FindByName(stem string) (*models.Character, error) {
	key := utils.SanitizePathComponent(stem, "character")
	if v, ok := r.cache.get(key); ok {
		if character, ok := v.(*models.Character); ok {
			copied := *character
			return &copied, nil
		}
	}

	character, err := r.readCharacterFile(stem)
	if err != nil {
		return nil, err
	}
	r.cache.set(key, character)
	copied := *character
	return &copied, nil
}

func (r *CharacterRepository) readCharacterFile(stem string) (*models.Character, error) {
	path := r.pngPath(stem)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NotFound("character not found: %s", stem)
		}
		return nil, domain.Wrap(domain.KindInternal, err, "failed to read %s", path)
	}
	character, err := DecodeCharacterCard(data)
	if err != nil {
		return nil, err
	}
	character.FileName = utils.SanitizePathComponent(stem, "character")
	if character.Avatar == "" {
		character.Avatar = character.FileName + ".png"
	}
	return character, nil
}

// shallowCard is the subset decoded for fast listings.
type shallowCard struct {
	Name string `json:"name"`
	Fav  bool   `json:"fav"`
	Data *struct {
		Name string `json:"name"`
	} `json:"data"`
}

// FindAll enumerates every character. With shallow set, only listing fields
// (name, avatar, favorite) are decoded.
func (r *CharacterRepository) FindAll(shallow bool) ([]*models.Character, error) {
	files, err := persistence.ListFilesWithExtension(r.charactersDir, "png")
	if err != nil {
		return nil, err
	}

	sem := make(chan struct{}, readFanout)
	results := make([]*models.Character, len(files))
	var wg sync.WaitGroup
	for i, path := range files {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			var character *models.Character
			var err error
			if shallow {
				character, err = r.readShallow(path, stem)
			} else {
				character, err = r.FindByName(stem)
			}
			if err != nil {
				slog.Warn("skipping unreadable character", "file", path, "error", err)
				return
			}
			results[i] = character
		}(i, path)
	}
	wg.Wait()

	characters := make([]*models.Character, 0, len(results))
	for _, character := range results {
		if character != nil {
			characters = append(characters, character)
		}
	}
	sort.Slice(characters, func(i, j int) bool {
		return strings.ToLower(characters[i].Name) < strings.ToLower(characters[j].Name)
	})
	return characters, nil
}

func (r *CharacterRepository) readShallow(path, stem string) (*models.Character, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, err, "failed to read %s", path)
	}
	text, ok, err := pngtext.ReadKeyword(data, charaKeyword)
	if err != nil || !ok {
		return nil, domain.InvalidData("character PNG has no card: %s", path)
	}
	raw, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, domain.InvalidData("character card is not valid base64: %s", path)
	}
	var card shallowCard
	if err := json.Unmarshal(raw, &card); err != nil {
		return nil, domain.InvalidData("character card is not valid JSON: %s", path)
	}
	name := card.Name
	if card.Data != nil && card.Data.Name != "" {
		name = card.Data.Name
	}
	return &models.Character{
		Name:     name,
		Fav:      card.Fav,
		Avatar:   stem + ".png",
		FileName: stem,
	}, nil
}

// Save writes a character card onto its PNG. A character without an existing
// PNG gets the default avatar as its image.
func (r *CharacterRepository) Save(character *models.Character) error {
	if character.FileName == "" {
		character.FileName = utils.SanitizeFilename(character.Name)
	}
	if character.FileName == "" {
		return domain.InvalidData("character name produces an empty file name")
	}
	path := r.pngPath(character.FileName)

	base, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return domain.Wrap(domain.KindInternal, err, "failed to read %s", path)
		}
		base = r.defaultAvatarPNG()
		if len(base) == 0 {
			return domain.Internal("default avatar unavailable")
		}
	}
	out, err := EmbedCharacterCard(base, character)
	if err != nil {
		return err
	}
	if err := persistence.WriteFileAtomic(path, out); err != nil {
		return err
	}
	r.cache.set(character.FileName, character)
	return nil
}

// Rename moves a character to a new sanitized stem, rewriting the card name.
func (r *CharacterRepository) Rename(oldStem, newName string) (*models.Character, error) {
	newStem := utils.SanitizeFilename(newName)
	if newStem == "" {
		return nil, domain.InvalidData("new character name produces an empty file name")
	}
	character, err := r.FindByName(oldStem)
	if err != nil {
		return nil, err
	}
	oldPath := r.pngPath(oldStem)
	newPath := r.pngPath(newStem)
	if oldPath != newPath {
		if _, err := os.Stat(newPath); err == nil {
			return nil, domain.InvalidData("a character named %q already exists", newName)
		}
	}

	character.Name = newName
	character.FileName = newStem
	character.Avatar = newStem + ".png"
	if err := r.Save(character); err != nil {
		return nil, err
	}
	if oldPath != newPath {
		if err := persistence.DeleteFile(oldPath); err != nil {
			return nil, err
		}
		persistence.DeleteFile(r.thumbnailPath(oldStem))
		r.cache.delete(utils.SanitizePathComponent(oldStem, "character"))
	}
	return character, nil
}

// Import installs a card from a PNG or JSON file. Colliding stems get _1, _2…
// suffixes unless preserveFileName insists on the source stem.
func (r *CharacterRepository) Import(sourcePath string, preserveFileName bool) (*models.Character, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NotFound("import source not found: %s", sourcePath)
		}
		return nil, domain.Wrap(domain.KindInternal, err, "failed to read import source %s", sourcePath)
	}

	var character *models.Character
	var pngData []byte
	switch strings.ToLower(filepath.Ext(sourcePath)) {
	case ".png":
		character, err = DecodeCharacterCard(data)
		if err != nil {
			return nil, err
		}
		pngData = data
	case ".json":
		character, err = decodeCardJSON(data)
		if err != nil {
			return nil, err
		}
		pngData = r.defaultAvatarPNG()
		if len(pngData) == 0 {
			return nil, domain.Internal("default avatar unavailable")
		}
	default:
		return nil, domain.InvalidData("unsupported character import type: %s", filepath.Ext(sourcePath))
	}

	stem := utils.SanitizeFilename(strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath)))
	if stem == "" {
		stem = utils.SanitizeFilename(character.Name)
	}
	if stem == "" {
		return nil, domain.InvalidData("cannot derive a file name for imported character")
	}
	if !preserveFileName {
		stem = r.nextAvailableStem(stem)
	}

	character.FileName = stem
	character.Avatar = stem + ".png"
	if character.DateAdded == 0 {
		character.DateAdded = time.Now().UnixMilli()
	}

	out, err := EmbedCharacterCard(pngData, character)
	if err != nil {
		return nil, err
	}
	if err := persistence.WriteFileAtomic(r.pngPath(stem), out); err != nil {
		return nil, err
	}
	r.cache.set(stem, character)
	return character, nil
}

func (r *CharacterRepository) nextAvailableStem(stem string) string {
	candidate := stem
	for suffix := 1; ; suffix++ {
		if _, err := os.Stat(r.pngPath(candidate)); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", stem, suffix)
	}
}

// Export copies the stored PNG bit-exact to targetPath.
func (r *CharacterRepository) Export(stem, targetPath string) error {
	if _, err := os.Stat(r.pngPath(stem)); os.IsNotExist(err) {
		return domain.NotFound("character not found: %s", stem)
	}
	return persistence.CopyFile(r.pngPath(stem), targetPath)
}

// Delete removes the character PNG and its thumbnail.
func (r *CharacterRepository) Delete(stem string) error {
	path := r.pngPath(stem)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return domain.NotFound("character not found: %s", stem)
	}
	if err := persistence.DeleteFile(path); err != nil {
		return err
	}
	persistence.DeleteFile(r.thumbnailPath(stem))
	r.cache.delete(utils.SanitizePathComponent(stem, "character"))
	return nil
}

// AvatarCrop is an optional crop rectangle applied before resizing.
type AvatarCrop struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// UpdateAvatar replaces a character's image: decode, clamp-crop, resize to
// 400x600 with Lanczos, re-embed the card JSON and atomically replace the PNG.
func (r *CharacterRepository) UpdateAvatar(stem string, imageData []byte, crop *AvatarCrop) error {
	character, err := r.FindByName(stem)
	if err != nil {
		return err
	}

	img, err := imaging.Decode(bytes.NewReader(imageData))
	if err != nil {
		return domain.Wrap(domain.KindInvalidData, err, "failed to decode avatar image")
	}
	if crop != nil {
		bounds := img.Bounds()
		rect := image.Rect(crop.X, crop.Y, crop.X+crop.Width, crop.Y+crop.Height).Intersect(bounds)
		if rect.Empty() {
			return domain.InvalidData("crop rectangle is outside the image")
		}
		img = imaging.Crop(img, rect)
	}
	img = imaging.Resize(img, avatarWidth, avatarHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return domain.Wrap(domain.KindInternal, err, "failed to encode avatar PNG")
	}
	out, err := EmbedCharacterCard(buf.Bytes(), character)
	if err != nil {
		return err
	}
	if err := persistence.WriteFileAtomic(r.pngPath(stem), out); err != nil {
		return err
	}
	persistence.DeleteFile(r.thumbnailPath(stem))
	r.cache.set(character.FileName, character)
	return nil
}

// GetCharacterChats summarizes a character's chat files. When simple is set,
// only file names are reported.
func (r *CharacterRepository) GetCharacterChats(stem string, simple bool, chats *ChatRepository) ([]models.ChatInfo, error) {
	dir := filepath.Join(r.chatsDir, utils.SanitizePathComponent(stem, "character"))
	files, err := persistence.ListFilesWithExtension(dir, "jsonl")
	if err != nil {
		return nil, err
	}

	infos := make([]models.ChatInfo, 0, len(files))
	for _, path := range files {
		fileName := filepath.Base(path)
		info := models.ChatInfo{FileName: stripJSONLExtension(fileName)}
		if !simple {
			if stat, err := os.Stat(path); err == nil {
				info.FileSize = humanize.Bytes(uint64(stat.Size()))
			}
			if chat, err := chats.GetChat(stem, fileName); err == nil {
				info.MessageCount = len(chat.Messages)
				info.Preview = chat.Preview()
				info.LastMessage = chat.LastMessageTimestamp()
			}
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].LastMessage > infos[j].LastMessage })
	return infos, nil
}

// ClearCache drains the in-memory character cache.
func (r *CharacterRepository) ClearCache() {
	r.cache.flush()
}
