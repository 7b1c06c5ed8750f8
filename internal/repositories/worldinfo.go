package repositories

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"tauritavern/internal/domain"
	"tauritavern/internal/pngtext"
)

// naidataKeyword is the tEXt keyword NovelAI uses for embedded lorebooks.
const naidataKeyword = "naidata"

// WorldInfoRepository stores lorebooks under worlds/. It is a named-document
// store with an extra validation rule and PNG import support.
type WorldInfoRepository struct {
	store *NamedDocumentStore
}

// NewWorldInfoRepository creates a world-info repository.
func NewWorldInfoRepository(worldsDir string) *WorldInfoRepository {
	return &WorldInfoRepository{store: NewNamedDocumentStore(worldsDir, "world info")}
}

// Names lists stored lorebook names.
func (r *WorldInfoRepository) Names() ([]string, error) { return r.store.Names() }

// Find loads one lorebook.
func (r *WorldInfoRepository) Find(name string) (json.RawMessage, error) {
	return r.store.Find(name)
}

// Save validates and writes a lorebook: the payload must be a JSON object
// containing an "entries" member.
func (r *WorldInfoRepository) Save(name string, data json.RawMessage) error {
	if err := validateWorldInfo(data); err != nil {
		return err
	}
	return r.store.Save(name, data)
}

// Delete removes a lorebook.
func (r *WorldInfoRepository) Delete(name string) error { return r.store.Delete(name) }

func validateWorldInfo(data json.RawMessage) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return domain.InvalidData("world info payload must be a JSON object")
	}
	if _, ok := probe["entries"]; !ok {
		return domain.InvalidData("world info payload is missing entries")
	}
	return nil
}

// Import installs a lorebook from a JSON file, a PNG carrying a naidata
// chunk, or a pre-converted JSON text string (which bypasses the file read).
func (r *WorldInfoRepository) Import(name, sourcePath, converted string) error {
	var payload []byte
	switch {
	case converted != "":
		payload = []byte(converted)
	default:
		data, err := os.ReadFile(sourcePath)
		if err != nil {
			if os.IsNotExist(err) {
				return domain.NotFound("import source not found: %s", sourcePath)
			}
			return domain.Wrap(domain.KindInternal, err, "failed to read import source %s", sourcePath)
		}
		if strings.EqualFold(filepath.Ext(sourcePath), ".png") {
			text, ok, err := pngtext.ReadKeyword(data, naidataKeyword)
			if err != nil {
				return domain.Wrap(domain.KindInvalidData, err, "failed to parse world info PNG")
			}
			if !ok {
				return domain.InvalidData("world info PNG has no %s chunk", naidataKeyword)
			}
			decoded, err := base64.StdEncoding.DecodeString(text)
			if err != nil {
				return domain.Wrap(domain.KindInvalidData, err, "world info chunk is not valid base64")
			}
			payload = decoded
		} else {
			payload = data
		}
	}
	return r.Save(name, payload)
}
