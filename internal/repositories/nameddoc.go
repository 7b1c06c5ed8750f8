package repositories

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tauritavern/internal/domain"
	"tauritavern/internal/persistence"
	"tauritavern/internal/utils"
)

// NamedDocumentStore is the shared store shape behind themes, movingUI
// presets, and quick-reply sets: one sanitized-name JSON file per document.
type NamedDocumentStore struct {
	dir  string
	kind string
}

// NewNamedDocumentStore creates a store rooted at dir; kind labels errors.
func NewNamedDocumentStore(dir, kind string) *NamedDocumentStore {
	return &NamedDocumentStore{dir: dir, kind: kind}
}

func (s *NamedDocumentStore) path(name string) string {
	return filepath.Join(s.dir, utils.SanitizePathComponent(name, s.kind)+".json")
}

// Names lists the stored document names, sorted case-insensitively.
func (s *NamedDocumentStore) Names() ([]string, error) {
	files, err := persistence.ListFilesWithExtension(s.dir, "json")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for _, path := range files {
		names = append(names, strings.TrimSuffix(filepath.Base(path), ".json"))
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names, nil
}

// FindAll loads every document.
func (s *NamedDocumentStore) FindAll() (map[string]json.RawMessage, error) {
	names, err := s.Names()
	if err != nil {
		return nil, err
	}
	docs := make(map[string]json.RawMessage, len(names))
	for _, name := range names {
		data, err := s.Find(name)
		if err != nil {
			continue
		}
		docs[name] = data
	}
	return docs, nil
}

// List loads every document body in name order.
func (s *NamedDocumentStore) List() ([]json.RawMessage, error) {
	names, err := s.Names()
	if err != nil {
		return nil, err
	}
	docs := make([]json.RawMessage, 0, len(names))
	for _, name := range names {
		data, err := s.Find(name)
		if err != nil {
			continue
		}
		docs = append(docs, data)
	}
	return docs, nil
}

// Find loads one document by name.
func (s *NamedDocumentStore) Find(name string) (json.RawMessage, error) {
	path := s.path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NotFound("%s not found: %s", s.kind, name)
		}
		return nil, domain.Wrap(domain.KindInternal, err, "failed to read %s", path)
	}
	if !json.Valid(data) {
		return nil, domain.InvalidData("%s %q is not valid JSON", s.kind, name)
	}
	return data, nil
}

// Save writes a document atomically. The payload must be a JSON object.
func (s *NamedDocumentStore) Save(name string, data json.RawMessage) error {
	if strings.TrimSpace(name) == "" {
		return domain.InvalidData("%s name cannot be empty", s.kind)
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return domain.InvalidData("%s payload must be a JSON object", s.kind)
	}
	pretty, err := json.MarshalIndent(probe, "", "  ")
	if err != nil {
		return domain.Wrap(domain.KindInvalidData, err, "failed to serialize %s %q", s.kind, name)
	}
	return persistence.WriteFileAtomic(s.path(name), pretty)
}

// Delete removes a document.
func (s *NamedDocumentStore) Delete(name string) error {
	path := s.path(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return domain.NotFound("%s not found: %s", s.kind, name)
	}
	return persistence.DeleteFile(path)
}

// Exists reports whether a document is present.
func (s *NamedDocumentStore) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}
