package repositories

import (
	"os"
	"path/filepath"
	"sort"

	"tauritavern/internal/domain"
	"tauritavern/internal/models"
	"tauritavern/internal/persistence"
	"tauritavern/internal/utils"
)

// GroupRepository persists group rosters as groups/{id}.json.
type GroupRepository struct {
	groupsDir string
}

// NewGroupRepository creates a group repository.
func NewGroupRepository(groupsDir string) *GroupRepository {
	return &GroupRepository{groupsDir: groupsDir}
}

func (r *GroupRepository) path(id string) string {
	return filepath.Join(r.groupsDir, utils.SanitizePathComponent(id, "group")+".json")
}

// FindAll lists every group, newest first.
func (r *GroupRepository) FindAll() ([]*models.Group, error) {
	files, err := persistence.ListFilesWithExtension(r.groupsDir, "json")
	if err != nil {
		return nil, err
	}
	groups := make([]*models.Group, 0, len(files))
	for _, path := range files {
		var group models.Group
		if err := persistence.ReadJSONFile(path, &group); err != nil {
			continue
		}
		groups = append(groups, &group)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID > groups[j].ID })
	return groups, nil
}

// FindByID loads one group.
func (r *GroupRepository) FindByID(id string) (*models.Group, error) {
	var group models.Group
	if err := persistence.ReadJSONFile(r.path(id), &group); err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NotFound("group not found: %s", id)
		}
		return nil, err
	}
	return &group, nil
}

// Save writes a group document atomically.
func (r *GroupRepository) Save(group *models.Group) error {
	if group.ID == "" {
		return domain.InvalidData("group id is not set")
	}
	return persistence.WriteJSONFile(r.path(group.ID), group)
}

// Delete removes a group document.
func (r *GroupRepository) Delete(id string) error {
	path := r.path(id)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return domain.NotFound("group not found: %s", id)
	}
	return persistence.DeleteFile(path)
}
