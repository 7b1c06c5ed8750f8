package services

import (
	"log/slog"
	"time"

	"tauritavern/internal/events"
	"tauritavern/internal/models"
	"tauritavern/internal/repositories"
)

// CharacterService handles character card operations and cross-entity
// coordination (chat cascades on delete/rename).
type CharacterService struct {
	characters *repositories.CharacterRepository
	chats      *repositories.ChatRepository
	emitter    *events.Emitter
}

// NewCharacterService creates a new character service.
func NewCharacterService(characters *repositories.CharacterRepository, chats *repositories.ChatRepository, emitter *events.Emitter) *CharacterService {
	return &CharacterService{characters: characters, chats: chats, emitter: emitter}
}

// GetAll lists characters; shallow listings decode only display fields.
func (s *CharacterService) GetAll(shallow bool) ([]*models.Character, error) {
	return s.characters.FindAll(shallow)
}

// Get loads one character by stem.
func (s *CharacterService) Get(stem string) (*models.Character, error) {
	return s.characters.FindByName(stem)
}

// Create persists a new character card.
func (s *CharacterService) Create(character *models.Character) (*models.Character, error) {
	slog.Info("creating character", "name", character.Name)
	if character.DateAdded == 0 {
		character.DateAdded = time.Now().UnixMilli()
	}
	if err := s.characters.Save(character); err != nil {
		return nil, err
	}
	s.emitter.EntityEvent("character", "created", character.FileName)
	return character, nil
}

// Update applies an edited card to an existing character.
func (s *CharacterService) Update(stem string, apply func(*models.Character)) (*models.Character, error) {
	character, err := s.characters.FindByName(stem)
	if err != nil {
		return nil, err
	}
	apply(character)
	character.FileName = stem
	if err := s.characters.Save(character); err != nil {
		return nil, err
	}
	s.emitter.EntityEvent("character", "updated", stem)
	return character, nil
}

// Rename changes a character's name and stem. Chats stay keyed by the stem,
// so they are left under the old directory only if the stem is unchanged.
func (s *CharacterService) Rename(oldStem, newName string) (*models.Character, error) {
	character, err := s.characters.Rename(oldStem, newName)
	if err != nil {
		return nil, err
	}
	s.emitter.EntityEvent("character", "updated", character.FileName)
	return character, nil
}

// Import installs a card from a PNG or JSON file.
func (s *CharacterService) Import(sourcePath string, preserveFileName bool) (*models.Character, error) {
	character, err := s.characters.Import(sourcePath, preserveFileName)
	if err != nil {
		return nil, err
	}
	s.emitter.EntityEvent("character", "created", character.FileName)
	return character, nil
}

// Export copies the stored PNG bit-exact.
func (s *CharacterService) Export(stem, targetPath string) error {
	return s.characters.Export(stem, targetPath)
}

// Delete removes a character, cascading into its chats when requested.
func (s *CharacterService) Delete(stem string, deleteChats bool) error {
	slog.Info("deleting character", "stem", stem, "delete_chats", deleteChats)
	if err := s.characters.Delete(stem); err != nil {
		return err
	}
	if deleteChats {
		if err := s.chats.DeleteCharacterChats(stem); err != nil {
			return err
		}
	}
	s.emitter.EntityEvent("character", "deleted", stem)
	return nil
}

// UpdateAvatar replaces the character image.
func (s *CharacterService) UpdateAvatar(stem string, image []byte, crop *repositories.AvatarCrop) error {
	if err := s.characters.UpdateAvatar(stem, image, crop); err != nil {
		return err
	}
	s.emitter.EntityEvent("character", "updated", stem)
	return nil
}

// GetChats summarizes the character's chat files.
func (s *CharacterService) GetChats(stem string, simple bool) ([]models.ChatInfo, error) {
	if _, err := s.characters.FindByName(stem); err != nil {
		return nil, err
	}
	return s.characters.GetCharacterChats(stem, simple, s.chats)
}
