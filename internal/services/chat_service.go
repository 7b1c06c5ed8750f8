package services

import (
	"encoding/json"
	"log/slog"

	"tauritavern/internal/events"
	"tauritavern/internal/models"
	"tauritavern/internal/repositories"
)

// ChatService handles chat operations.
type ChatService struct {
	chats      *repositories.ChatRepository
	characters *repositories.CharacterRepository
	emitter    *events.Emitter
}

// NewChatService creates a new chat service.
func NewChatService(chats *repositories.ChatRepository, characters *repositories.CharacterRepository, emitter *events.Emitter) *ChatService {
	return &ChatService{chats: chats, characters: characters, emitter: emitter}
}

// CreateChat starts a chat for a character, optionally seeded with the first
// greeting.
func (s *ChatService) CreateChat(userName, characterName, firstMessage string) (*models.Chat, error) {
	slog.Info("creating chat", "character", characterName)
	if _, err := s.characters.FindByName(characterName); err != nil {
		return nil, err
	}
	chat := models.NewChat(userName, characterName)
	if firstMessage != "" {
		chat.AddMessage(models.CharacterMessage(characterName, firstMessage))
	}
	if err := s.chats.Save(chat, false); err != nil {
		return nil, err
	}
	s.emitter.EntityEvent("chat", "created", chat.FileName)
	return chat, nil
}

// GetChat loads one chat.
func (s *ChatService) GetChat(characterName, fileName string) (*models.Chat, error) {
	return s.chats.GetChat(characterName, fileName)
}

// GetCharacterChats lists a character's chats.
func (s *ChatService) GetCharacterChats(characterName string) ([]*models.Chat, error) {
	if _, err := s.characters.FindByName(characterName); err != nil {
		return nil, err
	}
	return s.chats.GetCharacterChats(characterName)
}

// GetAllChats lists every chat.
func (s *ChatService) GetAllChats() ([]*models.Chat, error) {
	return s.chats.GetAllChats()
}

// AddMessage appends a message. User messages take the chat's stored user
// name; character messages take the character name.
func (s *ChatService) AddMessage(characterName, fileName, content string, isUser bool, extra *models.MessageExtra) (*models.Chat, error) {
	var message models.ChatMessage
	if isUser {
		chat, err := s.chats.GetChat(characterName, fileName)
		if err != nil {
			return nil, err
		}
		message = models.UserMessage(chat.UserName, content)
	} else {
		message = models.CharacterMessage(characterName, content)
	}
	if extra != nil {
		message.Extra = *extra
	}
	chat, err := s.chats.AddMessage(characterName, fileName, message)
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(events.MessageAdded, map[string]any{
		"character": characterName,
		"file":      chat.FileName,
	})
	return chat, nil
}

// SaveChatPayload persists a raw, already-serialized transcript.
func (s *ChatService) SaveChatPayload(characterName, fileName string, payload []json.RawMessage, force bool) error {
	if err := s.chats.SaveChatPayload(characterName, fileName, payload, force); err != nil {
		return err
	}
	s.emitter.EntityEvent("chat", "updated", fileName)
	return nil
}

// RenameChat renames a chat file.
func (s *ChatService) RenameChat(characterName, oldFileName, newFileName string) error {
	slog.Info("renaming chat", "character", characterName, "from", oldFileName, "to", newFileName)
	if err := s.chats.RenameChat(characterName, oldFileName, newFileName); err != nil {
		return err
	}
	s.emitter.EntityEvent("chat", "updated", newFileName)
	return nil
}

// DeleteChat removes a chat file.
func (s *ChatService) DeleteChat(characterName, fileName string) error {
	slog.Info("deleting chat", "character", characterName, "file", fileName)
	if err := s.chats.DeleteChat(characterName, fileName); err != nil {
		return err
	}
	s.emitter.EntityEvent("chat", "deleted", fileName)
	return nil
}

// SearchChats searches message bodies.
func (s *ChatService) SearchChats(query, characterFilter string) ([]repositories.ChatSearchResult, error) {
	return s.chats.SearchChats(query, characterFilter)
}

// ImportChat converts a foreign transcript for a character.
func (s *ChatService) ImportChat(characterName, sourcePath string, format repositories.ChatImportFormat) (*models.Chat, error) {
	character, err := s.characters.FindByName(characterName)
	if err != nil {
		return nil, err
	}
	display := character.Name
	if display == "" {
		display = characterName
	}
	chat, err := s.chats.ImportChat(character.FileName, display, sourcePath, format)
	if err != nil {
		return nil, err
	}
	s.emitter.EntityEvent("chat", "created", chat.FileName)
	return chat, nil
}

// ExportChat writes a chat to a target path.
func (s *ChatService) ExportChat(characterName, fileName, targetPath string, format repositories.ChatExportFormat) error {
	return s.chats.ExportChat(characterName, fileName, targetPath, format)
}

// BackupChat copies a chat into the backup pool.
func (s *ChatService) BackupChat(characterName, fileName string) error {
	return s.chats.BackupChat(characterName, fileName)
}

// ClearCache drops the in-memory chat cache.
func (s *ChatService) ClearCache() {
	s.chats.ClearCache()
}
