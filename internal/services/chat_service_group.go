package services

import (
	"encoding/json"

	"tauritavern/internal/models"
)

// GetGroupChat loads a group transcript by chat id.
func (s *ChatService) GetGroupChat(chatID string) (*models.Chat, error) {
	return s.chats.GetGroupChat(chatID)
}

// SaveGroupChat persists a raw group transcript payload.
func (s *ChatService) SaveGroupChat(chatID string, payload []json.RawMessage, force bool) error {
	if err := s.chats.SaveGroupChat(chatID, payload, force); err != nil {
		return err
	}
	s.emitter.EntityEvent("group-chat", "updated", chatID)
	return nil
}

// DeleteGroupChat removes a group transcript.
func (s *ChatService) DeleteGroupChat(chatID string) error {
	if err := s.chats.DeleteGroupChat(chatID); err != nil {
		return err
	}
	s.emitter.EntityEvent("group-chat", "deleted", chatID)
	return nil
}

// NextGroupChatID allocates an unused group chat id.
func (s *ChatService) NextGroupChatID() string {
	return s.chats.NextGroupChatID()
}
