package services

import (
	"encoding/json"
	"log/slog"

	"tauritavern/internal/events"
	"tauritavern/internal/models"
	"tauritavern/internal/repositories"
)

// GroupService handles group roster operations.
type GroupService struct {
	groups  *repositories.GroupRepository
	chats   *repositories.ChatRepository
	emitter *events.Emitter
}

// NewGroupService creates a new group service.
func NewGroupService(groups *repositories.GroupRepository, chats *repositories.ChatRepository, emitter *events.Emitter) *GroupService {
	return &GroupService{groups: groups, chats: chats, emitter: emitter}
}

// GetAll lists every group.
func (s *GroupService) GetAll() ([]*models.Group, error) {
	return s.groups.FindAll()
}

// Get loads one group.
func (s *GroupService) Get(id string) (*models.Group, error) {
	return s.groups.FindByID(id)
}

// Create allocates a group id from the wall clock and persists the roster.
func (s *GroupService) Create(name string, members []string, avatarURL string) (*models.Group, error) {
	slog.Info("creating group", "name", name)
	group := models.NewGroup(name, members, avatarURL)
	if err := s.groups.Save(group); err != nil {
		return nil, err
	}
	s.emitter.EntityEvent("group", "created", group.ID)
	return group, nil
}

// GroupUpdate is the optional-field overlay applied by Update.
type GroupUpdate struct {
	Name               *string                     `json:"name,omitempty"`
	Members            *[]string                   `json:"members,omitempty"`
	AvatarURL          *string                     `json:"avatar_url,omitempty"`
	AllowSelfResponses *bool                       `json:"allow_self_responses,omitempty"`
	ActivationStrategy *int                        `json:"activation_strategy,omitempty"`
	GenerationMode     *int                        `json:"generation_mode,omitempty"`
	DisabledMembers    *[]string                   `json:"disabled_members,omitempty"`
	ChatMetadata       *map[string]json.RawMessage `json:"chat_metadata,omitempty"`
	Fav                *bool                       `json:"fav,omitempty"`
	ChatID             *string                     `json:"chat_id,omitempty"`
	Chats              *[]string                   `json:"chats,omitempty"`
	AutoModeDelay      *int                        `json:"auto_mode_delay,omitempty"`
	JoinPrefix         *string                     `json:"generation_mode_join_prefix,omitempty"`
	JoinSuffix         *string                     `json:"generation_mode_join_suffix,omitempty"`
	HideMutedSprites   *bool                       `json:"hide_muted_sprites,omitempty"`
}

// Update overlays the provided fields onto a stored group.
func (s *GroupService) Update(id string, update GroupUpdate) (*models.Group, error) {
	group, err := s.groups.FindByID(id)
	if err != nil {
		return nil, err
	}
	if update.Name != nil {
		group.Name = *update.Name
	}
	if update.Members != nil {
		group.Members = *update.Members
	}
	if update.AvatarURL != nil {
		group.AvatarURL = *update.AvatarURL
	}
	if update.AllowSelfResponses != nil {
		group.AllowSelfResponses = *update.AllowSelfResponses
	}
	if update.ActivationStrategy != nil {
		group.ActivationStrategy = *update.ActivationStrategy
	}
	if update.GenerationMode != nil {
		group.GenerationMode = *update.GenerationMode
	}
	if update.DisabledMembers != nil {
		group.DisabledMembers = *update.DisabledMembers
	}
	if update.ChatMetadata != nil {
		group.ChatMetadata = *update.ChatMetadata
	}
	if update.Fav != nil {
		group.Fav = *update.Fav
	}
	if update.ChatID != nil {
		group.ChatID = *update.ChatID
	}
	if update.Chats != nil {
		group.Chats = *update.Chats
	}
	if update.AutoModeDelay != nil {
		group.AutoModeDelay = *update.AutoModeDelay
	}
	if update.JoinPrefix != nil {
		group.JoinPrefix = *update.JoinPrefix
	}
	if update.JoinSuffix != nil {
		group.JoinSuffix = *update.JoinSuffix
	}
	if update.HideMutedSprites != nil {
		group.HideMutedSprites = *update.HideMutedSprites
	}
	if err := s.groups.Save(group); err != nil {
		return nil, err
	}
	s.emitter.EntityEvent("group", "updated", id)
	return group, nil
}

// Delete removes a group and, when requested, its chat transcripts.
func (s *GroupService) Delete(id string, deleteChats bool) error {
	group, err := s.groups.FindByID(id)
	if err != nil {
		return err
	}
	if deleteChats {
		for _, chatID := range group.Chats {
			if err := s.chats.DeleteGroupChat(chatID); err != nil {
				slog.Warn("failed to delete group chat", "chat", chatID, "error", err)
			}
		}
	}
	if err := s.groups.Delete(id); err != nil {
		return err
	}
	s.emitter.EntityEvent("group", "deleted", id)
	return nil
}
