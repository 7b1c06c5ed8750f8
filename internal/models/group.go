package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// Activation strategies for group chats.
const (
	ActivationNatural = 0
	ActivationList    = 1
	ActivationManual  = 2
	ActivationPooled  = 3
)

// Generation modes for group chats.
const (
	GenerationSwap           = 0
	GenerationAppend         = 1
	GenerationAppendDisabled = 2
)

// Group is a multi-character chat roster stored as groups/{id}.json.
type Group struct {
	ID                 string                     `json:"id"`
	Name               string                     `json:"name"`
	Members            []string                   `json:"members"`
	AvatarURL          string                     `json:"avatar_url,omitempty"`
	AllowSelfResponses bool                       `json:"allow_self_responses"`
	ActivationStrategy int                        `json:"activation_strategy"`
	GenerationMode     int                        `json:"generation_mode"`
	DisabledMembers    []string                   `json:"disabled_members"`
	ChatMetadata       map[string]json.RawMessage `json:"chat_metadata"`
	Fav                bool                       `json:"fav"`
	ChatID             string                     `json:"chat_id"`
	Chats              []string                   `json:"chats"`
	AutoModeDelay      int                        `json:"auto_mode_delay"`
	JoinPrefix         string                     `json:"generation_mode_join_prefix"`
	JoinSuffix         string                     `json:"generation_mode_join_suffix"`
	HideMutedSprites   bool                       `json:"hide_muted_sprites"`
	PastMetadata       map[string]json.RawMessage `json:"past_metadata"`

	DateAdded    int64  `json:"date_added,omitempty"`
	CreateDate   string `json:"create_date,omitempty"`
	ChatSize     int64  `json:"chat_size,omitempty"`
	DateLastChat int64  `json:"date_last_chat,omitempty"`
}

// NewGroup creates a group whose id is the millisecond wall clock at creation
// time, matching the frontend's expectations for chat id allocation.
func NewGroup(name string, members []string, avatarURL string) *Group {
	id := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return &Group{
		ID:                 id,
		Name:               name,
		Members:            members,
		AvatarURL:          avatarURL,
		ActivationStrategy: ActivationNatural,
		GenerationMode:     GenerationSwap,
		DisabledMembers:    []string{},
		ChatMetadata:       map[string]json.RawMessage{},
		ChatID:             id,
		Chats:              []string{id},
		AutoModeDelay:      5,
		HideMutedSprites:   true,
		PastMetadata:       map[string]json.RawMessage{},
	}
}
