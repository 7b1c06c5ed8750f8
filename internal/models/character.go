package models

import (
	"encoding/json"
)

// Character is the decoded form of a character card. The on-disk identity is
// FileName, the sanitized PNG stem; every cross-reference (chats, groups,
// avatars) keys on it.
type Character struct {
	Name                    string                     `json:"name"`
	Description             string                     `json:"description"`
	Personality             string                     `json:"personality"`
	Scenario                string                     `json:"scenario"`
	FirstMes                string                     `json:"first_mes"`
	MesExample              string                     `json:"mes_example"`
	CreatorNotes            string                     `json:"creator_notes,omitempty"`
	Avatar                  string                     `json:"avatar"`
	Chat                    string                     `json:"chat"`
	Creator                 string                     `json:"creator,omitempty"`
	CharacterVersion        string                     `json:"character_version,omitempty"`
	Tags                    []string                   `json:"tags,omitempty"`
	Fav                     bool                       `json:"fav"`
	Talkativeness           float64                    `json:"talkativeness"`
	CreateDate              string                     `json:"create_date,omitempty"`
	DateAdded               int64                      `json:"date_added,omitempty"`
	DateLastChat            int64                      `json:"date_last_chat,omitempty"`
	AlternateGreetings      []string                   `json:"alternate_greetings,omitempty"`
	SystemPrompt            string                     `json:"system_prompt,omitempty"`
	PostHistoryInstructions string                     `json:"post_history_instructions,omitempty"`
	Extensions              map[string]json.RawMessage `json:"extensions,omitempty"`

	// FileName is the sanitized PNG stem, not part of the card JSON.
	FileName string `json:"-"`
}

// ChatInfo summarizes one chat file for character listings.
type ChatInfo struct {
	FileName     string `json:"file_name"`
	FileSize     string `json:"file_size,omitempty"`
	MessageCount int    `json:"message_count,omitempty"`
	Preview      string `json:"preview,omitempty"`
	LastMessage  int64  `json:"last_mes,omitempty"`
}
