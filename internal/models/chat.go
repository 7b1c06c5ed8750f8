package models

import (
	"encoding/json"
	"math/rand"
	"time"

	"tauritavern/internal/utils"
)

// ChatMetadata is the free-form metadata object carried by the chat header
// record. Known fields are typed; everything else round-trips through
// Additional untouched.
type ChatMetadata struct {
	ChatIDHash int64             `json:"chat_id_hash,omitempty"`
	Integrity  string            `json:"integrity,omitempty"`
	Variables  map[string]string `json:"variables,omitempty"`
	Tainted    bool              `json:"tainted,omitempty"`

	Additional map[string]json.RawMessage `json:"-"`
}

func (m ChatMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Additional)+4)
	for k, v := range m.Additional {
		out[k] = v
	}
	putRaw(out, "chat_id_hash", m.ChatIDHash, m.ChatIDHash != 0)
	putRaw(out, "integrity", m.Integrity, m.Integrity != "")
	putRaw(out, "variables", m.Variables, len(m.Variables) > 0)
	putRaw(out, "tainted", m.Tainted, m.Tainted)
	return json.Marshal(out)
}

func (m *ChatMetadata) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	takeRaw(raw, "chat_id_hash", &m.ChatIDHash)
	takeRaw(raw, "integrity", &m.Integrity)
	takeRaw(raw, "variables", &m.Variables)
	takeRaw(raw, "tainted", &m.Tainted)
	if len(raw) > 0 {
		m.Additional = raw
	}
	return nil
}

// MessageExtra carries per-message generation metadata.
type MessageExtra struct {
	API               string   `json:"api,omitempty"`
	Model             string   `json:"model,omitempty"`
	Reasoning         string   `json:"reasoning,omitempty"`
	ReasoningDuration int64    `json:"reasoning_duration,omitempty"`
	TokenCount        int      `json:"token_count,omitempty"`
	GenStarted        string   `json:"gen_started,omitempty"`
	GenFinished       string   `json:"gen_finished,omitempty"`
	SwipeID           int      `json:"swipe_id,omitempty"`
	Swipes            []string `json:"swipes,omitempty"`
	Title             string   `json:"title,omitempty"`
	ForceAvatar       string   `json:"force_avatar,omitempty"`

	Additional map[string]json.RawMessage `json:"-"`
}

func (e MessageExtra) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(e.Additional)+8)
	for k, v := range e.Additional {
		out[k] = v
	}
	putRaw(out, "api", e.API, e.API != "")
	putRaw(out, "model", e.Model, e.Model != "")
	putRaw(out, "reasoning", e.Reasoning, e.Reasoning != "")
	putRaw(out, "reasoning_duration", e.ReasoningDuration, e.ReasoningDuration != 0)
	putRaw(out, "token_count", e.TokenCount, e.TokenCount != 0)
	putRaw(out, "gen_started", e.GenStarted, e.GenStarted != "")
	putRaw(out, "gen_finished", e.GenFinished, e.GenFinished != "")
	putRaw(out, "swipe_id", e.SwipeID, e.SwipeID != 0)
	putRaw(out, "swipes", e.Swipes, len(e.Swipes) > 0)
	putRaw(out, "title", e.Title, e.Title != "")
	putRaw(out, "force_avatar", e.ForceAvatar, e.ForceAvatar != "")
	return json.Marshal(out)
}

func (e *MessageExtra) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	takeRaw(raw, "api", &e.API)
	takeRaw(raw, "model", &e.Model)
	takeRaw(raw, "reasoning", &e.Reasoning)
	takeRaw(raw, "reasoning_duration", &e.ReasoningDuration)
	takeRaw(raw, "token_count", &e.TokenCount)
	takeRaw(raw, "gen_started", &e.GenStarted)
	takeRaw(raw, "gen_finished", &e.GenFinished)
	takeRaw(raw, "swipe_id", &e.SwipeID)
	takeRaw(raw, "swipes", &e.Swipes)
	takeRaw(raw, "title", &e.Title)
	takeRaw(raw, "force_avatar", &e.ForceAvatar)
	if len(raw) > 0 {
		e.Additional = raw
	}
	return nil
}

// ChatMessage is one record of a chat transcript.
type ChatMessage struct {
	Name     string       `json:"name"`
	IsUser   bool         `json:"is_user"`
	IsSystem bool         `json:"is_system"`
	SendDate string       `json:"send_date"`
	Mes      string       `json:"mes"`
	Extra    MessageExtra `json:"extra"`

	Additional map[string]json.RawMessage `json:"-"`
}

func (m ChatMessage) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Additional)+6)
	for k, v := range m.Additional {
		out[k] = v
	}
	putRaw(out, "name", m.Name, true)
	putRaw(out, "is_user", m.IsUser, true)
	putRaw(out, "is_system", m.IsSystem, true)
	putRaw(out, "send_date", m.SendDate, true)
	putRaw(out, "mes", m.Mes, true)
	putRaw(out, "extra", m.Extra, true)
	return json.Marshal(out)
}

func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	takeRaw(raw, "name", &m.Name)
	takeRaw(raw, "is_user", &m.IsUser)
	takeRaw(raw, "is_system", &m.IsSystem)
	takeRaw(raw, "send_date", &m.SendDate)
	takeRaw(raw, "mes", &m.Mes)
	takeRaw(raw, "extra", &m.Extra)
	if len(raw) > 0 {
		m.Additional = raw
	}
	return nil
}

// UserMessage builds a message authored by the user.
func UserMessage(name, content string) ChatMessage {
	return ChatMessage{
		Name:     name,
		IsUser:   true,
		SendDate: utils.MessageDate(time.Now()),
		Mes:      content,
	}
}

// CharacterMessage builds a message authored by the character.
func CharacterMessage(name, content string) ChatMessage {
	return ChatMessage{
		Name:     name,
		SendDate: utils.MessageDate(time.Now()),
		Mes:      content,
	}
}

// SystemMessage builds a narrator/system message.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{
		Name:     "System",
		IsSystem: true,
		SendDate: utils.MessageDate(time.Now()),
		Mes:      content,
	}
}

// Chat is an ordered transcript owned by one character. The header record is
// split across UserName/CharacterName/CreateDate/Metadata.
type Chat struct {
	UserName      string
	CharacterName string
	CreateDate    string
	Metadata      ChatMetadata
	Messages      []ChatMessage

	// FileName is the on-disk stem without the .jsonl extension.
	FileName string
}

// NewChat creates an empty chat with a fresh id hash and a stem derived from
// the character name and creation date.
func NewChat(userName, characterName string) *Chat {
	createDate := utils.HumanizedDate(time.Now())
	return &Chat{
		UserName:      userName,
		CharacterName: characterName,
		CreateDate:    createDate,
		Metadata:      ChatMetadata{ChatIDHash: rand.Int63()},
		FileName:      characterName + " - " + createDate,
	}
}

// AddMessage appends a message to the transcript.
func (c *Chat) AddMessage(message ChatMessage) {
	c.Messages = append(c.Messages, message)
}

// LastMessage returns the newest message, or nil for an empty chat.
func (c *Chat) LastMessage() *ChatMessage {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// Preview returns a single-line excerpt of the newest message.
func (c *Chat) Preview() string {
	last := c.LastMessage()
	if last == nil {
		return "No messages"
	}
	return utils.Preview(last.Mes)
}

// LastMessageTimestamp returns the newest message's send date in milliseconds,
// or 0 when it cannot be parsed.
func (c *Chat) LastMessageTimestamp() int64 {
	last := c.LastMessage()
	if last == nil {
		return 0
	}
	return utils.ParseMessageDate(last.SendDate)
}

func putRaw(dst map[string]json.RawMessage, key string, value any, present bool) {
	if !present {
		delete(dst, key)
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	dst[key] = raw
}

func takeRaw[T any](src map[string]json.RawMessage, key string, dst *T) {
	raw, ok := src[key]
	if !ok {
		return
	}
	delete(src, key)
	// A malformed field keeps its zero value rather than failing the record.
	_ = json.Unmarshal(raw, dst)
}
