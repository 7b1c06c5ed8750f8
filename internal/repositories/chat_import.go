package repositories

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"tauritavern/internal/domain"
	"tauritavern/internal/models"
	"tauritavern/internal/utils"
)

// ChatImportFormat tags the source application of an imported transcript.
type ChatImportFormat string

const (
	ImportSillyTavern ChatImportFormat = "sillytavern"
	ImportOoba        ChatImportFormat = "ooba"
	ImportAgnai       ChatImportFormat = "agnai"
	ImportCAITools    ChatImportFormat = "caitools"
	ImportKoboldLite  ChatImportFormat = "koboldlite"
	ImportRisuAI      ChatImportFormat = "risuai"
)

// nextImportChatStem allocates an unused file stem for an imported chat:
// "{display} - {date} imported" with " 2", " 3"… collision suffixes.
func (r *ChatRepository) nextImportChatStem(characterName, characterDisplayName string) string {
	base := utils.SanitizeFilename(characterDisplayName)
	if base == "" {
		base = utils.SanitizePathComponent(characterName, "character")
	}
	stem := fmt.Sprintf("%s - %s imported", base, utils.HumanizedDate(r.now()))

	candidate := stem
	for suffix := 2; ; suffix++ {
		if _, err := os.Stat(r.chatPath(characterName, candidate)); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s %d", stem, suffix)
	}
}

// NextGroupChatID allocates an unused group chat id from the humanized date.
func (r *ChatRepository) NextGroupChatID() string {
	base := utils.HumanizedDate(r.now())
	candidate := base
	for suffix := 2; ; suffix++ {
		if _, err := os.Stat(r.groupChatPath(candidate)); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s %d", base, suffix)
	}
}

// ImportChat converts a foreign transcript into the canonical schema and saves
// it under a fresh stem for the character.
func (r *ChatRepository) ImportChat(characterName, characterDisplayName, sourcePath string, format ChatImportFormat) (*models.Chat, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NotFound("import source not found: %s", sourcePath)
		}
		return nil, domain.Wrap(domain.KindInternal, err, "failed to read import source %s", sourcePath)
	}

	var messages []models.ChatMessage
	header := chatHeader{
		UserName:      "User",
		CharacterName: characterDisplayName,
		CreateDate:    utils.HumanizedDate(r.now()),
	}

	switch format {
	case ImportSillyTavern:
		header, messages, err = readSillyTavernChat(data, characterDisplayName)
	case ImportOoba:
		messages, err = readOobaChat(data, characterDisplayName)
	case ImportAgnai:
		messages, err = readAgnaiChat(data, characterDisplayName)
	case ImportCAITools:
		messages, err = readCAIToolsChat(data, characterDisplayName)
	case ImportKoboldLite:
		messages, err = readKoboldLiteChat(data, characterDisplayName)
	case ImportRisuAI:
		messages, err = readRisuAIChat(data, characterDisplayName)
	default:
		return nil, domain.InvalidData("unsupported chat import format: %s", format)
	}
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, domain.InvalidData("import source contains no messages")
	}

	chat := &models.Chat{
		UserName:      header.UserName,
		CharacterName: characterDisplayName,
		CreateDate:    header.CreateDate,
		Metadata:      header.ChatMetadata,
		Messages:      messages,
		FileName:      r.nextImportChatStem(characterName, characterDisplayName),
	}
	if err := r.Save(chat, false); err != nil {
		return nil, err
	}
	return chat, nil
}

// readSillyTavernChat parses a native JSONL transcript, keeping the original
// header when one is present.
func readSillyTavernChat(data []byte, characterName string) (chatHeader, []models.ChatMessage, error) {
	header := chatHeader{UserName: "User", CharacterName: characterName}
	var messages []models.ChatMessage

	lines := splitNonEmptyLines(data)
	if len(lines) == 0 {
		return header, nil, domain.InvalidData("empty SillyTavern transcript")
	}
	start := 0
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(lines[0], &probe); err != nil {
		return header, nil, domain.InvalidData("invalid SillyTavern transcript header")
	}
	if _, ok := probe["user_name"]; ok {
		if err := json.Unmarshal(lines[0], &header); err != nil {
			return header, nil, domain.Wrap(domain.KindInvalidData, err, "invalid SillyTavern header")
		}
		start = 1
	}
	for _, line := range lines[start:] {
		var message models.ChatMessage
		if err := json.Unmarshal(line, &message); err != nil {
			continue
		}
		messages = append(messages, message)
	}
	return header, messages, nil
}

func splitNonEmptyLines(data []byte) []json.RawMessage {
	var lines []json.RawMessage
	start := 0
	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1
			trimmed := trimSpaceBytes(line)
			if len(trimmed) > 0 {
				lines = append(lines, json.RawMessage(trimmed))
			}
		}
	}
	return lines
}

func trimSpaceBytes(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t' || b[0] == '\r') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

// readOobaChat parses a text-generation-webui export: {"internal": [[user,
// bot], …]}.
func readOobaChat(data []byte, characterName string) ([]models.ChatMessage, error) {
	var doc struct {
		Internal [][]string `json:"internal"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domain.Wrap(domain.KindInvalidData, err, "invalid Ooba transcript")
	}
	var messages []models.ChatMessage
	for _, pair := range doc.Internal {
		if len(pair) > 0 && pair[0] != "" && pair[0] != "<|BEGIN-VISIBLE-CHAT|>" {
			messages = append(messages, models.UserMessage("User", pair[0]))
		}
		if len(pair) > 1 && pair[1] != "" {
			messages = append(messages, models.CharacterMessage(characterName, pair[1]))
		}
	}
	return messages, nil
}

// readAgnaiChat parses an Agnaistic export: {"messages": [{"msg", "userId" |
// "characterId", "createdAt"}]}.
func readAgnaiChat(data []byte, characterName string) ([]models.ChatMessage, error) {
	var doc struct {
		Messages []struct {
			Msg         string `json:"msg"`
			UserID      string `json:"userId"`
			CharacterID string `json:"characterId"`
			CreatedAt   string `json:"createdAt"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domain.Wrap(domain.KindInvalidData, err, "invalid Agnai transcript")
	}
	var messages []models.ChatMessage
	for _, entry := range doc.Messages {
		sendDate := utils.MessageDate(time.Now())
		if t, err := time.Parse(time.RFC3339, entry.CreatedAt); err == nil {
			sendDate = utils.MessageDate(t)
		}
		if entry.UserID != "" {
			messages = append(messages, models.ChatMessage{
				Name: "User", IsUser: true, SendDate: sendDate, Mes: entry.Msg,
			})
		} else {
			messages = append(messages, models.ChatMessage{
				Name: characterName, SendDate: sendDate, Mes: entry.Msg,
			})
		}
	}
	return messages, nil
}

// readCAIToolsChat parses a CAI Tools export: {"histories": [{"msgs":
// [{"text", "src": {"is_human", "name"}}]}]}.
func readCAIToolsChat(data []byte, characterName string) ([]models.ChatMessage, error) {
	var doc struct {
		Histories []struct {
			Msgs []struct {
				Text string `json:"text"`
				Src  struct {
					IsHuman bool   `json:"is_human"`
					Name    string `json:"name"`
				} `json:"src"`
			} `json:"msgs"`
		} `json:"histories"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domain.Wrap(domain.KindInvalidData, err, "invalid CAI Tools transcript")
	}
	if len(doc.Histories) == 0 {
		return nil, domain.InvalidData("CAI Tools export has no histories")
	}
	var messages []models.ChatMessage
	for _, msg := range doc.Histories[0].Msgs {
		name := msg.Src.Name
		if msg.Src.IsHuman {
			if name == "" {
				name = "User"
			}
			messages = append(messages, models.UserMessage(name, msg.Text))
		} else {
			if name == "" {
				name = characterName
			}
			messages = append(messages, models.CharacterMessage(name, msg.Text))
		}
	}
	return messages, nil
}

// readKoboldLiteChat parses a Kobold Lite save: the prompt becomes the opening
// character message and actions alternate user/character.
func readKoboldLiteChat(data []byte, characterName string) ([]models.ChatMessage, error) {
	var doc struct {
		Prompt  string   `json:"prompt"`
		Actions []string `json:"actions"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domain.Wrap(domain.KindInvalidData, err, "invalid Kobold Lite save")
	}
	var messages []models.ChatMessage
	if doc.Prompt != "" {
		messages = append(messages, models.CharacterMessage(characterName, doc.Prompt))
	}
	for i, action := range doc.Actions {
		if action == "" {
			continue
		}
		if i%2 == 0 {
			messages = append(messages, models.UserMessage("User", action))
		} else {
			messages = append(messages, models.CharacterMessage(characterName, action))
		}
	}
	return messages, nil
}

// readRisuAIChat parses a RisuAI export: {"data": {"message": [{"role",
// "data"}]}}.
func readRisuAIChat(data []byte, characterName string) ([]models.ChatMessage, error) {
	var doc struct {
		Data struct {
			Message []struct {
				Role string `json:"role"`
				Data string `json:"data"`
			} `json:"message"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domain.Wrap(domain.KindInvalidData, err, "invalid RisuAI transcript")
	}
	var messages []models.ChatMessage
	for _, entry := range doc.Data.Message {
		if entry.Role == "user" {
			messages = append(messages, models.UserMessage("User", entry.Data))
		} else {
			messages = append(messages, models.CharacterMessage(characterName, entry.Data))
		}
	}
	return messages, nil
}
