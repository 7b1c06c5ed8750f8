package repositories

import (
	"encoding/json"
	"os"

	"tauritavern/internal/domain"
	"tauritavern/internal/models"
	"tauritavern/internal/persistence"
)

// chatHeader is the first JSONL record of a transcript.
type chatHeader struct {
	UserName      string              `json:"user_name"`
	CharacterName string              `json:"character_name"`
	CreateDate    string              `json:"create_date"`
	ChatMetadata  models.ChatMetadata `json:"chat_metadata"`

	Additional map[string]json.RawMessage `json:"-"`
}

func (h chatHeader) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(h.Additional)+4)
	for k, v := range h.Additional {
		out[k] = v
	}
	for key, value := range map[string]any{
		"user_name":      h.UserName,
		"character_name": h.CharacterName,
		"create_date":    h.CreateDate,
		"chat_metadata":  h.ChatMetadata,
	} {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		out[key] = raw
	}
	return json.Marshal(out)
}

func (h *chatHeader) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	take := func(key string, dst any) {
		if v, ok := raw[key]; ok {
			delete(raw, key)
			_ = json.Unmarshal(v, dst)
		}
	}
	take("user_name", &h.UserName)
	take("character_name", &h.CharacterName)
	take("create_date", &h.CreateDate)
	take("chat_metadata", &h.ChatMetadata)
	if len(raw) > 0 {
		h.Additional = raw
	}
	return nil
}

func parseChatFromPayload(fallbackCharacterName, fileName string, records []json.RawMessage) (*models.Chat, error) {
	if len(records) == 0 {
		return nil, domain.InvalidData("empty JSONL file")
	}

	var header chatHeader
	if err := json.Unmarshal(records[0], &header); err != nil {
		return nil, domain.Wrap(domain.KindInvalidData, err, "invalid chat header")
	}
	if header.UserName == "" {
		header.UserName = "User"
	}
	if header.CharacterName == "" {
		header.CharacterName = fallbackCharacterName
	}

	chat := &models.Chat{
		UserName:      header.UserName,
		CharacterName: header.CharacterName,
		CreateDate:    header.CreateDate,
		Metadata:      header.ChatMetadata,
		FileName:      stripJSONLExtension(fileName),
	}
	for _, record := range records[1:] {
		var message models.ChatMessage
		if err := json.Unmarshal(record, &message); err != nil {
			continue
		}
		chat.AddMessage(message)
	}
	return chat, nil
}

func buildPayloadFromChat(chat *models.Chat) ([]json.RawMessage, error) {
	header := chatHeader{
		UserName:      chat.UserName,
		CharacterName: chat.CharacterName,
		CreateDate:    chat.CreateDate,
		ChatMetadata:  chat.Metadata,
	}
	records := make([]json.RawMessage, 0, len(chat.Messages)+1)
	raw, err := json.Marshal(header)
	if err != nil {
		return nil, domain.Wrap(domain.KindInvalidData, err, "failed to serialize chat header")
	}
	records = append(records, raw)
	for i := range chat.Messages {
		raw, err := json.Marshal(chat.Messages[i])
		if err != nil {
			return nil, domain.Wrap(domain.KindInvalidData, err, "failed to serialize chat message")
		}
		records = append(records, raw)
	}
	return records, nil
}

func extractIntegritySlug(header json.RawMessage) string {
	var probe struct {
		ChatMetadata struct {
			Integrity string `json:"integrity"`
		} `json:"chat_metadata"`
	}
	if err := json.Unmarshal(header, &probe); err != nil {
		return ""
	}
	return probe.ChatMetadata.Integrity
}

func (r *ChatRepository) readIntegrityFromExistingFile(path string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", nil
	}
	records, err := persistence.ReadJSONLFile(path)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", nil
	}
	return extractIntegritySlug(records[0]), nil
}

// verifyChatIntegrity enforces the header slug invariant: a non-forced write
// whose incoming slug differs from the on-disk slug is rejected.
func (r *ChatRepository) verifyChatIntegrity(path string, payload []json.RawMessage, force bool) error {
	if force {
		return nil
	}
	if len(payload) == 0 {
		return domain.InvalidData("chat payload is empty")
	}
	incoming := extractIntegritySlug(payload[0])
	if incoming == "" {
		return nil
	}
	existing, err := r.readIntegrityFromExistingFile(path)
	if err != nil {
		return err
	}
	if existing != "" && existing != incoming {
		return domain.ErrIntegrity
	}
	return nil
}

func (r *ChatRepository) writePayloadToPath(path string, payload []json.RawMessage, force bool, backupName, backupKey string) error {
	if len(payload) == 0 {
		return domain.InvalidData("chat payload is empty")
	}
	if err := r.verifyChatIntegrity(path, payload, force); err != nil {
		return err
	}
	if err := persistence.WriteJSONLFile(path, payload); err != nil {
		return err
	}
	return r.backupChatFile(path, backupName, backupKey)
}
