package repositories

import (
	"encoding/base64"
	"encoding/json"

	"tauritavern/internal/domain"
	"tauritavern/internal/models"
	"tauritavern/internal/pngtext"
)

// charaKeyword is the tEXt keyword carrying the character card JSON.
const charaKeyword = "chara"

// cardData is the spec v2/v3 "data" block plus the v1 flat fields. Writing
// emits both so older frontends keep working.
type cardData struct {
	Name                    string                     `json:"name"`
	Description             string                     `json:"description"`
	Personality             string                     `json:"personality"`
	Scenario                string                     `json:"scenario"`
	FirstMes                string                     `json:"first_mes"`
	MesExample              string                     `json:"mes_example"`
	CreatorNotes            string                     `json:"creator_notes,omitempty"`
	SystemPrompt            string                     `json:"system_prompt,omitempty"`
	PostHistoryInstructions string                     `json:"post_history_instructions,omitempty"`
	AlternateGreetings      []string                   `json:"alternate_greetings,omitempty"`
	Tags                    []string                   `json:"tags,omitempty"`
	Creator                 string                     `json:"creator,omitempty"`
	CharacterVersion        string                     `json:"character_version,omitempty"`
	Extensions              map[string]json.RawMessage `json:"extensions,omitempty"`
}

type cardDocument struct {
	Spec        string   `json:"spec,omitempty"`
	SpecVersion string   `json:"spec_version,omitempty"`
	Data        *cardData `json:"data,omitempty"`

	// v1 flat fields.
	cardData
	Avatar        string  `json:"avatar,omitempty"`
	Chat          string  `json:"chat,omitempty"`
	Fav           bool    `json:"fav,omitempty"`
	Talkativeness float64 `json:"talkativeness,omitempty"`
	CreateDate    string  `json:"create_date,omitempty"`
	DateAdded     int64   `json:"date_added,omitempty"`
	DateLastChat  int64   `json:"date_last_chat,omitempty"`
}

// DecodeCharacterCard parses the card JSON embedded in a character PNG.
func DecodeCharacterCard(pngData []byte) (*models.Character, error) {
	text, ok, err := pngtext.ReadKeyword(pngData, charaKeyword)
	if err != nil {
		return nil, domain.Wrap(domain.KindInvalidData, err, "failed to parse character PNG")
	}
	if !ok {
		return nil, domain.InvalidData("character PNG has no %s chunk", charaKeyword)
	}
	raw, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, domain.Wrap(domain.KindInvalidData, err, "character card is not valid base64")
	}
	return decodeCardJSON(raw)
}

func decodeCardJSON(raw []byte) (*models.Character, error) {
	var doc cardDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, domain.Wrap(domain.KindInvalidData, err, "character card is not valid JSON")
	}

	data := doc.cardData
	if doc.Data != nil {
		// The v2/v3 data block wins over the flat fields.
		data = *doc.Data
	}
	return &models.Character{
		Name:                    data.Name,
		Description:             data.Description,
		Personality:             data.Personality,
		Scenario:                data.Scenario,
		FirstMes:                data.FirstMes,
		MesExample:              data.MesExample,
		CreatorNotes:            data.CreatorNotes,
		SystemPrompt:            data.SystemPrompt,
		PostHistoryInstructions: data.PostHistoryInstructions,
		AlternateGreetings:      data.AlternateGreetings,
		Tags:                    data.Tags,
		Creator:                 data.Creator,
		CharacterVersion:        data.CharacterVersion,
		Extensions:              data.Extensions,
		Avatar:                  doc.Avatar,
		Chat:                    doc.Chat,
		Fav:                     doc.Fav,
		Talkativeness:           doc.Talkativeness,
		CreateDate:              doc.CreateDate,
		DateAdded:               doc.DateAdded,
		DateLastChat:            doc.DateLastChat,
	}, nil
}

// EncodeCharacterCard serializes a character into card JSON (v2 shape with v1
// flat fields mirrored).
func EncodeCharacterCard(character *models.Character) ([]byte, error) {
	data := cardData{
		Name:                    character.Name,
		Description:             character.Description,
		Personality:             character.Personality,
		Scenario:                character.Scenario,
		FirstMes:                character.FirstMes,
		MesExample:              character.MesExample,
		CreatorNotes:            character.CreatorNotes,
		SystemPrompt:            character.SystemPrompt,
		PostHistoryInstructions: character.PostHistoryInstructions,
		AlternateGreetings:      character.AlternateGreetings,
		Tags:                    character.Tags,
		Creator:                 character.Creator,
		CharacterVersion:        character.CharacterVersion,
		Extensions:              character.Extensions,
	}
	doc := cardDocument{
		Spec:          "chara_card_v2",
		SpecVersion:   "2.0",
		Data:          &data,
		cardData:      data,
		Avatar:        character.Avatar,
		Chat:          character.Chat,
		Fav:           character.Fav,
		Talkativeness: character.Talkativeness,
		CreateDate:    character.CreateDate,
		DateAdded:     character.DateAdded,
		DateLastChat:  character.DateLastChat,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, domain.Wrap(domain.KindInvalidData, err, "failed to serialize character card")
	}
	return raw, nil
}

// EmbedCharacterCard writes the card JSON into a PNG's chara chunk.
func EmbedCharacterCard(pngData []byte, character *models.Character) ([]byte, error) {
	raw, err := EncodeCharacterCard(character)
	if err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(raw)
	out, err := pngtext.WriteKeyword(pngData, charaKeyword, encoded)
	if err != nil {
		return nil, domain.Wrap(domain.KindInvalidData, err, "failed to write character PNG")
	}
	return out, nil
}
