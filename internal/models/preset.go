package models

import (
	"encoding/json"
)

// PresetType identifies which API a preset belongs to; each type maps to its
// own directory under the data root.
type PresetType string

const (
	PresetKobold    PresetType = "kobold"
	PresetNovel     PresetType = "novel"
	PresetOpenAI    PresetType = "openai"
	PresetTextGen   PresetType = "textgenerationwebui"
	PresetInstruct  PresetType = "instruct"
	PresetContext   PresetType = "context"
	PresetSysPrompt PresetType = "sysprompt"
	PresetReasoning PresetType = "reasoning"
)

// ParsePresetType maps an API id string to a preset type.
func ParsePresetType(apiID string) (PresetType, bool) {
	switch apiID {
	case "kobold", "koboldhorde":
		return PresetKobold, true
	case "novel":
		return PresetNovel, true
	case "openai":
		return PresetOpenAI, true
	case "textgenerationwebui":
		return PresetTextGen, true
	case "instruct":
		return PresetInstruct, true
	case "context":
		return PresetContext, true
	case "sysprompt":
		return PresetSysPrompt, true
	case "reasoning":
		return PresetReasoning, true
	}
	return "", false
}

// DirectoryName returns the data-root directory that stores this preset type.
func (t PresetType) DirectoryName() string {
	switch t {
	case PresetKobold:
		return "KoboldAI Settings"
	case PresetNovel:
		return "NovelAI Settings"
	case PresetOpenAI:
		return "OpenAI Settings"
	case PresetTextGen:
		return "TextGen Settings"
	case PresetInstruct:
		return "instruct"
	case PresetContext:
		return "context"
	case PresetSysPrompt:
		return "sysprompt"
	case PresetReasoning:
		return "reasoning"
	}
	return string(t)
}

// Preset is a named opaque settings document.
type Preset struct {
	Name string          `json:"name"`
	Type PresetType      `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DataWithName returns the preset data with the name field stamped in, the
// shape the frontend consumes.
func (p *Preset) DataWithName() (json.RawMessage, error) {
	obj := map[string]json.RawMessage{}
	if len(p.Data) > 0 {
		if err := json.Unmarshal(p.Data, &obj); err != nil {
			obj = map[string]json.RawMessage{}
		}
	}
	name, err := json.Marshal(p.Name)
	if err != nil {
		return nil, err
	}
	obj["name"] = name
	return json.Marshal(obj)
}
