package services

import (
	"encoding/json"
	"log/slog"

	"tauritavern/internal/events"
	"tauritavern/internal/models"
	"tauritavern/internal/repositories"
)

// SettingsService handles app settings, the user settings document, snapshots
// and the aggregate frontend settings response.
type SettingsService struct {
	settings *repositories.SettingsRepository
	presets  *repositories.PresetRepository
	themes   *repositories.NamedDocumentStore
	movingUI *repositories.NamedDocumentStore
	quick    *repositories.NamedDocumentStore
	worlds   *repositories.WorldInfoRepository
	emitter  *events.Emitter
}

// NewSettingsService creates a new settings service.
func NewSettingsService(
	settings *repositories.SettingsRepository,
	presets *repositories.PresetRepository,
	themes, movingUI, quick *repositories.NamedDocumentStore,
	worlds *repositories.WorldInfoRepository,
	emitter *events.Emitter,
) *SettingsService {
	return &SettingsService{
		settings: settings,
		presets:  presets,
		themes:   themes,
		movingUI: movingUI,
		quick:    quick,
		worlds:   worlds,
		emitter:  emitter,
	}
}

// Get loads the app settings.
func (s *SettingsService) Get() (models.AppSettings, error) {
	return s.settings.Load()
}

// Update persists new app settings.
func (s *SettingsService) Update(settings models.AppSettings) (models.AppSettings, error) {
	if err := s.settings.Save(settings); err != nil {
		return settings, err
	}
	s.emitter.Emit(events.SettingsUpdated, nil)
	return settings, nil
}

// SaveUserSettings persists the free-form frontend settings document.
func (s *SettingsService) SaveUserSettings(settings models.UserSettings) error {
	if err := s.settings.SaveUserSettings(settings); err != nil {
		return err
	}
	s.emitter.Emit(events.SettingsUpdated, nil)
	return nil
}

// AggregateResponse is the frontend's one-call settings bundle.
type AggregateResponse struct {
	Settings                      string            `json:"settings"`
	KoboldAISettings              []json.RawMessage `json:"koboldai_settings"`
	KoboldAISettingNames          []string          `json:"koboldai_setting_names"`
	WorldNames                    []string          `json:"world_names"`
	NovelAISettings               []json.RawMessage `json:"novelai_settings"`
	NovelAISettingNames           []string          `json:"novelai_setting_names"`
	OpenAISettings                []json.RawMessage `json:"openai_settings"`
	OpenAISettingNames            []string          `json:"openai_setting_names"`
	TextGenerationWebUIPresets    []json.RawMessage `json:"textgenerationwebui_presets"`
	TextGenerationWebUIPresetName []string          `json:"textgenerationwebui_preset_names"`
	Themes                        []json.RawMessage `json:"themes"`
	MovingUIPresets               []json.RawMessage `json:"movingUIPresets"`
	QuickReplyPresets             []json.RawMessage `json:"quickReplyPresets"`
	Instruct                      []json.RawMessage `json:"instruct"`
	Context                       []json.RawMessage `json:"context"`
	SysPrompt                     []json.RawMessage `json:"sysprompt"`
	Reasoning                     []json.RawMessage `json:"reasoning"`
	EnableExtensions              bool              `json:"enable_extensions"`
	EnableExtensionsAutoUpdate    bool              `json:"enable_extensions_auto_update"`
	EnableAccounts                bool              `json:"enable_accounts"`
}

func (s *SettingsService) presetBundle(presetType models.PresetType) ([]json.RawMessage, []string) {
	presets, err := s.presets.FindAll(presetType)
	if err != nil {
		return nil, nil
	}
	var bodies []json.RawMessage
	var names []string
	for _, preset := range presets {
		body, err := preset.DataWithName()
		if err != nil {
			continue
		}
		bodies = append(bodies, body)
		names = append(names, preset.Name)
	}
	return bodies, names
}

// Aggregate assembles the user settings plus every preset, theme, quick-reply
// set and world name.
func (s *SettingsService) Aggregate() (*AggregateResponse, error) {
	slog.Info("assembling aggregate settings response")
	userSettings, err := s.settings.LoadUserSettings()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(userSettings)
	if err != nil {
		return nil, err
	}

	response := &AggregateResponse{
		Settings:                   string(raw),
		EnableExtensions:           true,
		EnableExtensionsAutoUpdate: true,
	}
	response.KoboldAISettings, response.KoboldAISettingNames = s.presetBundle(models.PresetKobold)
	response.NovelAISettings, response.NovelAISettingNames = s.presetBundle(models.PresetNovel)
	response.OpenAISettings, response.OpenAISettingNames = s.presetBundle(models.PresetOpenAI)
	response.TextGenerationWebUIPresets, response.TextGenerationWebUIPresetName = s.presetBundle(models.PresetTextGen)
	response.Instruct, _ = s.presetBundle(models.PresetInstruct)
	response.Context, _ = s.presetBundle(models.PresetContext)
	response.SysPrompt, _ = s.presetBundle(models.PresetSysPrompt)
	response.Reasoning, _ = s.presetBundle(models.PresetReasoning)

	if themes, err := s.themes.List(); err == nil {
		response.Themes = themes
	}
	if movingUI, err := s.movingUI.List(); err == nil {
		response.MovingUIPresets = movingUI
	}
	if quick, err := s.quick.List(); err == nil {
		response.QuickReplyPresets = quick
	}
	if worldNames, err := s.worlds.Names(); err == nil {
		response.WorldNames = worldNames
	}
	return response, nil
}

// CreateSnapshot stores a timestamped copy of the user settings.
func (s *SettingsService) CreateSnapshot() error {
	return s.settings.CreateSnapshot()
}

// Snapshots lists stored snapshots.
func (s *SettingsService) Snapshots() ([]models.SettingsSnapshot, error) {
	return s.settings.Snapshots()
}

// LoadSnapshot reads one snapshot document.
func (s *SettingsService) LoadSnapshot(name string) (models.UserSettings, error) {
	return s.settings.LoadSnapshot(name)
}

// RestoreSnapshot replaces the live user settings with a snapshot.
func (s *SettingsService) RestoreSnapshot(name string) error {
	if err := s.settings.RestoreSnapshot(name); err != nil {
		return err
	}
	s.emitter.Emit(events.SettingsUpdated, nil)
	return nil
}
