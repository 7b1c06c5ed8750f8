package models

import "encoding/json"

// AppSettings are the application-level settings stored as settings.json at
// the data root.
type AppSettings struct {
	Server    ServerSettings    `json:"server"`
	Interface InterfaceSettings `json:"interface"`
	Security  SecuritySettings  `json:"security"`
}

// ServerSettings configure the local command server.
type ServerSettings struct {
	Port          int    `json:"port"`
	Host          string `json:"host"`
	DataDirectory string `json:"data_directory"`
}

// InterfaceSettings are UI defaults the frontend reads at startup.
type InterfaceSettings struct {
	DefaultTheme       string `json:"default_theme"`
	DefaultCharacter   string `json:"default_character,omitempty"`
	ShowWelcomeMessage bool   `json:"show_welcome_message"`
}

// SecuritySettings gate optional protections for the local instance.
type SecuritySettings struct {
	EnableAuthentication  bool `json:"enable_authentication"`
	SessionTimeoutMinutes int  `json:"session_timeout_minutes"`
}

// DefaultAppSettings returns the settings written on first run.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Server: ServerSettings{
			Port:          8000,
			Host:          "127.0.0.1",
			DataDirectory: "data",
		},
		Interface: InterfaceSettings{
			DefaultTheme:       "default",
			ShowWelcomeMessage: true,
		},
		Security: SecuritySettings{
			SessionTimeoutMinutes: 60,
		},
	}
}

// UserSettings is the free-form frontend settings document. It is opaque to
// the backend and round-trips untouched.
type UserSettings struct {
	Data json.RawMessage
}

func (s UserSettings) MarshalJSON() ([]byte, error) {
	if len(s.Data) == 0 {
		return []byte("{}"), nil
	}
	return s.Data, nil
}

func (s *UserSettings) UnmarshalJSON(data []byte) error {
	s.Data = append(s.Data[:0], data...)
	return nil
}

// SettingsSnapshot describes one timestamped copy of the user settings.
type SettingsSnapshot struct {
	Date int64  `json:"date"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}
