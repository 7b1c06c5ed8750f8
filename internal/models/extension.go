package models

// ExtensionType tells where an extension lives.
type ExtensionType string

const (
	ExtensionSystem ExtensionType = "system"
	ExtensionLocal  ExtensionType = "local"
	ExtensionGlobal ExtensionType = "global"
)

// ExtensionManifest is the manifest.json inside an extension directory.
type ExtensionManifest struct {
	DisplayName         string            `json:"display_name"`
	Version             string            `json:"version"`
	Author              string            `json:"author"`
	Description         string            `json:"description,omitempty"`
	JS                  string            `json:"js,omitempty"`
	CSS                 string            `json:"css,omitempty"`
	Requires            []string          `json:"requires,omitempty"`
	Optional            []string          `json:"optional,omitempty"`
	LoadingOrder        int               `json:"loading_order"`
	AutoUpdate          bool              `json:"auto_update"`
	GenerateInterceptor string            `json:"generate_interceptor,omitempty"`
	I18N                map[string]string `json:"i18n,omitempty"`
}

// ExtensionSource is the source.json side-car recording where a snapshot came
// from.
type ExtensionSource struct {
	Owner           string `json:"owner"`
	Repo            string `json:"repo"`
	Reference       string `json:"reference"`
	RemoteURL       string `json:"remote_url"`
	InstalledCommit string `json:"installed_commit"`
}

// Extension describes one installed extension.
type Extension struct {
	Name       string             `json:"name"`
	Type       ExtensionType      `json:"type"`
	Manifest   *ExtensionManifest `json:"manifest,omitempty"`
	Path       string             `json:"path"`
	RemoteURL  string             `json:"remote_url,omitempty"`
	CommitHash string             `json:"commit_hash,omitempty"`
	BranchName string             `json:"branch_name,omitempty"`
}

// ExtensionVersion reports the installed revision of an extension.
type ExtensionVersion struct {
	CurrentBranchName string `json:"current_branch_name"`
	CurrentCommitHash string `json:"current_commit_hash"`
	IsUpToDate        bool   `json:"is_up_to_date"`
	RemoteURL         string `json:"remote_url"`
}

// ExtensionInstallResult is returned by a fresh install.
type ExtensionInstallResult struct {
	Version       string `json:"version"`
	Author        string `json:"author"`
	DisplayName   string `json:"display_name"`
	ExtensionPath string `json:"extension_path"`
}

// ExtensionUpdateResult is returned by an update attempt.
type ExtensionUpdateResult struct {
	ShortCommitHash string `json:"short_commit_hash"`
	ExtensionPath   string `json:"extension_path"`
	IsUpToDate      bool   `json:"is_up_to_date"`
	RemoteURL       string `json:"remote_url"`
}
