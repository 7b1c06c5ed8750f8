package repositories

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"tauritavern/internal/domain"
	"tauritavern/internal/providers"
)

func TestParseGitHubRepoURL(t *testing.T) {
	cases := []struct {
		in        string
		owner     string
		repo      string
		reference string
		wantErr   bool
	}{
		{in: "https://github.com/o/r", owner: "o", repo: "r"},
		{in: "https://github.com/o/r.git", owner: "o", repo: "r"},
		{in: "https://www.github.com/o/r/tree/dev", owner: "o", repo: "r", reference: "dev"},
		{in: "https://github.com/o/r/tree/feature/deep", owner: "o", repo: "r", reference: "feature/deep"},
		{in: "https://github.com/o/r?ref=v2", owner: "o", repo: "r", reference: "v2"},
		{in: "https://gitlab.com/o/r", wantErr: true},
		{in: "https://github.com/onlyowner", wantErr: true},
	}
	for _, tc := range cases {
		location, err := parseGitHubRepoURL(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tc.in)
			} else if !domain.IsInvalidData(err) {
				t.Errorf("%q: expected InvalidData, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", tc.in, err)
			continue
		}
		if location.Owner != tc.owner || location.Repo != tc.repo || location.Reference != tc.reference {
			t.Errorf("%q: got %+v", tc.in, location)
		}
	}
}

func TestResolveGitHeadCommit(t *testing.T) {
	gitDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(gitDir, "refs", "heads"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(gitDir, "refs", "heads", "main"), []byte("abc123\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	commit, ok := resolveGitHeadCommit(gitDir, "ref: refs/heads/main\n")
	if !ok || commit != "abc123" {
		t.Errorf("loose ref: %q %v", commit, ok)
	}

	// Packed-refs fallback.
	if err := os.Remove(filepath.Join(gitDir, "refs", "heads", "main")); err != nil {
		t.Fatal(err)
	}
	packed := "# pack-refs with: peeled fully-peeled sorted\ndef456 refs/heads/main\n"
	if err := os.WriteFile(filepath.Join(gitDir, "packed-refs"), []byte(packed), 0o644); err != nil {
		t.Fatal(err)
	}
	commit, ok = resolveGitHeadCommit(gitDir, "ref: refs/heads/main")
	if !ok || commit != "def456" {
		t.Errorf("packed ref: %q %v", commit, ok)
	}

	// Detached HEAD.
	commit, ok = resolveGitHeadCommit(gitDir, "0123abcd")
	if !ok || commit != "0123abcd" {
		t.Errorf("detached: %q %v", commit, ok)
	}
}

func TestParseOriginRemoteURL(t *testing.T) {
	config := `[core]
	repositoryformatversion = 0
[remote "upstream"]
	url = https://github.com/other/repo
[remote "origin"]
	url = git@github.com:o/r.git
	fetch = +refs/heads/*:refs/remotes/origin/*
`
	remote, ok := parseOriginRemoteURL(config)
	if !ok || remote != "git@github.com:o/r.git" {
		t.Errorf("remote = %q %v", remote, ok)
	}
	if got := normalizeGitRemoteURL(remote); got != "https://github.com/o/r.git" {
		t.Errorf("normalized = %q", got)
	}
}

// zipballOf builds a GitHub-style zipball: one top-level root folder wrapping
// the files.
func zipballOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, content := range files {
		entry, err := writer.Create("o-r-abcdef1/" + name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type fakeGitHub struct {
	t             *testing.T
	defaultBranch string
	headCommit    string
	manifest      string
}

func (f *fakeGitHub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"default_branch": f.defaultBranch})
	})
	mux.HandleFunc("/repos/o/r/commits/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"sha": f.headCommit})
	})
	mux.HandleFunc("/repos/o/r/zipball/", func(w http.ResponseWriter, r *http.Request) {
		files := map[string]string{"index.js": "export {}\n"}
		if f.manifest != "" {
			files["manifest.json"] = f.manifest
		}
		w.Write(zipballOf(f.t, files))
	})
	return mux
}

func newTestExtensionRepo(t *testing.T, fake *fakeGitHub) (*ExtensionRepository, string) {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	root := t.TempDir()
	repo := NewExtensionRepository(
		filepath.Join(root, "extensions"),
		filepath.Join(root, "extensions-global"),
		providers.NewHTTPClient(),
	)
	repo.SetAPIBase(server.URL)
	return repo, root
}

const testManifest = `{"display_name":"Test Extension","version":"1.2.0","author":"o","auto_update":true}`

func TestExtensionInstallAndUpdate(t *testing.T) {
	fake := &fakeGitHub{t: t, defaultBranch: "main", headCommit: "c1c1c1c1c1c1c1c1c1c1", manifest: testManifest}
	repo, root := newTestExtensionRepo(t, fake)

	result, err := repo.Install("https://github.com/o/r", false, "")
	if err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if result.DisplayName != "Test Extension" || result.Version != "1.2.0" {
		t.Errorf("install result: %+v", result)
	}

	extensionDir := filepath.Join(root, "extensions", "r")
	var source struct {
		Owner           string `json:"owner"`
		Repo            string `json:"repo"`
		Reference       string `json:"reference"`
		RemoteURL       string `json:"remote_url"`
		InstalledCommit string `json:"installed_commit"`
	}
	data, err := os.ReadFile(filepath.Join(extensionDir, "source.json"))
	if err != nil {
		t.Fatalf("source.json missing: %v", err)
	}
	if err := json.Unmarshal(data, &source); err != nil {
		t.Fatal(err)
	}
	if source.Owner != "o" || source.Repo != "r" || source.Reference != "main" {
		t.Errorf("source metadata: %+v", source)
	}
	if source.InstalledCommit != fake.headCommit {
		t.Errorf("installed commit = %q", source.InstalledCommit)
	}
	if source.RemoteURL != "https://github.com/o/r" {
		t.Errorf("remote url = %q", source.RemoteURL)
	}

	// No remote movement: update reports up to date.
	update, err := repo.Update("r", false)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !update.IsUpToDate {
		t.Errorf("expected up-to-date, got %+v", update)
	}

	// Remote head advances: update reinstalls and reports the short hash.
	fake.headCommit = "c2c2c2c2c2c2c2c2c2c2"
	update, err = repo.Update("r", false)
	if err != nil {
		t.Fatalf("second update failed: %v", err)
	}
	if update.IsUpToDate {
		t.Error("expected a real update")
	}
	if update.ShortCommitHash != "c2c2c2c" {
		t.Errorf("short hash = %q", update.ShortCommitHash)
	}

	// And it converges.
	update, err = repo.Update("r", false)
	if err != nil {
		t.Fatal(err)
	}
	if !update.IsUpToDate {
		t.Errorf("expected convergence, got %+v", update)
	}
}

func TestExtensionInstallMissingManifest(t *testing.T) {
	fake := &fakeGitHub{t: t, defaultBranch: "main", headCommit: "c1c1c1c1"}
	repo, root := newTestExtensionRepo(t, fake)

	_, err := repo.Install("https://github.com/o/r", false, "")
	if !domain.IsInvalidData(err) {
		t.Fatalf("expected InvalidData, got %v", err)
	}
	if want := "Extension manifest not found"; err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
	// No directory may be left behind.
	if _, statErr := os.Stat(filepath.Join(root, "extensions", "r")); !os.IsNotExist(statErr) {
		t.Error("failed install left a directory")
	}
}

func TestExtensionMove(t *testing.T) {
	fake := &fakeGitHub{t: t, defaultBranch: "main", headCommit: "c1c1c1c1", manifest: testManifest}
	repo, root := newTestExtensionRepo(t, fake)
	if _, err := repo.Install("https://github.com/o/r", false, ""); err != nil {
		t.Fatal(err)
	}

	if err := repo.Move("r", "local", "global"); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "extensions-global", "r", "manifest.json")); err != nil {
		t.Errorf("extension not at global root: %v", err)
	}
	if err := repo.Move("r", "local", "global"); !domain.IsNotFound(err) {
		t.Errorf("expected NotFound for second move, got %v", err)
	}
	if err := repo.Move("r", "global", "elsewhere"); !domain.IsInvalidData(err) {
		t.Errorf("expected InvalidData for bad location, got %v", err)
	}
}

func TestExtensionVersionFromGitInference(t *testing.T) {
	fake := &fakeGitHub{t: t, defaultBranch: "main", headCommit: "abc123"}
	repo, root := newTestExtensionRepo(t, fake)

	// Simulate a hand-cloned extension: .git but no source.json.
	extensionDir := filepath.Join(root, "extensions", "cloned")
	gitDir := filepath.Join(extensionDir, ".git")
	if err := os.MkdirAll(filepath.Join(gitDir, "refs", "heads"), 0o755); err != nil {
		t.Fatal(err)
	}
	config := fmt.Sprintf("[remote \"origin\"]\n\turl = %s\n", "git@github.com:o/r.git")
	if err := os.WriteFile(filepath.Join(gitDir, "config"), []byte(config), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte("ref: refs/heads/main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(gitDir, "refs", "heads", "main"), []byte("abc123\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	version, err := repo.Version("cloned", false)
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if version.CurrentBranchName != "main" || version.CurrentCommitHash != "abc123" {
		t.Errorf("version = %+v", version)
	}
	if !version.IsUpToDate {
		t.Errorf("expected up-to-date against fake head, got %+v", version)
	}
}
