package repositories

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tauritavern/internal/domain"
	"tauritavern/internal/models"
	"tauritavern/internal/persistence"
	"tauritavern/internal/utils"
)

const sourceMetadataFile = "source.json"

// ExtensionRepository installs and maintains UI extensions as directory
// snapshots of GitHub repositories.
type ExtensionRepository struct {
	userExtensionsDir   string
	globalExtensionsDir string
	client              *http.Client
	apiBase             string
}

// NewExtensionRepository creates an extension repository. The HTTP client is
// shared with the provider proxy.
func NewExtensionRepository(userExtensionsDir, globalExtensionsDir string, client *http.Client) *ExtensionRepository {
	return &ExtensionRepository{
		userExtensionsDir:   userExtensionsDir,
		globalExtensionsDir: globalExtensionsDir,
		client:              client,
		apiBase:             githubAPIBase,
	}
}

// SetAPIBase overrides the GitHub API endpoint; used by tests.
func (r *ExtensionRepository) SetAPIBase(base string) { r.apiBase = strings.TrimSuffix(base, "/") }

func (r *ExtensionRepository) rootFor(global bool) string {
	if global {
		return r.globalExtensionsDir
	}
	return r.userExtensionsDir
}

func (r *ExtensionRepository) extensionPath(name string, global bool) string {
	return filepath.Join(r.rootFor(global), utils.SanitizePathComponent(name, "extension"))
}

// Manifest reads and decodes the manifest.json of an extension directory.
// A missing manifest returns nil without error.
func (r *ExtensionRepository) Manifest(extensionPath string) (*models.ExtensionManifest, error) {
	path := filepath.Join(extensionPath, "manifest.json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	manifest := models.ExtensionManifest{LoadingOrder: 100}
	if err := persistence.ReadJSONFile(path, &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

func (r *ExtensionRepository) requiredManifest(extensionPath string) (*models.ExtensionManifest, error) {
	manifest, err := r.Manifest(extensionPath)
	if err != nil {
		return nil, err
	}
	if manifest == nil {
		return nil, domain.InvalidData("Extension manifest not found")
	}
	return manifest, nil
}

func (r *ExtensionRepository) readSourceMetadata(extensionPath string) (*models.ExtensionSource, error) {
	path := filepath.Join(extensionPath, sourceMetadataFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	var source models.ExtensionSource
	if err := persistence.ReadJSONFile(path, &source); err != nil {
		return nil, err
	}
	return &source, nil
}

func (r *ExtensionRepository) writeSourceMetadata(extensionPath string, source *models.ExtensionSource) error {
	return persistence.WriteJSONFile(filepath.Join(extensionPath, sourceMetadataFile), source)
}

// inferSourceMetadataFromGit derives source metadata for extensions installed
// by a plain git clone, reading .git/config and resolving HEAD.
func (r *ExtensionRepository) inferSourceMetadataFromGit(extensionPath string) *models.ExtensionSource {
	gitDir := filepath.Join(extensionPath, ".git")
	if info, err := os.Stat(gitDir); err != nil || !info.IsDir() {
		return nil
	}
	config, err := os.ReadFile(filepath.Join(gitDir, "config"))
	if err != nil {
		return nil
	}
	remote, ok := parseOriginRemoteURL(string(config))
	if !ok {
		return nil
	}
	location, err := parseGitHubRepoURL(normalizeGitRemoteURL(remote))
	if err != nil {
		return nil
	}
	head, err := os.ReadFile(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return nil
	}
	commit, ok := resolveGitHeadCommit(gitDir, string(head))
	if !ok {
		return nil
	}
	reference := commit
	if refName, isRef := strings.CutPrefix(strings.TrimSpace(string(head)), "ref: "); isRef {
		reference = strings.TrimPrefix(strings.TrimSpace(refName), "refs/heads/")
	}
	if strings.TrimSpace(reference) == "" {
		return nil
	}
	return &models.ExtensionSource{
		Owner:           location.Owner,
		Repo:            location.Repo,
		Reference:       reference,
		RemoteURL:       fmt.Sprintf("https://github.com/%s/%s", location.Owner, location.Repo),
		InstalledCommit: commit,
	}
}

func (r *ExtensionRepository) resolveSourceMetadata(extensionPath string) (*models.ExtensionSource, error) {
	source, err := r.readSourceMetadata(extensionPath)
	if err != nil {
		return nil, err
	}
	if source != nil {
		return source, nil
	}
	return r.inferSourceMetadataFromGit(extensionPath), nil
}

func shortCommitHash(commit string) string {
	if len(commit) <= 7 {
		return commit
	}
	return commit[:7]
}

// FindAll lists the extensions of one root.
func (r *ExtensionRepository) FindAll(global bool) ([]models.Extension, error) {
	root := r.rootFor(global)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, domain.Wrap(domain.KindInternal, err, "failed to read extensions directory %s", root)
	}
	extensionType := models.ExtensionLocal
	if global {
		extensionType = models.ExtensionGlobal
	}
	var extensions []models.Extension
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(root, entry.Name())
		extension := models.Extension{Name: entry.Name(), Type: extensionType, Path: path}
		if manifest, err := r.Manifest(path); err == nil {
			extension.Manifest = manifest
		}
		if source, err := r.resolveSourceMetadata(path); err == nil && source != nil {
			extension.RemoteURL = source.RemoteURL
			extension.CommitHash = source.InstalledCommit
			extension.BranchName = source.Reference
		}
		extensions = append(extensions, extension)
	}
	sort.Slice(extensions, func(i, j int) bool {
		return strings.ToLower(extensions[i].Name) < strings.ToLower(extensions[j].Name)
	})
	return extensions, nil
}

// Install resolves a GitHub URL to a commit snapshot and activates it under
// the chosen extensions root.
func (r *ExtensionRepository) Install(rawURL string, global bool, branch string) (*models.ExtensionInstallResult, error) {
	location, err := parseGitHubRepoURL(rawURL)
	if err != nil {
		return nil, err
	}
	reference := strings.TrimSpace(branch)
	if reference == "" {
		reference = location.Reference
	}
	if reference == "" {
		reference, err = r.githubDefaultBranch(location.Owner, location.Repo)
		if err != nil {
			return nil, err
		}
	}
	commit, err := r.githubLatestCommit(location.Owner, location.Repo, reference)
	if err != nil {
		return nil, err
	}

	manifest, targetPath, err := r.installSnapshot(location, reference, commit, global)
	if err != nil {
		return nil, err
	}
	return &models.ExtensionInstallResult{
		Version:       manifest.Version,
		Author:        manifest.Author,
		DisplayName:   manifest.DisplayName,
		ExtensionPath: targetPath,
	}, nil
}

// installSnapshot downloads the commit zipball into a temp directory,
// validates the manifest, swaps the directory into place and writes
// source.json.
func (r *ExtensionRepository) installSnapshot(location githubRepoLocation, reference, commit string, global bool) (*models.ExtensionManifest, string, error) {
	root := r.rootFor(global)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, "", domain.Wrap(domain.KindInternal, err, "failed to create extensions root %s", root)
	}

	tempDir, err := createTempDirectory(root, location.Repo)
	if err != nil {
		return nil, "", err
	}
	defer os.RemoveAll(tempDir)

	if err := r.downloadAndExtractSnapshot(location.Owner, location.Repo, commit, tempDir); err != nil {
		return nil, "", err
	}
	manifest, err := r.requiredManifest(tempDir)
	if err != nil {
		return nil, "", err
	}

	targetPath := r.extensionPath(location.Repo, global)
	if _, err := os.Stat(targetPath); os.IsNotExist(err) {
		if err := os.Rename(tempDir, targetPath); err != nil {
			return nil, "", domain.Wrap(domain.KindInternal, err, "failed to activate extension %s", targetPath)
		}
	} else if err := replaceDirectory(tempDir, targetPath); err != nil {
		return nil, "", err
	}

	source := &models.ExtensionSource{
		Owner:           location.Owner,
		Repo:            location.Repo,
		Reference:       reference,
		RemoteURL:       fmt.Sprintf("https://github.com/%s/%s", location.Owner, location.Repo),
		InstalledCommit: commit,
	}
	if err := r.writeSourceMetadata(targetPath, source); err != nil {
		return nil, "", err
	}
	return manifest, targetPath, nil
}

// Update re-resolves the stored reference and reinstalls when the remote head
// moved.
func (r *ExtensionRepository) Update(name string, global bool) (*models.ExtensionUpdateResult, error) {
	path := r.extensionPath(name, global)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, domain.NotFound("extension not found: %s", name)
	}
	source, err := r.resolveSourceMetadata(path)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, domain.InvalidData("extension %q has no source metadata", name)
	}

	latest, err := r.githubLatestCommit(source.Owner, source.Repo, source.Reference)
	if err != nil {
		return nil, err
	}
	if latest == source.InstalledCommit {
		return &models.ExtensionUpdateResult{
			ShortCommitHash: shortCommitHash(latest),
			ExtensionPath:   path,
			IsUpToDate:      true,
			RemoteURL:       source.RemoteURL,
		}, nil
	}

	location := githubRepoLocation{Owner: source.Owner, Repo: source.Repo}
	if _, _, err := r.installSnapshot(location, source.Reference, latest, global); err != nil {
		return nil, err
	}
	return &models.ExtensionUpdateResult{
		ShortCommitHash: shortCommitHash(latest),
		ExtensionPath:   path,
		IsUpToDate:      false,
		RemoteURL:       source.RemoteURL,
	}, nil
}

// Delete removes an installed extension directory.
func (r *ExtensionRepository) Delete(name string, global bool) error {
	path := r.extensionPath(name, global)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return domain.NotFound("extension not found: %s", name)
	}
	if err := os.RemoveAll(path); err != nil {
		return domain.Wrap(domain.KindInternal, err, "failed to delete extension %s", path)
	}
	return nil
}

// Move relocates an extension between the local and global roots.
func (r *ExtensionRepository) Move(name, src, dst string) error {
	srcRoot, err := r.resolveMoveRoot(src)
	if err != nil {
		return err
	}
	dstRoot, err := r.resolveMoveRoot(dst)
	if err != nil {
		return err
	}
	if srcRoot == dstRoot {
		return nil
	}
	sanitized := utils.SanitizePathComponent(name, "extension")
	srcPath := filepath.Join(srcRoot, sanitized)
	dstPath := filepath.Join(dstRoot, sanitized)
	if _, err := os.Stat(srcPath); os.IsNotExist(err) {
		return domain.NotFound("extension not found: %s", name)
	}
	if _, err := os.Stat(dstPath); err == nil {
		return domain.InvalidData("extension %q already exists at destination", name)
	}
	if err := os.MkdirAll(dstRoot, 0o755); err != nil {
		return domain.Wrap(domain.KindInternal, err, "failed to create extensions root %s", dstRoot)
	}
	if err := os.Rename(srcPath, dstPath); err != nil {
		// Cross-device moves fall back to copy + delete.
		if copyErr := copyDirAll(srcPath, dstPath); copyErr != nil {
			return domain.Wrap(domain.KindInternal, copyErr, "failed to move extension %s", name)
		}
		if rmErr := os.RemoveAll(srcPath); rmErr != nil {
			return domain.Wrap(domain.KindInternal, rmErr, "failed to remove moved extension %s", srcPath)
		}
	}
	return nil
}

func (r *ExtensionRepository) resolveMoveRoot(location string) (string, error) {
	switch location {
	case "global":
		return r.globalExtensionsDir, nil
	case "local":
		return r.userExtensionsDir, nil
	}
	return "", domain.InvalidData("invalid extension location: %s", location)
}

// Version synthesizes version information from source.json, falling back to
// .git inference.
func (r *ExtensionRepository) Version(name string, global bool) (*models.ExtensionVersion, error) {
	path := r.extensionPath(name, global)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, domain.NotFound("extension not found: %s", name)
	}
	source, err := r.resolveSourceMetadata(path)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, domain.NotFound("extension %q has no source metadata", name)
	}
	version := &models.ExtensionVersion{
		CurrentBranchName: source.Reference,
		CurrentCommitHash: source.InstalledCommit,
		RemoteURL:         source.RemoteURL,
	}
	if latest, err := r.githubLatestCommit(source.Owner, source.Repo, source.Reference); err == nil {
		version.IsUpToDate = latest == source.InstalledCommit
	}
	return version, nil
}

func copyDirAll(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, relative)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, in)
		return err
	})
}
