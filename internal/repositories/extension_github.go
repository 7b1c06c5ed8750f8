package repositories

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"tauritavern/internal/domain"
)

const githubAPIBase = "https://api.github.com"

// githubRepoLocation is a parsed GitHub repository URL.
type githubRepoLocation struct {
	Owner     string
	Repo      string
	Reference string // from /tree/{ref} or ?ref=, may be empty
}

// parseGitHubRepoURL accepts https://github.com/{owner}/{repo}[.git]
// [/tree/{ref}] plus an optional ?ref= query. Other hosts are rejected.
func parseGitHubRepoURL(raw string) (githubRepoLocation, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return githubRepoLocation{}, domain.InvalidData("invalid GitHub URL %q: %v", raw, err)
	}
	host := strings.ToLower(parsed.Hostname())
	if host != "github.com" && host != "www.github.com" {
		return githubRepoLocation{}, domain.InvalidData("only GitHub repositories are supported")
	}

	var segments []string
	for _, segment := range strings.Split(parsed.Path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	if len(segments) < 2 {
		return githubRepoLocation{}, domain.InvalidData("GitHub URL must include owner and repository")
	}
	owner := strings.TrimSpace(segments[0])
	repo := strings.TrimSpace(strings.TrimSuffix(segments[1], ".git"))
	if owner == "" || repo == "" {
		return githubRepoLocation{}, domain.InvalidData("GitHub owner/repository cannot be empty")
	}

	reference := ""
	if len(segments) >= 4 && segments[2] == "tree" {
		reference = strings.Join(segments[3:], "/")
	} else if ref := strings.TrimSpace(parsed.Query().Get("ref")); ref != "" {
		reference = ref
	}
	return githubRepoLocation{Owner: owner, Repo: repo, Reference: reference}, nil
}

func (r *ExtensionRepository) githubURL(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, segment := range segments {
		escaped[i] = url.PathEscape(segment)
	}
	return r.apiBase + "/" + strings.Join(escaped, "/")
}

func (r *ExtensionRepository) githubGet(rawURL string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, err, "failed to build GitHub request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, err, "GitHub request failed")
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, err, "failed to read GitHub response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if snippet != "" {
			return nil, domain.Internal("GitHub request failed for %q: HTTP %d (%s)", rawURL, resp.StatusCode, snippet)
		}
		return nil, domain.Internal("GitHub request failed for %q: HTTP %d", rawURL, resp.StatusCode)
	}
	return body, nil
}

func (r *ExtensionRepository) githubGetJSON(rawURL string, out any) error {
	body, err := r.githubGet(rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return domain.Wrap(domain.KindInternal, err, "failed to parse GitHub response for %q", rawURL)
	}
	return nil
}

func (r *ExtensionRepository) githubDefaultBranch(owner, repo string) (string, error) {
	var info struct {
		DefaultBranch string `json:"default_branch"`
	}
	if err := r.githubGetJSON(r.githubURL("repos", owner, repo), &info); err != nil {
		return "", err
	}
	if strings.TrimSpace(info.DefaultBranch) == "" {
		return "", domain.Internal("repository %s/%s has no default branch", owner, repo)
	}
	return info.DefaultBranch, nil
}

func (r *ExtensionRepository) githubLatestCommit(owner, repo, reference string) (string, error) {
	var commit struct {
		SHA string `json:"sha"`
	}
	if err := r.githubGetJSON(r.githubURL("repos", owner, repo, "commits", reference), &commit); err != nil {
		return "", err
	}
	if strings.TrimSpace(commit.SHA) == "" {
		return "", domain.Internal("repository %s/%s returned an empty commit SHA for %q", owner, repo, reference)
	}
	return commit.SHA, nil
}

// downloadAndExtractSnapshot fetches the commit zipball and extracts it into
// destination, stripping the single top-level archive folder.
func (r *ExtensionRepository) downloadAndExtractSnapshot(owner, repo, commit, destination string) error {
	body, err := r.githubGet(r.githubURL("repos", owner, repo, "zipball", commit))
	if err != nil {
		return err
	}
	return extractZipBytes(body, destination)
}

func stripArchiveRoot(name string) (string, bool) {
	parts := strings.SplitN(filepath.ToSlash(name), "/", 2)
	if len(parts) < 2 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func extractZipBytes(data []byte, destination string) error {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return domain.Wrap(domain.KindInternal, err, "failed to read downloaded ZIP archive")
	}
	for _, entry := range archive.File {
		relative, ok := stripArchiveRoot(entry.Name)
		if !ok {
			continue
		}
		// Reject entries that escape the destination.
		cleaned := filepath.Clean(relative)
		if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
			continue
		}
		outputPath := filepath.Join(destination, cleaned)
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(outputPath, 0o755); err != nil {
				return domain.Wrap(domain.KindInternal, err, "failed to create directory %s", outputPath)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
			return domain.Wrap(domain.KindInternal, err, "failed to create directory for %s", outputPath)
		}
		src, err := entry.Open()
		if err != nil {
			return domain.Wrap(domain.KindInternal, err, "failed to read ZIP entry %s", entry.Name)
		}
		dst, err := os.Create(outputPath)
		if err != nil {
			src.Close()
			return domain.Wrap(domain.KindInternal, err, "failed to create file %s", outputPath)
		}
		if _, err := io.Copy(dst, src); err != nil {
			src.Close()
			dst.Close()
			return domain.Wrap(domain.KindInternal, err, "failed to write file %s", outputPath)
		}
		src.Close()
		dst.Close()
	}
	return nil
}

// createTempDirectory allocates a hidden temp dir next to the target so the
// final activation is a same-filesystem rename.
func createTempDirectory(parent, prefix string) (string, error) {
	for i := 0; i < 8; i++ {
		candidate := filepath.Join(parent, fmt.Sprintf(".%s-%s", prefix, uuid.NewString()))
		if _, err := os.Stat(candidate); err == nil {
			continue
		}
		if err := os.MkdirAll(candidate, 0o755); err != nil {
			return "", domain.Wrap(domain.KindInternal, err, "failed to create temporary directory %s", candidate)
		}
		return candidate, nil
	}
	return "", domain.Internal("failed to allocate temporary directory for extension operation")
}

// replaceDirectory swaps source into destination's place: destination moves
// to a hidden backup, source is renamed in, the backup is removed. A failed
// activation restores the backup.
func replaceDirectory(source, destination string) error {
	backup := filepath.Join(filepath.Dir(destination),
		fmt.Sprintf(".backup-%s-%s", filepath.Base(destination), uuid.NewString()))
	if err := os.Rename(destination, backup); err != nil {
		return domain.Wrap(domain.KindInternal, err, "failed to move existing extension %s aside", destination)
	}
	if err := os.Rename(source, destination); err != nil {
		_ = os.Rename(backup, destination)
		return domain.Wrap(domain.KindInternal, err, "failed to activate updated extension %s", destination)
	}
	os.RemoveAll(backup)
	return nil
}

// git metadata inference for extensions installed by a plain git clone.

func parseOriginRemoteURL(config string) (string, bool) {
	inOrigin := false
	for _, line := range strings.Split(config, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			inOrigin = trimmed == `[remote "origin"]`
			continue
		}
		if !inOrigin {
			continue
		}
		if key, value, ok := strings.Cut(trimmed, "="); ok && strings.TrimSpace(key) == "url" {
			return strings.TrimSpace(value), true
		}
	}
	return "", false
}

func normalizeGitRemoteURL(remote string) string {
	trimmed := strings.TrimSpace(remote)
	if path, ok := strings.CutPrefix(trimmed, "git@github.com:"); ok {
		return "https://github.com/" + path
	}
	if path, ok := strings.CutPrefix(trimmed, "ssh://git@github.com/"); ok {
		return "https://github.com/" + path
	}
	return trimmed
}

// resolveGitHeadCommit resolves HEAD content to a commit sha, following a
// symbolic ref through refs/… and packed-refs.
func resolveGitHeadCommit(gitDir, headContent string) (string, bool) {
	trimmed := strings.TrimSpace(headContent)
	if trimmed == "" {
		return "", false
	}
	refName, isRef := strings.CutPrefix(trimmed, "ref: ")
	if !isRef {
		return trimmed, true
	}
	refName = strings.TrimSpace(refName)
	if refName == "" {
		return "", false
	}
	if data, err := os.ReadFile(filepath.Join(gitDir, filepath.FromSlash(refName))); err == nil {
		if commit := strings.TrimSpace(string(data)); commit != "" {
			return commit, true
		}
	}
	if data, err := os.ReadFile(filepath.Join(gitDir, "packed-refs")); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "^") {
				continue
			}
			fields := strings.Fields(line)
			if len(fields) >= 2 && fields[1] == refName {
				return fields[0], true
			}
		}
	}
	return "", false
}
