// Package archive exports and imports the whole data root as a single ZIP,
// with progress reporting and cooperative cancellation between files.
package archive

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tauritavern/internal/domain"
)

// Progress reports how far a job has come.
type Progress func(stage string, done, total int)

// Status describes a running or finished archive job.
type Status struct {
	Stage     string `json:"stage"`
	Done      int    `json:"done"`
	Total     int    `json:"total"`
	Cancelled bool   `json:"cancelled"`
	Err       string `json:"error,omitempty"`
}

// Job tracks one export or import.
type Job struct {
	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
}

// NewJob creates a job bound to ctx; Cancel aborts it between files.
func NewJob(parent context.Context) (*Job, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &Job{cancel: cancel}, ctx
}

// Cancel requests cooperative cancellation.
func (j *Job) Cancel() { j.cancel() }

// Status returns a snapshot of the job state.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *Job) update(stage string, done, total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status.Stage = stage
	j.status.Done = done
	j.status.Total = total
}

func (j *Job) finish(err error, cancelled bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status.Cancelled = cancelled
	if err != nil {
		j.status.Err = err.Error()
	}
}

// Export writes dataRoot into a ZIP at targetPath. Cancellation removes the
// partial archive.
func Export(ctx context.Context, job *Job, dataRoot, targetPath string) error {
	var files []string
	err := filepath.WalkDir(dataRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return domain.Wrap(domain.KindInternal, err, "failed to enumerate data root %s", dataRoot)
	}

	out, err := os.Create(targetPath)
	if err != nil {
		return domain.Wrap(domain.KindInternal, err, "failed to create archive %s", targetPath)
	}
	writer := zip.NewWriter(out)

	fail := func(err error, cancelled bool) error {
		writer.Close()
		out.Close()
		os.Remove(targetPath)
		job.finish(err, cancelled)
		return err
	}

	for i, path := range files {
		select {
		case <-ctx.Done():
			return fail(domain.Internal("archive export cancelled"), true)
		default:
		}
		job.update("export", i, len(files))

		relative, err := filepath.Rel(dataRoot, path)
		if err != nil {
			return fail(domain.Wrap(domain.KindInternal, err, "failed to relativize %s", path), false)
		}
		entry, err := writer.Create(filepath.ToSlash(relative))
		if err != nil {
			return fail(domain.Wrap(domain.KindInternal, err, "failed to add archive entry %s", relative), false)
		}
		in, err := os.Open(path)
		if err != nil {
			return fail(domain.Wrap(domain.KindInternal, err, "failed to open %s", path), false)
		}
		if _, err := io.Copy(entry, in); err != nil {
			in.Close()
			return fail(domain.Wrap(domain.KindInternal, err, "failed to write archive entry %s", relative), false)
		}
		in.Close()
	}

	if err := writer.Close(); err != nil {
		out.Close()
		os.Remove(targetPath)
		job.finish(err, false)
		return domain.Wrap(domain.KindInternal, err, "failed to finalize archive %s", targetPath)
	}
	if err := out.Close(); err != nil {
		os.Remove(targetPath)
		job.finish(err, false)
		return domain.Wrap(domain.KindInternal, err, "failed to close archive %s", targetPath)
	}
	job.update("export", len(files), len(files))
	job.finish(nil, false)
	return nil
}

// Import extracts an uploaded archive into workspace. The caller decides when
// (and whether) to promote the staged tree into the live data root.
func Import(ctx context.Context, job *Job, archivePath, workspace string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return domain.Wrap(domain.KindInvalidData, err, "failed to open archive %s", archivePath)
	}
	defer reader.Close()

	if err := os.RemoveAll(workspace); err != nil {
		return domain.Wrap(domain.KindInternal, err, "failed to reset workspace %s", workspace)
	}
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return domain.Wrap(domain.KindInternal, err, "failed to create workspace %s", workspace)
	}

	fail := func(err error, cancelled bool) error {
		os.RemoveAll(workspace)
		job.finish(err, cancelled)
		return err
	}

	for i, entry := range reader.File {
		select {
		case <-ctx.Done():
			return fail(domain.Internal("archive import cancelled"), true)
		default:
		}
		job.update("import", i, len(reader.File))

		cleaned := filepath.Clean(filepath.FromSlash(entry.Name))
		if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
			continue
		}
		target := filepath.Join(workspace, cleaned)
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fail(domain.Wrap(domain.KindInternal, err, "failed to create %s", target), false)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fail(domain.Wrap(domain.KindInternal, err, "failed to create directory for %s", target), false)
		}
		src, err := entry.Open()
		if err != nil {
			return fail(domain.Wrap(domain.KindInvalidData, err, "failed to read archive entry %s", entry.Name), false)
		}
		dst, err := os.Create(target)
		if err != nil {
			src.Close()
			return fail(domain.Wrap(domain.KindInternal, err, "failed to create %s", target), false)
		}
		if _, err := io.Copy(dst, src); err != nil {
			src.Close()
			dst.Close()
			return fail(domain.Wrap(domain.KindInternal, err, "failed to extract %s", entry.Name), false)
		}
		src.Close()
		dst.Close()
	}
	job.update("import", len(reader.File), len(reader.File))
	job.finish(nil, false)
	return nil
}
