package repositories

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"tauritavern/internal/domain"
	"tauritavern/internal/persistence"
	"tauritavern/internal/utils"
)

func backupFilePrefix(characterName string) string {
	return chatBackupPrefix + utils.SanitizeBackupName(characterName) + "_"
}

func (r *ChatRepository) backupFileName(characterName string) string {
	return backupFilePrefix(characterName) + utils.BackupTimestamp(r.now()) + ".jsonl"
}

// shouldBackup implements the per-chat throttle window: the first call inside
// the window wins, later calls short-circuit.
func (r *ChatRepository) shouldBackup(key string) bool {
	r.throttleMu.Lock()
	defer r.throttleMu.Unlock()
	last, ok := r.throttle[key]
	return !ok || r.now().Sub(last) >= r.throttleInterval
}

func (r *ChatRepository) markBackup(key string) {
	r.throttleMu.Lock()
	defer r.throttleMu.Unlock()
	r.throttle[key] = r.now()
}

// BackupChat copies a chat file into the backup pool, subject to the throttle
// and retention limits.
func (r *ChatRepository) BackupChat(characterName, fileName string) error {
	return r.backupChatFile(r.chatPath(characterName, fileName), characterName, r.cacheKey(characterName, fileName))
}

func (r *ChatRepository) backupChatFile(chatPath, backupName, backupKey string) error {
	if !r.backupEnabled {
		return nil
	}
	if !r.shouldBackup(backupKey) {
		return nil
	}

	backupPath := filepath.Join(r.backupsDir, r.backupFileName(backupName))
	if err := persistence.CopyFile(chatPath, backupPath); err != nil {
		return domain.Wrap(domain.KindInternal, err, "failed to backup chat file %s", chatPath)
	}
	r.markBackup(backupKey)

	// SillyTavern retention semantics: per-chat prefix cap first, then the
	// global chat_ pool cap.
	if err := r.removeOldBackups(backupFilePrefix(backupName), r.maxBackupsPerChat); err != nil {
		return err
	}
	return r.removeOldBackups(chatBackupPrefix, r.maxTotalBackups)
}

// removeOldBackups prunes files with the given name prefix down to max,
// deleting oldest by mtime. max <= 0 means unbounded.
func (r *ChatRepository) removeOldBackups(prefix string, max int) error {
	if max <= 0 {
		return nil
	}

	files, err := persistence.ListFilesWithExtension(r.backupsDir, "jsonl")
	if err != nil {
		return err
	}

	type backup struct {
		path    string
		modTime time.Time
	}
	var matching []backup
	for _, path := range files {
		name := filepath.Base(path)
		if len(name) < len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		matching = append(matching, backup{path: path, modTime: info.ModTime()})
	}
	if len(matching) <= max {
		return nil
	}

	sort.Slice(matching, func(i, j int) bool {
		return matching[i].modTime.Before(matching[j].modTime)
	})
	for _, old := range matching[:len(matching)-max] {
		if err := os.Remove(old.path); err != nil {
			slog.Error("failed to remove old backup", "path", old.path, "error", err)
			continue
		}
		slog.Debug("removed old backup", "path", old.path)
	}
	return nil
}
