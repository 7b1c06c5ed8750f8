package repositories

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tauritavern/internal/domain"
	"tauritavern/internal/models"
)

func newTestChatRepo(t *testing.T, opts ...ChatRepositoryOption) (*ChatRepository, string) {
	t.Helper()
	root := t.TempDir()
	repo := NewChatRepository(
		filepath.Join(root, "chats"),
		filepath.Join(root, "group chats"),
		filepath.Join(root, "backups"),
		opts...,
	)
	return repo, root
}

func TestSaveAndGetChat(t *testing.T) {
	repo, root := newTestChatRepo(t)

	chat := models.NewChat("Bob", "Alice")
	chat.AddMessage(models.CharacterMessage("Alice", "Hello"))
	chat.AddMessage(models.UserMessage("Bob", "Hi"))
	if err := repo.Save(chat, false); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	path := filepath.Join(root, "chats", "Alice", chat.FileName+".jsonl")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("chat file missing: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 messages, got %d lines", len(lines))
	}

	loaded, err := repo.GetChat("Alice", chat.FileName)
	if err != nil {
		t.Fatalf("GetChat failed: %v", err)
	}
	if loaded.UserName != "Bob" || len(loaded.Messages) != 2 {
		t.Errorf("loaded chat mismatch: %+v", loaded)
	}
	if loaded.Messages[1].Mes != "Hi" || !loaded.Messages[1].IsUser {
		t.Errorf("second message mismatch: %+v", loaded.Messages[1])
	}
}

func TestGetChatMissing(t *testing.T) {
	repo, _ := newTestChatRepo(t)
	if _, err := repo.GetChat("Alice", "absent"); !domain.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func payloadWithIntegrity(slug string, mes string) []json.RawMessage {
	header := `{"user_name":"Bob","character_name":"Alice","create_date":"2025-01-01@00h00m00s","chat_metadata":{"integrity":"` + slug + `"}}`
	message := `{"name":"Alice","is_user":false,"is_system":false,"send_date":"x","mes":"` + mes + `","extra":{}}`
	return []json.RawMessage{json.RawMessage(header), json.RawMessage(message)}
}

func TestIntegrityGuard(t *testing.T) {
	repo, _ := newTestChatRepo(t)

	if err := repo.SaveChatPayload("Alice", "session", payloadWithIntegrity("slug-a", "one"), false); err != nil {
		t.Fatalf("initial write failed: %v", err)
	}

	err := repo.SaveChatPayload("Alice", "session", payloadWithIntegrity("slug-b", "two"), false)
	if err == nil {
		t.Fatal("expected integrity rejection")
	}
	if !domain.IsIntegrity(err) {
		t.Fatalf("expected the integrity sentinel, got %v", err)
	}
	if err.Error() != "integrity" {
		t.Fatalf("expected the literal integrity message, got %q", err.Error())
	}

	// Same slug is accepted.
	if err := repo.SaveChatPayload("Alice", "session", payloadWithIntegrity("slug-a", "three"), false); err != nil {
		t.Fatalf("same-slug write failed: %v", err)
	}

	// Forced write wins and persists the new slug.
	if err := repo.SaveChatPayload("Alice", "session", payloadWithIntegrity("slug-b", "four"), true); err != nil {
		t.Fatalf("forced write failed: %v", err)
	}
	chat, err := repo.GetChat("Alice", "session")
	if err != nil {
		t.Fatal(err)
	}
	if chat.Metadata.Integrity != "slug-b" {
		t.Errorf("expected slug-b persisted, got %q", chat.Metadata.Integrity)
	}
}

func TestIntegrityStampedWhenMissingOnDisk(t *testing.T) {
	repo, _ := newTestChatRepo(t)

	header := `{"user_name":"Bob","character_name":"Alice","create_date":"x","chat_metadata":{}}`
	bare := []json.RawMessage{json.RawMessage(header)}
	if err := repo.SaveChatPayload("Alice", "session", bare, false); err != nil {
		t.Fatal(err)
	}
	// Incoming slug against a slugless file is accepted and stamped in.
	if err := repo.SaveChatPayload("Alice", "session", payloadWithIntegrity("slug-a", "one"), false); err != nil {
		t.Fatalf("stamping write failed: %v", err)
	}
	chat, err := repo.GetChat("Alice", "session")
	if err != nil {
		t.Fatal(err)
	}
	if chat.Metadata.Integrity != "slug-a" {
		t.Errorf("expected slug-a stamped, got %q", chat.Metadata.Integrity)
	}
}

func TestAddMessage(t *testing.T) {
	repo, _ := newTestChatRepo(t)
	chat := models.NewChat("Bob", "Alice")
	chat.AddMessage(models.CharacterMessage("Alice", "Hello"))
	if err := repo.Save(chat, false); err != nil {
		t.Fatal(err)
	}

	updated, err := repo.AddMessage("Alice", chat.FileName, models.UserMessage("Bob", "Hi"))
	if err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if len(updated.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(updated.Messages))
	}
	reloaded, err := repo.GetChat("Alice", chat.FileName)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Messages) != 2 {
		t.Errorf("persisted message count = %d", len(reloaded.Messages))
	}
}

func TestRenameChat(t *testing.T) {
	repo, _ := newTestChatRepo(t)
	chat := models.NewChat("Bob", "Alice")
	if err := repo.Save(chat, false); err != nil {
		t.Fatal(err)
	}

	if err := repo.RenameChat("Alice", chat.FileName, "renamed"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if _, err := repo.GetChat("Alice", "renamed"); err != nil {
		t.Errorf("renamed chat unreadable: %v", err)
	}
	if _, err := repo.GetChat("Alice", chat.FileName); !domain.IsNotFound(err) {
		t.Errorf("old name should be gone, got %v", err)
	}

	// Renaming onto itself is a no-op.
	if err := repo.RenameChat("Alice", "renamed", "renamed"); err != nil {
		t.Errorf("self-rename should succeed: %v", err)
	}

	other := models.NewChat("Bob", "Alice")
	other.FileName = "other"
	if err := repo.Save(other, false); err != nil {
		t.Fatal(err)
	}
	if err := repo.RenameChat("Alice", "other", "renamed"); !domain.IsInvalidData(err) {
		t.Errorf("expected collision rejection, got %v", err)
	}
}

func TestDeleteChatIdempotent(t *testing.T) {
	repo, _ := newTestChatRepo(t)
	chat := models.NewChat("Bob", "Alice")
	if err := repo.Save(chat, false); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteChat("Alice", chat.FileName); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := repo.DeleteChat("Alice", chat.FileName); err != nil {
		t.Errorf("second delete should be a no-op: %v", err)
	}
}

func TestSearchChats(t *testing.T) {
	repo, _ := newTestChatRepo(t)
	chat := models.NewChat("Bob", "Alice")
	chat.AddMessage(models.CharacterMessage("Alice", "The dragon sleeps"))
	chat.AddMessage(models.UserMessage("Bob", "Wake the DRAGON up"))
	if err := repo.Save(chat, false); err != nil {
		t.Fatal(err)
	}
	other := models.NewChat("Bob", "Zoe")
	other.AddMessage(models.CharacterMessage("Zoe", "nothing relevant"))
	if err := repo.Save(other, false); err != nil {
		t.Fatal(err)
	}

	results, err := repo.SearchChats("dragon", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].CharacterName != "Alice" {
		t.Errorf("wrong character: %+v", results[0])
	}
	if results[0].Preview != "The dragon sleeps" {
		t.Errorf("expected first matching line as preview, got %q", results[0].Preview)
	}

	filtered, err := repo.SearchChats("dragon", "Zoe")
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 0 {
		t.Errorf("filter should exclude Alice, got %d results", len(filtered))
	}
}

func TestGetCharacterChatsSorted(t *testing.T) {
	repo, _ := newTestChatRepo(t)

	older := models.NewChat("Bob", "Alice")
	older.FileName = "older"
	older.AddMessage(models.ChatMessage{Name: "Alice", SendDate: "June 1, 2025 1:00pm", Mes: "old"})
	newer := models.NewChat("Bob", "Alice")
	newer.FileName = "newer"
	newer.AddMessage(models.ChatMessage{Name: "Alice", SendDate: "June 2, 2025 1:00pm", Mes: "new"})
	for _, chat := range []*models.Chat{older, newer} {
		if err := repo.Save(chat, false); err != nil {
			t.Fatal(err)
		}
	}

	chats, err := repo.GetCharacterChats("Alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 2 {
		t.Fatalf("expected 2 chats, got %d", len(chats))
	}
	if chats[0].FileName != "newer" {
		t.Errorf("expected newest first, got %q", chats[0].FileName)
	}
}

func TestConcurrentSavesSerialize(t *testing.T) {
	repo, _ := newTestChatRepo(t)
	chat := models.NewChat("Bob", "Alice")
	chat.FileName = "session"
	if err := repo.Save(chat, false); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AddMessage("Alice", "session", models.UserMessage("Bob", "ping"))
			if err != nil {
				t.Errorf("concurrent AddMessage failed: %v", err)
			}
		}()
	}
	wg.Wait()

	final, err := repo.GetChat("Alice", "session")
	if err != nil {
		t.Fatal(err)
	}
	if len(final.Messages) == 0 {
		t.Error("expected messages to survive concurrent appends")
	}
}

func TestGroupChatRoundTrip(t *testing.T) {
	repo, _ := newTestChatRepo(t)
	payload := payloadWithIntegrity("slug-g", "group hello")
	if err := repo.SaveGroupChat("1719000000000", payload, false); err != nil {
		t.Fatalf("SaveGroupChat failed: %v", err)
	}
	chat, err := repo.GetGroupChat("1719000000000")
	if err != nil {
		t.Fatalf("GetGroupChat failed: %v", err)
	}
	if len(chat.Messages) != 1 || chat.Messages[0].Mes != "group hello" {
		t.Errorf("group chat mismatch: %+v", chat)
	}
	if err := repo.DeleteGroupChat("1719000000000"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetGroupChat("1719000000000"); !domain.IsNotFound(err) {
		t.Errorf("expected NotFound after delete, got %v", err)
	}
}

func TestBackupThrottle(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	repo, root := newTestChatRepo(t, WithClock(clock))

	chat := models.NewChat("Bob", "Alice")
	chat.FileName = "session"
	if err := repo.Save(chat, false); err != nil {
		t.Fatal(err)
	}
	// Saves inside the 10 s window must not add backups.
	for i := 0; i < 5; i++ {
		now = now.Add(time.Second)
		if err := repo.Save(chat, false); err != nil {
			t.Fatal(err)
		}
	}
	backups, err := os.ReadDir(filepath.Join(root, "backups"))
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 1 {
		t.Fatalf("expected 1 backup inside the window, got %d", len(backups))
	}

	// Past the window a second backup lands.
	now = now.Add(11 * time.Second)
	if err := repo.Save(chat, false); err != nil {
		t.Fatal(err)
	}
	backups, err = os.ReadDir(filepath.Join(root, "backups"))
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 2 {
		t.Fatalf("expected 2 backups after the window, got %d", len(backups))
	}
	for _, entry := range backups {
		if !strings.HasPrefix(entry.Name(), "chat_alice_") {
			t.Errorf("unexpected backup name %q", entry.Name())
		}
	}
}

func TestBackupRotation(t *testing.T) {
	now := time.Now().Add(-24 * time.Hour)
	clock := func() time.Time { return now }
	repo, root := newTestChatRepo(t, WithClock(clock))

	chat := models.NewChat("Bob", "Alice")
	chat.FileName = "session"

	backupsDir := filepath.Join(root, "backups")
	var oldest string
	for i := 0; i < 51; i++ {
		if err := repo.Save(chat, false); err != nil {
			t.Fatal(err)
		}
		entries, err := os.ReadDir(backupsDir)
		if err != nil {
			t.Fatal(err)
		}
		// Pin distinct mtimes so oldest-by-mtime pruning is deterministic.
		for _, entry := range entries {
			path := filepath.Join(backupsDir, entry.Name())
			info, err := entry.Info()
			if err != nil {
				t.Fatal(err)
			}
			if info.ModTime().After(now.Add(-time.Second)) {
				if err := os.Chtimes(path, now, now); err != nil {
					t.Fatal(err)
				}
			}
		}
		if i == 0 {
			first, err := os.ReadDir(backupsDir)
			if err != nil {
				t.Fatal(err)
			}
			oldest = first[0].Name()
		}
		now = now.Add(11 * time.Second)
	}

	entries, err := os.ReadDir(backupsDir)
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "chat_alice_") {
			count++
			if entry.Name() == oldest {
				t.Errorf("oldest backup %q should have been pruned", oldest)
			}
		}
	}
	if count != 50 {
		t.Errorf("expected exactly 50 backups, got %d", count)
	}
}

func TestGlobalBackupCap(t *testing.T) {
	now := time.Now().Add(-24 * time.Hour)
	clock := func() time.Time { return now }
	repo, root := newTestChatRepo(t, WithClock(clock), WithMaxTotalBackups(3))

	for i, character := range []string{"Alice", "Bea", "Cyrus", "Dana", "Eve"} {
		chat := models.NewChat("Bob", character)
		chat.FileName = "session"
		if err := repo.Save(chat, false); err != nil {
			t.Fatal(err)
		}
		// Distinct mtimes per backup.
		entries, err := os.ReadDir(filepath.Join(root, "backups"))
		if err != nil {
			t.Fatal(err)
		}
		stamp := now.Add(time.Duration(i) * time.Minute)
		for _, entry := range entries {
			_ = os.Chtimes(filepath.Join(root, "backups", entry.Name()), stamp, stamp)
		}
		now = now.Add(11 * time.Second)
	}

	entries, err := os.ReadDir(filepath.Join(root, "backups"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("expected global cap of 3 backups, got %d", len(entries))
	}
}

func TestImportChatStems(t *testing.T) {
	repo, root := newTestChatRepo(t)
	source := filepath.Join(root, "import.jsonl")
	content := `{"user_name":"Bob","character_name":"Alice","create_date":"x","chat_metadata":{}}` + "\n" +
		`{"name":"Alice","is_user":false,"is_system":false,"send_date":"y","mes":"imported line","extra":{}}` + "\n"
	if err := os.WriteFile(source, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	first, err := repo.ImportChat("Alice", "Alice", source, ImportSillyTavern)
	if err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	if !strings.Contains(first.FileName, " imported") {
		t.Errorf("expected imported suffix in %q", first.FileName)
	}
	if len(first.Messages) != 1 || first.Messages[0].Mes != "imported line" {
		t.Errorf("message mismatch: %+v", first.Messages)
	}

	second, err := repo.ImportChat("Alice", "Alice", source, ImportSillyTavern)
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if second.FileName == first.FileName {
		t.Errorf("collision suffix missing: %q", second.FileName)
	}
}

func TestImportOoba(t *testing.T) {
	repo, root := newTestChatRepo(t)
	source := filepath.Join(root, "ooba.json")
	if err := os.WriteFile(source, []byte(`{"internal":[["hello there","general kenobi"]]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	chat, err := repo.ImportChat("Alice", "Alice", source, ImportOoba)
	if err != nil {
		t.Fatalf("ooba import failed: %v", err)
	}
	if len(chat.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(chat.Messages))
	}
	if !chat.Messages[0].IsUser || chat.Messages[1].IsUser {
		t.Errorf("role mapping wrong: %+v", chat.Messages)
	}
}

func TestImportRisuAI(t *testing.T) {
	repo, root := newTestChatRepo(t)
	source := filepath.Join(root, "risu.json")
	payload := `{"data":{"message":[{"role":"user","data":"hi"},{"role":"char","data":"hello"}]}}`
	if err := os.WriteFile(source, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}
	chat, err := repo.ImportChat("Alice", "Alice", source, ImportRisuAI)
	if err != nil {
		t.Fatalf("risu import failed: %v", err)
	}
	if len(chat.Messages) != 2 || chat.Messages[1].Name != "Alice" {
		t.Errorf("risu mapping wrong: %+v", chat.Messages)
	}
}

func TestExportChatPlainText(t *testing.T) {
	repo, root := newTestChatRepo(t)
	chat := models.NewChat("Bob", "Alice")
	chat.AddMessage(models.CharacterMessage("Alice", "Hello"))
	chat.AddMessage(models.UserMessage("Bob", "Hi"))
	if err := repo.Save(chat, false); err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(root, "out.txt")
	if err := repo.ExportChat("Alice", chat.FileName, target, ExportPlainText); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	want := "Alice: Hello\n\nBob: Hi\n\n"
	if string(data) != want {
		t.Errorf("plain text export = %q, want %q", data, want)
	}
}
