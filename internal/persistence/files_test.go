package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tauritavern/internal/domain"
)

func TestWriteReadJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "doc.json")

	in := map[string]any{"name": "Alice", "count": float64(3)}
	if err := WriteJSONFile(path, in); err != nil {
		t.Fatalf("WriteJSONFile failed: %v", err)
	}

	var out map[string]any
	if err := ReadJSONFile(path, &out); err != nil {
		t.Fatalf("ReadJSONFile failed: %v", err)
	}
	if out["name"] != "Alice" || out["count"] != float64(3) {
		t.Errorf("round trip mismatch: %v", out)
	}
}

func TestReadJSONFileMissing(t *testing.T) {
	var out map[string]any
	err := ReadJSONFile(filepath.Join(t.TempDir(), "absent.json"), &out)
	if !domain.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestReadJSONFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	err := ReadJSONFile(path, &out)
	if !domain.IsInvalidData(err) {
		t.Errorf("expected InvalidData, got %v", err)
	}
}

func TestWriteFileAtomicLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	if err := WriteFileAtomic(path, []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(path, []byte("two")); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "two" {
		t.Errorf("expected replacement content, got %q", data)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 file, found %d", len(entries))
	}
}

func TestJSONLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.jsonl")
	records := []json.RawMessage{
		json.RawMessage(`{"user_name":"Bob","unknown_field":42}`),
		json.RawMessage(`{"mes":"hello","extra":{"custom":"x"}}`),
	}
	if err := WriteJSONLFile(path, records); err != nil {
		t.Fatalf("WriteJSONLFile failed: %v", err)
	}
	got, err := ReadJSONLFile(path)
	if err != nil {
		t.Fatalf("ReadJSONLFile failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	var header map[string]any
	if err := json.Unmarshal(got[0], &header); err != nil {
		t.Fatal(err)
	}
	if header["unknown_field"] != float64(42) {
		t.Errorf("unknown field lost: %v", header)
	}
}

func TestReadJSONLFileReportsLineNumber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	if err := os.WriteFile(path, []byte("{\"a\":1}\nnot json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := ReadJSONLFile(path)
	if !domain.IsInvalidData(err) {
		t.Fatalf("expected InvalidData, got %v", err)
	}
	if want := "line 2"; err == nil || !strings.Contains(err.Error(), want) {
		t.Errorf("expected error to name %q, got %v", want, err)
	}
}

func TestListFilesWithExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.jsonl", "b.JSONL", "c.json", "d.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	files, err := ListFilesWithExtension(dir, "jsonl")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 jsonl files, got %d", len(files))
	}
	missing, err := ListFilesWithExtension(filepath.Join(dir, "absent"), "jsonl")
	if err != nil || missing != nil {
		t.Errorf("missing dir should list empty, got %v / %v", missing, err)
	}
}

func TestDataDirectoryInitialize(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data")
	data := NewDataDirectory(root)
	if err := data.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	for _, dir := range []string{data.Characters(), data.Chats(), data.GroupChats(), data.Backups(), data.Worlds()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s", dir)
		}
	}
}
