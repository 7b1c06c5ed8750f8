package models

import (
	"encoding/json"
	"testing"
)

func TestChatMessageUnknownFieldsRoundTrip(t *testing.T) {
	in := []byte(`{"name":"Alice","is_user":false,"is_system":false,` +
		`"send_date":"June 5, 2025 2:03pm","mes":"hi","swipe_id":2,` +
		`"extra":{"model":"gpt-4o","custom_tool_state":{"depth":3}},` +
		`"future_field":[1,2,3]}`)

	var message ChatMessage
	if err := json.Unmarshal(in, &message); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if message.Name != "Alice" || message.Mes != "hi" {
		t.Fatalf("known fields wrong: %+v", message)
	}
	if _, ok := message.Additional["future_field"]; !ok {
		t.Fatal("top-level unknown field dropped")
	}
	if _, ok := message.Additional["swipe_id"]; ok {
		t.Fatal("known field leaked into Additional")
	}
	if _, ok := message.Extra.Additional["custom_tool_state"]; !ok {
		t.Fatal("extra unknown field dropped")
	}

	out, err := json.Marshal(message)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded["future_field"]; !ok {
		t.Error("future_field missing after round trip")
	}
	extra, ok := decoded["extra"].(map[string]any)
	if !ok {
		t.Fatal("extra missing after round trip")
	}
	if _, ok := extra["custom_tool_state"]; !ok {
		t.Error("extra.custom_tool_state missing after round trip")
	}
	if extra["model"] != "gpt-4o" {
		t.Errorf("extra.model = %v", extra["model"])
	}
}

func TestChatMetadataIntegrityRoundTrip(t *testing.T) {
	in := []byte(`{"integrity":"slug-a","timedWorldInfo":{"sticky":{}},"chat_id_hash":77}`)
	var meta ChatMetadata
	if err := json.Unmarshal(in, &meta); err != nil {
		t.Fatal(err)
	}
	if meta.Integrity != "slug-a" || meta.ChatIDHash != 77 {
		t.Fatalf("typed fields wrong: %+v", meta)
	}
	out, err := json.Marshal(meta)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["integrity"] != "slug-a" {
		t.Errorf("integrity = %v", decoded["integrity"])
	}
	if _, ok := decoded["timedWorldInfo"]; !ok {
		t.Error("timedWorldInfo dropped")
	}
}

func TestNewChatFileName(t *testing.T) {
	chat := NewChat("Bob", "Alice")
	if chat.UserName != "Bob" || chat.CharacterName != "Alice" {
		t.Fatalf("names wrong: %+v", chat)
	}
	want := "Alice - " + chat.CreateDate
	if chat.FileName != want {
		t.Errorf("FileName = %q, want %q", chat.FileName, want)
	}
	if chat.Metadata.ChatIDHash == 0 {
		t.Error("expected a fresh chat id hash")
	}
}

func TestChatPreview(t *testing.T) {
	chat := NewChat("Bob", "Alice")
	if got := chat.Preview(); got != "No messages" {
		t.Errorf("empty preview = %q", got)
	}
	chat.AddMessage(CharacterMessage("Alice", "hello\nthere"))
	if got := chat.Preview(); got != "hello there" {
		t.Errorf("preview = %q", got)
	}
}
