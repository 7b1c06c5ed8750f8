package repositories

import (
	"path/filepath"
	"testing"

	"tauritavern/internal/domain"
	"tauritavern/internal/models"
)

func TestSecretStateCoversKnownKeys(t *testing.T) {
	repo := NewSecretRepository(filepath.Join(t.TempDir(), "secrets.json"))

	state := repo.State()
	for _, key := range models.KnownSecretKeys {
		set, ok := state[key]
		if !ok {
			t.Errorf("key %q missing from state", key)
		}
		if set {
			t.Errorf("fresh store reports %q as set", key)
		}
	}
	for _, key := range models.ExportableSecretKeys {
		if _, ok := state[key]; !ok {
			t.Errorf("exportable key %q missing from state", key)
		}
	}
}

func TestSecretWriteReadDelete(t *testing.T) {
	repo := NewSecretRepository(filepath.Join(t.TempDir(), "secrets.json"))

	if err := repo.Write(models.SecretOpenAI, "sk-test"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	value, ok := repo.Read(models.SecretOpenAI)
	if !ok || value != "sk-test" {
		t.Errorf("Read = %q, %v", value, ok)
	}
	if !repo.State()[models.SecretOpenAI] {
		t.Error("state should report the key as set")
	}

	if err := repo.Delete(models.SecretOpenAI); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := repo.Read(models.SecretOpenAI); ok {
		t.Error("deleted key still readable")
	}
	if err := repo.Delete(models.SecretOpenAI); !domain.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestSecretEmptyValueIsUnset(t *testing.T) {
	repo := NewSecretRepository(filepath.Join(t.TempDir(), "secrets.json"))
	if err := repo.Write(models.SecretClaude, ""); err != nil {
		t.Fatal(err)
	}
	if repo.State()[models.SecretClaude] {
		t.Error("empty value should report unset")
	}
	if _, ok := repo.Read(models.SecretClaude); ok {
		t.Error("empty value should not read as set")
	}
}
