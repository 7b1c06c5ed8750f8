package services

import (
	"path/filepath"
	"testing"

	"tauritavern/internal/domain"
	"tauritavern/internal/models"
	"tauritavern/internal/repositories"
)

func newSecretService(t *testing.T, allowExposure bool) *SecretService {
	t.Helper()
	repo := repositories.NewSecretRepository(filepath.Join(t.TempDir(), "secrets.json"))
	return NewSecretService(repo, allowExposure)
}

func TestFindSecretGated(t *testing.T) {
	s := newSecretService(t, false)
	if err := s.Write(models.SecretOpenAI, "sk-test"); err != nil {
		t.Fatal(err)
	}

	_, err := s.Find(models.SecretOpenAI)
	if domain.KindOf(err) != domain.KindPermissionDenied {
		t.Errorf("expected PermissionDenied, got %v", err)
	}
	if _, err := s.ViewAll(); domain.KindOf(err) != domain.KindPermissionDenied {
		t.Errorf("ViewAll should be gated, got %v", err)
	}
}

func TestFindSecretExportableAllowed(t *testing.T) {
	s := newSecretService(t, false)
	if err := s.Write("libre_url", "http://localhost:5000"); err != nil {
		t.Fatal(err)
	}
	value, err := s.Find("libre_url")
	if err != nil || value != "http://localhost:5000" {
		t.Errorf("exportable secret blocked: %q, %v", value, err)
	}
	// Unset exportable key is NotFound, not PermissionDenied.
	if _, err := s.Find("deeplx_url"); !domain.IsNotFound(err) {
		t.Errorf("expected NotFound for unset exportable key, got %v", err)
	}
}

func TestFindSecretWithExposure(t *testing.T) {
	s := newSecretService(t, true)
	if err := s.Write(models.SecretClaude, "sk-ant"); err != nil {
		t.Fatal(err)
	}
	value, err := s.Find(models.SecretClaude)
	if err != nil || value != "sk-ant" {
		t.Errorf("exposed find = %q, %v", value, err)
	}
	secrets, err := s.ViewAll()
	if err != nil || secrets[models.SecretClaude] != "sk-ant" {
		t.Errorf("ViewAll = %v, %v", secrets, err)
	}
}

func TestSecretStateAlwaysComplete(t *testing.T) {
	s := newSecretService(t, false)
	state := s.State()
	for _, key := range models.KnownSecretKeys {
		if _, ok := state[key]; !ok {
			t.Errorf("state missing %q", key)
		}
	}
}
