package services

import (
	"log/slog"

	"tauritavern/internal/domain"
	"tauritavern/internal/models"
	"tauritavern/internal/repositories"
)

// SecretService gates access to stored secrets. Values leave the service only
// when keys exposure is enabled or the key is on the exportable allow-list.
type SecretService struct {
	secrets           *repositories.SecretRepository
	allowKeysExposure bool
}

// NewSecretService creates a new secret service.
func NewSecretService(secrets *repositories.SecretRepository, allowKeysExposure bool) *SecretService {
	return &SecretService{secrets: secrets, allowKeysExposure: allowKeysExposure}
}

// Write stores one secret. The value is never logged.
func (s *SecretService) Write(key, value string) error {
	slog.Info("writing secret", "key", key)
	return s.secrets.Write(key, value)
}

// Delete removes one secret.
func (s *SecretService) Delete(key string) error {
	slog.Info("deleting secret", "key", key)
	return s.secrets.Delete(key)
}

// State reports {key → is-set} for every published key.
func (s *SecretService) State() map[string]bool {
	return s.secrets.State()
}

// ViewAll returns the raw secret map; only with keys exposure enabled.
func (s *SecretService) ViewAll() (map[string]string, error) {
	if !s.allowKeysExposure {
		return nil, domain.PermissionDenied("keys exposure not allowed")
	}
	return s.secrets.All(), nil
}

// Find returns one secret value, gated by the exportable allow-list.
func (s *SecretService) Find(key string) (string, error) {
	if !s.allowKeysExposure && !models.IsExportableSecret(key) {
		return "", domain.PermissionDenied("keys exposure not allowed")
	}
	value, ok := s.secrets.Read(key)
	if !ok {
		return "", domain.NotFound("secret not found: %s", key)
	}
	return value, nil
}
