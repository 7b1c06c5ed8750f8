package services

import (
	"log/slog"

	"tauritavern/internal/providers"
	"tauritavern/internal/repositories"
)

// ChatCompletionService orchestrates one proxy request: resolve the source,
// resolve the connection config, normalize the payload, dispatch.
type ChatCompletionService struct {
	client  *providers.Client
	secrets *repositories.SecretRepository
}

// NewChatCompletionService creates a new chat completion service.
func NewChatCompletionService(client *providers.Client, secrets *repositories.SecretRepository) *ChatCompletionService {
	return &ChatCompletionService{client: client, secrets: secrets}
}

// Status lists the provider's models, or short-circuits when the request asks
// to bypass the upstream check.
func (s *ChatCompletionService) Status(sourceName string, overrides providers.RequestOverrides, bypass bool) (map[string]any, error) {
	if bypass {
		return map[string]any{"bypass": true, "data": []any{}}, nil
	}
	source, err := providers.ParseSource(sourceName)
	if err != nil {
		return nil, err
	}
	config, err := providers.ResolveConfig(source, overrides, s.secrets)
	if err != nil {
		return nil, err
	}
	return s.client.ListModels(source, config)
}

// Generate normalizes and dispatches one chat completion payload.
func (s *ChatCompletionService) Generate(payload map[string]any) (map[string]any, error) {
	sourceName, _ := payload["chat_completion_source"].(string)
	source, err := providers.ParseSource(sourceName)
	if err != nil {
		return nil, err
	}
	slog.Debug("dispatching chat completion", "source", string(source))

	overrides := providers.OverridesFromPayload(payload)
	config, err := providers.ResolveConfig(source, overrides, s.secrets)
	if err != nil {
		return nil, err
	}
	endpoint, body, err := providers.BuildPayload(source, payload)
	if err != nil {
		return nil, err
	}
	return s.client.Generate(source, config, endpoint, body)
}
