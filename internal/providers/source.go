// Package providers implements the chat-completion proxy: one neutral request
// shape in, provider-specific payloads out, responses normalized back to the
// OpenAI shape.
package providers

import (
	"strings"

	"tauritavern/internal/domain"
	"tauritavern/internal/models"
)

// Source identifies a chat-completion back-end.
type Source string

const (
	SourceOpenAI      Source = "openai"
	SourceOpenRouter  Source = "openrouter"
	SourceCustom      Source = "custom"
	SourceClaude      Source = "claude"
	SourceMakersuite  Source = "makersuite"
	SourceDeepSeek    Source = "deepseek"
	SourceMoonshot    Source = "moonshot"
	SourceSiliconFlow Source = "siliconflow"
	SourceZai         Source = "zai"
)

// ParseSource maps an input string (case-insensitive, with common aliases) to
// a source. The empty string defaults to OpenAI.
func ParseSource(raw string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "openai", "oai":
		return SourceOpenAI, nil
	case "openrouter":
		return SourceOpenRouter, nil
	case "custom":
		return SourceCustom, nil
	case "claude", "anthropic":
		return SourceClaude, nil
	case "makersuite", "gemini", "google", "ai_studio", "aistudio":
		return SourceMakersuite, nil
	case "deepseek":
		return SourceDeepSeek, nil
	case "moonshot", "kimi":
		return SourceMoonshot, nil
	case "siliconflow":
		return SourceSiliconFlow, nil
	case "zai", "z.ai", "glm":
		return SourceZai, nil
	}
	return "", domain.InvalidData("unsupported chat completion source: %s", raw)
}

// DisplayName labels a source in error messages.
func (s Source) DisplayName() string {
	switch s {
	case SourceOpenAI:
		return "OpenAI"
	case SourceOpenRouter:
		return "OpenRouter"
	case SourceCustom:
		return "Custom OpenAI"
	case SourceClaude:
		return "Claude"
	case SourceMakersuite:
		return "Google Gemini"
	case SourceDeepSeek:
		return "DeepSeek"
	case SourceMoonshot:
		return "Moonshot AI"
	case SourceSiliconFlow:
		return "SiliconFlow"
	case SourceZai:
		return "Z.AI (GLM)"
	}
	return string(s)
}

// DefaultBaseURL is the stock endpoint of a source, used when neither a
// reverse proxy nor a custom URL overrides it.
func (s Source) DefaultBaseURL() string {
	switch s {
	case SourceOpenAI:
		return "https://api.openai.com/v1"
	case SourceOpenRouter:
		return "https://openrouter.ai/api/v1"
	case SourceClaude:
		return "https://api.anthropic.com/v1"
	case SourceMakersuite:
		return "https://generativelanguage.googleapis.com"
	case SourceDeepSeek:
		return "https://api.deepseek.com/v1"
	case SourceMoonshot:
		return "https://api.moonshot.ai/v1"
	case SourceSiliconFlow:
		return "https://api.siliconflow.cn/v1"
	case SourceZai:
		return "https://api.z.ai/api/paas/v4"
	}
	return ""
}

// SecretKey names the secret that stores this source's API key.
func (s Source) SecretKey() string {
	switch s {
	case SourceOpenAI:
		return models.SecretOpenAI
	case SourceOpenRouter:
		return models.SecretOpenRouter
	case SourceCustom:
		return models.SecretCustom
	case SourceClaude:
		return models.SecretClaude
	case SourceMakersuite:
		return models.SecretMakerSuite
	case SourceDeepSeek:
		return models.SecretDeepSeek
	case SourceMoonshot:
		return models.SecretMoonshot
	case SourceSiliconFlow:
		return models.SecretSiliconFlow
	case SourceZai:
		return models.SecretZai
	}
	return ""
}

// IsOpenAICompatible reports whether the source speaks the OpenAI wire
// format.
func (s Source) IsOpenAICompatible() bool {
	switch s {
	case SourceClaude, SourceMakersuite:
		return false
	}
	return true
}
