package providers

import (
	"fmt"
	"strings"
)

// textCompletionModels routes to the legacy /completions endpoint. Treated as
// a living list; additions go here and nowhere else.
var textCompletionModels = map[string]bool{
	"gpt-3.5-turbo-instruct":        true,
	"gpt-3.5-turbo-instruct-0914":   true,
	"text-davinci-003":              true,
	"text-davinci-002":              true,
	"text-davinci-001":              true,
	"text-curie-001":                true,
	"text-babbage-001":              true,
	"text-ada-001":                  true,
	"code-davinci-002":              true,
	"code-davinci-001":              true,
	"code-cushman-002":              true,
	"code-cushman-001":              true,
	"text-davinci-edit-001":         true,
	"code-davinci-edit-001":         true,
	"text-embedding-ada-002":        true,
	"text-similarity-davinci-001":   true,
	"text-similarity-curie-001":     true,
	"text-similarity-babbage-001":   true,
	"text-similarity-ada-001":       true,
	"text-search-davinci-doc-001":   true,
	"text-search-curie-doc-001":     true,
	"text-search-babbage-doc-001":   true,
	"text-search-ada-doc-001":       true,
	"code-search-babbage-code-001":  true,
	"code-search-ada-code-001":      true,
}

// internalFields never leave the process; they parameterize routing and are
// stripped before dispatch.
var internalFields = []string{
	"chat_completion_source",
	"reverse_proxy",
	"proxy_password",
	"custom_prompt_post_processing",
	"custom_include_body",
	"custom_exclude_body",
	"custom_include_headers",
	"custom_url",
	"bypass_status_check",
}

func stripInternalFields(payload map[string]any) {
	for _, key := range internalFields {
		delete(payload, key)
	}
}

// buildOpenAIPayload routes a neutral payload to /completions or
// /chat/completions and whitelists the body.
func buildOpenAIPayload(payload map[string]any) (string, map[string]any) {
	stripInternalFields(payload)
	if isTextCompletion(payload) {
		return "/completions", buildTextCompletionPayload(payload)
	}
	return "/chat/completions", buildChatCompletionPayload(payload)
}

func isTextCompletion(payload map[string]any) bool {
	if _, ok := payload["messages"].(string); ok {
		return true
	}
	model, _ := payload["model"].(string)
	return textCompletionModels[model]
}

func insertIfPresent(dst, src map[string]any, key string) {
	if value, ok := src[key]; ok && value != nil {
		dst[key] = value
	}
}

func buildTextCompletionPayload(payload map[string]any) map[string]any {
	request := map[string]any{}
	for _, key := range []string{
		"model", "temperature", "max_tokens", "stream", "presence_penalty",
		"frequency_penalty", "top_p", "stop", "logit_bias", "seed", "n",
		"logprobs",
	} {
		insertIfPresent(request, payload, key)
	}

	if prompt, ok := payload["prompt"]; ok && prompt != nil {
		request["prompt"] = prompt
		return request
	}
	if prompt, ok := convertTextCompletionPrompt(payload["messages"]); ok {
		request["prompt"] = prompt
	}
	return request
}

func buildChatCompletionPayload(payload map[string]any) map[string]any {
	request := map[string]any{}
	for _, key := range []string{
		"messages", "model", "temperature", "max_tokens",
		"max_completion_tokens", "stream", "presence_penalty",
		"frequency_penalty", "top_p", "top_k", "stop", "logit_bias", "seed",
		"n", "reasoning_effort", "verbosity", "user",
	} {
		insertIfPresent(request, payload, key)
	}

	if tools, ok := payload["tools"].([]any); ok {
		request["tools"] = tools
		insertIfPresent(request, payload, "tool_choice")
	}

	mapChatLogprobs(request, payload)

	if format := resolveResponseFormat(payload); format != nil {
		request["response_format"] = format
	}
	return request
}

// mapChatLogprobs translates the neutral logprobs field: a positive number N
// becomes logprobs=true + top_logprobs=N, a boolean passes through, false
// suppresses top_logprobs.
func mapChatLogprobs(request, payload map[string]any) {
	value, ok := payload["logprobs"]
	if !ok || value == nil {
		return
	}
	switch typed := value.(type) {
	case bool:
		request["logprobs"] = typed
		if typed {
			insertIfPresent(request, payload, "top_logprobs")
		}
	case float64:
		if typed > 0 {
			request["logprobs"] = true
			request["top_logprobs"] = typed
		}
	case int:
		if typed > 0 {
			request["logprobs"] = true
			request["top_logprobs"] = typed
		}
	}
}

// resolveResponseFormat passes response_format through when present,
// otherwise synthesizes one from a json_schema.value request.
func resolveResponseFormat(payload map[string]any) any {
	if format, ok := payload["response_format"]; ok && format != nil {
		return format
	}
	schemaRequest, ok := payload["json_schema"].(map[string]any)
	if !ok {
		return nil
	}
	schema, ok := schemaRequest["value"]
	if !ok || schema == nil {
		return nil
	}
	name := any("response")
	if n, ok := schemaRequest["name"]; ok && n != nil {
		name = n
	}
	strict := any(true)
	if s, ok := schemaRequest["strict"]; ok && s != nil {
		strict = s
	}
	return map[string]any{
		"type": "json_schema",
		"json_schema": map[string]any{
			"name":   name,
			"strict": strict,
			"schema": schema,
		},
	}
}

// convertTextCompletionPrompt joins chat messages as "{role}: {content}"
// lines — system rendered as "System:" or "{name}:" — terminated with
// "\nassistant:".
func convertTextCompletionPrompt(messages any) (string, bool) {
	if prompt, ok := messages.(string); ok {
		return prompt, true
	}
	entries, ok := messages.([]any)
	if !ok || len(entries) == 0 {
		return "", false
	}
	var lines []string
	for _, entry := range entries {
		message, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		role := "user"
		if r, ok := message["role"].(string); ok && strings.TrimSpace(r) != "" {
			role = strings.TrimSpace(r)
		}
		content := messageContentToText(message["content"])
		if strings.EqualFold(role, "system") {
			if name, ok := message["name"].(string); ok && strings.TrimSpace(name) != "" {
				lines = append(lines, fmt.Sprintf("%s: %s", strings.TrimSpace(name), content))
			} else {
				lines = append(lines, "System: "+content)
			}
		} else {
			lines = append(lines, fmt.Sprintf("%s: %s", role, content))
		}
	}
	if len(lines) == 0 {
		return "", false
	}
	return strings.Join(lines, "\n") + "\nassistant:", true
}

// messageContentToText flattens a string or multipart content value to plain
// text.
func messageContentToText(content any) string {
	switch typed := content.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []any:
		var b strings.Builder
		for _, part := range typed {
			switch p := part.(type) {
			case string:
				b.WriteString(p)
			case map[string]any:
				if text, ok := p["text"].(string); ok {
					b.WriteString(text)
				} else if text, ok := p["content"].(string); ok {
					b.WriteString(text)
				}
			}
		}
		return b.String()
	default:
		return fmt.Sprintf("%v", typed)
	}
}

// buildMoonshotPayload is the OpenAI builder plus the thinking flag derived
// from include_reasoning.
func buildMoonshotPayload(payload map[string]any) (string, map[string]any) {
	includeReasoning, _ := payload["include_reasoning"].(bool)
	endpoint, body := buildOpenAIPayload(payload)
	if endpoint == "/chat/completions" {
		mode := "disabled"
		if includeReasoning {
			mode = "enabled"
		}
		body["thinking"] = map[string]any{"type": mode}
	}
	return endpoint, body
}

// buildCustomPayload applies the include/exclude body overrides before the
// OpenAI builder runs.
func buildCustomPayload(payload map[string]any) (string, map[string]any, error) {
	if includeRaw, ok := payload["custom_include_body"].(string); ok && strings.TrimSpace(includeRaw) != "" {
		include, err := parseObject(includeRaw)
		if err != nil {
			return "", nil, err
		}
		for key, value := range include {
			payload[key] = value
		}
	}
	excludeRaw, _ := payload["custom_exclude_body"].(string)
	excluded := parseKeyList(excludeRaw)

	endpoint, body := buildOpenAIPayload(payload)
	for _, key := range excluded {
		delete(body, key)
	}
	return endpoint, body, nil
}
