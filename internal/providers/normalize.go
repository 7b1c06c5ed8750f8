package providers

import (
	"encoding/json"
	"strings"
)

func joinParagraphs(parts []string) string {
	var nonEmpty []string
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return strings.Join(nonEmpty, "\n\n")
}

// toolResultPayload shapes a tool result for providers that expect an object:
// JSON objects pass through, everything else is wrapped as {content: …}.
func toolResultPayload(content string) any {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return map[string]any{"content": ""}
	}
	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
		if object, ok := decoded.(map[string]any); ok {
			return object
		}
		return map[string]any{"content": decoded}
	}
	return map[string]any{"content": content}
}

// normalizeClaudeResponse collapses Anthropic content blocks into an
// OpenAI-shaped chat completion.
func normalizeClaudeResponse(body map[string]any) map[string]any {
	var textParts []string
	var toolCalls []any
	if blocks, ok := body["content"].([]any); ok {
		for _, block := range blocks {
			object, ok := block.(map[string]any)
			if !ok {
				continue
			}
			switch object["type"] {
			case "text":
				if text, ok := object["text"].(string); ok {
					textParts = append(textParts, text)
				}
			case "tool_use":
				arguments := "{}"
				if input, ok := object["input"]; ok && input != nil {
					if raw, err := json.Marshal(input); err == nil {
						arguments = string(raw)
					}
				}
				toolCalls = append(toolCalls, map[string]any{
					"id":   object["id"],
					"type": "function",
					"function": map[string]any{
						"name":      object["name"],
						"arguments": arguments,
					},
				})
			}
		}
	}

	message := map[string]any{
		"role":    "assistant",
		"content": strings.Join(textParts, ""),
	}
	if len(toolCalls) > 0 {
		message["tool_calls"] = toolCalls
	}

	finishReason := "stop"
	switch body["stop_reason"] {
	case "max_tokens":
		finishReason = "length"
	case "tool_use":
		finishReason = "tool_calls"
	}

	normalized := map[string]any{
		"id":    body["id"],
		"model": body["model"],
		"choices": []any{map[string]any{
			"index":         0,
			"message":       message,
			"finish_reason": finishReason,
		}},
	}
	if usage, ok := body["usage"].(map[string]any); ok {
		normalized["usage"] = map[string]any{
			"prompt_tokens":     usage["input_tokens"],
			"completion_tokens": usage["output_tokens"],
		}
	}
	return normalized
}

// normalizeGeminiResponse converts Gemini candidates into OpenAI-shaped
// choices.
func normalizeGeminiResponse(body map[string]any) map[string]any {
	var choices []any
	candidates, _ := body["candidates"].([]any)
	for index, candidate := range candidates {
		object, ok := candidate.(map[string]any)
		if !ok {
			continue
		}
		var textParts []string
		var toolCalls []any
		if content, ok := object["content"].(map[string]any); ok {
			if parts, ok := content["parts"].([]any); ok {
				for _, part := range parts {
					partObject, ok := part.(map[string]any)
					if !ok {
						continue
					}
					if text, ok := partObject["text"].(string); ok {
						textParts = append(textParts, text)
					}
					if call, ok := partObject["functionCall"].(map[string]any); ok {
						arguments := "{}"
						if args, ok := call["args"]; ok && args != nil {
							if raw, err := json.Marshal(args); err == nil {
								arguments = string(raw)
							}
						}
						toolCalls = append(toolCalls, map[string]any{
							"id":   call["name"],
							"type": "function",
							"function": map[string]any{
								"name":      call["name"],
								"arguments": arguments,
							},
						})
					}
				}
			}
		}

		message := map[string]any{
			"role":    "assistant",
			"content": strings.Join(textParts, ""),
		}
		if len(toolCalls) > 0 {
			message["tool_calls"] = toolCalls
		}

		finishReason := "stop"
		switch object["finishReason"] {
		case "MAX_TOKENS":
			finishReason = "length"
		case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT":
			finishReason = "content_filter"
		}
		choices = append(choices, map[string]any{
			"index":         index,
			"message":       message,
			"finish_reason": finishReason,
		})
	}

	normalized := map[string]any{"choices": choices}
	if usage, ok := body["usageMetadata"].(map[string]any); ok {
		normalized["usage"] = map[string]any{
			"prompt_tokens":     usage["promptTokenCount"],
			"completion_tokens": usage["candidatesTokenCount"],
			"total_tokens":      usage["totalTokenCount"],
		}
	}
	return normalized
}
