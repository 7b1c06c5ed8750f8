package providers

import (
	"encoding/json"
	"strconv"
	"strings"
)

const claudeDefaultMaxTokens = 4096

// buildClaudePayload converts a neutral OpenAI-shaped payload into the
// Anthropic Messages body. System turns are hoisted into the system field,
// assistant tool calls become tool_use blocks and tool results become
// tool_result blocks on a user turn.
func buildClaudePayload(payload map[string]any) (string, map[string]any) {
	stripInternalFields(payload)

	body := map[string]any{}
	insertIfPresent(body, payload, "model")
	insertIfPresent(body, payload, "temperature")
	insertIfPresent(body, payload, "top_p")
	insertIfPresent(body, payload, "top_k")
	insertIfPresent(body, payload, "stream")

	if maxTokens, ok := payload["max_tokens"]; ok && maxTokens != nil {
		body["max_tokens"] = maxTokens
	} else if maxTokens, ok := payload["max_completion_tokens"]; ok && maxTokens != nil {
		body["max_tokens"] = maxTokens
	} else {
		body["max_tokens"] = claudeDefaultMaxTokens
	}

	switch stop := payload["stop"].(type) {
	case string:
		if stop != "" {
			body["stop_sequences"] = []any{stop}
		}
	case []any:
		if len(stop) > 0 {
			body["stop_sequences"] = stop
		}
	}

	if system, messages := convertClaudeMessages(payload["messages"]); len(messages) > 0 {
		if system != "" {
			body["system"] = system
		}
		body["messages"] = messages
	}

	if tools := convertClaudeTools(payload["tools"]); len(tools) > 0 {
		body["tools"] = tools
	}
	return "/messages", body
}

func convertClaudeMessages(raw any) (string, []any) {
	entries, ok := raw.([]any)
	if !ok {
		return "", nil
	}
	var systemParts []string
	var messages []any
	for _, entry := range entries {
		message, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		role, _ := message["role"].(string)
		switch role {
		case "system":
			systemParts = append(systemParts, messageContentToText(message["content"]))
		case "assistant":
			content := []any{}
			if text := messageContentToText(message["content"]); text != "" {
				content = append(content, map[string]any{"type": "text", "text": text})
			}
			for _, call := range extractToolCalls(message["tool_calls"]) {
				content = append(content, map[string]any{
					"type":  "tool_use",
					"id":    call.ID,
					"name":  call.Name,
					"input": call.Arguments,
				})
			}
			if len(content) == 0 {
				continue
			}
			messages = append(messages, map[string]any{"role": "assistant", "content": content})
		case "tool":
			id, _ := message["tool_call_id"].(string)
			messages = append(messages, map[string]any{
				"role": "user",
				"content": []any{map[string]any{
					"type":        "tool_result",
					"tool_use_id": id,
					"content":     messageContentToText(message["content"]),
				}},
			})
		default:
			messages = append(messages, map[string]any{
				"role":    "user",
				"content": messageContentToText(message["content"]),
			})
		}
	}
	return strings.Join(systemParts, "\n\n"), messages
}

func convertClaudeTools(raw any) []any {
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}
	var tools []any
	for _, entry := range entries {
		tool, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		function, ok := tool["function"].(map[string]any)
		if !ok {
			continue
		}
		name, _ := function["name"].(string)
		if name == "" {
			continue
		}
		converted := map[string]any{"name": name}
		if description, ok := function["description"].(string); ok && description != "" {
			converted["description"] = description
		}
		if parameters, ok := function["parameters"]; ok && parameters != nil {
			converted["input_schema"] = parameters
		} else {
			converted["input_schema"] = map[string]any{"type": "object"}
		}
		tools = append(tools, converted)
	}
	return tools
}

// toolCall is one parsed OpenAI-shaped tool call.
type toolCall struct {
	ID        string
	Name      string
	Arguments any
}

func extractToolCalls(raw any) []toolCall {
	var entries []any
	switch typed := raw.(type) {
	case []any:
		entries = typed
	case map[string]any:
		entries = []any{typed}
	default:
		return nil
	}
	var calls []toolCall
	for i, entry := range entries {
		object, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		function, ok := object["function"].(map[string]any)
		if !ok {
			continue
		}
		name, _ := function["name"].(string)
		if strings.TrimSpace(name) == "" {
			continue
		}
		id, _ := object["id"].(string)
		if strings.TrimSpace(id) == "" {
			id = "tool_call_" + strconv.Itoa(i)
		}
		arguments := function["arguments"]
		if arguments == nil {
			arguments = function["args"]
		}
		calls = append(calls, toolCall{
			ID:        id,
			Name:      name,
			Arguments: parseToolCallArguments(arguments),
		})
	}
	return calls
}

// parseToolCallArguments decodes a JSON-string argument payload; anything
// else passes through, nil becomes an empty object.
func parseToolCallArguments(raw any) any {
	switch typed := raw.(type) {
	case nil:
		return map[string]any{}
	case string:
		var decoded any
		if err := json.Unmarshal([]byte(typed), &decoded); err == nil {
			return decoded
		}
		return typed
	default:
		return typed
	}
}
