package providers

// buildGeminiPayload converts a neutral payload into the Gemini
// generateContent body. The model stays in the body here; dispatch pulls it
// out into the URL.
func buildGeminiPayload(payload map[string]any) (string, map[string]any) {
	stripInternalFields(payload)

	body := map[string]any{}
	insertIfPresent(body, payload, "model")

	generationConfig := map[string]any{}
	copyAs := func(from, to string) {
		if value, ok := payload[from]; ok && value != nil {
			generationConfig[to] = value
		}
	}
	copyAs("temperature", "temperature")
	copyAs("top_p", "topP")
	copyAs("top_k", "topK")
	copyAs("max_tokens", "maxOutputTokens")
	copyAs("n", "candidateCount")
	switch stop := payload["stop"].(type) {
	case string:
		if stop != "" {
			generationConfig["stopSequences"] = []any{stop}
		}
	case []any:
		if len(stop) > 0 {
			generationConfig["stopSequences"] = stop
		}
	}
	if len(generationConfig) > 0 {
		body["generationConfig"] = generationConfig
	}

	system, contents := convertGeminiContents(payload["messages"])
	if system != "" {
		body["systemInstruction"] = map[string]any{
			"parts": []any{map[string]any{"text": system}},
		}
	}
	if len(contents) > 0 {
		body["contents"] = contents
	}

	if declarations := convertGeminiTools(payload["tools"]); len(declarations) > 0 {
		body["tools"] = []any{map[string]any{"functionDeclarations": declarations}}
	}
	return "", body
}

func convertGeminiContents(raw any) (string, []any) {
	entries, ok := raw.([]any)
	if !ok {
		return "", nil
	}
	var systemParts []string
	var contents []any
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
			parts := []any{}
			if text := messageContentToText(message["content"]); text != "" {
				parts = append(parts, map[string]any{"text": text})
			}
			for _, call := range extractToolCalls(message["tool_calls"]) {
				parts = append(parts, map[string]any{
					"functionCall": map[string]any{
						"name": call.Name,
						"args": call.Arguments,
					},
				})
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, map[string]any{"role": "model", "parts": parts})
		case "tool":
			name, _ := message["name"].(string)
			if name == "" {
				name = "tool"
			}
			contents = append(contents, map[string]any{
				"role": "user",
				"parts": []any{map[string]any{
					"functionResponse": map[string]any{
						"name":     name,
						"response": toolResultPayload(messageContentToText(message["content"])),
					},
				}},
			})
		default:
			contents = append(contents, map[string]any{
				"role":  "user",
				"parts": []any{map[string]any{"text": messageContentToText(message["content"])}},
			})
		}
	}
	return joinParagraphs(systemParts), contents
}

func convertGeminiTools(raw any) []any {
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}
	var declarations []any
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
		declaration := map[string]any{"name": name}
		if description, ok := function["description"].(string); ok && description != "" {
			declaration["description"] = description
		}
		if parameters, ok := function["parameters"]; ok && parameters != nil {
			declaration["parameters"] = parameters
		}
		declarations = append(declarations, declaration)
	}
	return declarations
}
