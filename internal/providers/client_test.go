package providers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"tauritavern/internal/domain"
)

func TestAnthropicBetaHeaderUnion(t *testing.T) {
	extraHeaders := map[string]string{"Anthropic-Beta": "foo"}
	payload := payloadFromJSON(t, `{
		"messages":[{"content":[{"type":"text","cache_control":{"type":"ephemeral","ttl":"5m"}}]}]
	}`)
	header := anthropicBetaHeader(extraHeaders, payload)
	values := strings.Split(header, ",")
	sort.Strings(values)
	want := []string{"extended-cache-ttl-2025-04-11", "foo", "prompt-caching-2024-07-31"}
	if len(values) != 3 {
		t.Fatalf("beta header = %q", header)
	}
	for i, v := range want {
		if values[i] != v {
			t.Errorf("beta values = %v, want %v", values, want)
		}
	}

	// No duplicates when the tag is already configured.
	extraHeaders = map[string]string{"anthropic-beta": "prompt-caching-2024-07-31"}
	header = anthropicBetaHeader(extraHeaders, payload)
	if strings.Count(header, "prompt-caching-2024-07-31") != 1 {
		t.Errorf("duplicate beta tag: %q", header)
	}

	// No cache_control and no configured values → empty.
	if got := anthropicBetaHeader(nil, map[string]any{"messages": []any{}}); got != "" {
		t.Errorf("expected empty header, got %q", got)
	}
}

func TestPayloadContainsCacheControlRecursive(t *testing.T) {
	payload := payloadFromJSON(t, `{
		"messages":[{"content":[{"type":"text","cache_control":{"type":"ephemeral"}}]}]
	}`)
	if !payloadContainsCacheControl(payload) {
		t.Error("nested cache_control not detected")
	}
	if payloadContainsCacheControl(map[string]any{"messages": []any{"plain"}}) {
		t.Error("false positive")
	}
}

func TestGeminiGenerateRequestShape(t *testing.T) {
	var captured struct {
		path   string
		query  string
		header string
		body   map[string]any
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.query = r.URL.Query().Get("key")
		captured.header = r.Header.Get("x-goog-api-key")
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &captured.body)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content":      map[string]any{"parts": []any{map[string]any{"text": "pong"}}},
				"finishReason": "STOP",
			}},
		})
	}))
	defer server.Close()

	client := NewClient(NewHTTPClient())
	config := APIConfig{BaseURL: server.URL, APIKey: "gk-123", ExtraHeaders: map[string]string{}}
	payload := map[string]any{
		"model":    "gemini-1.5-pro",
		"contents": []any{},
	}
	response, err := client.Generate(SourceMakersuite, config, "", payload)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if captured.path != "/v1beta/models/gemini-1.5-pro:generateContent" {
		t.Errorf("path = %q", captured.path)
	}
	if captured.query != "gk-123" || captured.header != "gk-123" {
		t.Errorf("key auth: query=%q header=%q", captured.query, captured.header)
	}
	if _, ok := captured.body["model"]; ok {
		t.Error("model must be removed from the dispatched body")
	}

	choices := response["choices"].([]any)
	message := choices[0].(map[string]any)["message"].(map[string]any)
	if message["content"] != "pong" {
		t.Errorf("normalized content = %v", message["content"])
	}
}

func TestGeminiListModelsProjection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"models": []any{
				map[string]any{"name": "models/gemini-1.5-pro", "supportedGenerationMethods": []any{"generateContent"}},
				map[string]any{"name": "models/embedding-001", "supportedGenerationMethods": []any{"embedContent"}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(NewHTTPClient())
	result, err := client.ListModels(SourceMakersuite, APIConfig{BaseURL: server.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	data := result["data"].([]any)
	if len(data) != 1 {
		t.Fatalf("expected 1 model, got %d", len(data))
	}
	if data[0].(map[string]any)["id"] != "gemini-1.5-pro" {
		t.Errorf("model id = %v", data[0])
	}
}

func TestClaudeGenerateHeadersAndNormalization(t *testing.T) {
	var captured http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header.Clone()
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "msg_1",
			"model": "claude-sonnet-4",
			"content": []any{
				map[string]any{"type": "text", "text": "hello "},
				map[string]any{"type": "text", "text": "world"},
			},
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 5, "output_tokens": 2},
		})
	}))
	defer server.Close()

	client := NewClient(NewHTTPClient())
	config := APIConfig{BaseURL: server.URL, APIKey: "sk-ant", ExtraHeaders: map[string]string{"x-custom": "1"}}
	response, err := client.Generate(SourceClaude, config, "", map[string]any{"model": "claude-sonnet-4"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if captured.Get("anthropic-version") != "2023-06-01" {
		t.Errorf("anthropic-version = %q", captured.Get("anthropic-version"))
	}
	if captured.Get("x-api-key") != "sk-ant" {
		t.Errorf("x-api-key = %q", captured.Get("x-api-key"))
	}
	if captured.Get("x-custom") != "1" {
		t.Errorf("extra header lost")
	}
	if !strings.HasPrefix(captured.Get("User-Agent"), "TauriTavern/") {
		t.Errorf("user agent = %q", captured.Get("User-Agent"))
	}

	choices := response["choices"].([]any)
	message := choices[0].(map[string]any)["message"].(map[string]any)
	if message["content"] != "hello world" {
		t.Errorf("collapsed content = %v", message["content"])
	}
	usage := response["usage"].(map[string]any)
	if usage["prompt_tokens"] != float64(5) {
		t.Errorf("usage = %v", usage)
	}
}

func TestErrorMappingTaxonomy(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   domain.Kind
		want   string
	}{
		{401, `{"error":{"message":"bad key"}}`, domain.KindAuthentication, "bad key"},
		{403, `{"message":"forbidden"}`, domain.KindAuthentication, "forbidden"},
		{400, `plain text problem`, domain.KindInvalidData, "plain text problem"},
		{500, ``, domain.KindInternal, "Generation request failed"},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(tc.body))
		}))
		client := NewClient(NewHTTPClient())
		_, err := client.Generate(SourceOpenAI, APIConfig{BaseURL: server.URL}, "/chat/completions", map[string]any{})
		server.Close()
		if err == nil {
			t.Errorf("status %d: expected error", tc.status)
			continue
		}
		if domain.KindOf(err) != tc.kind {
			t.Errorf("status %d: kind = %v, want %v (%v)", tc.status, domain.KindOf(err), tc.kind, err)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("status %d: error %q missing %q", tc.status, err.Error(), tc.want)
		}
	}
}

func TestExtractErrorMessageChain(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"error":{"message":"inner"}}`, "inner"},
		{`{"message":"outer"}`, "outer"},
		{`  raw body  `, "raw body"},
		{``, "fallback"},
	}
	for _, tc := range cases {
		if got := extractErrorMessage([]byte(tc.body), "fallback"); got != tc.want {
			t.Errorf("extractErrorMessage(%q) = %q, want %q", tc.body, got, tc.want)
		}
	}
}

type fakeSecrets map[string]string

func (f fakeSecrets) Read(key string) (string, bool) {
	value, ok := f[key]
	return value, ok && value != ""
}

func TestResolveConfig(t *testing.T) {
	secrets := fakeSecrets{"api_key_openai": "sk-stored", "api_key_custom": "sk-custom"}

	// Stock: default URL + secret key.
	config, err := ResolveConfig(SourceOpenAI, RequestOverrides{}, secrets)
	if err != nil {
		t.Fatal(err)
	}
	if config.BaseURL != "https://api.openai.com/v1" || config.APIKey != "sk-stored" {
		t.Errorf("stock config = %+v", config)
	}

	// Reverse proxy overrides URL and key.
	config, err = ResolveConfig(SourceOpenAI, RequestOverrides{
		ReverseProxy:  "http://proxy.local/v1/",
		ProxyPassword: "pw",
	}, secrets)
	if err != nil {
		t.Fatal(err)
	}
	if config.BaseURL != "http://proxy.local/v1" || config.APIKey != "pw" {
		t.Errorf("proxy config = %+v", config)
	}

	// Custom URL plus parsed include headers.
	config, err = ResolveConfig(SourceCustom, RequestOverrides{
		CustomURL:            "http://localhost:1234/v1",
		CustomIncludeHeaders: "x-test: 1",
	}, secrets)
	if err != nil {
		t.Fatal(err)
	}
	if config.BaseURL != "http://localhost:1234/v1" || config.APIKey != "sk-custom" {
		t.Errorf("custom config = %+v", config)
	}
	if config.ExtraHeaders["x-test"] != "1" {
		t.Errorf("custom headers = %v", config.ExtraHeaders)
	}
}
