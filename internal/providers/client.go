package providers

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tauritavern/internal/domain"
)

const (
	anthropicVersion             = "2023-06-01"
	anthropicBetaPromptCaching   = "prompt-caching-2024-07-31"
	anthropicBetaExtendedCacheTTL = "extended-cache-ttl-2025-04-11"

	geminiAPIVersion = "v1beta"
)

// appVersion stamps the product user agent.
const appVersion = "1.6.0"

// userAgentTransport pins a stable product token so upstream API gateways can
// whitelist requests.
type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", "TauriTavern/"+appVersion)
	return t.base.RoundTrip(req)
}

// NewHTTPClient builds the shared outbound client: connect timeout 10 s,
// total timeout 120 s.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 120 * time.Second,
		Transport: &userAgentTransport{base: &http.Transport{
			DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			Proxy:               http.ProxyFromEnvironment,
		}},
	}
}

// Client dispatches normalized payloads to the configured provider.
type Client struct {
	http *http.Client
	log  *logrus.Entry
}

// NewClient creates a provider client over a shared HTTP client.
func NewClient(httpClient *http.Client) *Client {
	return &Client{
		http: httpClient,
		log:  logrus.WithField("component", "provider-proxy"),
	}
}

func buildURL(baseURL, path string) string {
	return strings.TrimSuffix(baseURL, "/") + path
}

// extractErrorMessage walks the provider error body fallback chain:
// error.message → message → trimmed raw body → default.
func extractErrorMessage(body []byte, defaultMessage string) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return defaultMessage
	}
	var decoded struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
		if message := strings.TrimSpace(decoded.Error.Message); message != "" {
			return message
		}
		if message := strings.TrimSpace(decoded.Message); message != "" {
			return message
		}
	}
	return trimmed
}

func mapErrorResponse(providerName string, resp *http.Response, defaultMessage string) error {
	body, _ := io.ReadAll(resp.Body)
	message := extractErrorMessage(body, defaultMessage)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.Authentication("%s", message)
	case http.StatusBadRequest:
		return domain.InvalidData("%s", message)
	default:
		return domain.Internal("%s endpoint failed with status %d: %s", providerName, resp.StatusCode, message)
	}
}

func applyExtraHeaders(req *http.Request, headers map[string]string, skip func(key string) bool) {
	for key, value := range headers {
		if strings.TrimSpace(key) == "" || strings.TrimSpace(value) == "" {
			continue
		}
		if skip != nil && skip(key) {
			continue
		}
		req.Header.Set(key, value)
	}
}

func (c *Client) doJSON(req *http.Request, providerName, defaultMessage string) (map[string]any, error) {
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithFields(logrus.Fields{"provider": providerName, "url": req.URL.Redacted()}).
			WithError(err).Warn("provider request failed")
		return nil, domain.Wrap(domain.KindInternal, err, "%s", defaultMessage)
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"provider": providerName,
		"status":   resp.StatusCode,
		"elapsed":  time.Since(started).Round(time.Millisecond).String(),
	}).Debug("provider response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, mapErrorResponse(providerName, resp, defaultMessage)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domain.Wrap(domain.KindInternal, err, "failed to parse %s response JSON", providerName)
	}
	return body, nil
}

// Generate posts a normalized payload to the provider and returns the
// response in the OpenAI shape.
func (c *Client) Generate(source Source, config APIConfig, endpointPath string, payload map[string]any) (map[string]any, error) {
	switch source {
	case SourceClaude:
		return c.generateClaude(config, endpointPath, payload)
	case SourceMakersuite:
		return c.generateGemini(config, payload)
	default:
		return c.generateOpenAI(source, config, endpointPath, payload)
	}
}

func (c *Client) generateOpenAI(source Source, config APIConfig, endpointPath string, payload map[string]any) (map[string]any, error) {
	req, err := c.jsonRequest(http.MethodPost, buildURL(config.BaseURL, endpointPath), payload)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(config.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+config.APIKey)
	}
	applyExtraHeaders(req, config.ExtraHeaders, nil)
	return c.doJSON(req, source.DisplayName(), "Generation request failed")
}

func (c *Client) generateClaude(config APIConfig, endpointPath string, payload map[string]any) (map[string]any, error) {
	if strings.TrimSpace(endpointPath) == "" {
		endpointPath = "/messages"
	}
	req, err := c.jsonRequest(http.MethodPost, buildURL(config.BaseURL, endpointPath), payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("anthropic-version", anthropicVersion)
	if strings.TrimSpace(config.APIKey) != "" {
		req.Header.Set("x-api-key", config.APIKey)
	}
	if beta := anthropicBetaHeader(config.ExtraHeaders, payload); beta != "" {
		req.Header.Set("anthropic-beta", beta)
	}
	applyExtraHeaders(req, config.ExtraHeaders, func(key string) bool {
		return strings.EqualFold(key, "anthropic-beta")
	})

	body, err := c.doJSON(req, SourceClaude.DisplayName(), "Generation request failed")
	if err != nil {
		return nil, err
	}
	return normalizeClaudeResponse(body), nil
}

func (c *Client) generateGemini(config APIConfig, payload map[string]any) (map[string]any, error) {
	model, _ := payload["model"].(string)
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, domain.InvalidData("Gemini payload missing model")
	}
	body := make(map[string]any, len(payload))
	for key, value := range payload {
		body[key] = value
	}
	delete(body, "model")

	rawURL := buildGeminiURL(config.BaseURL, normalizeGeminiModel(model)+":generateContent")
	req, err := c.jsonRequest(http.MethodPost, rawURL, body)
	if err != nil {
		return nil, err
	}
	c.applyGeminiAuth(req, config)
	applyExtraHeaders(req, config.ExtraHeaders, nil)

	response, err := c.doJSON(req, SourceMakersuite.DisplayName(), "Generation request failed")
	if err != nil {
		return nil, err
	}
	return normalizeGeminiResponse(response), nil
}

// ListModels queries the provider model listing, projected to the OpenAI
// {data: [{id}]} shape where needed.
func (c *Client) ListModels(source Source, config APIConfig) (map[string]any, error) {
	switch source {
	case SourceClaude:
		req, err := c.jsonRequest(http.MethodGet, buildURL(config.BaseURL, "/models"), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("anthropic-version", anthropicVersion)
		if strings.TrimSpace(config.APIKey) != "" {
			req.Header.Set("x-api-key", config.APIKey)
		}
		applyExtraHeaders(req, config.ExtraHeaders, nil)
		return c.doJSON(req, source.DisplayName(), "Failed to list models")
	case SourceMakersuite:
		req, err := c.jsonRequest(http.MethodGet, buildGeminiURL(config.BaseURL, "models"), nil)
		if err != nil {
			return nil, err
		}
		c.applyGeminiAuth(req, config)
		applyExtraHeaders(req, config.ExtraHeaders, nil)
		body, err := c.doJSON(req, source.DisplayName(), "Failed to list models")
		if err != nil {
			return nil, err
		}
		return projectGeminiModels(body), nil
	default:
		req, err := c.jsonRequest(http.MethodGet, buildURL(config.BaseURL, "/models"), nil)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(config.APIKey) != "" {
			req.Header.Set("Authorization", "Bearer "+config.APIKey)
		}
		applyExtraHeaders(req, config.ExtraHeaders, nil)
		return c.doJSON(req, source.DisplayName(), "Failed to list models")
	}
}

func (c *Client) jsonRequest(method, rawURL string, payload map[string]any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, domain.Wrap(domain.KindInvalidData, err, "failed to serialize provider payload")
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, rawURL, body)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, err, "failed to build provider request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) applyGeminiAuth(req *http.Request, config APIConfig) {
	key := strings.TrimSpace(config.APIKey)
	if key == "" {
		return
	}
	// The key travels both as a header and as the key query parameter.
	req.Header.Set("x-goog-api-key", key)
	query := req.URL.Query()
	query.Set("key", key)
	req.URL.RawQuery = query.Encode()
}

// anthropicBetaHeader unions configured anthropic-beta values with the cache
// beta tags whenever the payload carries a cache_control key anywhere.
func anthropicBetaHeader(extraHeaders map[string]string, payload map[string]any) string {
	var values []string
	for key, value := range extraHeaders {
		if !strings.EqualFold(key, "anthropic-beta") {
			continue
		}
		for _, entry := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(entry); trimmed != "" {
				values = append(values, trimmed)
			}
		}
	}
	if payloadContainsCacheControl(payload) {
		for _, tag := range []string{anthropicBetaPromptCaching, anthropicBetaExtendedCacheTTL} {
			if !containsString(values, tag) {
				values = append(values, tag)
			}
		}
	}
	return strings.Join(values, ",")
}

func containsString(values []string, want string) bool {
	for _, value := range values {
		if value == want {
			return true
		}
	}
	return false
}

func payloadContainsCacheControl(value any) bool {
	switch typed := value.(type) {
	case map[string]any:
		if _, ok := typed["cache_control"]; ok {
			return true
		}
		for _, nested := range typed {
			if payloadContainsCacheControl(nested) {
				return true
			}
		}
	case []any:
		for _, nested := range typed {
			if payloadContainsCacheControl(nested) {
				return true
			}
		}
	}
	return false
}

func normalizeGeminiModel(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

func buildGeminiURL(baseURL, suffix string) string {
	trimmed := strings.TrimSuffix(baseURL, "/")
	suffix = strings.TrimPrefix(suffix, "/")
	if strings.HasSuffix(trimmed, "/v1") || strings.HasSuffix(trimmed, "/v1beta") {
		return trimmed + "/" + suffix
	}
	return trimmed + "/" + geminiAPIVersion + "/" + suffix
}

// projectGeminiModels filters the Gemini model listing to generateContent
// models and projects it to {data: [{id}]}.
func projectGeminiModels(body map[string]any) map[string]any {
	var data []any
	if entries, ok := body["models"].([]any); ok {
		for _, entry := range entries {
			model, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if !supportsGenerateContent(model["supportedGenerationMethods"]) {
				continue
			}
			name, _ := model["name"].(string)
			id := strings.TrimSpace(strings.TrimPrefix(name, "models/"))
			if id == "" {
				continue
			}
			data = append(data, map[string]any{"id": id})
		}
	}
	if data == nil {
		data = []any{}
	}
	return map[string]any{"data": data}
}

func supportsGenerateContent(raw any) bool {
	methods, ok := raw.([]any)
	if !ok {
		return false
	}
	for _, method := range methods {
		if method == "generateContent" {
			return true
		}
	}
	return false
}
