package providers

import (
	"strings"
)

// SecretReader is the secret-lookup indirection: the proxy never sees the
// secrets file, only this narrow read surface.
type SecretReader interface {
	Read(key string) (string, bool)
}

// APIConfig is the resolved connection configuration for one request.
type APIConfig struct {
	BaseURL      string
	APIKey       string
	ExtraHeaders map[string]string
}

// RequestOverrides are the connection-related fields a request DTO may carry.
type RequestOverrides struct {
	ReverseProxy         string
	ProxyPassword        string
	CustomURL            string
	CustomIncludeHeaders string
}

// OverridesFromPayload pulls the connection overrides out of a neutral
// payload.
func OverridesFromPayload(payload map[string]any) RequestOverrides {
	str := func(key string) string {
		value, _ := payload[key].(string)
		return strings.TrimSpace(value)
	}
	return RequestOverrides{
		ReverseProxy:         str("reverse_proxy"),
		ProxyPassword:        str("proxy_password"),
		CustomURL:            str("custom_url"),
		CustomIncludeHeaders: str("custom_include_headers"),
	}
}

// ResolveConfig computes (base URL, API key, extra headers) for a source:
// request overrides first, then secret lookups keyed by the source name.
func ResolveConfig(source Source, overrides RequestOverrides, secrets SecretReader) (APIConfig, error) {
	config := APIConfig{
		BaseURL:      source.DefaultBaseURL(),
		ExtraHeaders: map[string]string{},
	}

	if overrides.ReverseProxy != "" {
		config.BaseURL = strings.TrimSuffix(overrides.ReverseProxy, "/")
		config.APIKey = overrides.ProxyPassword
	}
	if source == SourceCustom && overrides.CustomURL != "" {
		config.BaseURL = strings.TrimSuffix(overrides.CustomURL, "/")
	}

	if config.APIKey == "" {
		if key := source.SecretKey(); key != "" {
			if value, ok := secrets.Read(key); ok {
				config.APIKey = value
			}
		}
	}

	if overrides.CustomIncludeHeaders != "" {
		headers, err := parseStringMap(overrides.CustomIncludeHeaders)
		if err != nil {
			return config, err
		}
		config.ExtraHeaders = headers
	}
	return config, nil
}

// BuildPayload routes a neutral payload through the per-source builder and
// returns the endpoint path plus the upstream body.
func BuildPayload(source Source, payload map[string]any) (string, map[string]any, error) {
	switch source {
	case SourceClaude:
		endpoint, body := buildClaudePayload(payload)
		return endpoint, body, nil
	case SourceMakersuite:
		endpoint, body := buildGeminiPayload(payload)
		return endpoint, body, nil
	case SourceCustom:
		return buildCustomPayload(payload)
	case SourceMoonshot:
		endpoint, body := buildMoonshotPayload(payload)
		return endpoint, body, nil
	default:
		endpoint, body := buildOpenAIPayload(payload)
		return endpoint, body, nil
	}
}
