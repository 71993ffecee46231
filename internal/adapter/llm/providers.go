package llm

import (
	"net/http"
	"strings"
	"time"
)

const (
	openAIBaseURL     = "https://api.openai.com/v1"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenAIConfig configures the OpenAI provider. BaseURL is optional.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

// OpenRouterConfig configures the OpenRouter provider. SiteURL and AppName are
// sent as attribution headers.
type OpenRouterConfig struct {
	APIKey  string
	BaseURL string
	SiteURL string
	AppName string
}

// OpenWebUIConfig configures a self-hosted Open WebUI gateway. The API key is optional.
type OpenWebUIConfig struct {
	BaseURL string
	APIKey  string
}

// NewOpenAI creates the OpenAI provider.
func NewOpenAI(cfg OpenAIConfig, httpClient *http.Client, timeout time.Duration) *Client {
	base := strings.TrimSuffix(orDefault(cfg.BaseURL, openAIBaseURL), "/")
	c := &Client{
		id:         ProviderOpenAI,
		endpoint:   base + "/chat/completions",
		httpClient: newHTTPClient(httpClient, timeout),
		headers:    bearer(cfg.APIKey),
		usage:      openAIUsage,
	}
	if cfg.APIKey == "" {
		c.missing = "OpenAI API key is not configured"
	}
	return c
}

// NewOpenRouter creates the OpenRouter provider.
func NewOpenRouter(cfg OpenRouterConfig, httpClient *http.Client, timeout time.Duration) *Client {
	base := strings.TrimSuffix(orDefault(cfg.BaseURL, openRouterBaseURL), "/")
	auth := bearer(cfg.APIKey)
	c := &Client{
		id:         ProviderOpenRouter,
		endpoint:   base + "/chat/completions",
		httpClient: newHTTPClient(httpClient, timeout),
		headers: func(req *http.Request) {
			auth(req)
			if cfg.SiteURL != "" {
				req.Header.Set("HTTP-Referer", cfg.SiteURL)
			}
			if cfg.AppName != "" {
				req.Header.Set("X-Title", cfg.AppName)
			}
		},
		usage: openAIUsage,
	}
	if cfg.APIKey == "" {
		c.missing = "OpenRouter API key is not configured"
	}
	return c
}

// NewOpenWebUI creates the Open WebUI provider.
func NewOpenWebUI(cfg OpenWebUIConfig, httpClient *http.Client, timeout time.Duration) *Client {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	c := &Client{
		id:         ProviderOpenWebUI,
		endpoint:   base + "/api/v1/chat/completions",
		httpClient: newHTTPClient(httpClient, timeout),
		headers:    bearer(cfg.APIKey),
		usage:      gatewayUsage,
	}
	if base == "" {
		c.missing = "Open WebUI base URL is not configured"
	}
	return c
}

func bearer(apiKey string) func(*http.Request) {
	return func(req *http.Request) {
		if apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
