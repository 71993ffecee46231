package llm

import (
	"net/http"
	"time"
)

const (
	// EnvChatbotMode is the environment variable name for mode selection.
	EnvChatbotMode = "CHATBOT_MODE"
	// ModeMock indicates mock providers should be used.
	ModeMock = "MOCK"
)

// Settings holds credentials for every built-in provider.
type Settings struct {
	OpenAI     OpenAIConfig
	OpenRouter OpenRouterConfig
	OpenWebUI  OpenWebUIConfig
	Timeout    time.Duration
	Mode       string
}

// NewRegistryFromSettings registers the built-in providers. In mock mode every
// provider ID is served by a MockProvider.
func NewRegistryFromSettings(s Settings, httpClient *http.Client) *Registry {
	r := NewRegistry()
	if s.Mode == ModeMock {
		for _, id := range []string{ProviderOpenAI, ProviderOpenRouter, ProviderOpenWebUI} {
			r.MustRegister(NewMockProvider(id))
		}
		return r
	}
	r.MustRegister(NewOpenAI(s.OpenAI, httpClient, s.Timeout))
	r.MustRegister(NewOpenRouter(s.OpenRouter, httpClient, s.Timeout))
	r.MustRegister(NewOpenWebUI(s.OpenWebUI, httpClient, s.Timeout))
	return r
}
