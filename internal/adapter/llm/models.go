package llm

var availableModels = map[string][]string{
	ProviderOpenAI: {
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4-turbo",
		"gpt-4",
		"gpt-3.5-turbo",
	},
	ProviderOpenRouter: {
		"anthropic/claude-3-5-sonnet",
		"anthropic/claude-3-haiku",
		"meta-llama/llama-3.1-8b-instruct",
		"mistralai/mistral-7b-instruct",
		"openai/gpt-4o",
	},
	ProviderOpenWebUI: {
		"llama3",
		"mistral",
		"codellama",
	},
}

// AvailableModels returns the models offered for a provider in configuration UIs.
func AvailableModels(provider string) []string {
	models := availableModels[provider]
	out := make([]string, len(models))
	copy(out, models)
	return out
}

// DefaultModel is the model used for connection tests when none is given.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderOpenRouter:
		return "anthropic/claude-3-haiku"
	case ProviderOpenWebUI:
		return "llama3"
	default:
		return "gpt-3.5-turbo"
	}
}
