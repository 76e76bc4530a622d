package ai

import "strings"

// defaultModels holds the model used per provider when none is configured.
var defaultModels = map[string]string{
	ProviderOpenAI: "gpt-4o",
	ProviderOllama: "llama3.1",
	ProviderGemini: "gemini-2.0-flash",
}

// DefaultModel returns the built-in model for provider, or gpt-4o.
func DefaultModel(provider string) string {
	if m, ok := defaultModels[strings.ToLower(provider)]; ok {
		return m
	}
	return defaultModels[ProviderOpenAI]
}

// ResolveModel picks the model for provider. A configured model that clearly
// belongs to another provider (e.g. gpt-4o with ollama) is replaced by the
// provider default.
func ResolveModel(provider, model string) string {
	provider = strings.ToLower(provider)
	if model == "" {
		return DefaultModel(provider)
	}
	m := strings.ToLower(model)
	switch provider {
	case ProviderOllama, ProviderGemini:
		if strings.HasPrefix(m, "gpt-") || strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") {
			return DefaultModel(provider)
		}
	case ProviderOpenAI:
		if strings.HasPrefix(m, "gemini-") {
			return DefaultModel(provider)
		}
	}
	return model
}
