package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/samsaffron/term-chat/internal/config"
)

// NewProvider builds the provider selected by cfg. The config must already be
// validated; credentials are passed in here and never read again.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model), nil
	case config.ProviderOpenRouter:
		return NewOpenRouterProvider(cfg.OpenRouter.APIKey, cfg.OpenRouter.Model), nil
	case config.ProviderAnthropic:
		return NewAnthropicProvider(cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens), nil
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	case config.ProviderDebug:
		return NewDebugProvider(cfg.Debug.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// ParseProviderModel splits "provider:model". The model part is optional and
// may itself contain slashes or colons (e.g. openrouter ids).
func ParseProviderModel(s string) (string, string, error) {
	provider, model, _ := strings.Cut(strings.TrimSpace(s), ":")
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return "", "", fmt.Errorf("empty provider in %q", s)
	}
	for _, known := range config.KnownProviders() {
		if provider == known {
			return provider, strings.TrimSpace(model), nil
		}
	}
	return "", "", fmt.Errorf("unknown provider %q (known: %s)", provider, strings.Join(config.KnownProviders(), ", "))
}

// suggestedModels are offered for shell completion and the /model picker.
var suggestedModels = map[string][]string{
	config.ProviderOpenAI:     {"gpt-4o", "gpt-4o-mini", "gpt-4.1", "o3-mini"},
	config.ProviderOpenRouter: {"x-ai/grok-code-fast-1", "anthropic/claude-sonnet-4.5", "google/gemini-2.5-pro"},
	config.ProviderAnthropic:  {"claude-sonnet-4-5", "claude-opus-4-1", "claude-haiku-4-5"},
	config.ProviderGemini:     {"gemini-2.5-flash", "gemini-2.5-pro"},
	config.ProviderDebug:      DebugPresetNames(),
}

// SuggestedModels returns the curated model list for a provider.
func SuggestedModels(provider string) []string {
	return append([]string(nil), suggestedModels[provider]...)
}

// GetProviderCompletions completes "provider" or "provider:model" prefixes.
func GetProviderCompletions(toComplete string) []string {
	var out []string
	if provider, prefix, ok := strings.Cut(toComplete, ":"); ok {
		for _, m := range suggestedModels[provider] {
			if strings.HasPrefix(m, prefix) {
				out = append(out, provider+":"+m)
			}
		}
		return out
	}
	for _, p := range config.KnownProviders() {
		if strings.HasPrefix(p, toComplete) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
