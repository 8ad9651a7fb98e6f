package llm

import "github.com/openai/openai-go/option"

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// NewOpenRouterProvider targets OpenRouter through its OpenAI-compatible API.
// The referer and title headers attribute traffic on the OpenRouter dashboard.
func NewOpenRouterProvider(apiKey, model string) *OpenAIProvider {
	return NewOpenAIProvider(apiKey, openRouterBaseURL, model,
		option.WithHeader("HTTP-Referer", "https://github.com/samsaffron/term-chat"),
		option.WithHeader("X-Title", "term-chat"),
	)
}
