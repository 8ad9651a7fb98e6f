package session

import (
	"context"

	"github.com/samsaffron/term-chat/internal/conversation"
	"github.com/samsaffron/term-chat/internal/llm"
)

// StreamingClient opens one streamed completion for a fixed history.
// Cancelling ctx must stop delivery and release the transport.
type StreamingClient interface {
	Stream(ctx context.Context, history []conversation.Turn) (llm.Stream, error)
	Name() string
}

// ProviderClient adapts an llm.Provider to StreamingClient.
type ProviderClient struct {
	provider        llm.Provider
	model           string
	maxOutputTokens int
	temperature     float32
}

type ClientOption func(*ProviderClient)

// WithModel overrides the provider's default model per request.
func WithModel(model string) ClientOption {
	return func(c *ProviderClient) { c.model = model }
}

func WithMaxOutputTokens(n int) ClientOption {
	return func(c *ProviderClient) { c.maxOutputTokens = n }
}

func WithTemperature(t float32) ClientOption {
	return func(c *ProviderClient) { c.temperature = t }
}

func NewProviderClient(provider llm.Provider, opts ...ClientOption) *ProviderClient {
	c := &ProviderClient{provider: provider}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ProviderClient) Name() string {
	return c.provider.Name()
}

func (c *ProviderClient) Stream(ctx context.Context, history []conversation.Turn) (llm.Stream, error) {
	return c.provider.Stream(ctx, llm.Request{
		Messages:        toMessages(history),
		Model:           c.model,
		MaxOutputTokens: c.maxOutputTokens,
		Temperature:     c.temperature,
	})
}

func toMessages(turns []conversation.Turn) []llm.Message {
	out := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case conversation.RoleSystem:
			out = append(out, llm.SystemText(t.Content))
		case conversation.RoleUser:
			out = append(out, llm.UserText(t.Content))
		case conversation.RoleAssistant:
			out = append(out, llm.AssistantText(t.Content))
		}
	}
	return out
}
