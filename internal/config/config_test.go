package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyOverrides(t *testing.T) {
	cfg := &Config{
		Provider:  ProviderAnthropic,
		Anthropic: AnthropicConfig{Model: "claude-sonnet-4-5"},
		OpenAI:    OpenAIConfig{Model: "gpt-4o-mini"},
	}

	cfg.ApplyOverrides("openai", "gpt-4o")
	if cfg.Provider != "openai" {
		t.Fatalf("provider=%q, want %q", cfg.Provider, "openai")
	}
	if cfg.OpenAI.Model != "gpt-4o" {
		t.Fatalf("openai model=%q, want %q", cfg.OpenAI.Model, "gpt-4o")
	}
	if cfg.Anthropic.Model != "claude-sonnet-4-5" {
		t.Fatalf("anthropic model changed unexpectedly: %q", cfg.Anthropic.Model)
	}

	cfg.ApplyOverrides("", "o3-mini")
	if cfg.Provider != "openai" {
		t.Fatalf("provider changed unexpectedly: %q", cfg.Provider)
	}
	if cfg.ActiveModel() != "o3-mini" {
		t.Fatalf("ActiveModel()=%q, want %q", cfg.ActiveModel(), "o3-mini")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantKey string
	}{
		{name: "openai with key", cfg: Config{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "k", Model: "m"}}},
		{name: "openai keyless base url", cfg: Config{Provider: "openai", OpenAI: OpenAIConfig{BaseURL: "http://localhost:11434/v1", Model: "llama3"}}},
		{name: "openai missing key", cfg: Config{Provider: "openai", OpenAI: OpenAIConfig{Model: "m"}}, wantKey: "openai.api_key"},
		{name: "anthropic missing key", cfg: Config{Provider: "anthropic", Anthropic: AnthropicConfig{Model: "m"}}, wantKey: "anthropic.api_key"},
		{name: "gemini missing model", cfg: Config{Provider: "gemini", Gemini: GeminiConfig{APIKey: "k"}}, wantKey: "gemini.model"},
		{name: "unknown provider", cfg: Config{Provider: "nope"}, wantKey: "provider"},
		{name: "empty provider", cfg: Config{}, wantKey: "provider"},
		{name: "debug needs nothing", cfg: Config{Provider: "debug"}},
		{name: "negative timeout", cfg: Config{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "k", Model: "m"}, Chat: ChatConfig{CancelTimeout: -time.Second}}, wantKey: "chat.cancel_timeout"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantKey == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if cfgErr.Key != tc.wantKey {
				t.Fatalf("key=%q, want %q", cfgErr.Key, tc.wantKey)
			}
		})
	}
}

func TestLoadFileDefaultsAndEnvFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("MY_PREAMBLE_MODEL", "gpt-test")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "provider: openai\nsystem_prompt: be terse\nopenai:\n  model: ${MY_PREAMBLE_MODEL}\nchat:\n  cancel_timeout: 500ms\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.SystemPrompt != "be terse" {
		t.Fatalf("system_prompt=%q", cfg.SystemPrompt)
	}
	if cfg.OpenAI.APIKey != "sk-from-env" {
		t.Fatalf("api key=%q, want env fallback", cfg.OpenAI.APIKey)
	}
	if cfg.Chat.CancelTimeout != 500*time.Millisecond {
		t.Fatalf("cancel_timeout=%v", cfg.Chat.CancelTimeout)
	}
	if cfg.Chat.InputHeight != 3 {
		t.Fatalf("input_height default=%d, want 3", cfg.Chat.InputHeight)
	}
	if cfg.Anthropic.Model != "claude-sonnet-4-5" {
		t.Fatalf("anthropic default model=%q", cfg.Anthropic.Model)
	}
	// Models are not secrets, so ${VAR} is left as written.
	if cfg.OpenAI.Model != "${MY_PREAMBLE_MODEL}" {
		t.Fatalf("model=%q", cfg.OpenAI.Model)
	}
}

func TestSaveFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &Config{
		Provider:     ProviderAnthropic,
		SystemPrompt: "hello",
		Anthropic:    AnthropicConfig{APIKey: "${ANTHROPIC_TEST_KEY}", Model: "claude-x"},
		Chat:         ChatConfig{CancelTimeout: 3 * time.Second, InputHeight: 4, ExpandedInputHeight: 10},
	}
	if err := SaveFile(cfg, path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	t.Setenv("ANTHROPIC_TEST_KEY", "sk-ant")
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got.Provider != ProviderAnthropic || got.Anthropic.Model != "claude-x" || got.SystemPrompt != "hello" {
		t.Fatalf("unexpected config: %+v", got)
	}
	if got.Anthropic.APIKey != "sk-ant" {
		t.Fatalf("api key=%q, want resolved env reference", got.Anthropic.APIKey)
	}
	if got.Chat.CancelTimeout != 3*time.Second {
		t.Fatalf("cancel_timeout=%v", got.Chat.CancelTimeout)
	}
}

func TestRedacted(t *testing.T) {
	cfg := Config{OpenAI: OpenAIConfig{APIKey: "sk-1234567890abcd"}, Gemini: GeminiConfig{APIKey: "short"}}
	r := cfg.Redacted()
	if r.OpenAI.APIKey != "sk-1****abcd" {
		t.Fatalf("openai redacted=%q", r.OpenAI.APIKey)
	}
	if r.Gemini.APIKey != "****" {
		t.Fatalf("gemini redacted=%q", r.Gemini.APIKey)
	}
	if cfg.OpenAI.APIKey != "sk-1234567890abcd" {
		t.Fatal("Redacted mutated the original")
	}
}
