package ui

import (
	"testing"
	"time"

	"github.com/samsaffron/term-chat/internal/config"
)

func TestWizardConfig(t *testing.T) {
	cfg := WizardConfig(WizardAnswers{
		Provider:     config.ProviderAnthropic,
		Model:        "claude-haiku-4-5",
		SystemPrompt: "be kind",
	})

	if cfg.Provider != config.ProviderAnthropic {
		t.Fatalf("provider=%q", cfg.Provider)
	}
	if cfg.Anthropic.Model != "claude-haiku-4-5" {
		t.Fatalf("model=%q", cfg.Anthropic.Model)
	}
	if cfg.Anthropic.APIKey != "${ANTHROPIC_API_KEY}" {
		t.Fatalf("api key=%q, want env reference", cfg.Anthropic.APIKey)
	}
	if cfg.OpenAI.APIKey != "" {
		t.Fatalf("unselected provider got a key: %q", cfg.OpenAI.APIKey)
	}
	if cfg.SystemPrompt != "be kind" {
		t.Fatalf("system prompt=%q", cfg.SystemPrompt)
	}
	if cfg.Chat.CancelTimeout != 2*time.Second {
		t.Fatalf("cancel timeout=%s", cfg.Chat.CancelTimeout)
	}
}

func TestWizardConfig_DebugNeedsNoKey(t *testing.T) {
	cfg := WizardConfig(WizardAnswers{Provider: config.ProviderDebug, Model: "slow"})
	if cfg.Debug.Model != "slow" {
		t.Fatalf("debug model=%q", cfg.Debug.Model)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
