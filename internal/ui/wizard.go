package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/samsaffron/term-chat/internal/config"
	"github.com/samsaffron/term-chat/internal/llm"
)

// providerOption represents a provider choice in the setup wizard
type providerOption struct {
	name      string
	value     string
	envVar    string
	available bool
	hint      string
}

// detectAvailableProviders checks which providers have credentials in the environment.
func detectAvailableProviders() []providerOption {
	envOption := func(name, value, envVar string) providerOption {
		return providerOption{
			name:      name,
			value:     value,
			envVar:    envVar,
			available: os.Getenv(envVar) != "",
			hint:      "set " + envVar,
		}
	}
	return []providerOption{
		envOption("OpenAI - OPENAI_API_KEY", config.ProviderOpenAI, "OPENAI_API_KEY"),
		envOption("Anthropic - ANTHROPIC_API_KEY", config.ProviderAnthropic, "ANTHROPIC_API_KEY"),
		envOption("Gemini - GEMINI_API_KEY", config.ProviderGemini, "GEMINI_API_KEY"),
		envOption("OpenRouter - OPENROUTER_API_KEY", config.ProviderOpenRouter, "OPENROUTER_API_KEY"),
		{
			name:      "Debug - local scripted replies, no key required",
			value:     config.ProviderDebug,
			available: true,
		},
	}
}

// WizardAnswers are the choices collected by the setup wizard.
type WizardAnswers struct {
	Provider     string
	Model        string
	SystemPrompt string
}

// RunSetupWizard asks for a provider, model and system prompt, writes the
// config file and returns the reloaded config.
func RunSetupWizard() (*config.Config, error) {
	var in io.Reader = os.Stdin
	var out io.Writer = os.Stderr
	// Use /dev/tty to bypass redirections
	if tty, err := getTTY(); err == nil {
		defer tty.Close()
		in, out = tty, tty
	}
	fmt.Fprint(out, "Welcome to term-chat! Let's get you set up.\n\n")

	providers := detectAvailableProviders()
	var available, unavailable []huh.Option[string]
	for _, p := range providers {
		if p.available {
			available = append(available, huh.NewOption(p.name+" "+SuccessIcon, p.value))
		} else {
			unavailable = append(unavailable, huh.NewOption(p.name+" (not set)", p.value))
		}
	}

	var answers WizardAnswers
	providerForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which provider do you want to chat with?").
				Description("Providers marked " + SuccessIcon + " are ready to use").
				Options(append(available, unavailable...)...).
				Value(&answers.Provider),
		),
	).WithInput(in).WithOutput(out)
	if err := providerForm.Run(); err != nil {
		return nil, err
	}

	for _, p := range providers {
		if p.value == answers.Provider && !p.available {
			return nil, fmt.Errorf("provider %s is not configured\n\n%s", p.name, p.hint)
		}
	}

	if suggested := llm.SuggestedModels(answers.Provider); len(suggested) > 0 {
		answers.Model = suggested[0]
	}
	detailsForm := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Model").
				Value(&answers.Model),
			huh.NewText().
				Title("System prompt").
				Description("Sent as the first turn of every conversation. May be empty.").
				Value(&answers.SystemPrompt),
		),
	).WithInput(in).WithOutput(out)
	if err := detailsForm.Run(); err != nil {
		return nil, err
	}

	if err := config.Save(WizardConfig(answers)); err != nil {
		return nil, fmt.Errorf("failed to save config: %w", err)
	}

	path, _ := config.GetConfigPath()
	fmt.Fprintf(out, "Config saved to %s\n\n", path)

	return config.Load()
}

// WizardConfig builds the config written by the wizard. Credentials are
// stored as environment references, never as literal keys.
func WizardConfig(a WizardAnswers) *config.Config {
	cfg := &config.Config{
		Provider:     a.Provider,
		SystemPrompt: a.SystemPrompt,
		OpenAI:       config.OpenAIConfig{Model: "gpt-4o-mini"},
		OpenRouter:   config.OpenRouterConfig{Model: "x-ai/grok-code-fast-1"},
		Anthropic:    config.AnthropicConfig{Model: "claude-sonnet-4-5", MaxTokens: 4096},
		Gemini:       config.GeminiConfig{Model: "gemini-2.5-flash"},
		Debug:        config.DebugConfig{Model: "normal"},
		Chat: config.ChatConfig{
			CancelTimeout:       2 * time.Second,
			InputHeight:         3,
			ExpandedInputHeight: 12,
		},
		Log: config.LogConfig{Level: "info"},
	}
	cfg.ApplyOverrides("", a.Model)

	for _, p := range detectAvailableProviders() {
		if p.envVar == "" || p.value != a.Provider {
			continue
		}
		ref := "${" + p.envVar + "}"
		switch p.value {
		case config.ProviderOpenAI:
			cfg.OpenAI.APIKey = ref
		case config.ProviderAnthropic:
			cfg.Anthropic.APIKey = ref
		case config.ProviderGemini:
			cfg.Gemini.APIKey = ref
		case config.ProviderOpenRouter:
			cfg.OpenRouter.APIKey = ref
		}
	}
	return cfg
}

func getTTY() (*os.File, error) {
	return os.OpenFile("/dev/tty", os.O_RDWR, 0)
}
