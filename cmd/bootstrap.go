package cmd

import (
	"context"
	"fmt"

	"github.com/samsaffron/term-chat/internal/config"
	"github.com/samsaffron/term-chat/internal/exitcode"
	"github.com/samsaffron/term-chat/internal/llm"
	"github.com/samsaffron/term-chat/internal/session"
	"github.com/samsaffron/term-chat/internal/ui"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func loadConfigWithSetup() (*config.Config, error) {
	if config.NeedsSetup() {
		cfg, err := ui.RunSetupWizard()
		if err != nil {
			return nil, fmt.Errorf("setup cancelled: %w", err)
		}
		return cfg, nil
	}

	return loadConfig()
}

// applyProviderOverrides applies a "provider[:model]" flag on top of cfg.
func applyProviderOverrides(cfg *config.Config, providerFlag string) error {
	if providerFlag == "" {
		return nil
	}

	provider, model, err := llm.ParseProviderModel(providerFlag)
	if err != nil {
		return exitcode.ConfigInvalid(&config.ConfigError{Key: "--provider", Reason: err.Error()})
	}
	cfg.ApplyOverrides(provider, model)
	return nil
}

// newStreamingClient builds the session client for an already validated cfg.
func newStreamingClient(ctx context.Context, cfg *config.Config) (session.StreamingClient, error) {
	provider, err := llm.NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []session.ClientOption{session.WithModel(cfg.ActiveModel())}
	if cfg.Chat.MaxOutputTokens > 0 {
		opts = append(opts, session.WithMaxOutputTokens(cfg.Chat.MaxOutputTokens))
	}
	if cfg.Chat.Temperature > 0 {
		opts = append(opts, session.WithTemperature(cfg.Chat.Temperature))
	}
	return session.NewProviderClient(provider, opts...), nil
}

// clientFactory returns the /model switcher: each call derives a config for
// the requested provider:model from base and validates it first.
func clientFactory(ctx context.Context, base *config.Config) func(string) (session.StreamingClient, error) {
	return func(providerModel string) (session.StreamingClient, error) {
		provider, model, err := llm.ParseProviderModel(providerModel)
		if err != nil {
			return nil, err
		}
		cfg := *base
		cfg.ApplyOverrides(provider, model)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return newStreamingClient(ctx, &cfg)
	}
}
