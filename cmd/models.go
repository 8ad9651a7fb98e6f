package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/samsaffron/term-chat/internal/config"
	"github.com/samsaffron/term-chat/internal/exitcode"
	"github.com/samsaffron/term-chat/internal/llm"
)

var modelsProvider string
var modelsJSON bool
var modelsRemote bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models for each provider",
	Long: `List suggested models for every provider, or query a provider's
models API with --remote.

Examples:
  term-chat models                              # suggested models
  term-chat models --provider anthropic --remote
  term-chat models --json`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().StringVarP(&modelsProvider, "provider", "p", "", "Only list models for this provider")
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "Output as JSON")
	modelsCmd.Flags().BoolVar(&modelsRemote, "remote", false, "Query the provider's models API (needs credentials)")
}

func runModels(cmd *cobra.Command, args []string) error {
	providers := config.KnownProviders()
	if modelsProvider != "" {
		if _, _, err := llm.ParseProviderModel(modelsProvider); err != nil {
			return err
		}
		providers = []string{modelsProvider}
	}

	listing := make(map[string][]string, len(providers))
	if modelsRemote {
		if len(providers) != 1 {
			return fmt.Errorf("--remote needs --provider")
		}
		models, err := listRemoteModels(cmd.Context(), providers[0])
		if err != nil {
			return err
		}
		listing[providers[0]] = models
	} else {
		for _, p := range providers {
			listing[p] = llm.SuggestedModels(p)
		}
	}

	return printModels(cmd.OutOrStdout(), providers, listing, modelsJSON)
}

func listRemoteModels(ctx context.Context, provider string) ([]string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.ApplyOverrides(provider, "")
	if err := cfg.Validate(); err != nil {
		return nil, exitcode.ConfigInvalid(err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	p, err := llm.NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	lister, ok := p.(llm.ModelLister)
	if !ok {
		return nil, fmt.Errorf("provider %s does not support model listing", provider)
	}
	models, err := lister.ListModels(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "connection refused") {
			return nil, fmt.Errorf("cannot connect to %s; check base_url and that the server is running", provider)
		}
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return models, nil
}

func printModels(w io.Writer, providers []string, listing map[string][]string, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(listing)
	}

	for i, p := range providers {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s:\n", p)
		if len(listing[p]) == 0 {
			fmt.Fprintln(w, "  (no models found)")
		}
		for _, m := range listing[p] {
			fmt.Fprintf(w, "  %s:%s\n", p, m)
		}
	}
	return nil
}
