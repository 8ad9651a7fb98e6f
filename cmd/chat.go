package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/samsaffron/term-chat/internal/config"
	"github.com/samsaffron/term-chat/internal/exitcode"
	"github.com/samsaffron/term-chat/internal/logging"
	"github.com/samsaffron/term-chat/internal/session"
	"github.com/samsaffron/term-chat/internal/signal"
	"github.com/samsaffron/term-chat/internal/tui/chat"
	"github.com/samsaffron/term-chat/internal/ui"
)

var (
	chatDebug    bool
	chatProvider string
	chatSystem   string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start a full-screen chat session with the configured model.

Examples:
  term-chat chat
  term-chat chat --provider openai:gpt-4o
  term-chat chat --system "Answer in one sentence." --debug

Keyboard shortcuts:
  Enter          - Send message
  Alt+Enter      - Insert newline (also Ctrl+J)
  Esc            - Cancel streaming, or leave the input
  i              - Back to the input
  j/k PgUp/PgDn  - Scroll
  [ ] y          - Select a turn and copy it
  Ctrl+E         - Expand the input
  Ctrl+R         - New conversation
  Ctrl+C         - Quit

Slash commands:
  /help  /clear  /copy  /model [provider:model]  /quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	addChatFlags(chatCmd)
	rootCmd.AddCommand(chatCmd)
}

func addChatFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&chatDebug, "debug", "d", false, "Write debug logs to the state directory")
	cmd.Flags().StringVar(&chatProvider, "provider", "", "Override provider, optionally with model (e.g., openai:gpt-4o)")
	cmd.Flags().StringVar(&chatSystem, "system", "", "Override the system prompt")
	if err := cmd.RegisterFlagCompletionFunc("provider", ProviderFlagCompletion); err != nil {
		panic(fmt.Sprintf("failed to register provider completion: %v", err))
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return exitcode.NotATerminal("term-chat needs an interactive terminal")
	}

	ctx, stop := signal.NotifyContext()
	defer stop()

	cfg, err := loadConfigWithSetup()
	if err != nil {
		return err
	}
	if err := applyProviderOverrides(cfg, chatProvider); err != nil {
		return err
	}
	if cmd.Flags().Changed("system") {
		cfg.SystemPrompt = chatSystem
	}
	if err := cfg.Validate(); err != nil {
		return exitcode.ConfigInvalid(err)
	}

	level := cfg.Log.Level
	if chatDebug {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{
		Enabled: chatDebug || cfg.Log.File != "",
		Level:   level,
		Path:    cfg.Log.File,
	})
	if err != nil {
		return err
	}
	defer logger.Close()

	client, err := newStreamingClient(ctx, cfg)
	if err != nil {
		return exitcode.ConfigInvalid(err)
	}
	logger.Info("chat starting", "provider", client.Name(), "model", cfg.ActiveModel())

	transcript := chat.NewTranscript()
	sess := session.New(client, transcript, session.Options{
		Preamble:      cfg.SystemPrompt,
		Logger:        logger.Logger,
		CancelTimeout: cfg.Chat.CancelTimeout,
	})

	model := chat.New(chat.Options{
		Session:             sess,
		Transcript:          transcript,
		ProviderModel:       cfg.Provider + ":" + cfg.ActiveModel(),
		NewClient:           clientFactory(ctx, cfg),
		Styles:              ui.NewStyles(os.Stdout, ui.ThemeFromConfig(cfg.Theme)),
		InputHeight:         cfg.Chat.InputHeight,
		ExpandedInputHeight: cfg.Chat.ExpandedInputHeight,
		Logger:              logger.Logger,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sess.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}

	if runErr != nil {
		if errors.Is(runErr, tea.ErrProgramKilled) && ctx.Err() != nil {
			return exitcode.Cancel()
		}
		return fmt.Errorf("failed to run chat: %w", runErr)
	}
	return nil
}

// configErrorHint adds the config path to a ConfigError for display.
func configErrorHint(err error) string {
	var cfgErr *config.ConfigError
	if !errors.As(err, &cfgErr) {
		return ""
	}
	path, pathErr := config.GetConfigPath()
	if pathErr != nil {
		return ""
	}
	return fmt.Sprintf("Edit %s or run `term-chat config init`.", path)
}
