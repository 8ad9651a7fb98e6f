// Package logging sets up the process logger. The TUI owns the terminal, so
// records go to a JSON file or nowhere.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const appName = "term-chat"

type Options struct {
	// Enabled turns file logging on. When false the logger discards.
	Enabled bool
	Level   string
	// Path overrides DefaultPath.
	Path string
}

// Logger is a configured slog.Logger plus the file backing it.
type Logger struct {
	*slog.Logger
	SessionID string
	Path      string

	closer io.Closer
}

// New opens the log file (creating its directory) and returns a logger
// whose records carry a per-run session id.
func New(opts Options) (*Logger, error) {
	id := uuid.NewString()
	if !opts.Enabled {
		return &Logger{Logger: slog.New(slog.DiscardHandler), SessionID: id}, nil
	}

	path := opts.Path
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := NewWriter(f, ParseLevel(opts.Level), id)
	l.Path = path
	l.closer = f
	return l, nil
}

// NewWriter logs JSON records to w.
func NewWriter(w io.Writer, level slog.Level, sessionID string) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return &Logger{
		Logger:    slog.New(handler).With("session", sessionID),
		SessionID: sessionID,
	}
}

func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// DefaultPath is $XDG_STATE_HOME/term-chat/debug.log, falling back to
// ~/.local/state.
func DefaultPath() (string, error) {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, appName, "debug.log"), nil
}

// ParseLevel maps a config string to a level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
