package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
)

func containsPlain(s, sub string) bool {
	return strings.Contains(ansi.Strip(s), sub)
}

func TestStreamingIndicator(t *testing.T) {
	styles := DefaultStyles()

	out := StreamingIndicator{
		Spinner:    "•",
		Phase:      "Responding",
		Elapsed:    1500 * time.Millisecond,
		Chars:      42,
		ShowCancel: true,
	}.Render(styles)

	for _, want := range []string{"• Responding...", "42 chars", "1.5s", "(esc to cancel)"} {
		if !containsPlain(out, want) {
			t.Fatalf("indicator %q missing %q", ansi.Strip(out), want)
		}
	}
}

func TestStreamingIndicator_HidesZeroChars(t *testing.T) {
	out := StreamingIndicator{Spinner: "•", Phase: "Waiting", Elapsed: time.Second}.Render(DefaultStyles())
	if containsPlain(out, "chars") {
		t.Fatalf("unexpected char count in %q", out)
	}
}

func TestStreamingIndicator_Truncates(t *testing.T) {
	out := StreamingIndicator{
		Spinner:    "•",
		Phase:      "Responding",
		Elapsed:    time.Second,
		ShowCancel: true,
		Width:      12,
	}.Render(DefaultStyles())

	if w := ansi.StringWidth(out); w > 12 {
		t.Fatalf("width %d exceeds 12: %q", w, ansi.Strip(out))
	}
}
