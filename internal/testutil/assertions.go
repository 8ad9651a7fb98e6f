package testutil

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/samsaffron/term-chat/internal/conversation"
)

// AssertContainsPlain fails if output (after stripping ANSI) does not contain expected.
func AssertContainsPlain(t *testing.T, output, expected string) {
	t.Helper()
	plain := StripANSI(output)
	if !strings.Contains(plain, expected) {
		t.Errorf("output does not contain expected string\nExpected to find: %q\nIn output (plain):\n%s", expected, truncateForError(plain))
	}
}

// AssertNotContainsPlain fails if output (after stripping ANSI) contains unexpected.
func AssertNotContainsPlain(t *testing.T, output, unexpected string) {
	t.Helper()
	plain := StripANSI(output)
	if strings.Contains(plain, unexpected) {
		t.Errorf("output contains unexpected string\nDid not expect to find: %q\nIn output (plain):\n%s", unexpected, truncateForError(plain))
	}
}

// AssertMatchesPlain fails if output (after stripping ANSI) does not match pattern.
func AssertMatchesPlain(t *testing.T, output string, pattern *regexp.Regexp) {
	t.Helper()
	plain := StripANSI(output)
	if !pattern.MatchString(plain) {
		t.Errorf("output does not match pattern\nPattern: %s\nOutput (plain):\n%s", pattern.String(), truncateForError(plain))
	}
}

// AssertHistory fails unless got holds exactly the want turns in order.
func AssertHistory(t *testing.T, got []conversation.Turn, want ...conversation.Turn) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("history has %d turns, want %d\ngot:\n%s\nwant:\n%s", len(got), len(want), formatTurns(got), formatTurns(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("turn %d = %s, want %s\ngot:\n%s", i, formatTurn(got[i]), formatTurn(want[i]), formatTurns(got))
		}
	}
}

// AssertOps fails unless calls performed exactly the given operations in order.
func AssertOps(t *testing.T, calls []RenderCall, want ...RenderOp) {
	t.Helper()
	got := make([]RenderOp, len(calls))
	for i, c := range calls {
		got[i] = c.Op
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("render ops = %v, want %v", got, want)
	}
}

func formatTurns(turns []conversation.Turn) string {
	var b strings.Builder
	for i, turn := range turns {
		fmt.Fprintf(&b, "  %d: %s\n", i, formatTurn(turn))
	}
	return b.String()
}

func formatTurn(turn conversation.Turn) string {
	return fmt.Sprintf("%s %q", turn.Role, turn.Content)
}

// truncateForError truncates output for error messages to avoid huge logs.
func truncateForError(s string) string {
	const maxLen = 2000
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "\n... [truncated]"
}
