package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// StableMarkdownPrefix returns the length of the longest prefix of a
// partially streamed reply that renders the same once the reply is complete:
// it ends on a blank line, outside any code fence, with inline markers
// closed. Returns 0 when no such prefix exists yet.
func StableMarkdownPrefix(text string) int {
	end := len(text)
	for {
		idx := strings.LastIndex(text[:end], "\n\n")
		if idx < 0 {
			return 0
		}
		cut := idx + 2
		if fenceCount(text[:cut])%2 == 0 && inlineClosed(text[:cut]) {
			return cut
		}
		end = idx
	}
}

// RenderStreamingMarkdown renders the stable prefix as markdown and shows
// the still-growing tail as wrapped plain text.
func RenderStreamingMarkdown(text string, width int) string {
	cut := StableMarkdownPrefix(text)
	tail := strings.TrimLeft(text[cut:], "\n")
	wrapped := lipgloss.NewStyle().Width(width).Render(tail)
	if cut == 0 {
		return wrapped
	}
	head := RenderMarkdown(text[:cut], width)
	if tail == "" {
		return head
	}
	return head + "\n\n" + wrapped
}

// fenceCount counts lines opening or closing a ``` block.
func fenceCount(text string) int {
	n := 0
	for line := range strings.SplitSeq(text, "\n") {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "```") {
			n++
		}
	}
	return n
}

// inlineClosed reports whether code spans, ** and ~~ are all paired.
func inlineClosed(text string) bool {
	bold, strike := false, false
	for i := 0; i < len(text); {
		switch {
		case text[i] == '`':
			run := 1
			for i+run < len(text) && text[i+run] == '`' {
				run++
			}
			closeAt := strings.Index(text[i+run:], strings.Repeat("`", run))
			if closeAt < 0 {
				return false
			}
			i += run + closeAt + run
		case strings.HasPrefix(text[i:], "**"):
			bold = !bold
			i += 2
		case strings.HasPrefix(text[i:], "~~"):
			strike = !strike
			i += 2
		default:
			i++
		}
	}
	return !bold && !strike
}
