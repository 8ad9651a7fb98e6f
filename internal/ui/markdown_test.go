package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

func TestRenderMarkdown(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  []string
	}{
		{"heading", "# Greetings", 60, []string{"Greetings"}},
		{"list", "- one\n- two", 60, []string{"one", "two"}},
		{"code block", "```go\nfmt.Println(1)\n```", 60, []string{"fmt.Println(1)"}},
		{"zero width", "# title", 0, []string{"title"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := RenderMarkdownWithError(tc.in, tc.width)
			if err != nil {
				t.Fatalf("RenderMarkdownWithError: %v", err)
			}
			plain := ansi.Strip(out)
			for _, w := range tc.want {
				if !strings.Contains(plain, w) {
					t.Fatalf("rendered %q lacks %q", plain, w)
				}
			}
			if plain != strings.TrimSpace(plain) {
				t.Fatalf("output not trimmed: %q", plain)
			}
		})
	}
}

func TestRenderMarkdownEmpty(t *testing.T) {
	if got := RenderMarkdown("", 40); got != "" {
		t.Fatalf("RenderMarkdown(\"\")=%q", got)
	}
}

func TestRenderMarkdownWidthChange(t *testing.T) {
	long := strings.Repeat("word ", 30)
	narrow := ansi.Strip(RenderMarkdown(long, 20))
	wide := ansi.Strip(RenderMarkdown(long, 100))
	if strings.Count(narrow, "\n") <= strings.Count(wide, "\n") {
		t.Fatalf("narrow render should wrap more: narrow=%d wide=%d lines",
			strings.Count(narrow, "\n")+1, strings.Count(wide, "\n")+1)
	}
}
