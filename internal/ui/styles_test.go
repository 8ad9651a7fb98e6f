package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/samsaffron/term-chat/internal/config"
)

func TestThemeFromConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.ThemeConfig
		want Theme
	}{
		{
			name: "empty keeps defaults",
			cfg:  config.ThemeConfig{},
			want: DefaultTheme(),
		},
		{
			name: "overrides",
			cfg:  config.ThemeConfig{Primary: "#111111", Muted: "#222222", Error: " #333333 ", Success: "2"},
			want: func() Theme {
				th := DefaultTheme()
				th.Primary = lipgloss.Color("#111111")
				th.Muted = lipgloss.Color("#222222")
				th.Error = lipgloss.Color("#333333")
				th.Success = lipgloss.Color("2")
				return th
			}(),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ThemeFromConfig(tc.cfg); got != tc.want {
				t.Fatalf("ThemeFromConfig() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello world", 6, "hello…"},
		{"abc", 0, ""},
	}
	for _, tc := range tests {
		if got := Truncate(tc.in, tc.width); got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}

func TestFormatResult(t *testing.T) {
	s := DefaultStyles()
	if got := s.FormatResult(true, "saved"); !containsPlain(got, SuccessIcon+" saved") {
		t.Fatalf("success result = %q", got)
	}
	if got := s.FormatResult(false, "nope"); !containsPlain(got, FailIcon+" nope") {
		t.Fatalf("fail result = %q", got)
	}
}
