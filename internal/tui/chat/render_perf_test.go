package chat

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestRenderPerfEnabled(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", false},
		{"1", true},
		{"true", true},
		{"off", false},
	}
	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			getenv := func(string) string { return tc.value }
			if got := renderPerfEnabled(getenv); got != tc.want {
				t.Fatalf("renderPerfEnabled(%q)=%v, want %v", tc.value, got, tc.want)
			}
			if (newRenderPerf(getenv) != nil) != tc.want {
				t.Fatalf("newRenderPerf(%q) enabled mismatch", tc.value)
			}
		})
	}
}

func TestRenderPerfReadsItsOwnVariable(t *testing.T) {
	getenv := func(key string) string {
		if key == "TERM_CHAT_DEBUG_RENDER_PERF" {
			return "yes"
		}
		return ""
	}
	if !renderPerfEnabled(getenv) {
		t.Fatal("TERM_CHAT_DEBUG_RENDER_PERF=yes should enable render timing")
	}
	if renderPerfEnabled(func(string) string { return "" }) {
		t.Fatal("render timing enabled with the variable unset")
	}
}

func TestDurationSummary(t *testing.T) {
	var c durationCollector
	for _, ms := range []int{5, 1, 3, 2, 4} {
		c.Add(time.Duration(ms) * time.Millisecond)
	}
	c.Add(-time.Second)

	s := c.Summary()
	if s.Count != 5 {
		t.Fatalf("count=%d, want 5", s.Count)
	}
	if s.P50 != 3*time.Millisecond || s.P95 != 5*time.Millisecond || s.Max != 5*time.Millisecond {
		t.Fatalf("summary=%+v", s)
	}
	if s.Mean != 3*time.Millisecond || s.Total != 15*time.Millisecond {
		t.Fatalf("summary=%+v", s)
	}
}

func TestNilRenderPerfIsSafe(t *testing.T) {
	var p *renderPerf
	p.recordRefresh(time.Millisecond)
	p.recordMarkdown(time.Millisecond)
	p.log(slog.New(slog.DiscardHandler))
}

func TestRenderPerfLog(t *testing.T) {
	var buf bytes.Buffer
	p := &renderPerf{}
	p.recordRefresh(2 * time.Millisecond)
	p.recordMarkdown(time.Millisecond)
	p.log(slog.New(slog.NewTextHandler(&buf, nil)))

	if out := buf.String(); !strings.Contains(out, "render perf") || !strings.Contains(out, "refreshes=1") {
		t.Fatalf("log=%s", out)
	}
}
