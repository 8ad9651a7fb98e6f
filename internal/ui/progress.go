package ui

import (
	"fmt"
	"strings"
	"time"
)

// StreamingIndicator renders the status line shown while a reply streams.
type StreamingIndicator struct {
	Spinner    string // spinner.View() output
	Phase      string // "Waiting", "Responding"
	Elapsed    time.Duration
	Chars      int // 0 = don't show
	ShowCancel bool
	Width      int // 0 = no truncation
}

func (s StreamingIndicator) Render(styles *Styles) string {
	var b strings.Builder

	b.WriteString(s.Spinner)
	b.WriteString(" ")
	b.WriteString(s.Phase)
	b.WriteString("...")

	if s.Chars > 0 {
		fmt.Fprintf(&b, " %d chars |", s.Chars)
	}

	fmt.Fprintf(&b, " %.1fs", s.Elapsed.Seconds())

	if s.ShowCancel {
		b.WriteString(" ")
		b.WriteString(styles.Muted.Render("(esc to cancel)"))
	}

	if s.Width > 0 {
		return Truncate(b.String(), s.Width)
	}
	return b.String()
}
