package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/x/ansi"
)

// Frame is one captured View() of a bubbletea model.
type Frame struct {
	Timestamp time.Time
	Raw       string
	Plain     string
	Label     string
}

// ScreenCapture keeps the views a TUI test produced so a failure can show
// what the user would have seen.
type ScreenCapture struct {
	mu        sync.Mutex
	frames    []Frame
	startTime time.Time
}

func NewScreenCapture() *ScreenCapture {
	return &ScreenCapture{startTime: time.Now()}
}

// Capture records raw as a frame tagged with label.
func (s *ScreenCapture) Capture(raw, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, Frame{
		Timestamp: time.Now(),
		Raw:       raw,
		Plain:     StripANSI(raw),
		Label:     label,
	})
}

func (s *ScreenCapture) Frames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

// LastPlain returns the last frame without escape codes.
func (s *ScreenCapture) LastPlain() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return ""
	}
	return s.frames[len(s.frames)-1].Plain
}

// Dump returns every frame as plain text.
func (s *ScreenCapture) Dump() string {
	var sb strings.Builder
	frames := s.Frames()
	fmt.Fprintf(&sb, "Screen Capture: %d frames\n", len(frames))
	for i, f := range frames {
		elapsed := f.Timestamp.Sub(s.startTime)
		fmt.Fprintf(&sb, "\n--- Frame %d (%.3fs) %s ---\n", i, elapsed.Seconds(), f.Label)
		sb.WriteString(f.Plain)
		sb.WriteString("\n")
	}
	return sb.String()
}

// SaveFrames writes each frame to its own file under dir.
func (s *ScreenCapture) SaveFrames(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for i, f := range s.Frames() {
		elapsed := f.Timestamp.Sub(s.startTime)
		name := fmt.Sprintf("frame_%03d_%.3fs.txt", i, elapsed.Seconds())
		content := fmt.Sprintf("Label: %s\n\n%s", f.Label, f.Plain)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

// StripANSI removes terminal escape sequences.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// SaveFramesDir returns $SAVE_FRAMES, the directory TUI tests dump frames
// into when set.
func SaveFramesDir() string {
	return os.Getenv("SAVE_FRAMES")
}
