// Package conversation holds the in-memory turn log sent to the model on every request.
package conversation

import (
	"fmt"
	"strings"
)

// Role identifies who authored a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the conversation.
type Turn struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

func SystemTurn(content string) Turn    { return Turn{Role: RoleSystem, Content: content} }
func UserTurn(content string) Turn      { return Turn{Role: RoleUser, Content: content} }
func AssistantTurn(content string) Turn { return Turn{Role: RoleAssistant, Content: content} }

// History is an ordered turn log that always starts with the system preamble.
// It is not safe for concurrent use; its owner serializes access.
type History struct {
	preamble string
	turns    []Turn
}

// New creates a history holding only the preamble turn.
func New(preamble string) *History {
	h := &History{preamble: preamble}
	h.Reset()
	return h
}

// Reset drops every turn and starts over from a fresh preamble.
func (h *History) Reset() {
	h.turns = []Turn{SystemTurn(h.preamble)}
}

// Append adds a turn at the end. Role ordering is the caller's concern.
func (h *History) Append(turn Turn) {
	h.turns = append(h.turns, turn)
}

// Snapshot returns a copy of the turns that later appends or resets cannot touch.
func (h *History) Snapshot() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int {
	return len(h.turns)
}

func (h *History) Preamble() string {
	return h.preamble
}

// Last returns the most recent turn, which is the preamble on a fresh history.
func (h *History) Last() Turn {
	return h.turns[len(h.turns)-1]
}

// Transcript renders turns as markdown, skipping an empty preamble.
func Transcript(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		if t.Role == RoleSystem && strings.TrimSpace(t.Content) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s\n\n%s", roleTitle(t.Role), t.Content)
	}
	return b.String()
}

func roleTitle(r Role) string {
	switch r {
	case RoleSystem:
		return "System"
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Model"
	default:
		return string(r)
	}
}
