package session

import "github.com/samsaffron/term-chat/internal/conversation"

// TurnHandle identifies a rendered turn. Values are assigned by the renderer.
type TurnHandle int

// TurnStatus is the outcome reported when an assistant turn stops changing.
type TurnStatus int

const (
	TurnComplete TurnStatus = iota
	// TurnFailed marks a turn cut short by a StreamError; its text may be partial.
	TurnFailed
	// TurnCancelled marks a turn superseded by the user. Not an error.
	TurnCancelled
)

func (s TurnStatus) String() string {
	switch s {
	case TurnComplete:
		return "complete"
	case TurnFailed:
		return "failed"
	case TurnCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// TurnRenderer is the display side of a session. The orchestrator calls it
// while holding its own lock, so implementations must return promptly and
// must not call back into the orchestrator.
type TurnRenderer interface {
	CreateTurn(role conversation.Role, initialText string) TurnHandle
	AppendDelta(h TurnHandle, text string)
	FinishTurn(h TurnHandle, status TurnStatus, err error)
	RemoveAll()
}
