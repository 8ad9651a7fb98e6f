package llm

import "context"

// Role is the author of a message sent to a provider.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single plain-text chat message.
type Message struct {
	Role    Role
	Content string
}

func SystemText(text string) Message    { return Message{Role: RoleSystem, Content: text} }
func UserText(text string) Message      { return Message{Role: RoleUser, Content: text} }
func AssistantText(text string) Message { return Message{Role: RoleAssistant, Content: text} }

// Request is a provider-agnostic chat completion request.
type Request struct {
	Messages        []Message
	Model           string
	MaxOutputTokens int
	Temperature     float32
}

type EventType int

const (
	EventTextDelta EventType = iota
	EventDone
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventTextDelta:
		return "text_delta"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one item produced by a Stream.
type Event struct {
	Type EventType
	Text string
	Err  error
}

// Stream is a pull iterator over provider events. Recv returns io.EOF once the
// producer finishes and the context error after the stream is cancelled.
type Stream interface {
	Recv() (Event, error)
	Close() error
}

// Provider opens streaming completions. Stream must return without waiting on
// the network; the exchange happens in the stream's producer goroutine.
type Provider interface {
	Name() string
	Stream(ctx context.Context, req Request) (Stream, error)
}

// ModelLister is implemented by providers that can enumerate models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}
