package chat

import (
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/samsaffron/term-chat/internal/conversation"
	"github.com/samsaffron/term-chat/internal/session"
)

// TurnView is the display state of one rendered turn.
type TurnView struct {
	Handle   session.TurnHandle
	Role     conversation.Role
	Text     string
	Finished bool
	Status   session.TurnStatus
	Err      error
}

// Waiting reports whether an assistant turn has produced nothing yet.
func (t TurnView) Waiting() bool {
	return t.Role == conversation.RoleAssistant && !t.Finished && t.Text == ""
}

// Transcript is the session.TurnRenderer behind the chat view. The
// orchestrator writes to it from its own goroutines; the bubbletea loop
// reads snapshots after a transcriptChangedMsg.
type Transcript struct {
	mu      sync.Mutex
	next    session.TurnHandle
	turns   []*transcriptTurn
	version uint64
	notify  chan struct{}
}

// transcriptTurn accumulates deltas in a builder; view.Text is filled in
// on Snapshot.
type transcriptTurn struct {
	view TurnView
	text strings.Builder
}

func NewTranscript() *Transcript {
	return &Transcript{notify: make(chan struct{}, 1)}
}

func (t *Transcript) CreateTurn(role conversation.Role, initialText string) session.TurnHandle {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	turn := &transcriptTurn{view: TurnView{Handle: t.next, Role: role}}
	turn.text.WriteString(initialText)
	t.turns = append(t.turns, turn)
	t.changedLocked()
	return t.next
}

func (t *Transcript) AppendDelta(h session.TurnHandle, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if turn := t.findLocked(h); turn != nil && !turn.view.Finished {
		turn.text.WriteString(text)
		t.changedLocked()
	}
}

func (t *Transcript) FinishTurn(h session.TurnHandle, status session.TurnStatus, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if turn := t.findLocked(h); turn != nil {
		turn.view.Finished = true
		turn.view.Status = status
		turn.view.Err = err
		t.changedLocked()
	}
}

func (t *Transcript) RemoveAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.turns = nil
	t.changedLocked()
}

// Snapshot copies the current turns.
func (t *Transcript) Snapshot() []TurnView {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]TurnView, len(t.turns))
	for i, turn := range t.turns {
		out[i] = turn.view
		out[i].Text = turn.text.String()
	}
	return out
}

// Version increases on every change.
func (t *Transcript) Version() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.version
}

// Changed fires at least once after any number of changes.
func (t *Transcript) Changed() <-chan struct{} {
	return t.notify
}

func (t *Transcript) findLocked(h session.TurnHandle) *transcriptTurn {
	// The streaming turn is almost always the last one.
	for i := len(t.turns) - 1; i >= 0; i-- {
		if t.turns[i].view.Handle == h {
			return t.turns[i]
		}
	}
	return nil
}

func (t *Transcript) changedLocked() {
	t.version++
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

type transcriptChangedMsg struct{}

// waitForTranscript turns the next change notification into a message.
func waitForTranscript(t *Transcript) tea.Cmd {
	return func() tea.Msg {
		<-t.Changed()
		return transcriptChangedMsg{}
	}
}
