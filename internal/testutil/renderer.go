package testutil

import (
	"sync"

	"github.com/samsaffron/term-chat/internal/conversation"
	"github.com/samsaffron/term-chat/internal/session"
)

type RenderOp string

const (
	OpCreate    RenderOp = "create"
	OpAppend    RenderOp = "append"
	OpFinish    RenderOp = "finish"
	OpRemoveAll RenderOp = "remove_all"
)

// RenderCall is one recorded TurnRenderer call.
type RenderCall struct {
	Op     RenderOp
	Handle session.TurnHandle
	Role   conversation.Role
	Text   string
	Status session.TurnStatus
	Err    error
}

// RenderedTurn is the visible state of one turn.
type RenderedTurn struct {
	Role     conversation.Role
	Text     string
	Deltas   []string
	Finished bool
	Status   session.TurnStatus
	Err      error
}

// RecordingRenderer is a session.TurnRenderer that remembers everything it
// was asked to draw. Safe for concurrent use.
type RecordingRenderer struct {
	mu    sync.Mutex
	next  session.TurnHandle
	calls []RenderCall
	turns map[session.TurnHandle]*RenderedTurn
	order []session.TurnHandle
}

func NewRecordingRenderer() *RecordingRenderer {
	return &RecordingRenderer{turns: make(map[session.TurnHandle]*RenderedTurn)}
}

func (r *RecordingRenderer) CreateTurn(role conversation.Role, initialText string) session.TurnHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	h := r.next
	r.turns[h] = &RenderedTurn{Role: role, Text: initialText}
	r.order = append(r.order, h)
	r.calls = append(r.calls, RenderCall{Op: OpCreate, Handle: h, Role: role, Text: initialText})
	return h
}

func (r *RecordingRenderer) AppendDelta(h session.TurnHandle, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, RenderCall{Op: OpAppend, Handle: h, Text: text})
	if t, ok := r.turns[h]; ok {
		t.Text += text
		t.Deltas = append(t.Deltas, text)
	}
}

func (r *RecordingRenderer) FinishTurn(h session.TurnHandle, status session.TurnStatus, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, RenderCall{Op: OpFinish, Handle: h, Status: status, Err: err})
	if t, ok := r.turns[h]; ok {
		t.Finished = true
		t.Status = status
		t.Err = err
	}
}

func (r *RecordingRenderer) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, RenderCall{Op: OpRemoveAll})
	r.turns = make(map[session.TurnHandle]*RenderedTurn)
	r.order = nil
}

func (r *RecordingRenderer) Calls() []RenderCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RenderCall, len(r.calls))
	copy(out, r.calls)
	return out
}

// Turn returns a copy of the turn behind h, if it is still displayed.
func (r *RecordingRenderer) Turn(h session.TurnHandle) (RenderedTurn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.turns[h]
	if !ok {
		return RenderedTurn{}, false
	}
	cp := *t
	cp.Deltas = append([]string(nil), t.Deltas...)
	return cp, true
}

// Turns returns the displayed turns in creation order.
func (r *RecordingRenderer) Turns() []RenderedTurn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RenderedTurn, 0, len(r.order))
	for _, h := range r.order {
		t := *r.turns[h]
		t.Deltas = append([]string(nil), t.Deltas...)
		out = append(out, t)
	}
	return out
}

// Handles returns the handles of the displayed turns in creation order.
func (r *RecordingRenderer) Handles() []session.TurnHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.TurnHandle(nil), r.order...)
}
