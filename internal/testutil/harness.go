package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/samsaffron/term-chat/internal/conversation"
	"github.com/samsaffron/term-chat/internal/session"
)

// SessionHarness wires an Orchestrator to a ControlledClient and a
// RecordingRenderer. The orchestrator is shut down when the test ends.
type SessionHarness struct {
	Client   *ControlledClient
	Renderer *RecordingRenderer
	Session  *session.Orchestrator
}

func NewSessionHarness(t *testing.T, preamble string) *SessionHarness {
	t.Helper()
	h := &SessionHarness{
		Client:   NewControlledClient("controlled"),
		Renderer: NewRecordingRenderer(),
	}
	h.Session = session.New(h.Client, h.Renderer, session.Options{
		Preamble:      preamble,
		CancelTimeout: time.Second,
	})
	t.Cleanup(func() {
		if err := h.Session.Shutdown(context.Background()); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	})
	return h
}

// WaitIdle blocks until the orchestrator has no stream in flight.
func (h *SessionHarness) WaitIdle(t *testing.T) {
	t.Helper()
	WaitFor(t, "session idle", func() bool {
		return h.Session.State() == session.StateIdle
	})
}

// History returns the committed turns.
func (h *SessionHarness) History() []conversation.Turn {
	return h.Session.History()
}

// WaitFor polls cond until it holds, failing the test after two seconds.
func WaitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
