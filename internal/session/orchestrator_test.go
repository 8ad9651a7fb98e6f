package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/samsaffron/term-chat/internal/conversation"
	"github.com/samsaffron/term-chat/internal/session"
	"github.com/samsaffron/term-chat/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var sys = conversation.SystemTurn("you are terse")

func user(s string) conversation.Turn      { return conversation.UserTurn(s) }
func assistant(s string) conversation.Turn { return conversation.AssistantTurn(s) }

func TestSubmitStreamsDeltasInOrder(t *testing.T) {
	h := testutil.NewSessionHarness(t, sys.Content)

	if !h.Session.Submit("hi") {
		t.Fatal("Submit returned false")
	}
	if got := h.Session.State(); got != session.StateStreaming {
		t.Fatalf("state=%s, want streaming", got)
	}

	s := h.Client.Last()
	testutil.AssertHistory(t, s.History, sys, user("hi"))

	s.Delta("He")
	s.Delta("llo")
	s.Done()
	h.WaitIdle(t)

	testutil.AssertHistory(t, h.History(), sys, user("hi"), assistant("Hello"))

	calls := h.Renderer.Calls()
	testutil.AssertOps(t, calls,
		testutil.OpCreate, testutil.OpCreate,
		testutil.OpAppend, testutil.OpAppend,
		testutil.OpFinish,
	)
	if calls[0].Role != conversation.RoleUser || calls[0].Text != "hi" {
		t.Fatalf("first turn = %+v, want user hi", calls[0])
	}
	if calls[1].Role != conversation.RoleAssistant || calls[1].Text != "" {
		t.Fatalf("placeholder = %+v, want empty assistant turn", calls[1])
	}

	turn, ok := h.Renderer.Turn(calls[1].Handle)
	if !ok {
		t.Fatal("assistant turn missing from renderer")
	}
	if len(turn.Deltas) != 2 || turn.Deltas[0] != "He" || turn.Deltas[1] != "llo" {
		t.Fatalf("deltas=%q, want [He llo]", turn.Deltas)
	}
	if turn.Status != session.TurnComplete || turn.Err != nil {
		t.Fatalf("finish status=%s err=%v", turn.Status, turn.Err)
	}
	if err := h.Session.LastError(); err != nil {
		t.Fatalf("LastError=%v, want nil", err)
	}
}

func TestStreamErrorKeepsPartialText(t *testing.T) {
	h := testutil.NewSessionHarness(t, sys.Content)
	boom := errors.New("connection reset")

	h.Session.Submit("q")
	s := h.Client.Last()
	s.Delta("Sor")
	s.Fail(boom)
	h.WaitIdle(t)

	testutil.AssertHistory(t, h.History(), sys, user("q"), assistant("Sor"))

	var streamErr *session.StreamError
	if !errors.As(h.Session.LastError(), &streamErr) {
		t.Fatalf("LastError=%v, want *StreamError", h.Session.LastError())
	}
	if streamErr.Partial != "Sor" {
		t.Fatalf("Partial=%q, want Sor", streamErr.Partial)
	}
	if !errors.Is(streamErr, boom) {
		t.Fatalf("StreamError does not wrap cause: %v", streamErr)
	}

	turn, _ := h.Renderer.Turn(h.Renderer.Handles()[1])
	if turn.Status != session.TurnFailed || turn.Err == nil {
		t.Fatalf("status=%s err=%v, want failed with error", turn.Status, turn.Err)
	}
	if turn.Text != "Sor" {
		t.Fatalf("rendered text=%q, want Sor", turn.Text)
	}
}

func TestStreamErrorWithoutTextCommitsNothing(t *testing.T) {
	h := testutil.NewSessionHarness(t, "")

	h.Session.Submit("q")
	h.Client.Last().Fail(errors.New("503"))
	h.WaitIdle(t)

	testutil.AssertHistory(t, h.History(), conversation.SystemTurn(""), user("q"))
	if h.Session.LastError() == nil {
		t.Fatal("expected LastError")
	}
}

func TestStreamOpenFailure(t *testing.T) {
	h := testutil.NewSessionHarness(t, sys.Content)
	h.Client.FailOpen(errors.New("dial tcp: refused"))

	if !h.Session.Submit("q") {
		t.Fatal("Submit returned false")
	}
	if got := h.Session.State(); got != session.StateIdle {
		t.Fatalf("state=%s, want idle", got)
	}
	testutil.AssertHistory(t, h.History(), sys, user("q"))

	calls := h.Renderer.Calls()
	testutil.AssertOps(t, calls, testutil.OpCreate, testutil.OpCreate, testutil.OpFinish)
	if calls[2].Status != session.TurnFailed {
		t.Fatalf("status=%s, want failed", calls[2].Status)
	}

	// Still usable once the backend recovers.
	h.Client.FailOpen(nil)
	h.Session.Submit("again")
	h.Client.Last().Done()
	h.WaitIdle(t)
	testutil.AssertHistory(t, h.History(), sys, user("q"), user("again"), assistant(""))
}

func TestDoneWithoutDeltasCommitsEmptyReply(t *testing.T) {
	h := testutil.NewSessionHarness(t, sys.Content)

	h.Session.Submit("say nothing")
	h.Client.Last().Done()
	h.WaitIdle(t)

	testutil.AssertHistory(t, h.History(), sys, user("say nothing"), assistant(""))
}

func TestEmptySubmitIsNoop(t *testing.T) {
	tests := []string{"", "   ", "\n\t "}
	for _, text := range tests {
		t.Run("", func(t *testing.T) {
			h := testutil.NewSessionHarness(t, sys.Content)
			if h.Session.Submit(text) {
				t.Fatalf("Submit(%q) returned true", text)
			}
			if h.Client.Calls() != 0 {
				t.Fatalf("Stream called %d times", h.Client.Calls())
			}
			testutil.AssertHistory(t, h.History(), sys)
			if len(h.Renderer.Calls()) != 0 {
				t.Fatalf("renderer touched: %+v", h.Renderer.Calls())
			}
		})
	}
}

func TestSubmitWhileStreamingReplacesStream(t *testing.T) {
	h := testutil.NewSessionHarness(t, sys.Content)

	h.Session.Submit("a")
	first := h.Client.Last()
	first.Delta("partial a")
	testutil.WaitFor(t, "first delta rendered", func() bool {
		return len(h.Renderer.Calls()) == 3
	})

	h.Session.Submit("b")
	if !first.Cancelled() {
		t.Fatal("first stream was not cancelled")
	}
	second := h.Client.Last()
	testutil.AssertHistory(t, second.History, sys, user("a"), user("b"))

	// Late events from the superseded stream must be ignored.
	first.Delta("late")
	second.Delta("B")
	second.Done()
	h.WaitIdle(t)

	testutil.AssertHistory(t, h.History(), sys, user("a"), user("b"), assistant("B"))

	turns := h.Renderer.Turns()
	if len(turns) != 4 {
		t.Fatalf("rendered %d turns, want 4", len(turns))
	}
	if turns[1].Status != session.TurnCancelled || turns[1].Err != nil {
		t.Fatalf("superseded turn status=%s err=%v", turns[1].Status, turns[1].Err)
	}
	if turns[1].Text != "partial a" {
		t.Fatalf("superseded turn text=%q", turns[1].Text)
	}
	if turns[3].Text != "B" || turns[3].Status != session.TurnComplete {
		t.Fatalf("replacement turn=%+v", turns[3])
	}
	testutil.WaitFor(t, "first stream closed", first.Closed)
}

func TestRapidSubmitsSingleFlight(t *testing.T) {
	h := testutil.NewSessionHarness(t, sys.Content)
	inputs := []string{"one", "two", "three", "four", "five"}

	for _, in := range inputs {
		h.Session.Submit(in)
	}
	if h.Client.Calls() != len(inputs) {
		t.Fatalf("Stream called %d times, want %d", h.Client.Calls(), len(inputs))
	}

	live := 0
	for i := range inputs {
		if !h.Client.StreamAt(i).Cancelled() {
			live++
		}
	}
	if live != 1 {
		t.Fatalf("%d streams still live, want 1", live)
	}
	if h.Client.StreamAt(len(inputs) - 1).Cancelled() {
		t.Fatal("latest stream was cancelled")
	}

	for i := range inputs[:len(inputs)-1] {
		s := h.Client.StreamAt(i)
		s.Delta("stale")
		s.Done()
	}
	last := h.Client.Last()
	last.Delta("5")
	last.Done()
	h.WaitIdle(t)

	want := []conversation.Turn{sys}
	for _, in := range inputs {
		want = append(want, user(in))
	}
	want = append(want, assistant("5"))
	testutil.AssertHistory(t, h.History(), want...)

	for _, c := range h.Renderer.Calls() {
		if c.Op == testutil.OpAppend && c.Text == "stale" {
			t.Fatal("delta from a cancelled stream reached the renderer")
		}
	}
}

func TestResetDiscardsInFlightStream(t *testing.T) {
	h := testutil.NewSessionHarness(t, sys.Content)

	h.Session.Submit("tell me a story")
	s := h.Client.Last()
	s.Delta("Once upon")
	testutil.WaitFor(t, "delta rendered", func() bool {
		return len(h.Renderer.Calls()) == 3
	})

	h.Session.Reset()

	if !s.Cancelled() {
		t.Fatal("stream not cancelled by Reset")
	}
	if got := h.Session.State(); got != session.StateIdle {
		t.Fatalf("state=%s after reset", got)
	}
	testutil.AssertHistory(t, h.History(), sys)
	if n := len(h.Renderer.Turns()); n != 0 {
		t.Fatalf("renderer still shows %d turns", n)
	}
	calls := h.Renderer.Calls()
	if calls[len(calls)-1].Op != testutil.OpRemoveAll {
		t.Fatalf("last render op=%s, want remove_all", calls[len(calls)-1].Op)
	}

	s.Delta(" a time")
	s.Done()
	testutil.WaitFor(t, "stream closed", s.Closed)
	testutil.AssertHistory(t, h.History(), sys)

	// The session keeps working after a reset.
	h.Session.Submit("again")
	h.Client.Last().Delta("ok")
	h.Client.Last().Done()
	h.WaitIdle(t)
	testutil.AssertHistory(t, h.History(), sys, user("again"), assistant("ok"))
}

func TestResetWhenIdle(t *testing.T) {
	h := testutil.NewSessionHarness(t, sys.Content)
	h.Session.Submit("x")
	h.Client.Last().Done()
	h.WaitIdle(t)

	h.Session.Reset()
	testutil.AssertHistory(t, h.History(), sys)
}

func TestCancel(t *testing.T) {
	h := testutil.NewSessionHarness(t, sys.Content)

	if h.Session.Cancel() {
		t.Fatal("Cancel reported true while idle")
	}

	h.Session.Submit("long answer please")
	s := h.Client.Last()
	s.Delta("Well")
	testutil.WaitFor(t, "delta rendered", func() bool {
		return len(h.Renderer.Calls()) == 3
	})

	if !h.Session.Cancel() {
		t.Fatal("Cancel reported false while streaming")
	}
	testutil.AssertHistory(t, h.History(), sys, user("long answer please"))
	if err := h.Session.LastError(); err != nil {
		t.Fatalf("LastError=%v after cancel, want nil", err)
	}
	turn, _ := h.Renderer.Turn(h.Renderer.Handles()[1])
	if turn.Status != session.TurnCancelled {
		t.Fatalf("status=%s, want cancelled", turn.Status)
	}
	testutil.WaitFor(t, "stream closed", s.Closed)
}

func TestSubmitClearsPreviousError(t *testing.T) {
	h := testutil.NewSessionHarness(t, sys.Content)

	h.Session.Submit("a")
	h.Client.Last().Fail(errors.New("bad"))
	h.WaitIdle(t)
	if h.Session.LastError() == nil {
		t.Fatal("expected error")
	}

	h.Session.Submit("b")
	if err := h.Session.LastError(); err != nil {
		t.Fatalf("LastError=%v after new submit", err)
	}
}

func TestSwitchClientKeepsHistory(t *testing.T) {
	h := testutil.NewSessionHarness(t, sys.Content)
	h.Session.Submit("a")
	first := h.Client.Last()

	other := testutil.NewControlledClient("other")
	h.Session.SwitchClient(other)
	if !first.Cancelled() {
		t.Fatal("in-flight stream survived a client switch")
	}
	if h.Session.ClientName() != "other" {
		t.Fatalf("ClientName=%q", h.Session.ClientName())
	}

	h.Session.Submit("b")
	if other.Calls() != 1 {
		t.Fatalf("new client calls=%d", other.Calls())
	}
	testutil.AssertHistory(t, other.Last().History, sys, user("a"), user("b"))
	other.Last().Done()
	h.WaitIdle(t)
}

func TestShutdownWaitsForConsumers(t *testing.T) {
	client := testutil.NewControlledClient("c")
	r := testutil.NewRecordingRenderer()
	o := session.New(client, r, session.Options{Preamble: "p", CancelTimeout: time.Second})

	o.Submit("a")
	client.Last().Delta("x")

	if err := o.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !client.Last().Closed() {
		t.Fatal("stream not closed after shutdown")
	}
	if o.State() != session.StateIdle {
		t.Fatalf("state=%s after shutdown", o.State())
	}
}

func TestStatusStrings(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{session.StateIdle.String(), "idle"},
		{session.StateStreaming.String(), "streaming"},
		{session.TurnComplete.String(), "complete"},
		{session.TurnFailed.String(), "failed"},
		{session.TurnCancelled.String(), "cancelled"},
		{(&session.StreamError{Provider: "p", Err: errors.New("x")}).Error(), "p: stream failed: x"},
	}
	for _, tc := range tests {
		if tc.got != tc.want {
			t.Errorf("got %q, want %q", tc.got, tc.want)
		}
	}
}
