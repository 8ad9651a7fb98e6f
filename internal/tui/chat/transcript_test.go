package chat

import (
	"errors"
	"testing"

	"github.com/samsaffron/term-chat/internal/conversation"
	"github.com/samsaffron/term-chat/internal/session"
)

func drained(t *Transcript) bool {
	select {
	case <-t.Changed():
		return true
	default:
		return false
	}
}

func TestTranscriptTurnLifecycle(t *testing.T) {
	tr := NewTranscript()

	u := tr.CreateTurn(conversation.RoleUser, "hi")
	a := tr.CreateTurn(conversation.RoleAssistant, "")
	if u == a {
		t.Fatalf("handles not unique: %d %d", u, a)
	}

	turns := tr.Snapshot()
	if len(turns) != 2 || !turns[1].Waiting() || turns[0].Waiting() {
		t.Fatalf("unexpected turns: %+v", turns)
	}

	tr.AppendDelta(a, "He")
	tr.AppendDelta(a, "llo")
	tr.FinishTurn(a, session.TurnComplete, nil)
	tr.AppendDelta(a, " late")

	got := tr.Snapshot()[1]
	if got.Text != "Hello" || !got.Finished || got.Status != session.TurnComplete {
		t.Fatalf("assistant turn = %+v", got)
	}
}

func TestTranscriptFailureAndRemoveAll(t *testing.T) {
	tr := NewTranscript()
	a := tr.CreateTurn(conversation.RoleAssistant, "")
	boom := errors.New("boom")
	tr.FinishTurn(a, session.TurnFailed, boom)

	if got := tr.Snapshot()[0]; got.Status != session.TurnFailed || !errors.Is(got.Err, boom) {
		t.Fatalf("turn = %+v", got)
	}

	tr.RemoveAll()
	if n := len(tr.Snapshot()); n != 0 {
		t.Fatalf("%d turns after RemoveAll", n)
	}

	// Unknown handles are ignored.
	tr.AppendDelta(a, "x")
	tr.FinishTurn(a, session.TurnComplete, nil)
	if n := len(tr.Snapshot()); n != 0 {
		t.Fatalf("%d turns after stale updates", n)
	}
}

func TestTranscriptNotificationsCoalesce(t *testing.T) {
	tr := NewTranscript()
	if drained(tr) {
		t.Fatal("notification before any change")
	}

	h := tr.CreateTurn(conversation.RoleAssistant, "")
	for range 100 {
		tr.AppendDelta(h, "x")
	}
	if !drained(tr) {
		t.Fatal("no notification after changes")
	}
	if drained(tr) {
		t.Fatal("notifications were not coalesced")
	}
	if v := tr.Version(); v != 101 {
		t.Fatalf("version=%d, want 101", v)
	}
}

func TestTranscriptSnapshotIsCopy(t *testing.T) {
	tr := NewTranscript()
	h := tr.CreateTurn(conversation.RoleAssistant, "a")
	snap := tr.Snapshot()
	tr.AppendDelta(h, "b")
	if snap[0].Text != "a" {
		t.Fatalf("snapshot changed to %q", snap[0].Text)
	}
}

func TestTranscriptSnapshotUnaffectedByLaterDeltas(t *testing.T) {
	tr := NewTranscript()
	a := tr.CreateTurn(conversation.RoleAssistant, "")

	tr.AppendDelta(a, "one ")
	before := tr.Snapshot()[0].Text

	for range 1000 {
		tr.AppendDelta(a, "x")
	}
	if before != "one " {
		t.Fatalf("earlier snapshot changed to %q", before)
	}
	if got := tr.Snapshot()[0].Text; len(got) != len("one ")+1000 {
		t.Fatalf("len=%d after 1000 deltas", len(got))
	}
}
