package llm

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func TestEventStreamDeliversInOrderThenEOF(t *testing.T) {
	stream := newEventStream(context.Background(), func(ctx context.Context, ch chan<- Event) error {
		for _, s := range []string{"a", "b", "c"} {
			send(ctx, ch, Event{Type: EventTextDelta, Text: s})
		}
		return nil
	})
	defer stream.Close()

	var got string
	for {
		ev, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		got += ev.Text
	}
	if got != "abc" {
		t.Fatalf("got %q, want %q", got, "abc")
	}
}

func TestEventStreamProducerErrorBecomesEvent(t *testing.T) {
	boom := errors.New("boom")
	stream := newEventStream(context.Background(), func(ctx context.Context, ch chan<- Event) error {
		return boom
	})
	defer stream.Close()

	ev, err := stream.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if ev.Type != EventError || !errors.Is(ev.Err, boom) {
		t.Fatalf("event=%+v", ev)
	}
}

func TestEventStreamCloseStopsProducerAndHidesBuffered(t *testing.T) {
	exited := make(chan struct{})
	stream := newEventStream(context.Background(), func(ctx context.Context, ch chan<- Event) error {
		defer close(exited)
		for {
			if !send(ctx, ch, Event{Type: EventTextDelta, Text: "x"}) {
				return ctx.Err()
			}
		}
	})

	if _, err := stream.Recv(); err != nil {
		t.Fatalf("recv: %v", err)
	}
	stream.Close()

	if _, err := stream.Recv(); !errors.Is(err, context.Canceled) {
		t.Fatalf("recv after close: err=%v, want context.Canceled", err)
	}
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("producer did not exit after Close")
	}
}
