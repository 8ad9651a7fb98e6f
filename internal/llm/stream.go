package llm

import (
	"context"
	"io"
)

type channelStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	events <-chan Event
}

// newEventStream runs the producer in its own goroutine and exposes its events
// as a Stream. Cancelling ctx or calling Close stops the producer.
func newEventStream(ctx context.Context, run func(context.Context, chan<- Event) error) Stream {
	streamCtx, cancel := context.WithCancel(ctx)
	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		if err := run(streamCtx, ch); err != nil && streamCtx.Err() == nil {
			send(streamCtx, ch, Event{Type: EventError, Err: err})
		}
	}()
	return &channelStream{ctx: streamCtx, cancel: cancel, events: ch}
}

// send delivers ev unless ctx is cancelled first. It reports whether the event
// was delivered.
func send(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- ev:
		return true
	}
}

func (s *channelStream) Recv() (Event, error) {
	// An abandoned stream never hands out buffered events.
	if err := s.ctx.Err(); err != nil {
		return Event{}, err
	}

	select {
	case <-s.ctx.Done():
		return Event{}, s.ctx.Err()
	case event, ok := <-s.events:
		if !ok {
			return Event{}, io.EOF
		}
		return event, nil
	}
}

func (s *channelStream) Close() error {
	s.cancel()
	return nil
}
