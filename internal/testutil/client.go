package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/samsaffron/term-chat/internal/conversation"
	"github.com/samsaffron/term-chat/internal/llm"
)

// ControlledClient hands out ControlledStreams whose events the test pushes
// by hand. It implements session.StreamingClient.
type ControlledClient struct {
	name string

	mu      sync.Mutex
	streams []*ControlledStream
	openErr error
}

func NewControlledClient(name string) *ControlledClient {
	return &ControlledClient{name: name}
}

func (c *ControlledClient) Name() string {
	return c.name
}

// FailOpen makes the next Stream calls return err without a stream.
func (c *ControlledClient) FailOpen(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

func (c *ControlledClient) Stream(ctx context.Context, history []conversation.Turn) (llm.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &ControlledStream{
		ctx:     ctx,
		History: history,
		events:  make(chan llm.Event, 64),
		closed:  make(chan struct{}),
	}
	c.streams = append(c.streams, s)
	if c.openErr != nil {
		return nil, c.openErr
	}
	return s, nil
}

// Calls reports how many times Stream was called, failed opens included.
func (c *ControlledClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.streams)
}

// StreamAt returns the stream opened by the i-th call.
func (c *ControlledClient) StreamAt(i int) *ControlledStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streams[i]
}

// Last returns the most recently opened stream.
func (c *ControlledClient) Last() *ControlledStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streams[len(c.streams)-1]
}

// ControlledStream is an llm.Stream fed by Delta, Done and Fail.
type ControlledStream struct {
	ctx context.Context
	// History is the snapshot the stream was opened with.
	History []conversation.Turn

	events    chan llm.Event
	closeOnce sync.Once
	closed    chan struct{}
}

func (s *ControlledStream) Delta(text string) {
	s.events <- llm.Event{Type: llm.EventTextDelta, Text: text}
}

func (s *ControlledStream) Done() {
	s.events <- llm.Event{Type: llm.EventDone}
}

func (s *ControlledStream) Fail(err error) {
	if err == nil {
		err = errors.New("controlled stream failure")
	}
	s.events <- llm.Event{Type: llm.EventError, Err: err}
}

func (s *ControlledStream) Recv() (llm.Event, error) {
	select {
	case <-s.ctx.Done():
		return llm.Event{}, s.ctx.Err()
	case ev := <-s.events:
		return ev, nil
	}
}

func (s *ControlledStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

// Cancelled reports whether the stream's context has been cancelled.
func (s *ControlledStream) Cancelled() bool {
	return s.ctx.Err() != nil
}

// Closed reports whether the consumer released the stream.
func (s *ControlledStream) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}
