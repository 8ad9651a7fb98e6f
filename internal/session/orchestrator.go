// Package session drives a chat conversation against a streaming model backend.
//
// The Orchestrator owns the conversation history and at most one in-flight
// stream. Submit, Reset and Cancel are called from the UI event loop; deltas
// are consumed on a background goroutine. Every mutation of history or render
// state happens under the orchestrator's mutex, so a stream that has been
// superseded can never touch either again.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samsaffron/term-chat/internal/conversation"
	"github.com/samsaffron/term-chat/internal/llm"
)

const defaultCancelTimeout = 2 * time.Second

type State int

const (
	StateIdle State = iota
	StateStreaming
)

func (s State) String() string {
	if s == StateStreaming {
		return "streaming"
	}
	return "idle"
}

type Options struct {
	// Preamble is the system turn every history starts with.
	Preamble string
	Logger   *slog.Logger
	// CancelTimeout is how long a cancelled stream may take to wind down
	// before a warning is logged; it also bounds Shutdown.
	CancelTimeout time.Duration
}

// activeStream is the single in-flight request.
type activeStream struct {
	id      uint64
	cancel  context.CancelFunc
	handle  TurnHandle
	text    strings.Builder
	deltas  int
	started time.Time
	done    chan struct{}
}

type Orchestrator struct {
	renderer      TurnRenderer
	logger        *slog.Logger
	cancelTimeout time.Duration

	mu      sync.Mutex
	client  StreamingClient
	history *conversation.History
	active  *activeStream
	nextID  uint64
	lastErr error

	wg sync.WaitGroup
}

func New(client StreamingClient, renderer TurnRenderer, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := opts.CancelTimeout
	if timeout <= 0 {
		timeout = defaultCancelTimeout
	}
	return &Orchestrator{
		client:        client,
		renderer:      renderer,
		logger:        logger,
		cancelTimeout: timeout,
		history:       conversation.New(opts.Preamble),
	}
}

// Submit sends text as the next user turn. Whitespace-only text is ignored
// and false is returned. A stream already in flight is cancelled first; its
// partial reply is dropped.
func (o *Orchestrator) Submit(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.cancelLocked()
	o.lastErr = nil

	o.history.Append(conversation.UserTurn(text))
	snapshot := o.history.Snapshot()
	o.renderer.CreateTurn(conversation.RoleUser, text)
	handle := o.renderer.CreateTurn(conversation.RoleAssistant, "")

	o.nextID++
	ctx, cancel := context.WithCancel(context.Background())
	as := &activeStream{
		id:      o.nextID,
		cancel:  cancel,
		handle:  handle,
		started: time.Now(),
		done:    make(chan struct{}),
	}

	stream, err := o.client.Stream(ctx, snapshot)
	if err != nil {
		cancel()
		close(as.done)
		o.failLocked(as, err)
		return true
	}

	o.active = as
	o.logger.Debug("stream started", "stream_id", as.id, "provider", o.client.Name(), "turns", len(snapshot))

	o.wg.Add(1)
	go o.consume(as, stream)
	return true
}

// Reset cancels any in-flight stream without committing its text, drops the
// history back to the preamble and clears the renderer.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.cancelLocked()
	o.history.Reset()
	o.lastErr = nil
	o.renderer.RemoveAll()
	o.logger.Debug("session reset")
}

// Cancel stops the in-flight stream, if any. Its partial text is not
// committed to history. Reports whether a stream was cancelled.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelLocked()
}

// SwitchClient replaces the backend for subsequent submissions. History is
// kept; an in-flight stream is cancelled.
func (o *Orchestrator) SwitchClient(client StreamingClient) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.cancelLocked()
	o.client = client
	o.logger.Info("client switched", "provider", client.Name())
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != nil {
		return StateStreaming
	}
	return StateIdle
}

// History returns a snapshot of the committed turns.
func (o *Orchestrator) History() []conversation.Turn {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.history.Snapshot()
}

// LastError returns the StreamError of the most recent request, or nil.
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

func (o *Orchestrator) ClientName() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.client.Name()
}

// Shutdown cancels any in-flight stream and waits for background goroutines
// to exit, giving up when ctx is done or after the cancel timeout.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.Cancel()

	ctx, cancel := context.WithTimeout(ctx, o.cancelTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("session: waiting for streams to stop: %w", ctx.Err())
	}
}

func (o *Orchestrator) consume(as *activeStream, stream llm.Stream) {
	defer o.wg.Done()
	defer close(as.done)
	defer stream.Close()

	for {
		ev, err := stream.Recv()
		if err == io.EOF {
			o.finish(as, nil)
			return
		}
		if err != nil {
			o.finish(as, err)
			return
		}

		switch ev.Type {
		case llm.EventTextDelta:
			if !o.deliver(as, ev.Text) {
				return
			}
		case llm.EventDone:
			o.finish(as, nil)
			return
		case llm.EventError:
			if ev.Err == nil {
				ev.Err = errors.New("backend reported an error")
			}
			o.finish(as, ev.Err)
			return
		}
	}
}

// deliver renders one delta. It reports false once the stream has been
// superseded, telling the consumer to stop.
func (o *Orchestrator) deliver(as *activeStream, text string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active != as {
		return false
	}
	if text == "" {
		return true
	}
	as.text.WriteString(text)
	as.deltas++
	o.renderer.AppendDelta(as.handle, text)
	return true
}

// finish commits the outcome of a stream that ended on its own. A stream
// that was already cancelled is left alone.
func (o *Orchestrator) finish(as *activeStream, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active != as {
		return
	}
	o.active = nil
	as.cancel()

	if err != nil {
		o.failLocked(as, err)
		return
	}

	o.history.Append(conversation.AssistantTurn(as.text.String()))
	o.renderer.FinishTurn(as.handle, TurnComplete, nil)
	o.logger.Debug("stream completed",
		"stream_id", as.id,
		"deltas", as.deltas,
		"bytes", as.text.Len(),
		"duration", time.Since(as.started),
	)
}

// failLocked keeps whatever text arrived before the failure and surfaces
// the error to the renderer.
func (o *Orchestrator) failLocked(as *activeStream, err error) {
	partial := as.text.String()
	streamErr := &StreamError{Provider: o.client.Name(), Partial: partial, Err: err}
	if partial != "" {
		o.history.Append(conversation.AssistantTurn(partial))
	}
	o.lastErr = streamErr
	o.renderer.FinishTurn(as.handle, TurnFailed, streamErr)
	o.logger.Warn("stream failed",
		"stream_id", as.id,
		"provider", streamErr.Provider,
		"partial_bytes", len(partial),
		"error", err,
	)
}

// cancelLocked detaches and cancels the active stream. After it returns no
// callback from that stream reaches the renderer or history.
func (o *Orchestrator) cancelLocked() bool {
	as := o.active
	if as == nil {
		return false
	}
	o.active = nil
	as.cancel()
	o.renderer.FinishTurn(as.handle, TurnCancelled, nil)
	o.logger.Debug("stream cancelled", "stream_id", as.id, "discarded_bytes", as.text.Len(), "cause", ErrCancelled)

	o.wg.Add(1)
	go o.watchCancel(as)
	return true
}

// watchCancel logs when a cancelled consumer fails to exit in time. The
// stream can no longer mutate state either way.
func (o *Orchestrator) watchCancel(as *activeStream) {
	defer o.wg.Done()

	timer := time.NewTimer(o.cancelTimeout)
	defer timer.Stop()

	select {
	case <-as.done:
	case <-timer.C:
		o.logger.Warn("cancelled stream still running", "stream_id", as.id, "timeout", o.cancelTimeout)
	}
}
