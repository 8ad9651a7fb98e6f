package session

import (
	"errors"
	"fmt"
)

// ErrCancelled unwinds a stream superseded by Submit, Reset or Cancel. It is
// internal: it never reaches LastError or a TurnFailed indicator.
var ErrCancelled = errors.New("session: stream cancelled")

// StreamError is any failure of an in-flight request: transport, backend or a
// malformed stream. Text accumulated before the failure is kept in Partial.
type StreamError struct {
	Provider string
	Partial  string
	Err      error
}

func (e *StreamError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("stream failed: %v", e.Err)
	}
	return fmt.Sprintf("%s: stream failed: %v", e.Provider, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
