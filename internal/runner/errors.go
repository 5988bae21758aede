package runner

import (
	"errors"
	"fmt"
)

var (
	// ErrSendAborted marks a burst that stopped before every message was sent.
	ErrSendAborted = errors.New("send aborted")

	// ErrTimeout is the cause recorded when Options.Timeout elapses.
	ErrTimeout = errors.New("run timed out")
)

// TransportError is a connection-level failure: refused dial, reset or a
// failed read or write.
type TransportError struct {
	Op  string // "dial", "read" or "write"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PrematureCloseError reports a connection that closed before the target
// receive count was reached.
type PrematureCloseError struct {
	Sent     int64
	Received int64
	Target   int
	Code     int
	Reason   string
	Err      error
}

func (e *PrematureCloseError) Error() string {
	msg := fmt.Sprintf("connection closed before all messages were received (received %d/%d, sent %d", e.Received, e.Target, e.Sent)
	if e.Code != 0 {
		msg += fmt.Sprintf(", close code %d", e.Code)
	}
	if e.Reason != "" {
		msg += fmt.Sprintf(", reason %q", e.Reason)
	}
	return msg + ")"
}

func (e *PrematureCloseError) Unwrap() error { return e.Err }
