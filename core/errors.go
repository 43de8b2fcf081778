package core

import (
	"errors"
	"fmt"
)

// ErrThreadNotFound is returned by ThreadStore operations on unknown ids.
var ErrThreadNotFound = errors.New("thread not found")

// ResponderError reports a failed responder invocation. Timeout
// distinguishes deadline expiry from other execution failures so the engine
// can report the cause accurately.
type ResponderError struct {
	Responder string
	Message   string
	Timeout   bool
}

func (e *ResponderError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("responder %s: timeout: %s", e.Responder, e.Message)
	}
	return fmt.Sprintf("responder %s: %s", e.Responder, e.Message)
}

// NewResponderError creates a non-timeout responder failure.
func NewResponderError(responder, message string) *ResponderError {
	return &ResponderError{Responder: responder, Message: message}
}

// NewResponderTimeout creates a timeout responder failure.
func NewResponderTimeout(responder, message string) *ResponderError {
	return &ResponderError{Responder: responder, Message: message, Timeout: true}
}

// IsResponderTimeout reports whether err is a responder timeout.
func IsResponderTimeout(err error) bool {
	var re *ResponderError
	return errors.As(err, &re) && re.Timeout
}

// SynthesisError is terminal for a query: the engine could not produce a
// final answer. The thread is still updated with an assistant message that
// explains the failure.
type SynthesisError struct {
	Cause error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed: %v", e.Cause)
}

func (e *SynthesisError) Unwrap() error { return e.Cause }
