package core

import "time"

// ActivityKind enumerates the typed records a delegation run emits. The set
// is closed; consumers may switch exhaustively.
type ActivityKind string

const (
	// KindDelegationStart records the action chosen for a round.
	KindDelegationStart ActivityKind = "delegation-start"
	// KindResponderCall records that a responder is about to be invoked.
	KindResponderCall ActivityKind = "responder-call"
	// KindResponderResult records a responder's returned observation.
	KindResponderResult ActivityKind = "responder-result"
	// KindContentUpdate carries incremental or full answer content.
	KindContentUpdate ActivityKind = "content-update"
	// KindCompletion is the terminal success record of a run.
	KindCompletion ActivityKind = "completion"
	// KindFailure records a responder or synthesis failure. Responder
	// failures are non-terminal; the run continues with an empty observation.
	KindFailure ActivityKind = "failure"
)

// ActivityEvent is one typed record of a delegation step. Events are
// append-only and never mutated after creation; consumers must preserve
// emission order.
type ActivityEvent struct {
	ID         string         `json:"id"`
	Kind       ActivityKind   `json:"kind"`
	Round      int            `json:"round,omitempty"`
	Responder  string         `json:"responder,omitempty"`
	Capability string         `json:"capability,omitempty"` // invoked capability / chosen action
	Content    string         `json:"content,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewActivityEvent creates a bare event of the given kind stamped with the
// current UTC time. Prefer the kind-specific helpers below.
func NewActivityEvent(kind ActivityKind) ActivityEvent {
	return ActivityEvent{ID: NewID(), Kind: kind, Timestamp: time.Now().UTC()}
}

// NewDelegationStart records the action chosen for a round, either
// "answer-directly" or "delegate:<responder>".
func NewDelegationStart(round int, action string) ActivityEvent {
	ev := NewActivityEvent(KindDelegationStart)
	ev.Round = round
	ev.Capability = action
	return ev
}

// NewResponderCall records an imminent responder invocation with the derived
// sub-task description.
func NewResponderCall(round int, responder, task string) ActivityEvent {
	ev := NewActivityEvent(KindResponderCall)
	ev.Round = round
	ev.Responder = responder
	ev.Content = task
	return ev
}

// NewResponderResult records the text and optional structured payload a
// responder returned.
func NewResponderResult(round int, responder, text string, payload map[string]any) ActivityEvent {
	ev := NewActivityEvent(KindResponderResult)
	ev.Round = round
	ev.Responder = responder
	ev.Content = text
	ev.Payload = payload
	return ev
}

// NewContentUpdate carries an answer content fragment.
func NewContentUpdate(content string) ActivityEvent {
	ev := NewActivityEvent(KindContentUpdate)
	ev.Content = content
	return ev
}

// NewCompletion is the terminal success record.
func NewCompletion() ActivityEvent { return NewActivityEvent(KindCompletion) }

// NewFailure records a failure with a human-readable cause. Responder is
// empty for synthesis failures.
func NewFailure(round int, responder, cause string) ActivityEvent {
	ev := NewActivityEvent(KindFailure)
	ev.Round = round
	ev.Responder = responder
	ev.Content = cause
	return ev
}
