// Package stream defines the wire protocol for query streams and the SSE
// publisher that serializes a run's activity events onto it.
package stream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tutormesh/tutormesh/core"
)

// Wire event names, one SSE event per message, in emission order.
const (
	EventThreadID = "thread_id" // resolved thread identifier, sent once, early
	EventStart    = "start"     // loop has begun
	EventMessage  = "message"   // one activity/content update
	EventDone     = "done"      // terminal success
	EventError    = "error"     // terminal or non-fatal failure description
)

// ThreadIDPayload is the payload of a thread_id event.
type ThreadIDPayload struct {
	ThreadID string `json:"thread_id"`
}

// StartPayload is the payload of a start event.
type StartPayload struct {
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

// ToolCallPayload describes one delegation inside a message event.
type ToolCallPayload struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// MessagePayload is the payload of a message event. Type is always "ai".
type MessagePayload struct {
	Type      string            `json:"type"`
	Name      string            `json:"name,omitempty"`
	Content   string            `json:"content,omitempty"`
	ToolCalls []ToolCallPayload `json:"tool_calls,omitempty"`
}

// DonePayload is the payload of a done event.
type DonePayload struct {
	Status string `json:"status"`
}

// ErrorPayload is the payload of an error event.
type ErrorPayload struct {
	Detail string `json:"detail"`
}

// Event is one wire message: an event name and its JSON payload.
type Event struct {
	Name string
	Data json.RawMessage
}

func newEvent(name string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encoding %s payload: %w", name, err)
	}
	return Event{Name: name, Data: data}, nil
}

// EncodeActivity maps one activity event to its wire message. Completion maps
// to done; everything else maps to a message event.
func EncodeActivity(ev core.ActivityEvent) (Event, error) {
	switch ev.Kind {
	case core.KindCompletion:
		return newEvent(EventDone, DonePayload{Status: "completed"})
	case core.KindDelegationStart:
		return newEvent(EventMessage, MessagePayload{
			Type:    "ai",
			Content: fmt.Sprintf("round %d: %s", ev.Round, ev.Capability),
		})
	case core.KindResponderCall:
		return newEvent(EventMessage, MessagePayload{
			Type: "ai",
			Name: ev.Responder,
			ToolCalls: []ToolCallPayload{{
				Name: "transfer_to_" + ev.Responder,
				Args: map[string]any{"task_description": ev.Content},
			}},
		})
	case core.KindResponderResult:
		return newEvent(EventMessage, MessagePayload{
			Type:    "ai",
			Name:    ev.Responder,
			Content: ev.Content,
		})
	case core.KindContentUpdate:
		return newEvent(EventMessage, MessagePayload{
			Type:    "ai",
			Content: ev.Content,
		})
	case core.KindFailure:
		return newEvent(EventError, ErrorPayload{
			Detail: failureDetail(ev),
		})
	default:
		return Event{}, fmt.Errorf("unknown activity kind %q", ev.Kind)
	}
}

func failureDetail(ev core.ActivityEvent) string {
	if ev.Responder != "" {
		return fmt.Sprintf("responder %s failed on round %d: %s", ev.Responder, ev.Round, ev.Content)
	}
	return ev.Content
}
