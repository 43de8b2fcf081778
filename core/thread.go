package core

import (
	"time"

	"github.com/google/uuid"
)

// Message roles. The conversation alternates user queries and assistant
// answers; responders never write to a thread directly.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a thread's history. An assistant message is
// created when the first content fragment is known, mutated by streaming
// updates, and becomes immutable once Final is set. The Activity slice is the
// append-only diagnostic trail of the delegation run that produced it.
type Message struct {
	ID        string          `json:"id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Responder string          `json:"responder,omitempty"` // empty for user messages and direct answers
	Activity  []ActivityEvent `json:"activity,omitempty"`
	Final     bool            `json:"final"`
	Created   time.Time       `json:"created"`
}

// NewUserMessage constructs a finalized user message.
func NewUserMessage(content string) Message {
	return Message{
		ID:      NewID(),
		Role:    RoleUser,
		Content: content,
		Final:   true,
		Created: time.Now().UTC(),
	}
}

// NewAssistantMessage constructs an open (non-final) assistant message.
func NewAssistantMessage() Message {
	return Message{
		ID:      NewID(),
		Role:    RoleAssistant,
		Created: time.Now().UTC(),
	}
}

// Thread is a persisted conversation: an identifier, an ordered message
// history and bookkeeping timestamps. Threads are owned by a ThreadStore and
// mutated only through it; the struct itself carries no synchronization.
type Thread struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
	Created  time.Time `json:"created"`
	Updated  time.Time `json:"updated"`
}

// NewThread allocates an empty thread with a fresh identifier. Identifiers
// are UUIDs and are never reused, even after deletion.
func NewThread() *Thread {
	now := time.Now().UTC()
	return &Thread{ID: NewID(), Created: now, Updated: now}
}

// NewID generates a unique identifier for threads, messages and runs.
func NewID() string { return uuid.NewString() }
