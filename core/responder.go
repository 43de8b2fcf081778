package core

import "context"

// Task is the unit of work handed to a responder: the coordinator-derived
// sub-task description plus the conversational context the engine chose to
// pass along. Responders are stateless; this is all they get.
type Task struct {
	Description string
	Context     []Message
}

// Result is what a responder returns: free text plus an optional structured
// payload (search hits, resource listings, ...).
type Result struct {
	Text    string
	Payload map[string]any
}

// Responder is the uniform contract behind which the specialized responders
// (local knowledge, web search, cloud) sit. Execute must respect ctx
// cancellation; the registry enforces the per-call deadline.
type Responder interface {
	Name() string
	Description() string
	Execute(ctx context.Context, task Task) (Result, error)
}
