// Package model defines the decision-model abstraction the delegation engine
// drives: given the working context and the set of delegation tools, a Model
// either answers in text or requests a delegation via a tool call. Concrete
// adapters live in the anthropic and openai sub-packages; MockModel serves
// tests and offline development.
package model

import (
	"context"
	"fmt"
)

// Prompt roles used in the working context handed to a model.
const (
	RoleUser        = "user"
	RoleAssistant   = "assistant"
	RoleObservation = "observation"
)

// Prompt is one flat entry of the working context. Observations carry the
// responder name in Name.
type Prompt struct {
	Role    string
	Name    string
	Content string
}

// ToolCall is a delegation request surfaced by a model, unified across
// vendors so the engine needs no per-provider branching.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON-encoded arguments
}

// ToolDefinition declaratively exposes a delegation target to the model.
// Parameters is a minimal JSON Schema object.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Request captures one normalized model invocation.
type Request struct {
	Instructions string
	Prompts      []Prompt
	Tools        []ToolDefinition
}

// Response is the model's single-shot output: answer text, zero or more tool
// calls, or both (text accompanying a call is treated as reasoning).
type Response struct {
	Text         string
	ToolCalls    []ToolCall
	FinishReason string
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string
	Provider      string
	SupportsTools bool
}

// Model is the minimal interface the delegation engine requires.
type Model interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests and the mock
// provider. It answers from a canned map keyed by the last prompt's content,
// falling back to an echo response.
type MockModel struct {
	info      Info
	responses map[string]string
}

// NewMockModel constructs a MockModel with tool support flagged on.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock", SupportsTools: true},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned answer for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if len(req.Prompts) == 0 {
		return Response{}, fmt.Errorf("no prompts provided")
	}

	last := req.Prompts[len(req.Prompts)-1]
	text, ok := m.responses[last.Content]
	if !ok {
		text = fmt.Sprintf("Mock response to: %s", last.Content)
	}

	return Response{Text: text, FinishReason: "stop"}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
