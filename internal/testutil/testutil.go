// Package testutil provides shared helpers for tests: a scripted decision
// model with deterministic step-by-step responses and small builders for
// common fixtures.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tutormesh/tutormesh/core"
	"github.com/tutormesh/tutormesh/model"
)

// ScriptModel replays a fixed sequence of model responses, one per Generate
// call, in order. It fails the run when the script is exhausted.
type ScriptModel struct {
	mu       sync.Mutex
	steps    []scriptStep
	pos      int
	Requests []model.Request // every request seen, for assertions
}

type scriptStep struct {
	resp model.Response
	err  error
}

// NewScriptModel constructs an empty script.
func NewScriptModel() *ScriptModel {
	return &ScriptModel{}
}

// Answer appends a direct text answer step.
func (s *ScriptModel) Answer(text string) *ScriptModel {
	s.steps = append(s.steps, scriptStep{resp: model.Response{Text: text, FinishReason: "stop"}})
	return s
}

// Delegate appends a step that requests delegation to the named responder
// with the given sub-task description.
func (s *ScriptModel) Delegate(responder, task string) *ScriptModel {
	args, _ := json.Marshal(map[string]string{"task_description": task})
	s.steps = append(s.steps, scriptStep{resp: model.Response{
		ToolCalls: []model.ToolCall{{
			ID:        core.NewID(),
			Name:      "transfer_to_" + responder,
			Arguments: string(args),
		}},
		FinishReason: "tool_calls",
	}})
	return s
}

// Fail appends a step that returns err.
func (s *ScriptModel) Fail(err error) *ScriptModel {
	s.steps = append(s.steps, scriptStep{err: err})
	return s
}

// Generate implements model.Model.
func (s *ScriptModel) Generate(ctx context.Context, req model.Request) (model.Response, error) {
	if err := ctx.Err(); err != nil {
		return model.Response{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.Requests = append(s.Requests, req)
	if s.pos >= len(s.steps) {
		return model.Response{}, fmt.Errorf("script exhausted after %d steps", len(s.steps))
	}
	step := s.steps[s.pos]
	s.pos++
	return step.resp, step.err
}

// Info implements model.Model.
func (s *ScriptModel) Info() model.Info {
	return model.Info{Name: "script", Provider: "test", SupportsTools: true}
}

// StubResponder is a minimal core.Responder for registry and engine tests.
type StubResponder struct {
	ResponderName string
	Result        core.Result
	Err           error
	Calls         []core.Task
	mu            sync.Mutex
}

// Name implements core.Responder.
func (s *StubResponder) Name() string { return s.ResponderName }

// Description implements core.Responder.
func (s *StubResponder) Description() string {
	return fmt.Sprintf("stub responder %q", s.ResponderName)
}

// Execute implements core.Responder.
func (s *StubResponder) Execute(ctx context.Context, task core.Task) (core.Result, error) {
	if err := ctx.Err(); err != nil {
		return core.Result{}, err
	}
	s.mu.Lock()
	s.Calls = append(s.Calls, task)
	s.mu.Unlock()
	return s.Result, s.Err
}

// CollectEvents drains an activity event channel into a slice.
func CollectEvents(ch <-chan core.ActivityEvent) []core.ActivityEvent {
	var events []core.ActivityEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

// EventsOfKind filters events by kind.
func EventsOfKind(events []core.ActivityEvent, kind core.ActivityKind) []core.ActivityEvent {
	var out []core.ActivityEvent
	for _, ev := range events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}
