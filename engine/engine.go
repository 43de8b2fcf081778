// Package engine implements the delegation loop at the heart of tutormesh:
// given a thread's history and a fresh query, it repeatedly asks the decision
// model to either answer directly or hand a sub-task to one named responder,
// folding each observation back into the working context, for at most
// maxRounds rounds.
//
// Each run emits a stream of typed activity events. Responder failures are
// recovered locally and never abort the query; only a failed synthesis step
// is terminal. Every terminal outcome appends exactly one finalized assistant
// message to the thread.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tutormesh/tutormesh/core"
	"github.com/tutormesh/tutormesh/logging"
	"github.com/tutormesh/tutormesh/model"
	"github.com/tutormesh/tutormesh/responder"
)

// DefaultMaxRounds is the round budget used when the caller passes none.
const DefaultMaxRounds = 5

// transferPrefix is the naming scheme for delegation tools: one
// transfer_to_<responder> tool per registered responder.
const transferPrefix = "transfer_to_"

// loop states; choosing is initial, done and failed are terminal.
type state string

const (
	stateChoosing     state = "choosing"
	stateDelegating   state = "delegating"
	stateSynthesizing state = "synthesizing"
	stateDone         state = "done"
	stateFailed       state = "failed"
)

const coordinatorInstructions = `You are a coordinator answering the user's question.
You may answer directly, or delegate one sub-task per round to a specialized responder
using the transfer tools. Delegate when a responder is better suited; answer directly
once you have enough information. Observations from earlier rounds are part of the
conversation.`

// Options holds configuration overrides passed to New.
type Options struct {
	// MaxRounds is the default round budget for runs that do not set one.
	MaxRounds int
	// EventBufferSize sets channel buffering for emitted activity events.
	EventBufferSize int
	// Logger receives run diagnostics.
	Logger logging.Logger
}

// Engine drives delegation runs. Public methods are safe for concurrent use;
// each run owns its working context and event stream.
type Engine struct {
	store     core.ThreadStore
	decider   model.Model
	registry  *responder.Registry
	maxRounds int
	bufSize   int
	logger    logging.Logger
}

// New constructs an Engine over a thread store, a decision model and the
// responder registry.
func New(store core.ThreadStore, decider model.Model, registry *responder.Registry, optFns ...func(o *Options)) *Engine {
	opts := Options{
		MaxRounds:       DefaultMaxRounds,
		EventBufferSize: 64,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{
		store:     store,
		decider:   decider,
		registry:  registry,
		maxRounds: opts.MaxRounds,
		bufSize:   opts.EventBufferSize,
		logger:    opts.Logger,
	}
}

// Run starts an asynchronous delegation run for query on the given thread.
// maxRounds < 0 selects the engine default; 0 forces immediate synthesis.
//
// The user message is appended to the thread before the loop starts. The
// events channel closes when the run reaches a terminal state; a terminal
// engine failure is delivered on the errors channel. The run always finishes
// and persists its assistant message, even if ctx's consumer stopped reading;
// callers that must survive request cancellation pass a detached ctx.
func (e *Engine) Run(ctx context.Context, threadID, query string, maxRounds int) (string, <-chan core.ActivityEvent, <-chan error, error) {
	if maxRounds < 0 {
		maxRounds = e.maxRounds
	}

	history, err := e.store.History(ctx, threadID)
	if err != nil {
		return "", nil, nil, fmt.Errorf("loading history: %w", err)
	}

	if err := e.store.Append(ctx, threadID, core.NewUserMessage(query)); err != nil {
		return "", nil, nil, fmt.Errorf("appending user message: %w", err)
	}

	runID := core.NewID()
	events := make(chan core.ActivityEvent, e.bufSize)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		r := &run{
			engine:    e,
			threadID:  threadID,
			runID:     runID,
			maxRounds: maxRounds,
			prompts:   seedPrompts(history, query),
			events:    events,
		}
		if err := r.execute(ctx); err != nil {
			errs <- err
		}
	}()

	return runID, events, errs, nil
}

// run is the per-query working state. Rounds execute strictly sequentially;
// nothing here is shared across runs.
type run struct {
	engine    *Engine
	threadID  string
	runID     string
	maxRounds int
	prompts   []model.Prompt
	events    chan<- core.ActivityEvent
	trail     []core.ActivityEvent
	state     state
}

func (r *run) emit(ev core.ActivityEvent) {
	r.trail = append(r.trail, ev)
	r.events <- ev
}

func (r *run) execute(ctx context.Context) error {
	e := r.engine
	r.state = stateChoosing

	for round := 1; round <= r.maxRounds; round++ {
		resp, err := e.decider.Generate(ctx, model.Request{
			Instructions: coordinatorInstructions,
			Prompts:      r.prompts,
			Tools:        e.transferTools(),
		})
		if err != nil {
			return r.fail(ctx, round, fmt.Errorf("choosing action: %w", err))
		}

		name, task, delegated := parseTransfer(resp.ToolCalls)
		if !delegated {
			r.emit(core.NewDelegationStart(round, "answer-directly"))
			r.state = stateSynthesizing
			return r.finish(ctx, round, resp.Text)
		}

		r.emit(core.NewDelegationStart(round, "delegate:"+name))
		r.state = stateDelegating
		e.logger.Debug("delegating", "run", r.runID, "round", round, "responder", name)

		r.emit(core.NewResponderCall(round, name, task))
		result, err := e.registry.Invoke(ctx, name, core.Task{Description: task})
		if err != nil {
			// Recovered locally: the round's observation records the failure
			// and the loop moves on.
			r.emit(core.NewFailure(round, name, failureCause(err)))
			r.prompts = append(r.prompts, model.Prompt{
				Role:    model.RoleObservation,
				Name:    name,
				Content: fmt.Sprintf("(no result: %s)", failureCause(err)),
			})
		} else {
			r.emit(core.NewResponderResult(round, name, result.Text, result.Payload))
			r.prompts = append(r.prompts, model.Prompt{
				Role:    model.RoleObservation,
				Name:    name,
				Content: result.Text,
			})
		}
		r.state = stateChoosing
	}

	// Budget exhausted without a direct answer: force synthesis from the
	// observations gathered so far.
	r.state = stateSynthesizing
	r.prompts = append(r.prompts, model.Prompt{
		Role:    model.RoleUser,
		Content: "The delegation budget is exhausted. Answer the original question now using the observations gathered so far.",
	})
	resp, err := e.decider.Generate(ctx, model.Request{
		Instructions: coordinatorInstructions,
		Prompts:      r.prompts,
	})
	if err != nil {
		return r.fail(ctx, r.maxRounds, fmt.Errorf("forced synthesis: %w", err))
	}
	content := resp.Text
	if content == "" {
		content = "I could not settle on an answer."
	}
	content += "\n\n(note: the delegation round budget was exhausted before a direct answer was reached)"
	return r.finish(ctx, r.maxRounds, content)
}

// finish emits the terminal success events and appends the single finalized
// assistant message.
func (r *run) finish(ctx context.Context, round int, content string) error {
	r.emit(core.NewContentUpdate(content))
	r.emit(core.NewCompletion())
	r.state = stateDone

	msg := core.NewAssistantMessage()
	msg.Content = content
	msg.Activity = r.trail
	msg.Final = true

	if err := r.engine.store.Append(ctx, r.threadID, msg); err != nil {
		r.engine.logger.Error("persisting assistant message", "run", r.runID, "error", err)
		return fmt.Errorf("appending assistant message: %w", err)
	}
	r.engine.logger.Info("run completed", "run", r.runID, "thread", r.threadID, "rounds", round, "state", string(r.state))
	return nil
}

// fail handles a terminal synthesis failure: the failure is recorded on the
// stream, the thread still gets a finalized assistant message explaining it,
// and the error is reported to the caller.
func (r *run) fail(ctx context.Context, round int, cause error) error {
	r.emit(core.NewFailure(round, "", cause.Error()))
	content := fmt.Sprintf("I was unable to produce an answer: %v", cause)
	r.emit(core.NewContentUpdate(content))
	r.state = stateFailed

	msg := core.NewAssistantMessage()
	msg.Content = content
	msg.Activity = r.trail
	msg.Final = true

	if err := r.engine.store.Append(ctx, r.threadID, msg); err != nil {
		r.engine.logger.Error("persisting failure message", "run", r.runID, "error", err)
	}
	r.engine.logger.Warn("run failed", "run", r.runID, "thread", r.threadID, "state", string(r.state), "error", cause)
	return &core.SynthesisError{Cause: cause}
}

// transferTools builds one transfer_to_<responder> tool per registered
// responder, each taking the derived sub-task description.
func (e *Engine) transferTools() []model.ToolDefinition {
	names := e.registry.Names()
	tools := make([]model.ToolDefinition, 0, len(names))
	for _, name := range names {
		resp, ok := e.registry.Get(name)
		if !ok {
			continue
		}
		tools = append(tools, model.ToolDefinition{
			Name:        transferPrefix + name,
			Description: resp.Description(),
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"task_description": map[string]any{
						"type":        "string",
						"description": "The sub-task for this responder, phrased as a standalone request.",
					},
				},
				"required": []string{"task_description"},
			},
		})
	}
	return tools
}

// parseTransfer extracts the first delegation request from the model's tool
// calls. A malformed or absent call means the model answered directly.
func parseTransfer(calls []model.ToolCall) (name, task string, ok bool) {
	for _, call := range calls {
		if !strings.HasPrefix(call.Name, transferPrefix) {
			continue
		}
		name = strings.TrimPrefix(call.Name, transferPrefix)

		var args struct {
			TaskDescription string `json:"task_description"`
		}
		if err := json.Unmarshal([]byte(call.Arguments), &args); err == nil {
			task = args.TaskDescription
		}
		return name, task, true
	}
	return "", "", false
}

func failureCause(err error) string {
	if core.IsResponderTimeout(err) {
		return "timeout: " + err.Error()
	}
	return err.Error()
}

// seedPrompts converts the persisted history plus the fresh query into the
// initial working context.
func seedPrompts(history []core.Message, query string) []model.Prompt {
	prompts := make([]model.Prompt, 0, len(history)+1)
	for _, msg := range history {
		switch msg.Role {
		case core.RoleUser:
			prompts = append(prompts, model.Prompt{Role: model.RoleUser, Content: msg.Content})
		case core.RoleAssistant:
			prompts = append(prompts, model.Prompt{Role: model.RoleAssistant, Content: msg.Content})
		}
	}
	return append(prompts, model.Prompt{Role: model.RoleUser, Content: query})
}
