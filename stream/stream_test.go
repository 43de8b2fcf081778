package stream

import (
	"bufio"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutormesh/tutormesh/core"
)

func TestEncodeActivity(t *testing.T) {
	tests := []struct {
		name     string
		ev       core.ActivityEvent
		wantName string
	}{
		{"delegation start", core.NewDelegationStart(1, "delegate:web-search"), EventMessage},
		{"responder call", core.NewResponderCall(1, "web-search", "find it"), EventMessage},
		{"responder result", core.NewResponderResult(1, "web-search", "found", nil), EventMessage},
		{"content update", core.NewContentUpdate("answer"), EventMessage},
		{"completion", core.NewCompletion(), EventDone},
		{"failure", core.NewFailure(2, "cloud", "timeout"), EventError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire, err := EncodeActivity(tt.ev)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, wire.Name)
			assert.True(t, json.Valid(wire.Data))
		})
	}
}

func TestEncodeActivity_ResponderCallCarriesToolCall(t *testing.T) {
	wire, err := EncodeActivity(core.NewResponderCall(1, "local-knowledge", "look up quicksort"))
	require.NoError(t, err)

	var payload MessagePayload
	require.NoError(t, json.Unmarshal(wire.Data, &payload))
	assert.Equal(t, "ai", payload.Type)
	assert.Equal(t, "local-knowledge", payload.Name)
	require.Len(t, payload.ToolCalls, 1)
	assert.Equal(t, "transfer_to_local-knowledge", payload.ToolCalls[0].Name)
	assert.Equal(t, "look up quicksort", payload.ToolCalls[0].Args["task_description"])
}

func TestEncodeActivity_FailureNamesResponder(t *testing.T) {
	wire, err := EncodeActivity(core.NewFailure(3, "web-search", "timeout: no result within 1s"))
	require.NoError(t, err)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(wire.Data, &payload))
	assert.Contains(t, payload.Detail, "web-search")
	assert.Contains(t, payload.Detail, "round 3")
	assert.Contains(t, payload.Detail, "timeout")
}

func parseFrames(t *testing.T, body string) []Event {
	t.Helper()
	var frames []Event
	scanner := bufio.NewScanner(strings.NewReader(body))
	var current Event
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.Name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.Data = json.RawMessage(strings.TrimPrefix(line, "data: "))
		case line == "":
			if current.Name != "" {
				frames = append(frames, current)
				current = Event{}
			}
		}
	}
	return frames
}

func publishRun(t *testing.T, events []core.ActivityEvent, runErr error) []Event {
	t.Helper()
	evCh := make(chan core.ActivityEvent, len(events))
	for _, ev := range events {
		evCh <- ev
	}
	close(evCh)

	errCh := make(chan error, 1)
	if runErr != nil {
		errCh <- runErr
	}
	close(errCh)

	rec := httptest.NewRecorder()
	p := NewPublisher(nil)
	_ = p.Publish(rec, "thread-1", "the query", evCh, errCh)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	return parseFrames(t, rec.Body.String())
}

func TestPublish_SuccessSequence(t *testing.T) {
	frames := publishRun(t, []core.ActivityEvent{
		core.NewDelegationStart(1, "answer-directly"),
		core.NewContentUpdate("the answer"),
		core.NewCompletion(),
	}, nil)

	require.Len(t, frames, 5)
	assert.Equal(t, EventThreadID, frames[0].Name)
	assert.Equal(t, EventStart, frames[1].Name)
	assert.Equal(t, EventMessage, frames[2].Name)
	assert.Equal(t, EventMessage, frames[3].Name)
	assert.Equal(t, EventDone, frames[4].Name)

	var tid ThreadIDPayload
	require.NoError(t, json.Unmarshal(frames[0].Data, &tid))
	assert.Equal(t, "thread-1", tid.ThreadID)

	var done DonePayload
	require.NoError(t, json.Unmarshal(frames[4].Data, &done))
	assert.Equal(t, "completed", done.Status)
}

func TestPublish_ThreadIDSentOnceEarly(t *testing.T) {
	frames := publishRun(t, []core.ActivityEvent{core.NewCompletion()}, nil)

	count := 0
	for _, f := range frames {
		if f.Name == EventThreadID {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, EventThreadID, frames[0].Name)
}

func TestPublish_SynthesisFailureIsDoneShaped(t *testing.T) {
	frames := publishRun(t, []core.ActivityEvent{
		core.NewFailure(1, "", "model unavailable"),
		core.NewContentUpdate("I was unable to produce an answer: model unavailable"),
	}, &core.SynthesisError{Cause: assert.AnError})

	last := frames[len(frames)-1]
	assert.Equal(t, EventDone, last.Name)

	var done DonePayload
	require.NoError(t, json.Unmarshal(last.Data, &done))
	assert.Equal(t, "failed", done.Status)
}

func TestPublish_EngineErrorEndsWithErrorEvent(t *testing.T) {
	frames := publishRun(t, nil, assert.AnError)

	last := frames[len(frames)-1]
	assert.Equal(t, EventError, last.Name)
	for _, f := range frames {
		assert.NotEqual(t, EventDone, f.Name)
	}
}

func TestPublish_ExactlyOneDone(t *testing.T) {
	frames := publishRun(t, []core.ActivityEvent{
		core.NewDelegationStart(1, "answer-directly"),
		core.NewContentUpdate("x"),
		core.NewCompletion(),
	}, nil)

	dones := 0
	for _, f := range frames {
		if f.Name == EventDone {
			dones++
		}
	}
	assert.Equal(t, 1, dones)
}
