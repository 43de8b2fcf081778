package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutormesh/tutormesh/stream"
)

func sseHandler(t *testing.T, frames []stream.Event) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for _, f := range frames {
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", f.Name, f.Data)
			flusher.Flush()
		}
	}
}

func frame(t *testing.T, name string, payload any) stream.Event {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return stream.Event{Name: name, Data: data}
}

func TestStream_SuccessfulTurn(t *testing.T) {
	frames := []stream.Event{
		frame(t, stream.EventThreadID, stream.ThreadIDPayload{ThreadID: "t-1"}),
		frame(t, stream.EventStart, stream.StartPayload{Query: "q"}),
		frame(t, stream.EventMessage, stream.MessagePayload{Type: "ai", Content: "round 1: answer-directly"}),
		frame(t, stream.EventMessage, stream.MessagePayload{Type: "ai", Content: "final answer"}),
		frame(t, stream.EventDone, stream.DonePayload{Status: "completed"}),
	}
	srv := httptest.NewServer(sseHandler(t, frames))
	defer srv.Close()

	turn, err := New(srv.URL, nil).Stream(context.Background(), "q", StreamOptions{})
	require.NoError(t, err)

	msg := turn.Wait()
	assert.Equal(t, "t-1", msg.ThreadID)
	assert.Equal(t, "t-1", turn.ThreadID())
	assert.Equal(t, "final answer", msg.Content)
	assert.True(t, msg.Final)
	assert.False(t, msg.Failed)
	assert.Len(t, msg.Activity, 2)
}

func TestStream_SingleMessageUpdatedInPlace(t *testing.T) {
	frames := []stream.Event{
		frame(t, stream.EventThreadID, stream.ThreadIDPayload{ThreadID: "t-2"}),
		frame(t, stream.EventMessage, stream.MessagePayload{Type: "ai", Content: "partial"}),
		frame(t, stream.EventMessage, stream.MessagePayload{Type: "ai", Content: "complete"}),
		frame(t, stream.EventDone, stream.DonePayload{Status: "completed"}),
	}
	srv := httptest.NewServer(sseHandler(t, frames))
	defer srv.Close()

	turn, err := New(srv.URL, nil).Stream(context.Background(), "q", StreamOptions{})
	require.NoError(t, err)

	// every snapshot describes the same single message, updated in place
	for snapshot := range turn.Updates() {
		assert.Equal(t, "t-2", snapshot.ThreadID)
	}
	msg := turn.Message()
	assert.Equal(t, "complete", msg.Content)
	assert.True(t, msg.Final)
}

func TestStream_ResponderActivityDoesNotOverwriteContent(t *testing.T) {
	frames := []stream.Event{
		frame(t, stream.EventThreadID, stream.ThreadIDPayload{ThreadID: "t-3"}),
		frame(t, stream.EventMessage, stream.MessagePayload{Type: "ai", Content: "the answer"}),
		frame(t, stream.EventMessage, stream.MessagePayload{
			Type: "ai", Name: "web-search", Content: "raw responder output",
		}),
		frame(t, stream.EventDone, stream.DonePayload{Status: "completed"}),
	}
	srv := httptest.NewServer(sseHandler(t, frames))
	defer srv.Close()

	turn, err := New(srv.URL, nil).Stream(context.Background(), "q", StreamOptions{})
	require.NoError(t, err)

	msg := turn.Wait()
	assert.Equal(t, "the answer", msg.Content)
	assert.Len(t, msg.Activity, 2)
}

func TestStream_DoneShapedFailure(t *testing.T) {
	frames := []stream.Event{
		frame(t, stream.EventThreadID, stream.ThreadIDPayload{ThreadID: "t-4"}),
		frame(t, stream.EventError, stream.ErrorPayload{Detail: "synthesis failed"}),
		frame(t, stream.EventMessage, stream.MessagePayload{Type: "ai", Content: "I was unable to produce an answer."}),
		frame(t, stream.EventDone, stream.DonePayload{Status: "failed"}),
	}
	srv := httptest.NewServer(sseHandler(t, frames))
	defer srv.Close()

	turn, err := New(srv.URL, nil).Stream(context.Background(), "q", StreamOptions{})
	require.NoError(t, err)

	msg := turn.Wait()
	assert.True(t, msg.Final)
	assert.True(t, msg.Failed)
	assert.Equal(t, "I was unable to produce an answer.", msg.Content)
	require.Len(t, msg.Errors, 1)
	assert.Contains(t, msg.Errors[0], "synthesis failed")
}

func TestStream_TransportLossBeforeContent(t *testing.T) {
	frames := []stream.Event{
		frame(t, stream.EventThreadID, stream.ThreadIDPayload{ThreadID: "t-5"}),
		frame(t, stream.EventStart, stream.StartPayload{Query: "q"}),
		// connection drops here: no message, no done
	}
	srv := httptest.NewServer(sseHandler(t, frames))
	defer srv.Close()

	turn, err := New(srv.URL, nil).Stream(context.Background(), "q", StreamOptions{})
	require.NoError(t, err)

	msg := turn.Wait()
	assert.True(t, msg.Final)
	assert.True(t, msg.Failed)
	assert.Contains(t, msg.Content, "Connection to the server was lost")
}

func TestStream_TransportLossKeepsPartialContent(t *testing.T) {
	frames := []stream.Event{
		frame(t, stream.EventThreadID, stream.ThreadIDPayload{ThreadID: "t-6"}),
		frame(t, stream.EventMessage, stream.MessagePayload{Type: "ai", Content: "partial answer"}),
		// connection drops before done
	}
	srv := httptest.NewServer(sseHandler(t, frames))
	defer srv.Close()

	turn, err := New(srv.URL, nil).Stream(context.Background(), "q", StreamOptions{})
	require.NoError(t, err)

	msg := turn.Wait()
	assert.True(t, msg.Final)
	assert.True(t, msg.Failed)
	assert.Equal(t, "partial answer", msg.Content)
}

func TestStream_QueryParameters(t *testing.T) {
	var gotQuery, gotThread, gotRounds string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotThread = r.URL.Query().Get("thread_id")
		gotRounds = r.URL.Query().Get("max_rounds")
		sseHandler(t, []stream.Event{
			frame(t, stream.EventDone, stream.DonePayload{Status: "completed"}),
		})(w, r)
	}))
	defer srv.Close()

	turn, err := New(srv.URL, nil).Stream(context.Background(), "hello", StreamOptions{
		ThreadID:  "existing",
		MaxRounds: 3,
	})
	require.NoError(t, err)
	turn.Wait()

	assert.Equal(t, "hello", gotQuery)
	assert.Equal(t, "existing", gotThread)
	assert.Equal(t, "3", gotRounds)
}

func TestStream_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).Stream(context.Background(), "q", StreamOptions{})
	assert.Error(t, err)
}
