// Package client implements the consumer side of the query stream: it opens
// the SSE channel, parses wire events and reconciles them into a single
// continuously updated assistant message per turn.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/tutormesh/tutormesh/stream"
)

// Message is the client-side view of the in-progress (or finalized)
// assistant message for one turn. Activity accumulates every non-terminal
// wire message in arrival order.
type Message struct {
	ThreadID string
	Content  string
	Activity []stream.MessagePayload
	Errors   []string
	Final    bool
	Failed   bool // terminal state was done-shaped failure or transport loss
}

// Client talks to a tutormesh server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a Client for the server at baseURL.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{} // no timeout: streams are long-lived
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// StreamOptions control one query turn.
type StreamOptions struct {
	ThreadID  string // empty requests a fresh thread
	MaxRounds int    // <= 0 leaves the server default
}

// Turn is one in-flight query. Updates delivers a snapshot of the current
// assistant message after every reconciled wire event and closes when the
// message is final.
type Turn struct {
	updates chan Message

	mu       sync.Mutex
	threadID string
	current  Message
}

// Updates returns the snapshot channel. It closes once the turn's message is
// final.
func (t *Turn) Updates() <-chan Message { return t.updates }

// ThreadID returns the resolved thread id, or "" before the thread_id wire
// event arrived.
func (t *Turn) ThreadID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.threadID
}

// Message returns the current reconciled message snapshot.
func (t *Turn) Message() Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Wait blocks until the turn's message is final and returns it.
func (t *Turn) Wait() Message {
	for range t.updates {
	}
	return t.Message()
}

// Stream submits query and starts consuming the turn's wire events in the
// background.
func (c *Client) Stream(ctx context.Context, query string, opts StreamOptions) (*Turn, error) {
	q := url.Values{}
	q.Set("query", query)
	if opts.ThreadID != "" {
		q.Set("thread_id", opts.ThreadID)
	}
	if opts.MaxRounds > 0 {
		q.Set("max_rounds", strconv.Itoa(opts.MaxRounds))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/chat/stream?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opening stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	turn := &Turn{updates: make(chan Message, 16)}
	go turn.consume(resp)
	return turn, nil
}

// consume reads wire events until a terminal event or transport loss.
//
// Reconciliation: exactly one current assistant message per turn; every
// non-terminal message event updates it in place. A transport error before
// any content arrived surfaces a connection-failure message; after partial
// content, the partial content is kept and marked final.
func (t *Turn) consume(resp *http.Response) {
	defer close(t.updates)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var name, data string
	terminal := false
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if name == "" {
				continue
			}
			terminal = t.apply(name, data)
			name, data = "", ""
			if terminal {
				return
			}
		}
	}

	// Channel lost without a terminal event.
	t.mu.Lock()
	if t.current.Content == "" {
		t.current.Content = "Connection to the server was lost before an answer arrived."
	}
	t.current.Final = true
	t.current.Failed = true
	snapshot := t.current
	t.mu.Unlock()
	t.publish(snapshot)
}

// apply reconciles one wire event; it reports whether the event was terminal.
func (t *Turn) apply(name, data string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch name {
	case stream.EventThreadID:
		var payload stream.ThreadIDPayload
		if err := json.Unmarshal([]byte(data), &payload); err == nil {
			t.threadID = payload.ThreadID
			t.current.ThreadID = payload.ThreadID
		}
	case stream.EventStart:
		// loop has begun; nothing to reconcile
	case stream.EventMessage:
		var payload stream.MessagePayload
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return false
		}
		t.current.Activity = append(t.current.Activity, payload)
		if payload.Content != "" && len(payload.ToolCalls) == 0 && payload.Name == "" {
			t.current.Content = payload.Content
		}
	case stream.EventError:
		var payload stream.ErrorPayload
		if err := json.Unmarshal([]byte(data), &payload); err == nil {
			t.current.Errors = append(t.current.Errors, payload.Detail)
		}
	case stream.EventDone:
		var payload stream.DonePayload
		_ = json.Unmarshal([]byte(data), &payload)
		t.current.Final = true
		t.current.Failed = payload.Status != "completed"
		t.publishLocked()
		return true
	}

	t.publishLocked()
	return false
}

func (t *Turn) publishLocked() {
	snapshot := t.current
	select {
	case t.updates <- snapshot:
	default: // slow consumer; the next snapshot supersedes this one
	}
}

func (t *Turn) publish(snapshot Message) {
	select {
	case t.updates <- snapshot:
	default:
	}
}
