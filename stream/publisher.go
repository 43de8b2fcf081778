package stream

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tutormesh/tutormesh/core"
	"github.com/tutormesh/tutormesh/logging"
)

// Publisher serializes one run's activity events as SSE wire messages, in
// emission order, flushing each one immediately.
//
// A consumer disconnect is tolerated: the publisher stops writing but keeps
// draining the event channel so the producing engine never blocks and can run
// to completion.
type Publisher struct {
	logger logging.Logger
}

// NewPublisher constructs a Publisher.
func NewPublisher(logger logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Publisher{logger: logger}
}

// Publish writes the full wire sequence for one query to w: thread_id and
// start first, then one message per activity event, then the terminal event.
// A synthesis failure ends the stream done-shaped (status "failed") so the
// client finalizes the explanatory content; any other engine error ends it
// with a bare error event.
func (p *Publisher) Publish(w http.ResponseWriter, threadID, query string, events <-chan core.ActivityEvent, errs <-chan error) error {
	sse, err := newSSEWriter(w)
	if err != nil {
		return err
	}

	alive := true
	write := func(ev Event) {
		if !alive {
			return
		}
		if err := sse.writeEvent(ev.Name, ev.Data); err != nil {
			p.logger.Debug("consumer disconnected, draining remaining events", "thread", threadID)
			alive = false
		}
	}

	tid, err := newEvent(EventThreadID, ThreadIDPayload{ThreadID: threadID})
	if err != nil {
		return err
	}
	write(tid)

	start, err := newEvent(EventStart, StartPayload{Query: query, Timestamp: time.Now().UTC()})
	if err != nil {
		return err
	}
	write(start)

	for ev := range events {
		wire, err := EncodeActivity(ev)
		if err != nil {
			p.logger.Error("encoding activity event", "error", err)
			continue
		}
		write(wire)
	}

	if runErr := <-errs; runErr != nil {
		var synthErr *core.SynthesisError
		if errors.As(runErr, &synthErr) {
			done, err := newEvent(EventDone, DonePayload{Status: "failed"})
			if err != nil {
				return err
			}
			write(done)
			return nil
		}
		wireErr, err := newEvent(EventError, ErrorPayload{Detail: runErr.Error()})
		if err != nil {
			return err
		}
		write(wireErr)
		return runErr
	}
	return nil
}

// sseWriter wraps http.ResponseWriter for SSE with immediate flushing.
type sseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	if _, ok := w.(http.Flusher); !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	s := &sseWriter{w: w, rc: http.NewResponseController(w)}
	if err := s.rc.Flush(); err != nil {
		return nil, err
	}
	return s, nil
}

// writeEvent writes one SSE frame and flushes it immediately.
func (s *sseWriter) writeEvent(name string, data []byte) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	return s.rc.Flush()
}
