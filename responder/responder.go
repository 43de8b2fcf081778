// Package responder implements the specialized responders the delegation
// engine hands sub-tasks to, plus the Registry that invokes them with a
// uniform per-call timeout.
//
// The responder set is closed: local-knowledge, web-search and cloud. Each
// one wraps an external collaborator interface from core, so provider
// integrations stay out of this package.
package responder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tutormesh/tutormesh/core"
	"github.com/tutormesh/tutormesh/logging"
)

// DefaultTimeout bounds a single responder invocation when the registry is
// constructed without an explicit timeout.
const DefaultTimeout = 60 * time.Second

// Registry holds the named responders and invokes them uniformly. The set is
// fixed at construction; there is no concurrent mutation to guard.
type Registry struct {
	responders map[string]core.Responder
	timeout    time.Duration
	logger     logging.Logger
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithTimeout sets the per-invocation deadline.
func WithTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.timeout = d }
}

// WithLogger sets the registry logger.
func WithLogger(l logging.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry builds a registry over the given responders. Later duplicates
// of a name win.
func NewRegistry(responders []core.Responder, opts ...RegistryOption) *Registry {
	r := &Registry{
		responders: make(map[string]core.Responder, len(responders)),
		timeout:    DefaultTimeout,
		logger:     logging.NoOpLogger{},
	}
	for _, resp := range responders {
		r.responders[resp.Name()] = resp
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Names returns the registered responder names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.responders))
	for name := range r.responders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the responder registered under name.
func (r *Registry) Get(name string) (core.Responder, bool) {
	resp, ok := r.responders[name]
	return resp, ok
}

// Invoke executes the named responder under the registry's per-call timeout.
// Failures come back as *core.ResponderError; deadline expiry is marked as a
// timeout so callers can report the cause accurately.
func (r *Registry) Invoke(ctx context.Context, name string, task core.Task) (core.Result, error) {
	resp, ok := r.responders[name]
	if !ok {
		return core.Result{}, core.NewResponderError(name, "unknown responder")
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	result, err := resp.Execute(callCtx, task)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			r.logger.Warn("responder timed out", "responder", name, "elapsed", elapsed)
			return core.Result{}, core.NewResponderTimeout(name, fmt.Sprintf("no result within %s", r.timeout))
		}
		var re *core.ResponderError
		if errors.As(err, &re) {
			return core.Result{}, re
		}
		r.logger.Warn("responder failed", "responder", name, "error", err)
		return core.Result{}, core.NewResponderError(name, err.Error())
	}

	r.logger.Debug("responder completed", "responder", name, "elapsed", elapsed)
	return result, nil
}
