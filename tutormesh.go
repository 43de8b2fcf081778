// Package tutormesh provides a high-level façade over the delegation engine
// and its services. Most applications interact with this package by:
//  1. Creating a Mesh via New() (optionally overriding the default in-memory
//     store, mock model and responder set)
//  2. Asking questions asynchronously (Ask) or synchronously (AskSync)
//
// The façade delegates orchestration to engine.Engine while keeping setup
// ergonomics concise. All defaults are safe for local development and
// testing; production deployments supply a durable thread store, a real
// model adapter and configured responders.
package tutormesh

import (
	"context"
	"fmt"

	"github.com/tutormesh/tutormesh/core"
	"github.com/tutormesh/tutormesh/engine"
	"github.com/tutormesh/tutormesh/knowledge"
	"github.com/tutormesh/tutormesh/logging"
	"github.com/tutormesh/tutormesh/model"
	"github.com/tutormesh/tutormesh/responder"
	"github.com/tutormesh/tutormesh/thread"
)

// Options configures a Mesh instance.
type Options struct {
	// ThreadStore persists conversations; defaults to in-memory.
	ThreadStore core.ThreadStore
	// Model makes the delegation decisions; defaults to a mock.
	Model model.Model
	// Responders form the delegation target set; defaults to a
	// local-knowledge responder over an empty index.
	Responders []core.Responder
	// MaxRounds bounds each query's delegation loop.
	MaxRounds int
	// Logger defaults to no-op.
	Logger logging.Logger
}

// Mesh is the high-level façade aggregating the engine and its services.
type Mesh struct {
	store  core.ThreadStore
	engine *engine.Engine
}

// New creates a Mesh with optional overrides. Any unset service falls back
// to its in-memory default.
func New(optFns ...func(o *Options)) *Mesh {
	opts := Options{
		MaxRounds: engine.DefaultMaxRounds,
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.ThreadStore == nil {
		opts.ThreadStore = thread.NewInMemoryStore()
	}
	if opts.Model == nil {
		opts.Model = model.NewMockModel("mock")
	}
	if opts.Responders == nil {
		opts.Responders = []core.Responder{
			responder.NewKnowledgeResponder(knowledge.NewIndex()),
		}
	}

	registry := responder.NewRegistry(opts.Responders, responder.WithLogger(opts.Logger))
	eng := engine.New(opts.ThreadStore, opts.Model, registry, func(o *engine.Options) {
		o.MaxRounds = opts.MaxRounds
		o.Logger = opts.Logger
	})

	return &Mesh{store: opts.ThreadStore, engine: eng}
}

// Store returns the underlying thread store.
func (m *Mesh) Store() core.ThreadStore { return m.store }

// NewThread creates a fresh conversation thread.
func (m *Mesh) NewThread(ctx context.Context) (string, error) {
	th, err := m.store.Create(ctx)
	if err != nil {
		return "", err
	}
	return th.ID, nil
}

// Ask starts an asynchronous delegation run; see engine.Engine.Run.
func (m *Mesh) Ask(ctx context.Context, threadID, query string) (string, <-chan core.ActivityEvent, <-chan error, error) {
	return m.engine.Run(ctx, threadID, query, -1)
}

// AskSync runs a query to completion and returns the finalized assistant
// message.
func (m *Mesh) AskSync(ctx context.Context, threadID, query string) (core.Message, error) {
	_, events, errs, err := m.engine.Run(ctx, threadID, query, -1)
	if err != nil {
		return core.Message{}, err
	}
	for range events {
	}
	if runErr := <-errs; runErr != nil {
		return core.Message{}, runErr
	}

	history, err := m.store.History(ctx, threadID)
	if err != nil {
		return core.Message{}, err
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == core.RoleAssistant && history[i].Final {
			return history[i], nil
		}
	}
	return core.Message{}, fmt.Errorf("run finished without an assistant message")
}
