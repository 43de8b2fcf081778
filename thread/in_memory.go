// Package thread provides the volatile ThreadStore implementation. The
// durable sqlite-backed store lives in the sqlite sub-package.
package thread

import (
	"context"
	"sync"
	"time"

	"github.com/tutormesh/tutormesh/core"
)

// InMemoryStore is a volatile core.ThreadStore storing threads in a process
// local map. It is safe for concurrent access and best suited for tests or
// ephemeral demo servers. Returned histories are copied to prevent external
// mutation of internal state.
type InMemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*core.Thread
}

// NewInMemoryStore constructs an empty in-memory thread store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{threads: make(map[string]*core.Thread)}
}

// Create implements core.ThreadStore.
func (s *InMemoryStore) Create(ctx context.Context) (*core.Thread, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := core.NewThread()

	s.mu.Lock()
	s.threads[t.ID] = t
	s.mu.Unlock()

	return cloneThread(t), nil
}

// Append implements core.ThreadStore. The store's write lock serializes
// appends to the same thread.
func (s *InMemoryStore) Append(ctx context.Context, threadID string, msg core.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[threadID]
	if !ok {
		return core.ErrThreadNotFound
	}
	t.Messages = append(t.Messages, msg)
	t.Updated = time.Now().UTC()
	return nil
}

// History implements core.ThreadStore.
func (s *InMemoryStore) History(ctx context.Context, threadID string) ([]core.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threads[threadID]
	if !ok {
		return nil, core.ErrThreadNotFound
	}
	out := make([]core.Message, len(t.Messages))
	copy(out, t.Messages)
	return out, nil
}

// Delete implements core.ThreadStore. Deleting an unknown id is a no-op.
func (s *InMemoryStore) Delete(ctx context.Context, threadID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.threads, threadID)
	s.mu.Unlock()
	return nil
}

func cloneThread(t *core.Thread) *core.Thread {
	clone := *t
	clone.Messages = make([]core.Message, len(t.Messages))
	copy(clone.Messages, t.Messages)
	return &clone
}
