package core

import "context"

// ThreadStore persists conversation threads and their message history.
//
// Contract:
//   - Create mints a fresh unique identifier with an empty history.
//   - Append adds a message to an existing thread; unknown ids yield
//     ErrThreadNotFound. Appends to the same thread are serialized relative
//     to each other; different threads may be mutated concurrently.
//   - History returns the ordered messages; a known thread with no messages
//     returns an empty slice, an unknown id yields ErrThreadNotFound.
//   - Delete is idempotent: deleting an unknown or already-deleted id
//     succeeds silently.
type ThreadStore interface {
	Create(ctx context.Context) (*Thread, error)
	Append(ctx context.Context, threadID string, msg Message) error
	History(ctx context.Context, threadID string) ([]Message, error)
	Delete(ctx context.Context, threadID string) error
}
