// Package core provides the foundational domain types and contracts used by
// tutormesh. It defines:
//
//   - Threads (persistent conversation containers) and Messages
//   - Activity events (the immutable trail of one delegation run)
//   - The Responder contract (uniform invocation of specialized responders)
//   - Collaborator interfaces consumed by responders (vector search, web
//     search, cloud resources)
//   - The error taxonomy shared across layers
//
// The package intentionally keeps implementation concerns (persistence,
// engine orchestration, concrete responders) out of scope, exposing small
// interfaces so backends can be swapped without touching calling code.
package core
