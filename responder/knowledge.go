package responder

import (
	"context"
	"fmt"
	"strings"

	"github.com/tutormesh/tutormesh/core"
)

// DefaultTopK is the number of ranked hits returned per knowledge lookup.
const DefaultTopK = 3

// KnowledgeResponder answers sub-tasks from the local document index behind
// core.VectorSearcher.
type KnowledgeResponder struct {
	searcher core.VectorSearcher
	topK     int
}

// KnowledgeOption customizes a KnowledgeResponder.
type KnowledgeOption func(*KnowledgeResponder)

// WithTopK overrides the number of hits requested per search.
func WithTopK(k int) KnowledgeOption {
	return func(r *KnowledgeResponder) { r.topK = k }
}

// NewKnowledgeResponder wraps a vector searcher as the local-knowledge
// responder.
func NewKnowledgeResponder(searcher core.VectorSearcher, opts ...KnowledgeOption) *KnowledgeResponder {
	r := &KnowledgeResponder{searcher: searcher, topK: DefaultTopK}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name implements core.Responder.
func (r *KnowledgeResponder) Name() string { return "local-knowledge" }

// Description implements core.Responder.
func (r *KnowledgeResponder) Description() string {
	return "Searches the locally indexed document base and answers from ranked passages. Use for questions the ingested documents can answer."
}

// Execute implements core.Responder.
func (r *KnowledgeResponder) Execute(ctx context.Context, task core.Task) (core.Result, error) {
	hits, err := r.searcher.Search(ctx, task.Description, r.topK)
	if err != nil {
		return core.Result{}, fmt.Errorf("knowledge search: %w", err)
	}
	if len(hits) == 0 {
		return core.Result{Text: "No relevant documents found in the local knowledge base."}, nil
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Found %d relevant passage(s):\n", len(hits)))
	for i, hit := range hits {
		b.WriteString(fmt.Sprintf("\n--- Result %d (score: %.2f) ---\n", i+1, hit.Score))
		if hit.Source != "" {
			b.WriteString(fmt.Sprintf("Source: %s\n", hit.Source))
		}
		b.WriteString(hit.Text)
		b.WriteString("\n")
	}

	return core.Result{
		Text:    b.String(),
		Payload: map[string]any{"hits": hits},
	}, nil
}
