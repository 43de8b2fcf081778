package responder

import (
	"context"
	"fmt"
	"strings"

	"github.com/tutormesh/tutormesh/core"
)

// WebSearchResponder answers sub-tasks with live results from the web search
// collaborator behind core.WebSearcher.
type WebSearchResponder struct {
	searcher core.WebSearcher
}

// NewWebSearchResponder wraps a web searcher as the web-search responder.
func NewWebSearchResponder(searcher core.WebSearcher) *WebSearchResponder {
	return &WebSearchResponder{searcher: searcher}
}

// Name implements core.Responder.
func (r *WebSearchResponder) Name() string { return "web-search" }

// Description implements core.Responder.
func (r *WebSearchResponder) Description() string {
	return "Searches the public web for current information. Use for recent events or facts outside the local knowledge base."
}

// Execute implements core.Responder.
func (r *WebSearchResponder) Execute(ctx context.Context, task core.Task) (core.Result, error) {
	hits, err := r.searcher.Search(ctx, task.Description)
	if err != nil {
		return core.Result{}, fmt.Errorf("web search: %w", err)
	}
	if len(hits) == 0 {
		return core.Result{Text: "No web results found."}, nil
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Found %d web result(s):\n", len(hits)))
	for i, hit := range hits {
		b.WriteString(fmt.Sprintf("\n--- Result %d ---\n", i+1))
		b.WriteString(fmt.Sprintf("Title: %s\nURL: %s\n%s\n", hit.Title, hit.URL, hit.Snippet))
	}

	return core.Result{
		Text:    b.String(),
		Payload: map[string]any{"hits": hits},
	}, nil
}
