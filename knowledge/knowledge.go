// Package knowledge provides a naive process-local document index
// implementing core.VectorSearcher.
//
// Scoring is keyword overlap between query and document terms. Suitable for
// tests and demos; swap for a vector DB or semantic index for production
// retrieval.
package knowledge

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/tutormesh/tutormesh/core"
)

type document struct {
	text   string
	source string
	terms  map[string]struct{}
}

// Index is an in-memory keyword index. Concurrency: protected by RWMutex.
type Index struct {
	mu   sync.RWMutex
	docs []document
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Add indexes a document under the given source label.
func (i *Index) Add(text, source string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.docs = append(i.docs, document{
		text:   text,
		source: source,
		terms:  tokenize(text),
	})
}

// Len returns the number of indexed documents.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.docs)
}

// Search implements core.VectorSearcher. Score is the fraction of query terms
// present in the document; zero-score documents are dropped. Results are
// ordered by descending score, capped at topK.
func (i *Index) Search(ctx context.Context, query string, topK int) ([]core.DocumentHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []core.DocumentHit{}, nil
	}

	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return []core.DocumentHit{}, nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	hits := make([]core.DocumentHit, 0, len(i.docs))
	for _, doc := range i.docs {
		matched := 0
		for term := range queryTerms {
			if _, ok := doc.terms[term]; ok {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		hits = append(hits, core.DocumentHit{
			Text:   doc.text,
			Score:  float64(matched) / float64(len(queryTerms)),
			Source: doc.source,
		})
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func tokenize(s string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(s)) {
		term := strings.Trim(field, ".,;:!?\"'()[]{}")
		if len(term) < 2 {
			continue
		}
		terms[term] = struct{}{}
	}
	return terms
}
