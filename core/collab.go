package core

import "context"

// DocumentHit is one ranked result from the local knowledge collaborator.
type DocumentHit struct {
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
}

// VectorSearcher is the document/vector search collaborator. Ingestion,
// chunking and the similarity implementation live behind it.
type VectorSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]DocumentHit, error)
}

// WebHit is one result from the web search collaborator.
type WebHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// WebSearcher is the web search collaborator; the provider integration is
// external to the core.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]WebHit, error)
}

// CloudProvider exposes capability-specific cloud resource access. The core
// treats the capability set as opaque beyond named queries.
type CloudProvider interface {
	Query(ctx context.Context, capability, query string) (string, error)
	Capabilities() []string
}
