package responder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutormesh/tutormesh/core"
)

type stubResponder struct {
	name    string
	execute func(ctx context.Context, task core.Task) (core.Result, error)
}

func (s *stubResponder) Name() string        { return s.name }
func (s *stubResponder) Description() string { return "stub" }
func (s *stubResponder) Execute(ctx context.Context, task core.Task) (core.Result, error) {
	return s.execute(ctx, task)
}

type stubVectorSearcher struct {
	hits []core.DocumentHit
	err  error
	topK int
}

func (s *stubVectorSearcher) Search(_ context.Context, _ string, topK int) ([]core.DocumentHit, error) {
	s.topK = topK
	return s.hits, s.err
}

type stubWebSearcher struct {
	hits []core.WebHit
	err  error
}

func (s *stubWebSearcher) Search(_ context.Context, _ string) ([]core.WebHit, error) {
	return s.hits, s.err
}

func TestRegistry_Invoke(t *testing.T) {
	ok := &stubResponder{
		name: "ok",
		execute: func(_ context.Context, task core.Task) (core.Result, error) {
			return core.Result{Text: "answer to " + task.Description}, nil
		},
	}
	reg := NewRegistry([]core.Responder{ok})

	result, err := reg.Invoke(context.Background(), "ok", core.Task{Description: "q"})
	require.NoError(t, err)
	assert.Equal(t, "answer to q", result.Text)
}

func TestRegistry_InvokeUnknown(t *testing.T) {
	reg := NewRegistry(nil)

	_, err := reg.Invoke(context.Background(), "missing", core.Task{})
	require.Error(t, err)

	var re *core.ResponderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "missing", re.Responder)
	assert.False(t, re.Timeout)
}

func TestRegistry_InvokeTimeout(t *testing.T) {
	slow := &stubResponder{
		name: "slow",
		execute: func(ctx context.Context, _ core.Task) (core.Result, error) {
			<-ctx.Done()
			return core.Result{}, ctx.Err()
		},
	}
	reg := NewRegistry([]core.Responder{slow}, WithTimeout(10*time.Millisecond))

	_, err := reg.Invoke(context.Background(), "slow", core.Task{})
	require.Error(t, err)
	assert.True(t, core.IsResponderTimeout(err))

	var re *core.ResponderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "slow", re.Responder)
}

func TestRegistry_InvokeFailure(t *testing.T) {
	broken := &stubResponder{
		name: "broken",
		execute: func(_ context.Context, _ core.Task) (core.Result, error) {
			return core.Result{}, errors.New("backend unavailable")
		},
	}
	reg := NewRegistry([]core.Responder{broken})

	_, err := reg.Invoke(context.Background(), "broken", core.Task{})
	require.Error(t, err)
	assert.False(t, core.IsResponderTimeout(err))
	assert.Contains(t, err.Error(), "backend unavailable")
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry([]core.Responder{
		&stubResponder{name: "web-search"},
		&stubResponder{name: "cloud"},
		&stubResponder{name: "local-knowledge"},
	})

	assert.Equal(t, []string{"cloud", "local-knowledge", "web-search"}, reg.Names())
}

func TestKnowledgeResponder(t *testing.T) {
	searcher := &stubVectorSearcher{hits: []core.DocumentHit{
		{Text: "Go is a compiled language.", Score: 0.91, Source: "go.md"},
		{Text: "Go has goroutines.", Score: 0.72, Source: "concurrency.md"},
	}}
	r := NewKnowledgeResponder(searcher)

	result, err := r.Execute(context.Background(), core.Task{Description: "what is go"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, searcher.topK)
	assert.Contains(t, result.Text, "--- Result 1 (score: 0.91) ---")
	assert.Contains(t, result.Text, "--- Result 2 (score: 0.72) ---")
	assert.Contains(t, result.Text, "Source: go.md")
	assert.Contains(t, result.Text, "Go has goroutines.")
}

func TestKnowledgeResponder_NoHits(t *testing.T) {
	r := NewKnowledgeResponder(&stubVectorSearcher{})

	result, err := r.Execute(context.Background(), core.Task{Description: "anything"})
	require.NoError(t, err)
	assert.Contains(t, result.Text, "No relevant documents")
}

func TestKnowledgeResponder_TopKOption(t *testing.T) {
	searcher := &stubVectorSearcher{}
	r := NewKnowledgeResponder(searcher, WithTopK(7))

	_, err := r.Execute(context.Background(), core.Task{Description: "q"})
	require.NoError(t, err)
	assert.Equal(t, 7, searcher.topK)
}

func TestWebSearchResponder(t *testing.T) {
	r := NewWebSearchResponder(&stubWebSearcher{hits: []core.WebHit{
		{Title: "Go 1.25 released", URL: "https://go.dev/blog", Snippet: "The latest Go release."},
	}})

	result, err := r.Execute(context.Background(), core.Task{Description: "latest go release"})
	require.NoError(t, err)
	assert.Contains(t, result.Text, "--- Result 1 ---")
	assert.Contains(t, result.Text, "https://go.dev/blog")
}

func TestWebSearchResponder_Error(t *testing.T) {
	r := NewWebSearchResponder(&stubWebSearcher{err: errors.New("rate limited")})

	_, err := r.Execute(context.Background(), core.Task{Description: "q"})
	assert.ErrorContains(t, err, "rate limited")
}

func TestCloudResponder(t *testing.T) {
	provider := &StaticCloudProvider{Answers: map[string]string{
		"compute": "3 instances running",
		"storage": "2 buckets",
	}}
	r := NewCloudResponder(provider)

	result, err := r.Execute(context.Background(), core.Task{Description: "how much storage do we use"})
	require.NoError(t, err)
	assert.Contains(t, result.Text, "[storage]")
	assert.Contains(t, result.Text, "2 buckets")
	assert.Equal(t, "storage", result.Payload["capability"])
}

func TestCloudResponder_FallsBackToFirstCapability(t *testing.T) {
	provider := &StaticCloudProvider{Answers: map[string]string{
		"compute": "3 instances running",
		"storage": "2 buckets",
	}}
	r := NewCloudResponder(provider)

	result, err := r.Execute(context.Background(), core.Task{Description: "general status"})
	require.NoError(t, err)
	assert.Equal(t, "compute", result.Payload["capability"])
}
