package responder

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tutormesh/tutormesh/core"
)

// CloudResponder answers sub-tasks about cloud resources via the provider
// collaborator behind core.CloudProvider. It picks the capability by keyword
// match against the task description, falling back to the first capability.
type CloudResponder struct {
	provider core.CloudProvider
}

// NewCloudResponder wraps a cloud provider as the cloud responder.
func NewCloudResponder(provider core.CloudProvider) *CloudResponder {
	return &CloudResponder{provider: provider}
}

// Name implements core.Responder.
func (r *CloudResponder) Name() string { return "cloud" }

// Description implements core.Responder.
func (r *CloudResponder) Description() string {
	caps := strings.Join(r.provider.Capabilities(), ", ")
	return fmt.Sprintf("Queries cloud resources and services. Capabilities: %s.", caps)
}

// Execute implements core.Responder.
func (r *CloudResponder) Execute(ctx context.Context, task core.Task) (core.Result, error) {
	capability := r.pickCapability(task.Description)
	if capability == "" {
		return core.Result{Text: "No cloud capabilities are configured."}, nil
	}

	answer, err := r.provider.Query(ctx, capability, task.Description)
	if err != nil {
		return core.Result{}, fmt.Errorf("cloud query (%s): %w", capability, err)
	}

	return core.Result{
		Text:    fmt.Sprintf("[%s]\n%s", capability, answer),
		Payload: map[string]any{"capability": capability},
	}, nil
}

func (r *CloudResponder) pickCapability(description string) string {
	caps := r.provider.Capabilities()
	if len(caps) == 0 {
		return ""
	}
	lower := strings.ToLower(description)
	for _, c := range caps {
		if strings.Contains(lower, strings.ToLower(c)) {
			return c
		}
	}
	return caps[0]
}

// StaticCloudProvider is a small in-memory core.CloudProvider used for tests
// and offline development. Answers is keyed by capability.
type StaticCloudProvider struct {
	Answers map[string]string
}

// Query implements core.CloudProvider.
func (p *StaticCloudProvider) Query(ctx context.Context, capability, query string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	answer, ok := p.Answers[capability]
	if !ok {
		return "", fmt.Errorf("unsupported capability %q", capability)
	}
	return answer, nil
}

// Capabilities implements core.CloudProvider.
func (p *StaticCloudProvider) Capabilities() []string {
	caps := make([]string, 0, len(p.Answers))
	for c := range p.Answers {
		caps = append(caps, c)
	}
	sort.Strings(caps)
	return caps
}
