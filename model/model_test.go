package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockModel_CannedResponse(t *testing.T) {
	m := NewMockModel("test-model")
	m.AddResponse("what is 2+2", "4")

	resp, err := m.Generate(context.Background(), Request{
		Prompts: []Prompt{{Role: RoleUser, Content: "what is 2+2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "4", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestMockModel_Fallback(t *testing.T) {
	m := NewMockModel("test-model")

	resp, err := m.Generate(context.Background(), Request{
		Prompts: []Prompt{{Role: RoleUser, Content: "unknown"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: unknown", resp.Text)
}

func TestMockModel_EmptyPrompts(t *testing.T) {
	m := NewMockModel("test-model")

	_, err := m.Generate(context.Background(), Request{})
	assert.Error(t, err)
}

func TestMockModel_CanceledContext(t *testing.T) {
	m := NewMockModel("test-model")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Generate(ctx, Request{Prompts: []Prompt{{Role: RoleUser, Content: "x"}}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockModel_Info(t *testing.T) {
	m := NewMockModel("test-model")
	info := m.Info()

	assert.Equal(t, "test-model", info.Name)
	assert.Equal(t, "mock", info.Provider)
	assert.True(t, info.SupportsTools)
}
