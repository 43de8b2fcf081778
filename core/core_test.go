package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewThread(t *testing.T) {
	a := NewThread()
	b := NewThread()

	require.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Empty(t, a.Messages)
	assert.False(t, a.Created.IsZero())
}

func TestNewUserMessage(t *testing.T) {
	m := NewUserMessage("hello")

	assert.Equal(t, RoleUser, m.Role)
	assert.Equal(t, "hello", m.Content)
	assert.True(t, m.Final)
	assert.NotEmpty(t, m.ID)
}

func TestNewAssistantMessage_OpenUntilFinal(t *testing.T) {
	m := NewAssistantMessage()

	assert.Equal(t, RoleAssistant, m.Role)
	assert.False(t, m.Final)
	assert.Empty(t, m.Content)
}

func TestActivityHelpers(t *testing.T) {
	tests := []struct {
		name string
		ev   ActivityEvent
		kind ActivityKind
	}{
		{"delegation start", NewDelegationStart(1, "delegate:web-search"), KindDelegationStart},
		{"responder call", NewResponderCall(1, "web-search", "find X"), KindResponderCall},
		{"responder result", NewResponderResult(1, "web-search", "found", nil), KindResponderResult},
		{"content update", NewContentUpdate("partial"), KindContentUpdate},
		{"completion", NewCompletion(), KindCompletion},
		{"failure", NewFailure(2, "cloud", "timeout"), KindFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.ev.Kind)
			assert.NotEmpty(t, tt.ev.ID)
			assert.False(t, tt.ev.Timestamp.IsZero())
		})
	}
}

func TestResponderError_Timeout(t *testing.T) {
	timeout := NewResponderTimeout("web-search", "deadline exceeded")
	plain := NewResponderError("cloud", "boom")

	assert.True(t, IsResponderTimeout(timeout))
	assert.False(t, IsResponderTimeout(plain))
	assert.Contains(t, timeout.Error(), "timeout")

	// wrapping preserves the distinction
	wrapped := fmt.Errorf("invoke: %w", timeout)
	assert.True(t, IsResponderTimeout(wrapped))
}

func TestSynthesisError_Unwrap(t *testing.T) {
	cause := errors.New("model unavailable")
	err := &SynthesisError{Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "synthesis failed")
}
