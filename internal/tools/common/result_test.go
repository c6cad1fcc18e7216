package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/graphcal/internal/graph"
)

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text
}

func TestJSONResult(t *testing.T) {
	event := graph.BuildEvent(graph.EventForm{Subject: "Sync", Start: "2024-03-01T09:00", End: "2024-03-01T10:00"}, "UTC")

	result, err := JSONResult(event)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := textOf(t, result)
	assert.Contains(t, text, `"subject": "Sync"`)
	assert.Contains(t, text, "\n  ")
}

func TestErrorResult(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{
			name:     "missing user",
			err:      &graph.InvalidStateError{ClientPresent: true, UserPresent: false},
			contains: `Pass the "user" argument`,
		},
		{
			name:     "auth failure",
			err:      &graph.AuthFailure{UserHash: "user:abc", Err: errors.New("expired")},
			contains: "graph_get_auth_url",
		},
		{
			name:     "unauthorised response",
			err:      &graph.RemoteAPIError{Operation: graph.OpProfile, StatusCode: 401},
			contains: "graph_save_auth_code",
		},
		{
			name:     "notification url",
			err:      graph.ErrNotificationURLRequired,
			contains: "GRAPH_NOTIFICATION_URL",
		},
		{
			name:     "invalid argument",
			err:      fmt.Errorf("%w: subject is required", graph.ErrInvalidArgument),
			contains: "Invalid arguments",
		},
		{
			name:     "other",
			err:      errors.New("connection reset"),
			contains: "Failed to get profile: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ErrorResult("get profile", "adele@contoso.com", tt.err)
			assert.True(t, result.IsError)
			assert.Contains(t, textOf(t, result), tt.contains)
		})
	}
}
