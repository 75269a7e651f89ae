package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{
			"bare object",
			`{"isReminder": true}`,
			`{"isReminder": true}`,
			false,
		},
		{
			"fenced json",
			"```json\n{\"isReminder\": true}\n```",
			`{"isReminder": true}`,
			false,
		},
		{
			"prose around object",
			`Sure! Here is the result: {"a": 1} hope that helps`,
			`{"a": 1}`,
			false,
		},
		{
			"braces inside strings",
			`{"summary": "use {curly} braces", "n": 1}`,
			`{"summary": "use {curly} braces", "n": 1}`,
			false,
		},
		{
			"array",
			`[1, 2, 3] trailing`,
			`[1, 2, 3]`,
			false,
		},
		{
			"no json at all",
			`I could not parse that, sorry!`,
			"",
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSONRepairsMalformedOutput(t *testing.T) {
	// Trailing comma and single quotes, the two classic model mistakes.
	got, err := ExtractJSON(`{'isReminder': true, 'eventDate': '2026-09-04',}`)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(got), &parsed))
	assert.Equal(t, true, parsed["isReminder"])
	assert.Equal(t, "2026-09-04", parsed["eventDate"])
}

func TestCompleteSendsChatRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "classify this", req.Messages[0].Content)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"ok": true}`}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "")
	got, err := c.Complete(context.Background(), "classify this", 800)
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, got)
}

func TestCompleteSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limit exceeded", "type": "rate_limit"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "")
	_, err := c.Complete(context.Background(), "hi", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestCompleteUnconfigured(t *testing.T) {
	c := NewClient("", "", "")
	assert.False(t, c.IsConfigured())
	_, err := c.Complete(context.Background(), "hi", 10)
	assert.Error(t, err)
}
