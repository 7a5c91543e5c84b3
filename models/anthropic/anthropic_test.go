package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Desarso/docassist/models"
)

func TestComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "It is a chart."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 30, "output_tokens": 5}
		}`))
	}))
	defer srv.Close()

	a, err := New("test-key")
	require.NoError(t, err)
	a.WithBaseURL(srv.URL)

	resp, err := a.Complete(context.Background(), models.Completion_Request{
		Temperature: models.Float(0),
		Messages: []models.Turn{
			models.SystemTurn("sys"),
			models.UserPartsTurn(models.TextPart("What is this?"), models.ImagePart("image/jpeg", "/9j/4AAQ")),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "It is a chart.", resp.Text)
	assert.Equal(t, models.Usage{PromptTokens: 30, CompletionTokens: 5, TotalTokens: 35}, resp.Usage)

	assert.EqualValues(t, DefaultMaxTokens, body["max_tokens"])
	assert.EqualValues(t, 0, body["temperature"])
	system := body["system"].([]any)
	assert.Equal(t, "sys", system[0].(map[string]any)["text"])

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	content := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	image := content[1].(map[string]any)
	assert.Equal(t, "image", image["type"])
	source := image["source"].(map[string]any)
	assert.Equal(t, "base64", source["type"])
	assert.Equal(t, "image/jpeg", source["media_type"])
	assert.Equal(t, "/9j/4AAQ", source["data"])
}

func TestComplete_ErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "rate_limit_error", "message": "slow down"}}`))
	}))
	defer srv.Close()

	a, err := New("test-key")
	require.NoError(t, err)
	a.WithBaseURL(srv.URL)

	_, err = a.Complete(context.Background(), models.Completion_Request{Messages: []models.Turn{models.UserTurn("q")}})
	require.Error(t, err)
	assert.True(t, models.IsRemote(err))
	assert.Contains(t, err.Error(), "slow down")
	assert.EqualValues(t, 1, calls)
}

func TestConvertMessages(t *testing.T) {
	msgs, system := ConvertMessages([]models.Turn{
		models.SystemTurn("a"),
		models.UserTurn("Hi"),
		models.AssistantTurn("Hello"),
	})
	assert.Equal(t, "a", system)
	require.Len(t, msgs, 2)
	assert.EqualValues(t, "user", msgs[0].Role)
	assert.EqualValues(t, "assistant", msgs[1].Role)
}

func TestNew_MissingKey(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, models.ErrConfiguration)
}
