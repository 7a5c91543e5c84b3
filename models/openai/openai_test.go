package openai

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

const completionJSON = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-2024-08-06",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "Chlorophyll absorbs light."}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 21, "completion_tokens": 4, "total_tokens": 25}
}`

type recordedRequest struct {
	Model       string           `json:"model"`
	Temperature *float64         `json:"temperature"`
	MaxTokens   *int             `json:"max_tokens"`
	Messages    []map[string]any `json:"messages"`
}

func newServer(t *testing.T, status int, body string, got *recordedRequest, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_MissingKey(t *testing.T) {
	_, err := New(OpenAI, "")
	require.ErrorIs(t, err, models.ErrConfiguration)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestComplete_TextAndImage(t *testing.T) {
	var got recordedRequest
	var calls int32
	srv := newServer(t, http.StatusOK, completionJSON, &got, &calls)

	m, err := New(OpenAI, "test-key")
	require.NoError(t, err)
	m.WithBaseURL(srv.URL)

	resp, err := m.Complete(context.Background(), models.Completion_Request{
		Model:       "gpt-4o",
		Temperature: models.Float(0.6),
		MaxTokens:   256,
		Messages: []models.Turn{
			models.SystemTurn("be helpful"),
			models.UserTurn("Hi"),
			models.AssistantTurn("Hello"),
			models.UserPartsTurn(models.TextPart("What is this?"), models.ImagePart("image/png", "iVBORw0K")),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Chlorophyll absorbs light.", resp.Text)
	assert.Equal(t, "gpt-4o-2024-08-06", resp.Model)
	assert.Equal(t, models.Usage{PromptTokens: 21, CompletionTokens: 4, TotalTokens: 25}, resp.Usage)

	assert.Equal(t, "gpt-4o", got.Model)
	require.NotNil(t, got.Temperature)
	assert.Equal(t, 0.6, *got.Temperature)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0]["role"])
	assert.Equal(t, "be helpful", got.Messages[0]["content"])
	assert.Equal(t, "assistant", got.Messages[2]["role"])

	parts, ok := got.Messages[3]["content"].([]any)
	require.True(t, ok)
	require.Len(t, parts, 2)
	image := parts[1].(map[string]any)
	assert.Equal(t, "image_url", image["type"])
	assert.Equal(t, "data:image/png;base64,iVBORw0K", image["image_url"].(map[string]any)["url"])
	assert.EqualValues(t, 1, calls)
}

func TestComplete_DefaultModel(t *testing.T) {
	var got recordedRequest
	var calls int32
	srv := newServer(t, http.StatusOK, completionJSON, &got, &calls)

	m, err := New(Groq, "test-key")
	require.NoError(t, err)
	m.WithBaseURL(srv.URL)

	_, err = m.Complete(context.Background(), models.Completion_Request{Messages: []models.Turn{models.UserTurn("q")}})
	require.NoError(t, err)
	assert.Equal(t, Groq.DefaultModel, got.Model)
	assert.Nil(t, got.Temperature)
	assert.Equal(t, "groq", m.Provider())
}

func TestComplete_ServiceErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := newServer(t, http.StatusInternalServerError, `{"error":{"message":"upstream overloaded","type":"server_error"}}`, nil, &calls)

	m, err := New(OpenRouter.WithSite("https://example.org", "docassist"), "test-key")
	require.NoError(t, err)
	m.WithBaseURL(srv.URL)

	_, err = m.Complete(context.Background(), models.Completion_Request{Messages: []models.Turn{models.UserTurn("q")}})
	require.Error(t, err)
	assert.True(t, models.IsRemote(err))
	assert.Contains(t, err.Error(), "upstream overloaded")
	assert.EqualValues(t, 1, calls)
}

func TestPreset_WithSite(t *testing.T) {
	p := OpenRouter.WithSite("https://example.org", "")
	assert.Equal(t, "https://example.org", p.Headers["HTTP-Referer"])
	assert.NotContains(t, p.Headers, "X-Title")
	assert.Nil(t, OpenRouter.Headers)
}
