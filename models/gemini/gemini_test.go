package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/Desarso/docassist/models"
)

func TestConvertMessages(t *testing.T) {
	contents, system, err := ConvertMessages([]models.Turn{
		models.SystemTurn("be helpful"),
		models.UserTurn("Hi"),
		models.AssistantTurn("Hello"),
		models.UserPartsTurn(models.TextPart("and this?"), models.ImagePart("image/png", "aGVsbG8=")),
	})
	require.NoError(t, err)

	assert.Equal(t, "be helpful", system)
	require.Len(t, contents, 3)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
	assert.Equal(t, "Hello", contents[1].Parts[0].Text)

	parts := contents[2].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "and this?", parts[0].Text)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/png", parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte("hello"), parts[1].InlineData.Data)
}

func TestConvertMessages_BadImage(t *testing.T) {
	_, _, err := ConvertMessages([]models.Turn{models.UserPartsTurn(models.ImagePart("image/png", "%%%"))})
	assert.ErrorIs(t, err, models.ErrInvalidTurn)
}

func TestNew_MissingKey(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash:generateContent"), r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "Photosynthesis makes sugar."}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 4, "totalTokenCount": 16},
			"modelVersion": "gemini-2.0-flash-001"
		}`))
	}))
	defer srv.Close()

	g, err := New("test-key")
	require.NoError(t, err)
	g.WithBaseURL(srv.URL)

	resp, err := g.Complete(context.Background(), models.Completion_Request{
		Temperature: models.Float(0.6),
		Messages:    []models.Turn{models.SystemTurn("sys"), models.UserTurn("What is photosynthesis?")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Photosynthesis makes sugar.", resp.Text)
	assert.Equal(t, "gemini-2.0-flash-001", resp.Model)
	assert.Equal(t, int64(16), resp.Usage.TotalTokens)
	assert.Contains(t, body, "systemInstruction")
	assert.Len(t, body["contents"], 1)
}

func TestComplete_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "API key not valid", "status": "PERMISSION_DENIED"}}`))
	}))
	defer srv.Close()

	g, err := New("bad-key")
	require.NoError(t, err)
	g.WithBaseURL(srv.URL)

	_, err = g.Complete(context.Background(), models.Completion_Request{Messages: []models.Turn{models.UserTurn("q")}})
	require.Error(t, err)
	assert.True(t, models.IsRemote(err))
	assert.Contains(t, err.Error(), "API key not valid")
}
