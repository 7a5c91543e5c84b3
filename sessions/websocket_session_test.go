package sessions

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Desarso/docassist/logger"
	"github.com/Desarso/docassist/models"
)

func startWSSession(t *testing.T, c *Controller) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		session := NewWSSession(c, conn)
		session.Logger = logger.Discard()
		session.Writer.Logger = session.Logger
		_ = session.Run(context.Background())
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) models.WS_Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frame models.WS_Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestWSSession_SubmitFlow(t *testing.T) {
	c := newTestController(tutorProfile(), &stubInvoker{reply: "Plants turn light into sugar."})
	conn := startWSSession(t, c)

	initial := readFrame(t, conn)
	assert.Equal(t, models.FrameState, initial.Type)
	require.NotNil(t, initial.Session)
	assert.Equal(t, string(StateIdle), initial.Session.State)

	require.NoError(t, conn.WriteJSON(models.WS_Event{Type: models.EventSubmit, Text: "What is photosynthesis?"}))

	state := readFrame(t, conn)
	assert.Equal(t, models.FrameState, state.Type)
	assert.Equal(t, "Plants turn light into sugar.", state.Reply)
	assert.Len(t, state.Session.Turns, 2)
	assert.Equal(t, models.FrameDone, readFrame(t, conn).Type)
}

func TestWSSession_UploadAndNotices(t *testing.T) {
	c := newTestController(tutorProfile(), &stubInvoker{reply: "unused"})
	conn := startWSSession(t, c)
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(models.WS_Event{
		Type:     models.EventUpload,
		Filename: "notes.txt",
		Data:     base64.StdEncoding.EncodeToString([]byte("hello")),
	}))
	readFrame(t, conn)
	notice := readFrame(t, conn)
	assert.Equal(t, models.FrameNotice, notice.Type)
	require.NotNil(t, notice.Notice)
	assert.Equal(t, models.NoticeWarning, notice.Notice.Level)

	require.NoError(t, conn.WriteJSON(models.WS_Event{
		Type:     models.EventUpload,
		Filename: "cat.png",
		Data:     base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\nrest")),
	}))
	state := readFrame(t, conn)
	require.NotNil(t, state.Session.Upload)
	assert.Equal(t, "cat.png", state.Session.Upload.Filename)
	assert.Equal(t, string(StateAwaitingInput), state.Session.State)

	require.NoError(t, conn.WriteJSON(models.WS_Event{Type: models.EventClearUpload}))
	state = readFrame(t, conn)
	assert.Nil(t, state.Session.Upload)

	require.NoError(t, conn.WriteJSON(models.WS_Event{Type: models.EventUpload, Filename: "cat.png", Data: "%%%"}))
	readFrame(t, conn)
	assert.Equal(t, models.FrameNotice, readFrame(t, conn).Type)

	require.NoError(t, conn.WriteJSON(models.WS_Event{Type: "dance"}))
	readFrame(t, conn)
	assert.Contains(t, readFrame(t, conn).Notice.Message, "dance")
}

func TestWSSession_NewChatWhileProcessing(t *testing.T) {
	inv := &stubInvoker{reply: "late", started: make(chan struct{}, 1), gate: make(chan struct{})}
	c := newTestController(tutorProfile(), inv)
	conn := startWSSession(t, c)
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(models.WS_Event{Type: models.EventSubmit, Text: "question"}))
	<-inv.started

	require.NoError(t, conn.WriteJSON(models.WS_Event{Type: models.EventSubmit, Text: "again"}))
	readFrame(t, conn)
	busy := readFrame(t, conn)
	require.NotNil(t, busy.Notice)
	assert.Equal(t, models.NoticeWarning, busy.Notice.Level)

	require.NoError(t, conn.WriteJSON(models.WS_Event{Type: models.EventNewChat}))
	cleared := readFrame(t, conn)
	assert.Empty(t, cleared.Session.Turns)

	close(inv.gate)
	state := readFrame(t, conn)
	assert.Empty(t, state.Reply)
	assert.Empty(t, state.Session.Turns)
	assert.Equal(t, models.FrameNotice, readFrame(t, conn).Type)
	assert.Equal(t, models.FrameDone, readFrame(t, conn).Type)
}
