package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/Desarso/docassist/completion"
	"github.com/Desarso/docassist/models"
	"github.com/Desarso/docassist/prompt"
)

// State is the position of a controller in its submit cycle.
type State string

const (
	StateIdle          State = "idle"
	StateAwaitingInput State = "awaiting_input"
	StateProcessing    State = "processing"
)

// Profile is the fixed configuration of one assistant variant.
type Profile struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Instruction string `json:"-"`

	Params completion.Params `json:"-"`

	// MultiTurn profiles send the whole conversation with every request.
	// Single-shot profiles send only the new turn and keep only the latest
	// exchange.
	MultiTurn bool                  `json:"multi_turn"`
	Accepts   []models.DeclaredType `json:"accepts"`

	ReferencesCutoff bool          `json:"references_cutoff"`
	ReferencesMarker string        `json:"-"`
	Policy           prompt.Policy `json:"-"`

	// RetainAttachments keeps the assembled user turn, attachment included,
	// in the conversation. Otherwise only the typed text is kept.
	RetainAttachments bool `json:"retain_attachments"`
}

// AcceptsType reports whether the profile takes uploads of type t.
func (p Profile) AcceptsType(t models.DeclaredType) bool {
	for _, a := range p.Accepts {
		if a == t {
			return true
		}
	}
	return false
}

// Invoker is the completion capability used by a controller.
type Invoker interface {
	Complete(ctx context.Context, call completion.Call, params completion.Params, messages prompt.MessageList) (completion.Reply, error)
}

// Result is the outcome of one controller action. Err is kept for
// transports that map outcomes to status codes; Notice is what the user sees.
type Result struct {
	Session models.SessionView `json:"session"`
	Reply   string             `json:"reply,omitempty"`
	Usage   *models.Usage      `json:"usage,omitempty"`
	Notice  *models.Notice     `json:"notice,omitempty"`
	Err     error              `json:"-"`
}

// OK reports whether the action succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// WebSocketWriter serializes all writes to one websocket connection.
type WebSocketWriter struct {
	Conn         *websocket.Conn
	Logger       *log.Logger
	WriteTimeout time.Duration
	mu           sync.Mutex
}

// WriteFrame sends one frame.
func (w *WebSocketWriter) WriteFrame(frame models.WS_Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.WriteTimeout > 0 {
		_ = w.Conn.SetWriteDeadline(time.Now().Add(w.WriteTimeout))
	}
	return w.Conn.WriteJSON(frame)
}

// WriteState sends the current session view, with the reply when there is one.
func (w *WebSocketWriter) WriteState(result Result) error {
	session := result.Session
	return w.WriteFrame(models.WS_Frame{Type: models.FrameState, Session: &session, Reply: result.Reply})
}

// WriteNotice sends a user-visible notice.
func (w *WebSocketWriter) WriteNotice(notice *models.Notice) error {
	return w.WriteFrame(models.WS_Frame{Type: models.FrameNotice, Notice: notice})
}

// WriteDone marks the end of a submission.
func (w *WebSocketWriter) WriteDone() error {
	return w.WriteFrame(models.WS_Frame{Type: models.FrameDone})
}
