package models

// Notice levels.
const (
	NoticeWarning = "warning"
	NoticeError   = "error"
	NoticeInfo    = "info"
)

// Notice is a user-visible message that is not an assistant turn.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// UploadView describes the pending upload of a session.
type UploadView struct {
	Filename     string       `json:"filename"`
	DeclaredType DeclaredType `json:"declared_type"`
	Size         int          `json:"size"`
}

// SessionView is the renderable state of one session.
type SessionView struct {
	SessionID string      `json:"session_id"`
	Profile   string      `json:"profile"`
	State     string      `json:"state"`
	Turns     []TurnView  `json:"turns"`
	Upload    *UploadView `json:"upload,omitempty"`
}

// Chat_Response is returned after a submission, successful or not.
type Chat_Response struct {
	Reply  string      `json:"reply,omitempty"`
	Turns  []TurnView  `json:"turns"`
	Notice *Notice     `json:"notice,omitempty"`
	Usage  *Usage      `json:"usage,omitempty"`
	Upload *UploadView `json:"upload,omitempty"`
}

// WS frame types sent to the browser.
const (
	FrameState  = "state"
	FrameNotice = "notice"
	FrameDone   = "done"
)

// WS_Frame is one server-to-browser websocket message.
type WS_Frame struct {
	Type    string       `json:"type"`
	Session *SessionView `json:"session,omitempty"`
	Reply   string       `json:"reply,omitempty"`
	Notice  *Notice      `json:"notice,omitempty"`
}
