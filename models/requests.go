package models

// Chat_Request is the body of a message submission.
type Chat_Request struct {
	Text string `json:"text"`
}

// Session_Request is the body of a session creation call.
type Session_Request struct {
	// Profile selects the assistant profile; empty means the server default.
	Profile string `json:"profile,omitempty"`
}

// WS event types sent by the browser.
const (
	EventSubmit      = "submit"
	EventUpload      = "upload"
	EventClearUpload = "clear_upload"
	EventNewChat     = "new_chat"
)

// WS_Event is one discrete user action received over the websocket.
type WS_Event struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Filename string `json:"filename,omitempty"`
	// Data is the base64-encoded file body for upload events.
	Data string `json:"data,omitempty"`
}
