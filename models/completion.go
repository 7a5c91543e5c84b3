package models

import "context"

// Completion_Request is the provider-agnostic form of one chat-completion call.
// Messages already contains the system turn at index 0.
type Completion_Request struct {
	Model       string
	Temperature *float64
	MaxTokens   int
	Messages    []Turn
}

// Usage holds token accounting reported by the provider, when available.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Completion_Response is the single assistant message returned by a provider.
type Completion_Response struct {
	Text  string
	Model string
	Usage Usage
}

// Completer is a stateless chat-completion capability: an ordered message
// list in, one assistant message (or an error) out.
type Completer interface {
	Provider() string
	Complete(ctx context.Context, request Completion_Request) (Completion_Response, error)
}

// Float returns a pointer to f.
func Float(f float64) *float64 {
	return &f
}
