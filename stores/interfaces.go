package stores

import (
	"time"
)

// Trace statuses.
const (
	TraceOK    = "ok"
	TraceError = "error"
)

// CompletionTrace records metadata about one chat-completion call. Message
// content is never stored.
type CompletionTrace struct {
	ID               uint      `gorm:"primarykey" json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	SessionID        string    `gorm:"index:idx_trace_session" json:"session_id"`
	Profile          string    `json:"profile"`
	Provider         string    `gorm:"not null" json:"provider"`
	Model            string    `json:"model"`
	Status           string    `gorm:"not null" json:"status"`
	Messages         int       `json:"messages"`
	HasImage         bool      `json:"has_image"`
	DurationMS       int64     `json:"duration_ms"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	TotalTokens      int64     `json:"total_tokens"`
	Error            string    `gorm:"type:text" json:"error,omitempty"`
}

// TraceStore persists completion traces.
type TraceStore interface {
	SaveTrace(trace *CompletionTrace) error
	GetTracesBySession(sessionID string) ([]*CompletionTrace, error)
	DeleteTracesBySession(sessionID string) error
	Ping() error
	Close() error
}

// StoreConfig holds configuration for the trace database.
type StoreConfig struct {
	Type       string            `json:"type" mapstructure:"type"`             // "sqlite", "postgres" or "" for none
	Connection string            `json:"connection" mapstructure:"connection"` // file path or DSN
	Options    map[string]string `json:"options" mapstructure:"options"`
}

// NewStoreConfig creates a new store configuration
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:       storeType,
		Connection: connection,
		Options:    make(map[string]string),
	}
}

// WithOption adds an option to the store configuration
func (c *StoreConfig) WithOption(key, value string) *StoreConfig {
	if c.Options == nil {
		c.Options = make(map[string]string)
	}
	c.Options[key] = value
	return c
}

// Enabled reports whether a trace database is configured.
func (c *StoreConfig) Enabled() bool {
	return c != nil && c.Type != "" && c.Type != "none"
}
