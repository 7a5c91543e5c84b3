package stores

import (
	"fmt"
	"sync"

	"github.com/Desarso/docassist/models"
)

// Conversation is the in-memory turn log of one session. It only grows by
// whole user/assistant pairs, so readers never observe an odd length.
type Conversation struct {
	mu    sync.RWMutex
	turns []models.Turn
}

// NewConversation returns an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// AppendExchange appends a user turn and its assistant reply. Both are
// validated first; on error the conversation is left unchanged.
func (c *Conversation) AppendExchange(user, assistant models.Turn) error {
	if err := validateExchange(user, assistant); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, user.Clone(), assistant.Clone())
	return nil
}

// ReplaceWith swaps the whole conversation for a single exchange. The pair
// is validated first; on error the conversation is left unchanged.
func (c *Conversation) ReplaceWith(user, assistant models.Turn) error {
	if err := validateExchange(user, assistant); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = []models.Turn{user.Clone(), assistant.Clone()}
	return nil
}

// Clear empties the conversation.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
}

// Snapshot returns a deep copy of the turns, oldest first.
func (c *Conversation) Snapshot() []models.Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.CloneTurns(c.turns)
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

func validateExchange(user, assistant models.Turn) error {
	if user.Role != models.RoleUser {
		return fmt.Errorf("%w: first turn has role %q, want %q", models.ErrInvalidTurn, user.Role, models.RoleUser)
	}
	if assistant.Role != models.RoleAssistant {
		return fmt.Errorf("%w: second turn has role %q, want %q", models.ErrInvalidTurn, assistant.Role, models.RoleAssistant)
	}
	if user.IsEmpty() {
		return fmt.Errorf("%w: user turn is empty", models.ErrInvalidTurn)
	}
	if assistant.IsMultipart() {
		return fmt.Errorf("%w: assistant turn must be plain text", models.ErrInvalidTurn)
	}
	if assistant.IsEmpty() {
		return fmt.Errorf("%w: assistant turn is empty", models.ErrInvalidTurn)
	}
	return nil
}
