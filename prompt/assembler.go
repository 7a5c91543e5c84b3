// Package prompt builds the ordered message list sent to a chat-completion
// backend from the system instruction, the conversation so far and the new
// user input.
package prompt

import (
	"fmt"
	"strings"

	"github.com/Desarso/docassist/models"
)

// MessageList is an assembled request: one system turn, the prior
// conversation, then the new user turn.
type MessageList []models.Turn

// UserTurn returns the new user turn, the last element of the list.
func (m MessageList) UserTurn() models.Turn {
	if len(m) == 0 {
		return models.Turn{}
	}
	return m[len(m)-1]
}

// History returns the prior conversation carried by the list.
func (m MessageList) History() []models.Turn {
	if len(m) < 2 {
		return nil
	}
	return m[1 : len(m)-1]
}

// Assemble builds the message list. It reads nothing besides its
// arguments and never modifies snapshot. input may be nil.
//
// With no usable attachment and blank text it returns ErrEmptyInput.
func Assemble(instruction string, snapshot []models.Turn, text string, input *models.NormalizedInput, policy Policy) (MessageList, error) {
	user, err := BuildUserTurn(text, input, policy)
	if err != nil {
		return nil, err
	}

	messages := make(MessageList, 0, len(snapshot)+2)
	messages = append(messages, models.SystemTurn(instruction))
	messages = append(messages, models.CloneTurns(snapshot)...)
	messages = append(messages, user)
	return messages, nil
}

// BuildUserTurn builds the new user turn:
//   - no attachment: the text itself
//   - image: a text part (when text is not blank) followed by the image
//   - document: text wrapping the document and the query in labelled sections
func BuildUserTurn(text string, input *models.NormalizedInput, policy Policy) (models.Turn, error) {
	blank := strings.TrimSpace(text) == ""

	if !input.Usable() {
		if blank {
			return models.Turn{}, models.ErrEmptyInput
		}
		return models.UserTurn(text), nil
	}

	switch input.Kind {
	case models.InputImage:
		parts := make([]models.Part, 0, 2)
		if !blank {
			parts = append(parts, models.TextPart(text))
		}
		parts = append(parts, models.ImagePart(input.MediaType, input.Base64))
		return models.UserPartsTurn(parts...), nil
	case models.InputText:
		document, _ := policy.truncateDocument(input.Text)
		return models.UserTurn(WrapDocument(document, text)), nil
	default:
		return models.Turn{}, fmt.Errorf("unknown input kind %q", input.Kind)
	}
}

// WrapDocument places document text and the user's query in clearly
// delimited sections so the model can tell source material from instruction.
func WrapDocument(document, query string) string {
	var b strings.Builder
	b.WriteString("*** Document ***\n<document>\n")
	b.WriteString(document)
	b.WriteString("\n</document>\n*** User query ***\n<query>\n")
	b.WriteString(query)
	b.WriteString("\n</query>")
	return b.String()
}
