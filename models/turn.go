package models

import (
	"fmt"
	"strings"
)

// Role tags a turn with its speaker.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PartKind identifies the payload carried by a Part.
type PartKind string

const (
	PartText  PartKind = "text"
	PartImage PartKind = "image"
)

// InlineData is base64-encoded media embedded directly in a turn.
type InlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// DataURI renders the payload as a data URI, e.g. "data:image/png;base64,...".
func (d InlineData) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", d.MimeType, d.Data)
}

// Part is one element of a multi-part turn.
type Part struct {
	Kind  PartKind    `json:"kind"`
	Text  string      `json:"text,omitempty"`
	Image *InlineData `json:"image,omitempty"`
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Kind: PartText, Text: text}
}

// ImagePart builds an inline image part.
func ImagePart(mimeType, base64Data string) Part {
	return Part{Kind: PartImage, Image: &InlineData{MimeType: mimeType, Data: base64Data}}
}

// Turn is one role-tagged message. Content is either Text (Parts == nil)
// or the ordered Parts.
type Turn struct {
	Role  Role   `json:"role"`
	Text  string `json:"text,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// SystemTurn, UserTurn and AssistantTurn build plain-text turns.
func SystemTurn(text string) Turn    { return Turn{Role: RoleSystem, Text: text} }
func UserTurn(text string) Turn      { return Turn{Role: RoleUser, Text: text} }
func AssistantTurn(text string) Turn { return Turn{Role: RoleAssistant, Text: text} }

// UserPartsTurn builds a multi-part user turn.
func UserPartsTurn(parts ...Part) Turn {
	return Turn{Role: RoleUser, Parts: parts}
}

// IsMultipart reports whether the turn carries structured parts.
func (t Turn) IsMultipart() bool {
	return t.Parts != nil
}

// PlainText returns the textual content of the turn, joining text parts
// with a newline for multi-part turns.
func (t Turn) PlainText() string {
	if !t.IsMultipart() {
		return t.Text
	}
	texts := make([]string, 0, len(t.Parts))
	for _, p := range t.Parts {
		if p.Kind == PartText && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Image returns the first image part, if any.
func (t Turn) Image() *InlineData {
	for _, p := range t.Parts {
		if p.Kind == PartImage && p.Image != nil {
			return p.Image
		}
	}
	return nil
}

// IsEmpty reports whether the turn has no text and no usable part.
func (t Turn) IsEmpty() bool {
	if !t.IsMultipart() {
		return strings.TrimSpace(t.Text) == ""
	}
	for _, p := range t.Parts {
		switch p.Kind {
		case PartText:
			if strings.TrimSpace(p.Text) != "" {
				return false
			}
		case PartImage:
			if p.Image != nil && p.Image.Data != "" {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy of the turn.
func (t Turn) Clone() Turn {
	if t.Parts == nil {
		return t
	}
	parts := make([]Part, len(t.Parts))
	for i, p := range t.Parts {
		parts[i] = p
		if p.Image != nil {
			img := *p.Image
			parts[i].Image = &img
		}
	}
	t.Parts = parts
	return t
}

// CloneTurns deep-copies a turn sequence.
func CloneTurns(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	for i, t := range turns {
		out[i] = t.Clone()
	}
	return out
}
