package prompt

import (
	"fmt"
	"unicode/utf8"
)

// Policy holds the configurable parts of prompt assembly.
type Policy struct {
	// MaxDocumentChars caps embedded document text, counted in runes.
	// Zero means unlimited.
	MaxDocumentChars int
}

// TruncationMarker is appended to a document cut by MaxDocumentChars.
const TruncationMarker = "[document truncated after %d characters]"

// truncateDocument applies MaxDocumentChars, cutting on a rune boundary.
func (p Policy) truncateDocument(text string) (string, bool) {
	if p.MaxDocumentChars <= 0 || utf8.RuneCountInString(text) <= p.MaxDocumentChars {
		return text, false
	}
	runes := 0
	for i := range text {
		if runes == p.MaxDocumentChars {
			return text[:i] + "\n" + fmt.Sprintf(TruncationMarker, p.MaxDocumentChars), true
		}
		runes++
	}
	return text, false
}
