package normalize

import "strings"

// CutAtReferences drops every page from the first page whose text contains
// marker. It returns the kept pages and the 1-based number of the page where
// the cut happened, or 0 when no page matched. The match is a plain,
// case-sensitive substring test.
func CutAtReferences(pages []Page, marker string) ([]Page, int) {
	if marker == "" {
		return pages, 0
	}
	for i, p := range pages {
		if strings.Contains(p.Text, marker) {
			return pages[:i], p.Number
		}
	}
	return pages, 0
}
