package normalize

import (
	"fmt"
	"strings"

	"github.com/Desarso/docassist/models"
)

// PageSeparator joins the text of consecutive pages.
const PageSeparator = "\n\n"

func (n *Normalizer) normalizePDF(upload models.Upload) (models.NormalizedInput, error) {
	result := models.NormalizedInput{Kind: models.InputText}
	if len(upload.Data) == 0 {
		return result, nil
	}

	doc, err := n.open(upload.Data)
	if err != nil {
		return models.NormalizedInput{}, fmt.Errorf("%w: %s: %v", models.ErrExtraction, upload.Filename, err)
	}
	defer func() {
		_ = doc.Close()
	}()

	pages, failed := n.extractPages(doc, upload.Filename)
	result.PageCount = doc.NumPage()
	result.FailedPages = failed

	if n.referencesCutoff {
		pages, result.TruncatedAtPage = CutAtReferences(pages, n.referencesMarker)
	}

	result.Text = JoinPages(pages)
	return result, nil
}

// Page is the extracted text of one page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// extractPages reads every page in order. Pages whose extraction fails are
// skipped and reported by number.
func (n *Normalizer) extractPages(doc Document, filename string) ([]Page, []int) {
	total := doc.NumPage()
	pages := make([]Page, 0, total)
	var failed []int
	for i := 0; i < total; i++ {
		text, err := doc.Text(i)
		if err != nil {
			failed = append(failed, i+1)
			if n.logger != nil {
				n.logger.Warn("skipping unreadable page", "file", filename, "page", i+1, "err", err)
			}
			continue
		}
		pages = append(pages, Page{Number: i + 1, Text: strings.TrimSpace(text)})
	}
	return pages, failed
}

// JoinPages concatenates page texts in order, separated by a blank line.
func JoinPages(pages []Page) string {
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Text
	}
	return strings.Join(texts, PageSeparator)
}
