// Package normalize turns uploaded files into prompt-ready input: extracted
// text for PDFs and a base64 payload for images.
package normalize

import (
	"fmt"
	"image"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/go-fitz"

	"github.com/Desarso/docassist/logger"
	"github.com/Desarso/docassist/models"
)

// Document is the subset of a paginated document used for extraction.
// Pages are 0-based.
type Document interface {
	NumPage() int
	Text(page int) (string, error)
	Image(page int) (*image.RGBA, error)
	Close() error
}

// Opener opens a document from its raw bytes.
type Opener func(data []byte) (Document, error)

// OpenPDF opens a PDF held in memory with MuPDF.
func OpenPDF(data []byte) (Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Normalizer converts uploads into NormalizedInput.
type Normalizer struct {
	open             Opener
	referencesCutoff bool
	referencesMarker string
	logger           *log.Logger
}

// DefaultReferencesMarker is the page marker used by the references cutoff.
const DefaultReferencesMarker = "References"

// New creates a Normalizer backed by MuPDF with the references cutoff off.
func New() *Normalizer {
	return &Normalizer{
		open:             OpenPDF,
		referencesMarker: DefaultReferencesMarker,
		logger:           logger.Logger,
	}
}

// WithOpener replaces the document opener.
func (n *Normalizer) WithOpener(open Opener) *Normalizer {
	n.open = open
	return n
}

// WithReferencesCutoff enables dropping every page from the first page
// containing marker. An empty marker uses DefaultReferencesMarker.
func (n *Normalizer) WithReferencesCutoff(enabled bool, marker string) *Normalizer {
	n.referencesCutoff = enabled
	if marker == "" {
		marker = DefaultReferencesMarker
	}
	n.referencesMarker = marker
	return n
}

// WithLogger sets the logger used for page-level warnings.
func (n *Normalizer) WithLogger(l *log.Logger) *Normalizer {
	n.logger = l
	return n
}

// ReferencesCutoff reports whether the references cutoff is enabled.
func (n *Normalizer) ReferencesCutoff() bool {
	return n.referencesCutoff
}

// Normalize converts the upload according to its declared type.
func (n *Normalizer) Normalize(upload models.Upload) (models.NormalizedInput, error) {
	switch upload.DeclaredType {
	case models.DeclaredImage:
		return n.normalizeImage(upload)
	case models.DeclaredPDF:
		return n.normalizePDF(upload)
	default:
		return models.NormalizedInput{}, fmt.Errorf("%w: %q", models.ErrUnsupportedType, upload.Filename)
	}
}
