package normalize

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/Desarso/docassist/models"
)

// Preview is a renderable thumbnail of an upload.
type Preview struct {
	MediaType string
	Data      []byte
}

// Preview renders the first page of a PDF as PNG. Images are returned as
// they were uploaded.
func (n *Normalizer) Preview(upload models.Upload) (Preview, error) {
	switch upload.DeclaredType {
	case models.DeclaredImage:
		return Preview{MediaType: DetectImageType(upload.Filename, upload.Data), Data: upload.Data}, nil
	case models.DeclaredPDF:
		return n.previewPDF(upload)
	default:
		return Preview{}, fmt.Errorf("%w: %q", models.ErrUnsupportedType, upload.Filename)
	}
}

func (n *Normalizer) previewPDF(upload models.Upload) (Preview, error) {
	if len(upload.Data) == 0 {
		return Preview{}, fmt.Errorf("%w: %s is empty", models.ErrExtraction, upload.Filename)
	}
	doc, err := n.open(upload.Data)
	if err != nil {
		return Preview{}, fmt.Errorf("%w: %s: %v", models.ErrExtraction, upload.Filename, err)
	}
	defer func() {
		_ = doc.Close()
	}()

	if doc.NumPage() == 0 {
		return Preview{}, fmt.Errorf("%w: %s has no pages", models.ErrExtraction, upload.Filename)
	}
	img, err := doc.Image(0)
	if err != nil {
		return Preview{}, fmt.Errorf("failed to render first page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Preview{}, fmt.Errorf("failed to encode preview: %w", err)
	}
	return Preview{MediaType: "image/png", Data: buf.Bytes()}, nil
}
