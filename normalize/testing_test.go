package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"image"
)

type fakeDocument struct {
	pages    []string
	failing  map[int]bool
	closed   bool
	textCall int
}

func (d *fakeDocument) NumPage() int { return len(d.pages) }

func (d *fakeDocument) Text(page int) (string, error) {
	d.textCall++
	if d.failing[page] {
		return "", fmt.Errorf("page %d: broken content stream", page)
	}
	return d.pages[page], nil
}

func (d *fakeDocument) Image(page int) (*image.RGBA, error) {
	if d.failing[page] {
		return nil, errors.New("cannot render")
	}
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

func (d *fakeDocument) Close() error {
	d.closed = true
	return nil
}

func openerFor(doc *fakeDocument) Opener {
	return func([]byte) (Document, error) { return doc, nil }
}

// buildPDF writes a minimal PDF with one line of Helvetica text per page.
func buildPDF(pages ...string) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	n := len(pages)
	// 1: catalog, 2: pages, 3: font, then a page/content pair per page.
	kids := ""
	for i := 0; i < n; i++ {
		kids += fmt.Sprintf("%d 0 R ", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	for i, text := range pages {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		stream := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", text)
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}
