package models

// MaxUploadBytes is the upload size cap enforced before any pipeline run.
const MaxUploadBytes = 10 * 1024 * 1024

// DeclaredType is the kind of file an upload claims to be.
type DeclaredType string

const (
	DeclaredImage       DeclaredType = "image"
	DeclaredPDF         DeclaredType = "pdf"
	DeclaredUnsupported DeclaredType = "unsupported"
)

// Upload is a user-provided file. It lives for one submission only; only
// its normalized form ever reaches the conversation.
type Upload struct {
	Filename     string
	Data         []byte
	DeclaredType DeclaredType
}

// Size returns the upload size in bytes.
func (u *Upload) Size() int {
	if u == nil {
		return 0
	}
	return len(u.Data)
}

// InputKind tells how a NormalizedInput is embedded into a prompt.
type InputKind string

const (
	InputText  InputKind = "text"
	InputImage InputKind = "image"
)

// NormalizedInput is the prompt-ready form of an upload: extracted text for
// documents, a base64 payload for images.
type NormalizedInput struct {
	Kind      InputKind
	Text      string
	Base64    string
	MediaType string
	// PageCount is the number of pages in the source document (documents only).
	PageCount int
	// FailedPages lists 1-based pages whose text could not be extracted.
	FailedPages []int
	// TruncatedAtPage is the 1-based page where a references cutoff dropped
	// the remainder of the document, or 0.
	TruncatedAtPage int
}

// Usable reports whether the input carries anything worth sending.
func (n *NormalizedInput) Usable() bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case InputImage:
		return n.Base64 != ""
	case InputText:
		return n.Text != ""
	}
	return false
}
