// Package summarize produces a one-shot report for a scientific article:
// its title, its author and a structured summary.
package summarize

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Desarso/docassist/completion"
	"github.com/Desarso/docassist/logger"
	"github.com/Desarso/docassist/models"
	"github.com/Desarso/docassist/normalize"
	"github.com/Desarso/docassist/prompt"
)

// ProfileName labels the calls made by the summarizer.
const ProfileName = "summary"

const (
	// DefaultHeadChars is how much of the document the title and author
	// questions see.
	DefaultHeadChars = 1000
	DefaultLanguage  = "German"
)

// Invoker is the completion capability used by the summarizer.
type Invoker interface {
	Complete(ctx context.Context, call completion.Call, params completion.Params, messages prompt.MessageList) (completion.Reply, error)
}

// Report is the result of one summarization.
type Report struct {
	Filename        string        `json:"filename"`
	Title           string        `json:"title"`
	Author          string        `json:"author"`
	Summary         string        `json:"summary"`
	PageCount       int           `json:"page_count"`
	TruncatedAtPage int           `json:"truncated_at_page,omitempty"`
	FailedPages     []int         `json:"failed_pages,omitempty"`
	Usage           models.Usage  `json:"usage"`
	Duration        time.Duration `json:"duration"`
}

// Text renders the downloadable form of the report.
func (r Report) Text() string {
	return fmt.Sprintf("Titel: %s\nAutor: %s\n\n%s", r.Title, r.Author, r.Summary)
}

// Markdown renders the report for a terminal or a browser.
func (r Report) Markdown() string {
	var b strings.Builder
	title := r.Title
	if title == "" {
		title = r.Filename
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if r.Author != "" {
		fmt.Fprintf(&b, "*%s*\n\n", r.Author)
	}
	b.WriteString(r.Summary)
	b.WriteString("\n")
	return b.String()
}

// DownloadName returns the report filename for an upload: paper.pdf
// becomes paper.txt.
func DownloadName(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		base = "summary"
	}
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".pdf") {
		base = strings.TrimSuffix(base, ext)
	}
	return base + ".txt"
}

// Summarizer asks three questions about one document: title, author and
// summary. Each is a separate single-shot completion.
type Summarizer struct {
	normalizer  *normalize.Normalizer
	invoker     Invoker
	params      completion.Params
	instruction string
	language    string
	headChars   int
	policy      prompt.Policy
	logger      *log.Logger
}

// New creates a summarizer. The normalizer decides whether references are
// cut off.
func New(normalizer *normalize.Normalizer, invoker Invoker, params completion.Params) *Summarizer {
	return &Summarizer{
		normalizer:  normalizer,
		invoker:     invoker,
		params:      params,
		instruction: prompt.SummaryInstruction,
		language:    DefaultLanguage,
		headChars:   DefaultHeadChars,
		logger:      logger.Logger.WithPrefix("[SUMMARY]"),
	}
}

// WithLanguage sets the language of the summary.
func (s *Summarizer) WithLanguage(language string) *Summarizer {
	if language != "" {
		s.language = language
	}
	return s
}

// WithInstruction replaces the system instruction.
func (s *Summarizer) WithInstruction(instruction string) *Summarizer {
	s.instruction = instruction
	return s
}

// WithPolicy caps the document sent for the summary.
func (s *Summarizer) WithPolicy(policy prompt.Policy) *Summarizer {
	s.policy = policy
	return s
}

// WithLogger replaces the logger.
func (s *Summarizer) WithLogger(l *log.Logger) *Summarizer {
	s.logger = l
	return s
}

// Summarize builds the report for a PDF upload.
func (s *Summarizer) Summarize(ctx context.Context, upload models.Upload) (Report, error) {
	start := time.Now()
	if upload.DeclaredType == "" {
		upload.DeclaredType = normalize.DeclaredTypeFor(upload.Filename)
	}
	if upload.DeclaredType != models.DeclaredPDF {
		return Report{}, fmt.Errorf("%w: %q is not a PDF", models.ErrUnsupportedType, upload.Filename)
	}
	if upload.Size() > models.MaxUploadBytes {
		return Report{}, fmt.Errorf("%w: %s is %d bytes", models.ErrUploadTooLarge, upload.Filename, upload.Size())
	}

	input, err := s.normalizer.Normalize(upload)
	if err != nil {
		return Report{}, err
	}
	if !input.Usable() {
		return Report{}, fmt.Errorf("%w: %s contains no extractable text", models.ErrExtraction, upload.Filename)
	}

	report := Report{
		Filename:        upload.Filename,
		PageCount:       input.PageCount,
		TruncatedAtPage: input.TruncatedAtPage,
		FailedPages:     input.FailedPages,
	}
	call := completion.Call{SessionID: "summary-" + uuid.New().String(), Profile: ProfileName}
	head := prompt.Policy{MaxDocumentChars: s.headChars}

	title, err := s.ask(ctx, call, input.Text, prompt.TitleQuery, head, &report.Usage)
	if err != nil {
		return Report{}, err
	}
	report.Title = clearSentinel(title, prompt.NoTitleAnswer)

	author, err := s.ask(ctx, call, input.Text, prompt.AuthorQuery, head, &report.Usage)
	if err != nil {
		return Report{}, err
	}
	report.Author = clearSentinel(author, prompt.NoAuthorAnswer)

	summary, err := s.ask(ctx, call, input.Text, fmt.Sprintf(prompt.SummaryQueryTemplate, s.language), s.policy, &report.Usage)
	if err != nil {
		return Report{}, err
	}
	report.Summary = summary
	report.Duration = time.Since(start)

	s.logger.Info("summary created",
		"file", upload.Filename,
		"pages", report.PageCount,
		"cut_at", report.TruncatedAtPage,
		"tokens", report.Usage.TotalTokens,
		"duration", report.Duration)
	return report, nil
}

func (s *Summarizer) ask(ctx context.Context, call completion.Call, document, query string, policy prompt.Policy, usage *models.Usage) (string, error) {
	input := &models.NormalizedInput{Kind: models.InputText, Text: document}
	messages, err := prompt.Assemble(s.instruction, nil, query, input, policy)
	if err != nil {
		return "", err
	}
	reply, err := s.invoker.Complete(ctx, call, s.params, messages)
	if err != nil {
		return "", err
	}
	usage.PromptTokens += reply.Usage.PromptTokens
	usage.CompletionTokens += reply.Usage.CompletionTokens
	usage.TotalTokens += reply.Usage.TotalTokens
	return reply.Text, nil
}

// clearSentinel maps the model's "nothing found" answer to "".
func clearSentinel(answer, sentinel string) string {
	trimmed := strings.TrimSpace(strings.Trim(strings.TrimSpace(answer), `"'.`))
	if strings.EqualFold(trimmed, sentinel) {
		return ""
	}
	return strings.TrimSpace(answer)
}
