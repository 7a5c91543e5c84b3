package sessions

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/Desarso/docassist/completion"
	"github.com/Desarso/docassist/logger"
	"github.com/Desarso/docassist/models"
	"github.com/Desarso/docassist/normalize"
	"github.com/Desarso/docassist/prompt"
)

// stubInvoker records every call. When gate is set, calls block until it
// is closed or the context ends.
type stubInvoker struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   []prompt.MessageList
	started chan struct{}
	gate    chan struct{}
}

func (s *stubInvoker) Complete(ctx context.Context, call completion.Call, params completion.Params, messages prompt.MessageList) (completion.Reply, error) {
	s.mu.Lock()
	s.calls = append(s.calls, messages)
	s.mu.Unlock()

	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return completion.Reply{}, &models.RemoteServiceError{Provider: "stub", Err: ctx.Err()}
		}
	}
	if s.err != nil {
		return completion.Reply{}, s.err
	}
	return completion.Reply{Text: s.reply, Model: "stub-model", Usage: models.Usage{TotalTokens: 3}}, nil
}

func (s *stubInvoker) Calls() []prompt.MessageList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]prompt.MessageList(nil), s.calls...)
}

type textDocument struct {
	pages []string
}

func (d *textDocument) NumPage() int { return len(d.pages) }

func (d *textDocument) Text(page int) (string, error) {
	if page < 0 || page >= len(d.pages) {
		return "", errors.New("no such page")
	}
	return d.pages[page], nil
}

func (d *textDocument) Image(page int) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
}

func (d *textDocument) Close() error { return nil }

func pagesOpener(pages ...string) normalize.Opener {
	return func(data []byte) (normalize.Document, error) {
		return &textDocument{pages: pages}, nil
	}
}

func tutorProfile() Profile {
	return Profile{
		Name:        "tutor",
		Instruction: "You are a tutor.",
		MultiTurn:   true,
		Accepts:     []models.DeclaredType{models.DeclaredImage, models.DeclaredPDF},

		RetainAttachments: true,
	}
}

func newTestController(profile Profile, invoker Invoker, pages ...string) *Controller {
	n := normalize.New().WithOpener(pagesOpener(pages...)).WithLogger(logger.Discard())
	if profile.ReferencesCutoff {
		n = n.WithReferencesCutoff(true, normalize.DefaultReferencesMarker)
	}
	return NewController("session-1234567890", profile, n, invoker).WithLogger(logger.Discard())
}
