package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Desarso/docassist/completion"
	"github.com/Desarso/docassist/metrics"
	"github.com/Desarso/docassist/models"
	"github.com/Desarso/docassist/normalize"
	"github.com/Desarso/docassist/prompt"
	"github.com/Desarso/docassist/stores"
)

// Controller runs the submit pipeline for one session and owns its
// conversation. All actions are safe for concurrent use; at most one
// submission is in flight at a time.
type Controller struct {
	mu           sync.Mutex
	id           string
	profile      Profile
	normalizer   *normalize.Normalizer
	invoker      Invoker
	conversation *stores.Conversation
	upload       *models.Upload
	processing   bool
	// epoch is bumped by NewChat so an exchange started before the clear
	// is dropped instead of appended.
	epoch      uint64
	lastActive time.Time
	timeout    time.Duration
	metrics    *metrics.Metrics
	logger     *log.Logger
}

// ID returns the session id.
func (c *Controller) ID() string {
	return c.id
}

// Profile returns the controller's profile.
func (c *Controller) Profile() Profile {
	return c.profile
}

// WithTimeout bounds every completion call. Zero means no bound.
func (c *Controller) WithTimeout(d time.Duration) *Controller {
	c.timeout = d
	return c
}

// WithMetrics records submission and upload outcomes.
func (c *Controller) WithMetrics(m *metrics.Metrics) *Controller {
	c.metrics = m
	return c
}

// WithLogger replaces the session logger.
func (c *Controller) WithLogger(l *log.Logger) *Controller {
	c.logger = l
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	switch {
	case c.processing:
		return StateProcessing
	case c.upload != nil:
		return StateAwaitingInput
	default:
		return StateIdle
	}
}

// LastActive returns when the session last handled an action.
func (c *Controller) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Touch marks the session as active.
func (c *Controller) Touch() {
	c.mu.Lock()
	c.lastActive = time.Now()
	c.mu.Unlock()
}

// Turns returns a snapshot of the conversation, oldest first.
func (c *Controller) Turns() []models.Turn {
	return c.conversation.Snapshot()
}

// View returns the renderable state of the session.
func (c *Controller) View() models.SessionView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() models.SessionView {
	view := models.SessionView{
		SessionID: c.id,
		Profile:   c.profile.Name,
		State:     string(c.stateLocked()),
		Turns:     models.ViewTurns(c.conversation.Snapshot()),
	}
	if c.upload != nil {
		view.Upload = &models.UploadView{
			Filename:     c.upload.Filename,
			DeclaredType: c.upload.DeclaredType,
			Size:         c.upload.Size(),
		}
	}
	return view
}

func (c *Controller) result(err error) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Result{Session: c.viewLocked(), Notice: NoticeFor(err), Err: err}
}

// SetUpload replaces the pending upload. It is rejected while a submission
// is in flight, when the file is over models.MaxUploadBytes, or when its
// type is not accepted by the profile.
func (c *Controller) SetUpload(filename string, data []byte) Result {
	declared := normalize.DeclaredTypeFor(filename)

	err := c.setUpload(filename, data, declared)
	c.countUpload(declared, err)
	if err != nil {
		c.logger.Warn("upload rejected", "file", filename, "size", len(data), "err", err)
	} else {
		c.logger.Info("upload accepted", "file", filename, "type", declared, "size", len(data))
	}
	return c.result(err)
}

func (c *Controller) setUpload(filename string, data []byte, declared models.DeclaredType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActive = time.Now()

	if c.processing {
		return models.ErrBusy
	}
	if len(data) > models.MaxUploadBytes {
		return fmt.Errorf("%w: %s is %d bytes, the limit is %d", models.ErrUploadTooLarge, filename, len(data), models.MaxUploadBytes)
	}
	if declared == models.DeclaredUnsupported || !c.profile.AcceptsType(declared) {
		return fmt.Errorf("%w: %q", models.ErrUnsupportedType, filename)
	}

	c.upload = &models.Upload{Filename: filename, Data: data, DeclaredType: declared}
	return nil
}

// ClearUpload drops the pending upload. It is rejected while a submission
// is in flight.
func (c *Controller) ClearUpload() Result {
	c.mu.Lock()
	c.lastActive = time.Now()
	var err error
	if c.processing {
		err = models.ErrBusy
	} else {
		c.upload = nil
	}
	c.mu.Unlock()
	return c.result(err)
}

// NewChat clears the conversation and the pending upload. It is allowed at
// any time; a reply still in flight is discarded when it arrives.
func (c *Controller) NewChat() Result {
	c.mu.Lock()
	c.lastActive = time.Now()
	c.epoch++
	c.upload = nil
	c.conversation.Clear()
	c.mu.Unlock()
	c.logger.Info("chat cleared")
	return c.result(nil)
}

// Preview renders the pending upload for display.
func (c *Controller) Preview() (normalize.Preview, error) {
	c.mu.Lock()
	upload := c.upload
	c.mu.Unlock()
	if upload == nil {
		return normalize.Preview{}, errors.New("no pending upload")
	}
	return c.normalizer.Preview(*upload)
}

// Submit runs normalize, assemble and complete for text and the pending
// upload. On success the exchange is appended and the upload is consumed.
// On any failure the conversation is left unchanged and the failure is
// reported in the result's notice.
func (c *Controller) Submit(ctx context.Context, text string) Result {
	c.mu.Lock()
	c.lastActive = time.Now()
	if c.processing {
		c.mu.Unlock()
		return c.finish(models.ErrBusy)
	}
	upload := c.upload
	if strings.TrimSpace(text) == "" && upload == nil {
		c.mu.Unlock()
		return c.finish(models.ErrEmptyInput)
	}
	epoch := c.epoch
	var history []models.Turn
	if c.profile.MultiTurn {
		history = c.conversation.Snapshot()
	}
	c.processing = true
	c.mu.Unlock()

	user, reply, notice, err := c.run(ctx, text, upload, history)

	c.mu.Lock()
	c.processing = false
	c.lastActive = time.Now()
	if err != nil {
		c.mu.Unlock()
		return c.finish(err)
	}
	if epoch != c.epoch {
		c.mu.Unlock()
		c.logger.Info("discarding reply for a cleared chat")
		c.countSubmission("discarded")
		result := c.result(nil)
		result.Notice = &models.Notice{Level: models.NoticeInfo, Message: "The chat was cleared while the answer was on its way, so it was discarded."}
		return result
	}
	store := c.conversation.AppendExchange
	if !c.profile.MultiTurn {
		store = c.conversation.ReplaceWith
	}
	if err := store(user, models.AssistantTurn(reply.Text)); err != nil {
		c.mu.Unlock()
		return c.finish(err)
	}
	if c.upload == upload {
		c.upload = nil
	}
	view := c.viewLocked()
	c.mu.Unlock()

	c.countSubmission("ok")
	usage := reply.Usage
	return Result{Session: view, Reply: reply.Text, Usage: &usage, Notice: notice}
}

// run is the pipeline itself. It reads nothing from the controller that is
// guarded by mu.
func (c *Controller) run(ctx context.Context, text string, upload *models.Upload, history []models.Turn) (models.Turn, completion.Reply, *models.Notice, error) {
	if err := stores.CheckAlternation(history); err != nil {
		return models.Turn{}, completion.Reply{}, nil, err
	}

	var input *models.NormalizedInput
	var notice *models.Notice
	if upload != nil {
		normalized, err := c.normalizer.Normalize(*upload)
		if err != nil {
			return models.Turn{}, completion.Reply{}, nil, err
		}
		input = &normalized
		notice = extractionNotice(upload, input, text)
	}

	messages, err := prompt.Assemble(c.profile.Instruction, history, text, input, c.profile.Policy)
	if err != nil {
		return models.Turn{}, completion.Reply{}, nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	reply, err := c.invoker.Complete(ctx, completion.Call{SessionID: c.id, Profile: c.profile.Name}, c.profile.Params, messages)
	if err != nil {
		return models.Turn{}, completion.Reply{}, nil, err
	}

	user := messages.UserTurn()
	if !c.profile.RetainAttachments && strings.TrimSpace(text) != "" {
		user = models.UserTurn(text)
	}
	return user, reply, notice, nil
}

// finish builds the result of a failed submission.
func (c *Controller) finish(err error) Result {
	switch {
	case errors.Is(err, models.ErrEmptyInput), errors.Is(err, models.ErrBusy):
		c.countSubmission("rejected")
	default:
		c.logger.Error("submission failed", "err", err)
		c.countSubmission("failed")
	}
	return c.result(err)
}

func (c *Controller) countSubmission(outcome string) {
	if c.metrics != nil {
		c.metrics.Submissions.WithLabelValues(c.profile.Name, outcome).Inc()
	}
}

func (c *Controller) countUpload(declared models.DeclaredType, err error) {
	if c.metrics == nil {
		return
	}
	outcome := "accepted"
	if err != nil {
		outcome = "rejected"
	}
	c.metrics.Uploads.WithLabelValues(string(declared), outcome).Inc()
}

// extractionNotice reports partial or empty extraction of an upload.
func extractionNotice(upload *models.Upload, input *models.NormalizedInput, text string) *models.Notice {
	if !input.Usable() {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return &models.Notice{
			Level:   models.NoticeWarning,
			Message: fmt.Sprintf("%s contained no usable content, so only your message was sent.", upload.Filename),
		}
	}
	if len(input.FailedPages) > 0 {
		pages := make([]string, len(input.FailedPages))
		for i, p := range input.FailedPages {
			pages[i] = fmt.Sprint(p)
		}
		return &models.Notice{
			Level:   models.NoticeWarning,
			Message: fmt.Sprintf("Some pages of %s could not be read and were skipped: %s.", upload.Filename, strings.Join(pages, ", ")),
		}
	}
	if input.TruncatedAtPage > 0 {
		return &models.Notice{
			Level:   models.NoticeInfo,
			Message: fmt.Sprintf("%s was cut at page %d, where the references begin.", upload.Filename, input.TruncatedAtPage),
		}
	}
	return nil
}
