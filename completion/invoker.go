// Package completion sends assembled message lists to the configured
// chat-completion backend.
package completion

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/Desarso/docassist/logger"
	"github.com/Desarso/docassist/metrics"
	"github.com/Desarso/docassist/models"
	"github.com/Desarso/docassist/prompt"
	"github.com/Desarso/docassist/stores"
)

// ErrEmptyReply is wrapped in a RemoteServiceError when the backend answers
// with no text.
var ErrEmptyReply = errors.New("model returned an empty reply")

// Params are the fixed call parameters of a profile.
type Params struct {
	Model       string
	Temperature *float64
	MaxTokens   int
}

// Call identifies who a completion is made for. It only feeds traces.
type Call struct {
	SessionID string
	Profile   string
}

// Reply is the assistant message returned by a successful call.
type Reply struct {
	Text     string
	Model    string
	Usage    models.Usage
	Duration time.Duration
}

// Invoker makes exactly one backend call per Complete. It never retries.
type Invoker struct {
	completer models.Completer
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
	traces    stores.TraceStore
	logger    *log.Logger
}

// NewInvoker wraps a completer.
func NewInvoker(completer models.Completer) *Invoker {
	return &Invoker{
		completer: completer,
		logger:    logger.Logger,
	}
}

// WithLimiter throttles calls. Callers wait for a token or for ctx.
func (i *Invoker) WithLimiter(l *rate.Limiter) *Invoker {
	i.limiter = l
	return i
}

// WithMetrics records call counts, latency and token usage.
func (i *Invoker) WithMetrics(m *metrics.Metrics) *Invoker {
	i.metrics = m
	return i
}

// WithTraceStore persists call metadata.
func (i *Invoker) WithTraceStore(s stores.TraceStore) *Invoker {
	i.traces = s
	return i
}

// WithLogger sets the logger.
func (i *Invoker) WithLogger(l *log.Logger) *Invoker {
	i.logger = l
	return i
}

// Provider returns the name of the wrapped backend.
func (i *Invoker) Provider() string {
	return i.completer.Provider()
}

// Complete sends messages and returns the assistant reply. Any failure,
// including cancellation of ctx, is returned as a *models.RemoteServiceError
// carrying the backend's message verbatim.
func (i *Invoker) Complete(ctx context.Context, call Call, params Params, messages prompt.MessageList) (Reply, error) {
	provider := i.completer.Provider()

	if i.limiter != nil {
		if err := i.limiter.Wait(ctx); err != nil {
			return Reply{}, &models.RemoteServiceError{Provider: provider, Err: err}
		}
	}

	request := models.Completion_Request{
		Model:       params.Model,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		Messages:    messages,
	}

	start := time.Now()
	response, err := i.completer.Complete(ctx, request)
	elapsed := time.Since(start)

	text := strings.TrimSpace(response.Text)
	if err == nil && text == "" {
		err = ErrEmptyReply
	}
	if err == nil {
		err = ctx.Err()
	}

	i.record(call, provider, params.Model, messages, response, elapsed, err)

	if err != nil {
		var remote *models.RemoteServiceError
		if errors.As(err, &remote) {
			return Reply{}, remote
		}
		return Reply{}, &models.RemoteServiceError{Provider: provider, Err: err}
	}

	model := response.Model
	if model == "" {
		model = params.Model
	}
	return Reply{Text: text, Model: model, Usage: response.Usage, Duration: elapsed}, nil
}

func (i *Invoker) record(call Call, provider, model string, messages prompt.MessageList, response models.Completion_Response, elapsed time.Duration, err error) {
	status := stores.TraceOK
	if err != nil {
		status = stores.TraceError
	}

	if i.logger != nil {
		if err != nil {
			i.logger.Error("completion failed", "provider", provider, "model", model, "session", call.SessionID, "duration", elapsed, "err", err)
		} else {
			i.logger.Info("completion finished", "provider", provider, "model", model, "session", call.SessionID,
				"duration", elapsed.Round(time.Millisecond), "tokens", response.Usage.TotalTokens)
		}
	}

	if i.metrics != nil {
		i.metrics.CompletionRequests.WithLabelValues(provider, model, status).Inc()
		i.metrics.CompletionDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
		if err == nil {
			i.metrics.CompletionTokens.WithLabelValues(provider, "prompt").Add(float64(response.Usage.PromptTokens))
			i.metrics.CompletionTokens.WithLabelValues(provider, "completion").Add(float64(response.Usage.CompletionTokens))
		}
	}

	if i.traces != nil {
		trace := &stores.CompletionTrace{
			SessionID:        call.SessionID,
			Profile:          call.Profile,
			Provider:         provider,
			Model:            model,
			Status:           status,
			Messages:         len(messages),
			HasImage:         messages.UserTurn().Image() != nil,
			DurationMS:       elapsed.Milliseconds(),
			PromptTokens:     response.Usage.PromptTokens,
			CompletionTokens: response.Usage.CompletionTokens,
			TotalTokens:      response.Usage.TotalTokens,
		}
		if err != nil {
			trace.Error = err.Error()
		}
		if saveErr := i.traces.SaveTrace(trace); saveErr != nil && i.logger != nil {
			i.logger.Warn("failed to save completion trace", "err", saveErr)
		}
	}
}
