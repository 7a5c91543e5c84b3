package docassist

import (
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/Desarso/docassist/completion"
	"github.com/Desarso/docassist/logger"
	"github.com/Desarso/docassist/metrics"
	"github.com/Desarso/docassist/models"
	"github.com/Desarso/docassist/models/anthropic"
	"github.com/Desarso/docassist/models/gemini"
	"github.com/Desarso/docassist/models/openai"
	"github.com/Desarso/docassist/normalize"
	"github.com/Desarso/docassist/sessions"
	"github.com/Desarso/docassist/stores"
	"github.com/Desarso/docassist/summarize"
)

// ProviderNames lists every supported backend.
func ProviderNames() []string {
	return []string{
		openai.OpenAI.Name,
		openai.OpenRouter.Name,
		openai.Groq.Name,
		openai.Cerebras.Name,
		gemini.ProviderName,
		anthropic.ProviderName,
	}
}

// APIKeyEnv returns the conventional credential variable of a provider, or
// "" for unknown providers.
func APIKeyEnv(provider string) string {
	switch provider {
	case gemini.ProviderName:
		return gemini.APIKeyEnv
	case anthropic.ProviderName:
		return anthropic.APIKeyEnv
	}
	if preset, ok := openai.Presets[provider]; ok {
		return preset.APIKeyEnv
	}
	return ""
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case gemini.ProviderName:
		return gemini.DefaultModel
	case anthropic.ProviderName:
		return anthropic.DefaultModel
	}
	if preset, ok := openai.Presets[provider]; ok {
		return preset.DefaultModel
	}
	return ""
}

// NewCompleter builds the chat-completion backend selected by cfg.
func NewCompleter(cfg ProviderConfig) (models.Completer, error) {
	switch cfg.Name {
	case gemini.ProviderName:
		m, err := gemini.New(cfg.APIKey)
		if err != nil {
			return nil, err
		}
		if cfg.BaseURL != "" {
			m.WithBaseURL(cfg.BaseURL)
		}
		return m, nil
	case anthropic.ProviderName:
		m, err := anthropic.New(cfg.APIKey)
		if err != nil {
			return nil, err
		}
		if cfg.BaseURL != "" {
			m.WithBaseURL(cfg.BaseURL)
		}
		return m, nil
	}

	preset, ok := openai.Presets[cfg.Name]
	if !ok {
		return nil, models.ConfigError("unknown provider %q (known: %s)", cfg.Name, strings.Join(ProviderNames(), ", "))
	}
	m, err := openai.New(preset.WithSite(cfg.SiteURL, cfg.SiteName), cfg.APIKey)
	if err != nil {
		return nil, err
	}
	if cfg.BaseURL != "" {
		m.WithBaseURL(cfg.BaseURL)
	}
	return m, nil
}

// Assistant wires one completion backend to everything that uses it.
type Assistant struct {
	Config  *Config
	Invoker *completion.Invoker
	Metrics *metrics.Metrics
	Traces  stores.TraceStore
}

// NewAssistant validates cfg and builds the shared services. The caller
// must Close it.
func NewAssistant(cfg *Config) (*Assistant, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	completer, err := NewCompleter(cfg.Provider)
	if err != nil {
		return nil, err
	}
	return NewAssistantWithCompleter(cfg, completer)
}

// NewAssistantWithCompleter builds the shared services around an existing
// backend.
func NewAssistantWithCompleter(cfg *Config, completer models.Completer) (*Assistant, error) {
	traces, err := stores.NewTraceStore(&cfg.Traces)
	if err != nil {
		return nil, fmt.Errorf("opening trace store: %w", err)
	}

	m := metrics.New()
	invoker := completion.NewInvoker(completer).
		WithMetrics(m).
		WithLogger(logger.Logger.WithPrefix("[COMPLETION]"))
	if traces != nil {
		invoker.WithTraceStore(traces)
	}
	if rps := cfg.Provider.RequestsPerSecond; rps > 0 {
		invoker.WithLimiter(rate.NewLimiter(rate.Limit(rps), int(rps)+1))
	}

	logger.Info("assistant ready", "provider", completer.Provider(), "traces", cfg.Traces.Enabled())
	return &Assistant{Config: cfg, Invoker: invoker, Metrics: m, Traces: traces}, nil
}

// Normalizer returns the document normalizer configured for profile.
func (a *Assistant) Normalizer(profile sessions.Profile) *normalize.Normalizer {
	return normalize.New().
		WithReferencesCutoff(profile.ReferencesCutoff, profile.ReferencesMarker).
		WithLogger(logger.Logger.WithPrefix("[NORMALIZE]"))
}

// NewController creates the controller of a new session. It satisfies
// sessions.ControllerFactory.
func (a *Assistant) NewController(sessionID, profileName string) (*sessions.Controller, error) {
	profile, err := a.Config.Profile(profileName)
	if err != nil {
		return nil, err
	}
	return sessions.NewController(sessionID, profile, a.Normalizer(profile), a.Invoker).
		WithTimeout(a.Config.Server.CompletionTimeout).
		WithMetrics(a.Metrics), nil
}

// Summarizer returns the article summarizer built on the summary profile.
func (a *Assistant) Summarizer() (*summarize.Summarizer, error) {
	profile, err := a.Config.Profile(ProfileSummary)
	if err != nil {
		return nil, err
	}
	return summarize.New(a.Normalizer(profile), a.Invoker, profile.Params).
		WithInstruction(profile.Instruction).
		WithPolicy(profile.Policy).
		WithLanguage(a.Config.Summary.Language), nil
}

// Health pings the trace store when one is configured.
func (a *Assistant) Health() error {
	if a.Traces != nil {
		return a.Traces.Ping()
	}
	return nil
}

// NewManager creates a session manager backed by this assistant.
func (a *Assistant) NewManager() *sessions.Manager {
	return sessions.NewManager(a.NewController, a.Config.Server.SessionIdleTTL).WithMetrics(a.Metrics)
}

// Close releases the trace store.
func (a *Assistant) Close() error {
	if a.Traces != nil {
		return a.Traces.Close()
	}
	return nil
}
