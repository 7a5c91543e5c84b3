// Package anthropic implements models.Completer on the Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Desarso/docassist/models"
)

const (
	ProviderName     = "anthropic"
	APIKeyEnv        = "ANTHROPIC_API_KEY"
	DefaultModel     = "claude-sonnet-4-20250514"
	DefaultMaxTokens = 4096
)

// Anthropic_Model sends requests through the official SDK with retries off.
type Anthropic_Model struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	client     *sdk.Client
}

// New creates an Anthropic completer.
func New(apiKey string) (*Anthropic_Model, error) {
	if apiKey == "" {
		return nil, models.ConfigError("%s is not set", APIKeyEnv)
	}
	return &Anthropic_Model{apiKey: apiKey}, nil
}

// WithBaseURL overrides the API endpoint.
func (a *Anthropic_Model) WithBaseURL(url string) *Anthropic_Model {
	a.baseURL = url
	a.client = nil
	return a
}

// WithHTTPClient sets the HTTP client used by the SDK.
func (a *Anthropic_Model) WithHTTPClient(c *http.Client) *Anthropic_Model {
	a.httpClient = c
	a.client = nil
	return a
}

// Provider implements models.Completer.
func (a *Anthropic_Model) Provider() string {
	return ProviderName
}

func (a *Anthropic_Model) initializeClientIfNeeded() {
	if a.client != nil {
		return
	}
	options := []option.RequestOption{
		option.WithAPIKey(a.apiKey),
		option.WithMaxRetries(0),
	}
	if a.baseURL != "" {
		options = append(options, option.WithBaseURL(strings.TrimRight(a.baseURL, "/")+"/"))
	}
	if a.httpClient != nil {
		options = append(options, option.WithHTTPClient(a.httpClient))
	}
	client := sdk.NewClient(options...)
	a.client = &client
}

// Complete implements models.Completer. System turns are sent as the
// request's system blocks.
func (a *Anthropic_Model) Complete(ctx context.Context, request models.Completion_Request) (models.Completion_Response, error) {
	a.initializeClientIfNeeded()

	model := request.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := int64(request.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	messages, system := ConvertMessages(request.Messages)
	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	if request.Temperature != nil {
		params.Temperature = sdk.Float(*request.Temperature)
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return models.Completion_Response{}, &models.RemoteServiceError{Provider: ProviderName, Err: err}
	}
	if len(message.Content) == 0 {
		return models.Completion_Response{}, &models.RemoteServiceError{Provider: ProviderName, Err: fmt.Errorf("no response content returned")}
	}

	var text strings.Builder
	for _, block := range message.Content {
		text.WriteString(block.Text)
	}

	return models.Completion_Response{
		Text:  text.String(),
		Model: string(message.Model),
		Usage: models.Usage{
			PromptTokens:     message.Usage.InputTokens,
			CompletionTokens: message.Usage.OutputTokens,
			TotalTokens:      message.Usage.InputTokens + message.Usage.OutputTokens,
		},
	}, nil
}

// ConvertMessages maps turns to SDK messages and returns the joined system
// text separately.
func ConvertMessages(turns []models.Turn) ([]sdk.MessageParam, string) {
	messages := make([]sdk.MessageParam, 0, len(turns))
	var system []string
	for _, turn := range turns {
		switch turn.Role {
		case models.RoleSystem:
			system = append(system, turn.PlainText())
		case models.RoleAssistant:
			messages = append(messages, sdk.NewAssistantMessage(sdk.NewTextBlock(turn.PlainText())))
		case models.RoleUser:
			if !turn.IsMultipart() {
				messages = append(messages, sdk.NewUserMessage(sdk.NewTextBlock(turn.Text)))
				continue
			}
			blocks := make([]sdk.ContentBlockParamUnion, 0, len(turn.Parts))
			for _, p := range turn.Parts {
				switch p.Kind {
				case models.PartText:
					blocks = append(blocks, sdk.NewTextBlock(p.Text))
				case models.PartImage:
					if p.Image != nil {
						blocks = append(blocks, sdk.NewImageBlockBase64(p.Image.MimeType, p.Image.Data))
					}
				}
			}
			messages = append(messages, sdk.NewUserMessage(blocks...))
		}
	}
	return messages, strings.Join(system, "\n\n")
}
