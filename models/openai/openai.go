// Package openai implements models.Completer for OpenAI and every
// provider exposing an OpenAI-compatible chat completions API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Desarso/docassist/models"
)

// OpenAI_Model sends chat completions through the official SDK. SDK retries
// are disabled; a failed call is reported once.
type OpenAI_Model struct {
	preset     Preset
	baseURL    string
	apiKey     string
	httpClient *http.Client
	client     *sdk.Client
}

// New creates a completer for preset, authenticated with apiKey.
func New(preset Preset, apiKey string) (*OpenAI_Model, error) {
	if apiKey == "" {
		return nil, models.ConfigError("%s is not set", preset.APIKeyEnv)
	}
	return &OpenAI_Model{preset: preset, baseURL: preset.BaseURL, apiKey: apiKey}, nil
}

// WithBaseURL overrides the preset endpoint.
func (o *OpenAI_Model) WithBaseURL(url string) *OpenAI_Model {
	if url != "" {
		o.baseURL = url
	}
	o.client = nil
	return o
}

// WithHTTPClient sets the HTTP client used by the SDK.
func (o *OpenAI_Model) WithHTTPClient(c *http.Client) *OpenAI_Model {
	o.httpClient = c
	o.client = nil
	return o
}

// Provider implements models.Completer.
func (o *OpenAI_Model) Provider() string {
	return o.preset.Name
}

func (o *OpenAI_Model) initializeClientIfNeeded() {
	if o.client != nil {
		return
	}
	options := []option.RequestOption{
		option.WithAPIKey(o.apiKey),
		option.WithBaseURL(strings.TrimRight(o.baseURL, "/") + "/"),
		option.WithMaxRetries(0),
	}
	for k, v := range o.preset.Headers {
		options = append(options, option.WithHeader(k, v))
	}
	if o.httpClient != nil {
		options = append(options, option.WithHTTPClient(o.httpClient))
	}
	client := sdk.NewClient(options...)
	o.client = &client
}

// Complete implements models.Completer.
func (o *OpenAI_Model) Complete(ctx context.Context, request models.Completion_Request) (models.Completion_Response, error) {
	o.initializeClientIfNeeded()

	model := request.Model
	if model == "" {
		model = o.preset.DefaultModel
	}

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(model),
		Messages: ConvertMessages(request.Messages),
	}
	if request.Temperature != nil {
		params.Temperature = sdk.Float(*request.Temperature)
	}
	if request.MaxTokens > 0 {
		params.MaxTokens = sdk.Int(int64(request.MaxTokens))
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return models.Completion_Response{}, &models.RemoteServiceError{Provider: o.preset.Name, Err: err}
	}
	if len(completion.Choices) == 0 {
		return models.Completion_Response{}, &models.RemoteServiceError{Provider: o.preset.Name, Err: fmt.Errorf("no response choices returned")}
	}

	return models.Completion_Response{
		Text:  completion.Choices[0].Message.Content,
		Model: completion.Model,
		Usage: models.Usage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		},
	}, nil
}

// ConvertMessages maps turns to SDK messages. Images become image_url parts
// carrying a data URI.
func ConvertMessages(turns []models.Turn) []sdk.ChatCompletionMessageParamUnion {
	messages := make([]sdk.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case models.RoleSystem:
			messages = append(messages, sdk.SystemMessage(turn.PlainText()))
		case models.RoleAssistant:
			messages = append(messages, sdk.AssistantMessage(turn.PlainText()))
		case models.RoleUser:
			if !turn.IsMultipart() {
				messages = append(messages, sdk.UserMessage(turn.Text))
				continue
			}
			parts := make([]sdk.ChatCompletionContentPartUnionParam, 0, len(turn.Parts))
			for _, p := range turn.Parts {
				switch p.Kind {
				case models.PartText:
					parts = append(parts, sdk.TextContentPart(p.Text))
				case models.PartImage:
					if p.Image != nil {
						parts = append(parts, sdk.ImageContentPart(sdk.ChatCompletionContentPartImageImageURLParam{
							URL: p.Image.DataURI(),
						}))
					}
				}
			}
			messages = append(messages, sdk.UserMessage(parts))
		}
	}
	return messages
}
