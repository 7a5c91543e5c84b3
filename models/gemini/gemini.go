// Package gemini implements models.Completer on the Google Gen AI SDK.
package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/Desarso/docassist/models"
)

const (
	ProviderName = "gemini"
	APIKeyEnv    = "GEMINI_API_KEY"
	DefaultModel = "gemini-2.0-flash"
)

// Gemini_Model sends requests through genai's Models.GenerateContent.
type Gemini_Model struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	client     *genai.Client
}

// New creates a Gemini completer.
func New(apiKey string) (*Gemini_Model, error) {
	if apiKey == "" {
		return nil, models.ConfigError("%s is not set", APIKeyEnv)
	}
	return &Gemini_Model{apiKey: apiKey}, nil
}

// WithBaseURL overrides the API endpoint.
func (g *Gemini_Model) WithBaseURL(url string) *Gemini_Model {
	g.baseURL = url
	g.client = nil
	return g
}

// WithHTTPClient sets the HTTP client used by the SDK.
func (g *Gemini_Model) WithHTTPClient(c *http.Client) *Gemini_Model {
	g.httpClient = c
	g.client = nil
	return g
}

// Provider implements models.Completer.
func (g *Gemini_Model) Provider() string {
	return ProviderName
}

func (g *Gemini_Model) initializeClientIfNeeded(ctx context.Context) error {
	if g.client != nil {
		return nil
	}
	config := &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if g.baseURL != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(g.baseURL, "/") + "/"}
	}
	if g.httpClient != nil {
		config.HTTPClient = g.httpClient
	}
	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}
	g.client = client
	return nil
}

// Complete implements models.Completer. The system turn becomes the
// request's system instruction.
func (g *Gemini_Model) Complete(ctx context.Context, request models.Completion_Request) (models.Completion_Response, error) {
	if err := g.initializeClientIfNeeded(ctx); err != nil {
		return models.Completion_Response{}, &models.RemoteServiceError{Provider: ProviderName, Err: err}
	}

	model := request.Model
	if model == "" {
		model = DefaultModel
	}

	contents, system, err := ConvertMessages(request.Messages)
	if err != nil {
		return models.Completion_Response{}, err
	}

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if request.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*request.Temperature))
	}
	if request.MaxTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxTokens)
	}

	result, err := g.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return models.Completion_Response{}, &models.RemoteServiceError{Provider: ProviderName, Err: err}
	}

	response := models.Completion_Response{Text: result.Text(), Model: result.ModelVersion}
	if result.UsageMetadata != nil {
		response.Usage = models.Usage{
			PromptTokens:     int64(result.UsageMetadata.PromptTokenCount),
			CompletionTokens: int64(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int64(result.UsageMetadata.TotalTokenCount),
		}
	}
	return response, nil
}

// ConvertMessages maps turns to genai contents. System turns are returned
// separately; assistant turns use the "model" role.
func ConvertMessages(turns []models.Turn) ([]*genai.Content, string, error) {
	contents := make([]*genai.Content, 0, len(turns))
	var system []string
	for _, turn := range turns {
		switch turn.Role {
		case models.RoleSystem:
			system = append(system, turn.PlainText())
		case models.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(turn.PlainText(), genai.RoleModel))
		case models.RoleUser:
			if !turn.IsMultipart() {
				contents = append(contents, genai.NewContentFromText(turn.Text, genai.RoleUser))
				continue
			}
			parts := make([]*genai.Part, 0, len(turn.Parts))
			for _, p := range turn.Parts {
				switch p.Kind {
				case models.PartText:
					parts = append(parts, genai.NewPartFromText(p.Text))
				case models.PartImage:
					if p.Image == nil {
						continue
					}
					data, err := base64.StdEncoding.DecodeString(p.Image.Data)
					if err != nil {
						return nil, "", fmt.Errorf("%w: image part is not valid base64: %v", models.ErrInvalidTurn, err)
					}
					parts = append(parts, genai.NewPartFromBytes(data, p.Image.MimeType))
				}
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
		}
	}
	return contents, strings.Join(system, "\n\n"), nil
}
