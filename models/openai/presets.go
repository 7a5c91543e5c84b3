package openai

// Preset describes an OpenAI-compatible endpoint.
type Preset struct {
	Name         string
	BaseURL      string
	APIKeyEnv    string
	DefaultModel string
	Headers      map[string]string
}

var (
	OpenAI = Preset{
		Name:         "openai",
		BaseURL:      "https://api.openai.com/v1",
		APIKeyEnv:    "OPENAI_API_KEY",
		DefaultModel: "gpt-4o",
	}
	OpenRouter = Preset{
		Name:         "openrouter",
		BaseURL:      "https://openrouter.ai/api/v1",
		APIKeyEnv:    "OPENROUTER_API_KEY",
		DefaultModel: "openai/gpt-4o-mini",
	}
	Groq = Preset{
		Name:         "groq",
		BaseURL:      "https://api.groq.com/openai/v1",
		APIKeyEnv:    "GROQ_API_KEY",
		DefaultModel: "meta-llama/llama-4-scout-17b-16e-instruct",
	}
	Cerebras = Preset{
		Name:         "cerebras",
		BaseURL:      "https://api.cerebras.ai/v1",
		APIKeyEnv:    "CEREBRAS_API_KEY",
		DefaultModel: "llama-3.3-70b",
	}
)

// Presets lists the OpenAI-compatible providers by name.
var Presets = map[string]Preset{
	OpenAI.Name:     OpenAI,
	OpenRouter.Name: OpenRouter,
	Groq.Name:       Groq,
	Cerebras.Name:   Cerebras,
}

// WithSite returns a copy of the preset carrying OpenRouter's optional
// attribution headers.
func (p Preset) WithSite(siteURL, siteName string) Preset {
	headers := make(map[string]string, len(p.Headers)+2)
	for k, v := range p.Headers {
		headers[k] = v
	}
	if siteURL != "" {
		headers["HTTP-Referer"] = siteURL
	}
	if siteName != "" {
		headers["X-Title"] = siteName
	}
	p.Headers = headers
	return p
}
