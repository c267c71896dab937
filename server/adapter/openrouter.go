package adapter

// OpenRouterBaseURL is the fixed base URL for the routed adapter.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterConfig configures the routed (OpenRouter-style) adapter: a thin
// specialization of the OpenAI-compatible adapter with a fixed base URL and
// optional attribution headers.
type OpenRouterConfig struct {
	APIKeyEnv    string
	Model        string
	ModelVersion string
	SiteURL      string // populates HTTP-Referer when set
	AppName      string // populates X-Title when set
}

// NewOpenRouter builds an OpenAI-compatible adapter pointed at OpenRouter's
// fixed base URL, with optional attribution headers.
func NewOpenRouter(cfg OpenRouterConfig) (*OpenAI, error) {
	headers := map[string]string{}
	if cfg.SiteURL != "" {
		headers["HTTP-Referer"] = cfg.SiteURL
	}
	if cfg.AppName != "" {
		headers["X-Title"] = cfg.AppName
	}
	return NewOpenAI(OpenAIConfig{
		APIKeyEnv:    cfg.APIKeyEnv,
		BaseURL:      OpenRouterBaseURL,
		Model:        cfg.Model,
		ModelVersion: cfg.ModelVersion,
		ExtraHeaders: headers,
	})
}
