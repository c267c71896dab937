package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// rateLimitBackoff is the fixed delay before the single rate-limit retry.
const rateLimitBackoff = 5 * time.Second

// OpenAIConfig configures an OpenAI-compatible chat-completion adapter.
type OpenAIConfig struct {
	// APIKeyEnv names the environment variable holding the credential.
	// Construction fails fast if it is unset.
	APIKeyEnv string
	BaseURL   string // defaults to https://api.openai.com/v1
	Model     string
	ModelVersion string
	ExtraHeaders map[string]string
	Org          string
}

// OpenAI is the OpenAI-compatible chat-completion adapter.
type OpenAI struct {
	apiKey       string
	baseURL      string
	model        string
	modelVersion string
	headers      map[string]string
	org          string
	client       *http.Client
}

// NewOpenAI fails fast when the configured credential environment variable
// is unset, surfacing a *ConfigError naming it.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	key := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	if key == "" {
		return nil, &ConfigError{Field: cfg.APIKeyEnv, Message: "required credential environment variable is unset"}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	return &OpenAI{
		apiKey:       key,
		baseURL:      base,
		model:        cfg.Model,
		modelVersion: firstNonEmpty(cfg.ModelVersion, cfg.Model),
		headers:      cfg.ExtraHeaders,
		org:          cfg.Org,
		client:       &http.Client{},
	}, nil
}

// Query issues a chat-completion request. On rate_limit it sleeps
// rateLimitBackoff and retries exactly once; a second rate_limit failure is
// returned as-is. Timeouts and every other back-end error are mapped to the
// adapter's uniform failure kinds; no SDK-specific exception ever escapes.
func (o *OpenAI) Query(ctx context.Context, messages []Message, maxTokens int, timeoutSeconds float64) (Response, error) {
	resp, err := o.call(ctx, messages, maxTokens, timeoutSeconds)
	if err == nil {
		return resp, nil
	}
	var aerr *Error
	if errors.As(err, &aerr) && aerr.Kind == FailureRateLimit {
		select {
		case <-time.After(rateLimitBackoff):
		case <-ctx.Done():
			return Response{}, NewError(FailureTimeout, "context canceled during rate-limit backoff")
		}
		return o.call(ctx, messages, maxTokens, timeoutSeconds)
	}
	return Response{}, err
}

func (o *OpenAI) call(ctx context.Context, messages []Message, maxTokens int, timeoutSeconds float64) (Response, error) {
	payload := map[string]any{
		"model":      o.model,
		"max_tokens": maxTokens,
		"messages":   chatMessages(messages),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, NewError(FailureAPIError, "encoding request: %v", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, durationFromSeconds(timeoutSeconds))
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, NewError(FailureAPIError, "building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	if o.org != "" {
		req.Header.Set("OpenAI-Organization", o.org)
	}
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := o.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if reqCtx.Err() != nil || ctx.Err() != nil {
			return Response{}, NewError(FailureTimeout, "request timed out: %v", err)
		}
		return Response{}, NewError(FailureAPIError, "request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusTooManyRequests {
		return Response{}, NewError(FailureRateLimit, "http 429: %s", truncate(string(raw), 400))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, NewError(FailureAPIError, "http %d: %s", resp.StatusCode, truncate(string(raw), 400))
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content          string `json:"content"`
				ReasoningContent string `json:"reasoning_content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return Response{}, NewError(FailureAPIError, "decoding response: %v", err)
	}
	if len(cc.Choices) == 0 {
		return Response{}, newEmptyResponseError(o.model)
	}
	text := cc.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return Response{}, newEmptyResponseError(o.model)
	}

	return Response{
		RawText:       text,
		ReasoningText: cc.Choices[0].Message.ReasoningContent,
		InputTokens:   cc.Usage.PromptTokens,
		OutputTokens:  cc.Usage.CompletionTokens,
		LatencyMS:     latency.Milliseconds(),
		ModelID:       o.model,
		ModelVersion:  o.modelVersion,
	}, nil
}

func chatMessages(messages []Message) []map[string]string {
	out := make([]map[string]string, len(messages))
	for i, m := range messages {
		out[i] = map[string]string{"role": m.Role, "content": m.Content}
	}
	return out
}

func durationFromSeconds(s float64) time.Duration {
	if s <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s * float64(time.Second))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func newEmptyResponseError(modelID string) *Error {
	return &Error{Kind: FailureAPIError, Message: fmt.Sprintf("empty completion from %s", modelID), Empty: true}
}
