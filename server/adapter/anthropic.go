package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"
)

// AnthropicConfig configures the Anthropic-style messages adapter.
type AnthropicConfig struct {
	APIKeyEnv      string
	BaseURL        string // defaults to https://api.anthropic.com/v1
	Model          string
	ModelVersion   string
	AnthropicVersion string // defaults to 2023-06-01
	ExtraHeaders   map[string]string
}

// Anthropic is the Anthropic-style messages adapter. Its response shape is a
// mixed content-block list; "thinking" blocks populate ReasoningText and
// "text" blocks concatenate into RawText, same fold as OpenAI's adapter does
// for a single reasoning field.
type Anthropic struct {
	apiKey           string
	baseURL          string
	model            string
	modelVersion     string
	anthropicVersion string
	headers          map[string]string
	client           *http.Client
}

func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	key := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	if key == "" {
		return nil, &ConfigError{Field: cfg.APIKeyEnv, Message: "required credential environment variable is unset"}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.anthropic.com/v1"
	}
	version := cfg.AnthropicVersion
	if version == "" {
		version = "2023-06-01"
	}
	return &Anthropic{
		apiKey:           key,
		baseURL:          base,
		model:            cfg.Model,
		modelVersion:     firstNonEmpty(cfg.ModelVersion, cfg.Model),
		anthropicVersion: version,
		headers:          cfg.ExtraHeaders,
		client:           &http.Client{},
	}, nil
}

func (a *Anthropic) Query(ctx context.Context, messages []Message, maxTokens int, timeoutSeconds float64) (Response, error) {
	resp, err := a.call(ctx, messages, maxTokens, timeoutSeconds)
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
		return a.call(ctx, messages, maxTokens, timeoutSeconds)
	}
	return Response{}, err
}

func (a *Anthropic) call(ctx context.Context, messages []Message, maxTokens int, timeoutSeconds float64) (Response, error) {
	payload := map[string]any{
		"model":      a.model,
		"max_tokens": maxTokens,
		"messages":   chatMessages(messages),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, NewError(FailureAPIError, "encoding request: %v", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, durationFromSeconds(timeoutSeconds))
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return Response{}, NewError(FailureAPIError, "building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", a.anthropicVersion)
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if reqCtx.Err() != nil || ctx.Err() != nil {
			return Response{}, NewError(FailureTimeout, "request timed out: %v", err)
		}
		return Response{}, NewError(FailureAPIError, "request failed: %v", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	raw := buf.Bytes()
	if resp.StatusCode == http.StatusTooManyRequests {
		return Response{}, NewError(FailureRateLimit, "http 429: %s", truncate(string(raw), 400))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, NewError(FailureAPIError, "http %d: %s", resp.StatusCode, truncate(string(raw), 400))
	}

	var msg struct {
		Content []struct {
			Type     string `json:"type"`
			Text     string `json:"text"`
			Thinking string `json:"thinking"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Response{}, NewError(FailureAPIError, "decoding response: %v", err)
	}

	var text, reasoning strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "thinking":
			reasoning.WriteString(block.Thinking)
		case "text":
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return Response{}, newEmptyResponseError(a.model)
	}

	return Response{
		RawText:       text.String(),
		ReasoningText: reasoning.String(),
		InputTokens:   msg.Usage.InputTokens,
		OutputTokens:  msg.Usage.OutputTokens,
		LatencyMS:     latency.Milliseconds(),
		ModelID:       a.model,
		ModelVersion:  a.modelVersion,
	}, nil
}
