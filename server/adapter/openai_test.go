package adapter

import (
	"testing"
)

func TestNewOpenAIMissingCredential(t *testing.T) {
	t.Setenv("TEST_MISSING_KEY", "")
	_, err := NewOpenAI(OpenAIConfig{APIKeyEnv: "TEST_MISSING_KEY", Model: "gpt-4o"})
	if err == nil {
		t.Fatal("expected config error for missing credential")
	}
	cfgErr, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if cfgErr.Field != "TEST_MISSING_KEY" {
		t.Fatalf("got field %q", cfgErr.Field)
	}
}

func TestNewOpenAIDefaultsBaseURL(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	a, err := NewOpenAI(OpenAIConfig{APIKeyEnv: "TEST_OPENAI_KEY", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.baseURL != "https://api.openai.com/v1" {
		t.Fatalf("got %q", a.baseURL)
	}
}

func TestNewOpenAICustomBaseURL(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	a, err := NewOpenAI(OpenAIConfig{
		APIKeyEnv: "TEST_OPENAI_KEY",
		Model:     "gpt-4o",
		BaseURL:   "https://example.com/v1/",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.baseURL != "https://example.com/v1" {
		t.Fatalf("expected trailing slash trimmed, got %q", a.baseURL)
	}
}

func TestNewOpenRouterSetsAttributionHeaders(t *testing.T) {
	t.Setenv("TEST_OPENROUTER_KEY", "or-test")
	a, err := NewOpenRouter(OpenRouterConfig{
		APIKeyEnv: "TEST_OPENROUTER_KEY",
		Model:     "openrouter/auto",
		SiteURL:   "https://example.com",
		AppName:   "ExampleTourney",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.baseURL != OpenRouterBaseURL {
		t.Fatalf("got %q", a.baseURL)
	}
	if a.headers["HTTP-Referer"] != "https://example.com" {
		t.Fatalf("got headers %v", a.headers)
	}
	if a.headers["X-Title"] != "ExampleTourney" {
		t.Fatalf("got headers %v", a.headers)
	}
}

func TestNewOpenRouterNoAttributionWhenUnset(t *testing.T) {
	t.Setenv("TEST_OPENROUTER_KEY2", "or-test")
	a, err := NewOpenRouter(OpenRouterConfig{APIKeyEnv: "TEST_OPENROUTER_KEY2", Model: "openrouter/auto"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := a.headers["HTTP-Referer"]; ok {
		t.Fatal("expected no HTTP-Referer header when SiteURL is unset")
	}
}

func TestNewAnthropicDefaultsVersion(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-ant-test")
	a, err := NewAnthropic(AnthropicConfig{APIKeyEnv: "TEST_ANTHROPIC_KEY", Model: "claude-3-5-sonnet"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.anthropicVersion != "2023-06-01" {
		t.Fatalf("got %q", a.anthropicVersion)
	}
}
