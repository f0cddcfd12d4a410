// Package llm provides the text-generation capability consumed by the content
// pipeline. Providers are selected from the environment; all of them satisfy
// the same two-argument contract: a user prompt plus system instructions.
package llm

import (
	"context"
	"os"
	"strings"
	"time"
)

// Client is the narrow generation interface used by the content pipeline.
// Failures propagate as errors; callers decide whether they abort a stage.
type Client interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// NewFromEnv returns a Client based on environment variables.
// Supported providers:
// - LLM_PROVIDER=gemini|openai|anthropic
// - For Gemini:    GOOGLE_API_KEY, optional LLM_MODEL, GEMINI_TRANSPORT=http for the REST client
// - For OpenAI:    OPENAI_API_KEY, optional LLM_MODEL, OPENAI_API_BASE
// - For Anthropic: ANTHROPIC_API_KEY, optional LLM_MODEL
// If nothing is configured, returns a MockClient.
func NewFromEnv() Client {
	prov := strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER")))
	switch prov {
	case "gemini":
		if key := strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")); key != "" {
			return newGeminiFromEnv(key)
		}
	case "openai":
		if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
			return &OpenAIClient{APIKey: key, Model: getModelWithDefault("LLM_MODEL", "gpt-4o-mini"), BaseURL: strings.TrimRight(os.Getenv("OPENAI_API_BASE"), "/")}
		}
	case "anthropic":
		if key := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); key != "" {
			return &AnthropicClient{APIKey: key, Model: getModelWithDefault("LLM_MODEL", "claude-3-5-sonnet-latest")}
		}
	}

	// Auto-detect by API key presence if provider not specified
	if key := strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")); key != "" {
		return newGeminiFromEnv(key)
	}
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		return &OpenAIClient{APIKey: key, Model: getModelWithDefault("LLM_MODEL", "gpt-4o-mini"), BaseURL: strings.TrimRight(os.Getenv("OPENAI_API_BASE"), "/")}
	}
	if key := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); key != "" {
		return &AnthropicClient{APIKey: key, Model: getModelWithDefault("LLM_MODEL", "claude-3-5-sonnet-latest")}
	}

	return &MockClient{}
}

func newGeminiFromEnv(key string) Client {
	model := getModelWithDefault("LLM_MODEL", "gemini-1.5-flash")
	if os.Getenv("GEMINI_TRANSPORT") == "http" {
		return &GeminiHTTPClient{APIKey: key, Model: model}
	}
	c, err := NewGeminiClient(key, model)
	if err != nil {
		// SDK construction failures fall back to the REST client.
		return &GeminiHTTPClient{APIKey: key, Model: model}
	}
	return c
}

func getModelWithDefault(envKey, def string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	return def
}

func clientTimeout() time.Duration {
	if v := os.Getenv("LLM_HTTP_TIMEOUT_MS"); v != "" {
		if ms, err := time.ParseDuration(v + "ms"); err == nil {
			return ms
		}
	}
	return 45 * time.Second
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	if te, ok := err.(timeout); ok {
		return te.Timeout()
	}
	return false
}

func backoff(i int) time.Duration {
	return time.Duration(500*(1<<i)) * time.Millisecond
}
