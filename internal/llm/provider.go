// Package llm provides HTTP clients for local LLM runtimes (Ollama and
// LM Studio compatible endpoints). All calls are synchronous with a fixed
// per-request timeout and bounded retries; failures surface as errors the
// callers degrade on.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// MaxErrorBodySize limits how much error response body we read back into
// error messages. This prevents memory exhaustion from malformed responses.
const MaxErrorBodySize = 64 * 1024

// readLimitedBody reads up to maxBytes from r, returning the bytes read.
func readLimitedBody(r io.Reader, maxBytes int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxBytes))
}

// Provider defines the interface for LLM providers.
type Provider interface {
	// Generate sends a single-prompt completion request.
	Generate(ctx context.Context, req *GenerateRequest) (*Response, error)

	// Chat sends a multi-message chat request.
	Chat(ctx context.Context, req *ChatRequest) (*Response, error)

	// Name returns the provider identifier.
	Name() string

	// Available returns true if the provider is configured and reachable.
	Available() bool
}

// GenerateRequest represents a single-prompt completion request.
type GenerateRequest struct {
	// Model to use (empty means the configured default).
	Model string `json:"model"`

	// Prompt is the completion prompt.
	Prompt string `json:"prompt"`

	// MaxTokens limits response length.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0-1.0).
	Temperature float64 `json:"temperature,omitempty"`
}

// ChatRequest represents a chat completion request.
type ChatRequest struct {
	// Model to use (empty means the configured default).
	Model string `json:"model"`

	// SystemPrompt sets the model's behavior.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Messages in the conversation.
	Messages []Message `json:"messages"`

	// MaxTokens limits response length.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0-1.0).
	Temperature float64 `json:"temperature,omitempty"`
}

// Message represents a conversation message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Response contains a completed LLM reply.
type Response struct {
	Content    string        `json:"content"`
	Model      string        `json:"model"`
	TokensUsed int           `json:"tokens_used,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// ErrNoContent is returned when a backend reply carried no usable content.
var ErrNoContent = errors.New("llm: response contained no content")

// HTTPError is a non-2xx reply from the backend.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("llm: http %d: %s", e.StatusCode, e.Message)
}

// ═══════════════════════════════════════════════════════════════════════════════
// PROVIDER CONFIGURATION
// ═══════════════════════════════════════════════════════════════════════════════

// ProviderConfig contains configuration for an LLM provider.
type ProviderConfig struct {
	// Name identifies the provider ("ollama" or "lmstudio").
	Name string `json:"name" mapstructure:"name"`

	// Endpoint is the API base URL.
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`

	// Model is the default model identifier.
	Model string `json:"model" mapstructure:"model"`

	// APIKey is sent as a bearer token when set (LM Studio ignores it).
	APIKey string `json:"api_key,omitempty" mapstructure:"api_key"`

	// Temperature is the default sampling temperature.
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// MaxTokens is the default response length cap.
	MaxTokens int `json:"max_tokens" mapstructure:"max_tokens"`

	// Timeout is the fixed per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries bounds retry attempts beyond the first request.
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`
}

// DefaultConfig returns sensible defaults for a provider name.
func DefaultConfig(name string) *ProviderConfig {
	switch name {
	case "lmstudio":
		return &ProviderConfig{
			Name:        "lmstudio",
			Endpoint:    "http://localhost:1234",
			Model:       "local-model",
			Temperature: 0.7,
			MaxTokens:   512,
			Timeout:     60 * time.Second,
			MaxRetries:  2,
		}
	default:
		return &ProviderConfig{
			Name:        "ollama",
			Endpoint:    "http://localhost:11434",
			Model:       "llama3.2",
			Temperature: 0.7,
			MaxTokens:   512,
			Timeout:     60 * time.Second,
			MaxRetries:  2,
		}
	}
}

// New constructs a provider from its config name. Unknown names fall back
// to Ollama, the default local runtime.
func New(cfg *ProviderConfig) Provider {
	if cfg == nil {
		cfg = DefaultConfig("ollama")
	}
	switch cfg.Name {
	case "lmstudio":
		return NewLMStudioProvider(cfg)
	default:
		return NewOllamaProvider(cfg)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// SHARED TRANSPORT
// ═══════════════════════════════════════════════════════════════════════════════

// baseProvider carries the pieces shared by all HTTP providers.
type baseProvider struct {
	config *ProviderConfig
	client *http.Client
	name   string
}

func newBaseProvider(cfg *ProviderConfig, name string) baseProvider {
	if cfg == nil {
		cfg = DefaultConfig(name)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return baseProvider{
		config: cfg,
		client: &http.Client{Timeout: timeout},
		name:   name,
	}
}

// Name returns the provider identifier.
func (p *baseProvider) Name() string {
	return p.name
}

// doWithRetry executes the request, retrying transient failures with
// exponential backoff (2^attempt seconds between attempts). Client errors
// (4xx) are not retried. The request is rebuilt per attempt so bodies are
// fresh readers.
func (p *baseProvider) doWithRetry(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	retries := p.config.MaxRetries
	if retries < 0 {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		body, _ := readLimitedBody(resp.Body, MaxErrorBodySize)
		resp.Body.Close()
		lastErr = &HTTPError{StatusCode: resp.StatusCode, Message: string(body)}

		// Client errors will not improve on retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, lastErr
		}
	}

	return nil, fmt.Errorf("llm: request failed after %d attempts: %w", retries+1, lastErr)
}

// sleepBackoff waits 2^attempt seconds or until the context is done.
func sleepBackoff(ctx context.Context, attempt int) error {
	delay := time.Duration(math.Pow(2, float64(attempt))) * time.Second
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
