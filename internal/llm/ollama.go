package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════════
// OLLAMA PROVIDER
// ═══════════════════════════════════════════════════════════════════════════════

// OllamaProvider implements the Provider interface against an Ollama server.
// Requests are non-streaming: stream is always false and the full reply body
// is decoded in one read.
type OllamaProvider struct {
	baseProvider
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(cfg *ProviderConfig) *OllamaProvider {
	if cfg == nil {
		cfg = DefaultConfig("ollama")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.2"
	}
	return &OllamaProvider{
		baseProvider: newBaseProvider(cfg, "ollama"),
	}
}

// Generate sends a single-prompt completion to POST /api/generate.
func (p *OllamaProvider) Generate(ctx context.Context, req *GenerateRequest) (*Response, error) {
	start := time.Now()

	ollamaReq := ollamaGenerateRequest{
		Model:   req.Model,
		Prompt:  req.Prompt,
		Stream:  false,
		Options: p.options(req.Temperature, req.MaxTokens),
	}
	if ollamaReq.Model == "" {
		ollamaReq.Model = p.config.Model
	}

	body, err := json.Marshal(ollamaReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := p.doWithRetry(ctx, func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", p.config.Endpoint+"/api/generate", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		return httpReq, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var generateResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&generateResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if generateResp.Response == "" {
		return nil, ErrNoContent
	}

	return &Response{
		Content:    generateResp.Response,
		Model:      generateResp.Model,
		TokensUsed: generateResp.PromptEvalCount + generateResp.EvalCount,
		Duration:   time.Since(start),
	}, nil
}

// Chat sends a multi-message request to POST /api/chat.
func (p *OllamaProvider) Chat(ctx context.Context, req *ChatRequest) (*Response, error) {
	start := time.Now()

	ollamaReq := ollamaChatRequest{
		Model:   req.Model,
		Stream:  false,
		Options: p.options(req.Temperature, req.MaxTokens),
	}
	if ollamaReq.Model == "" {
		ollamaReq.Model = p.config.Model
	}
	if req.SystemPrompt != "" {
		ollamaReq.Messages = append(ollamaReq.Messages, Message{Role: "system", Content: req.SystemPrompt})
	}
	ollamaReq.Messages = append(ollamaReq.Messages, req.Messages...)

	body, err := json.Marshal(ollamaReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := p.doWithRetry(ctx, func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", p.config.Endpoint+"/api/chat", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		return httpReq, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if chatResp.Message.Content == "" {
		return nil, ErrNoContent
	}

	return &Response{
		Content:    chatResp.Message.Content,
		Model:      chatResp.Model,
		TokensUsed: chatResp.PromptEvalCount + chatResp.EvalCount,
		Duration:   time.Since(start),
	}, nil
}

// Available checks GET /api/tags and requires at least one installed model.
func (p *OllamaProvider) Available() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", p.config.Endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false
	}
	return len(tags.Models) > 0
}

// options builds the Ollama options block, falling back to config defaults.
func (p *OllamaProvider) options(temperature float64, maxTokens int) map[string]interface{} {
	if temperature == 0 {
		temperature = p.config.Temperature
	}
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	opts := map[string]interface{}{
		"temperature": temperature,
	}
	if maxTokens > 0 {
		opts["num_predict"] = maxTokens
	}
	return opts
}

// ═══════════════════════════════════════════════════════════════════════════════
// OLLAMA API TYPES
// ═══════════════════════════════════════════════════════════════════════════════

type ollamaGenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

type ollamaChatRequest struct {
	Model    string                 `json:"model"`
	Messages []Message              `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model           string  `json:"model"`
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	PromptEvalCount int     `json:"prompt_eval_count,omitempty"`
	EvalCount       int     `json:"eval_count,omitempty"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}
