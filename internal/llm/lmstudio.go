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
// LM STUDIO PROVIDER
// ═══════════════════════════════════════════════════════════════════════════════

// LMStudioProvider implements the Provider interface against LM Studio's
// OpenAI-compatible server. Any other OpenAI-compatible local runtime works
// the same way.
type LMStudioProvider struct {
	baseProvider
}

// NewLMStudioProvider creates a new LM Studio provider.
func NewLMStudioProvider(cfg *ProviderConfig) *LMStudioProvider {
	if cfg == nil {
		cfg = DefaultConfig("lmstudio")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:1234"
	}
	if cfg.Model == "" {
		cfg.Model = "local-model"
	}
	return &LMStudioProvider{
		baseProvider: newBaseProvider(cfg, "lmstudio"),
	}
}

// Generate adapts a single-prompt request onto the chat endpoint, which is
// the surface LM Studio serves.
func (p *LMStudioProvider) Generate(ctx context.Context, req *GenerateRequest) (*Response, error) {
	return p.Chat(ctx, &ChatRequest{
		Model:       req.Model,
		Messages:    []Message{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
}

// Chat sends a request to POST /v1/chat/completions.
func (p *LMStudioProvider) Chat(ctx context.Context, req *ChatRequest) (*Response, error) {
	start := time.Now()

	oaReq := openAIChatRequest{
		Model:  req.Model,
		Stream: false,
	}
	if oaReq.Model == "" {
		oaReq.Model = p.config.Model
	}
	if req.SystemPrompt != "" {
		oaReq.Messages = append(oaReq.Messages, Message{Role: "system", Content: req.SystemPrompt})
	}
	oaReq.Messages = append(oaReq.Messages, req.Messages...)

	oaReq.Temperature = req.Temperature
	if oaReq.Temperature == 0 {
		oaReq.Temperature = p.config.Temperature
	}
	oaReq.MaxTokens = req.MaxTokens
	if oaReq.MaxTokens == 0 {
		oaReq.MaxTokens = p.config.MaxTokens
	}

	body, err := json.Marshal(oaReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := p.doWithRetry(ctx, func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", p.config.Endpoint+"/v1/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if p.config.APIKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
		}
		return httpReq, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var oaResp openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&oaResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(oaResp.Choices) == 0 || oaResp.Choices[0].Message.Content == "" {
		return nil, ErrNoContent
	}

	choice := oaResp.Choices[0]
	return &Response{
		Content:    choice.Message.Content,
		Model:      oaResp.Model,
		TokensUsed: oaResp.Usage.TotalTokens,
		Duration:   time.Since(start),
	}, nil
}

// Available checks GET /v1/models and requires at least one loaded model.
func (p *LMStudioProvider) Available() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", p.config.Endpoint+"/v1/models", nil)
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

	var models openAIModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return false
	}
	return len(models.Data) > 0
}

// ═══════════════════════════════════════════════════════════════════════════════
// OPENAI-COMPATIBLE API TYPES
// ═══════════════════════════════════════════════════════════════════════════════

type openAIChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream"`
}

type openAIChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int     `json:"index"`
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type openAIModelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}
