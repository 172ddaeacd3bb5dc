// Package llm provides the completion-provider adapter (OpenRouter chat
// completions) and the tolerant JSON extraction used on model replies.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	openRouterAPIBase = "https://openrouter.ai/api/v1"
	defaultModel      = "openai/gpt-oss-20b:free"
	defaultReferer    = "http://127.0.0.1:5000"
	defaultTitle      = "Code Company (Beta)"
)

// OpenRouterProvider calls the OpenRouter chat-completions API.
type OpenRouterProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// OpenRouterOption configures the provider.
type OpenRouterOption func(*OpenRouterProvider)

func WithModel(model string) OpenRouterOption {
	return func(p *OpenRouterProvider) { p.model = model }
}

func WithBaseURL(url string) OpenRouterOption {
	return func(p *OpenRouterProvider) { p.baseURL = url }
}

func WithHTTPClient(c *http.Client) OpenRouterOption {
	return func(p *OpenRouterProvider) { p.client = c }
}

func WithLogger(l zerolog.Logger) OpenRouterOption {
	return func(p *OpenRouterProvider) { p.logger = l }
}

// NewOpenRouterProvider constructs a new OpenRouter provider.
func NewOpenRouterProvider(apiKey string, opts ...OpenRouterOption) *OpenRouterProvider {
	p := &OpenRouterProvider{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: openRouterAPIBase,
		client:  &http.Client{Timeout: 120 * time.Second},
		logger:  zerolog.Nop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ModelID returns the configured model.
func (p *OpenRouterProvider) ModelID() string { return p.model }

// ---- OpenRouter wire types ----

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a blocking completion request and returns the raw text
// reply. The caller controls the deadline via ctx.
func (p *OpenRouterProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("HTTP-Referer", defaultReferer)
	httpReq.Header.Set("X-Title", defaultTitle)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openrouter http: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("openrouter api status %d: %s", resp.StatusCode, raw)
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if cr.Error != nil {
		return "", fmt.Errorf("openrouter api error %d: %s", cr.Error.Code, cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("openrouter reply has no choices")
	}

	reply := cr.Choices[0].Message.Content
	p.logger.Debug().
		Str("model", p.model).
		Int("reply_len", len(reply)).
		Msg("openrouter complete")
	return reply, nil
}
