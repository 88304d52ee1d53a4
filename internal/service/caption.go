package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hualin/rednote-studio/internal/prompts"
)

// CaptionClient calls an OpenAI-compatible chat completions endpoint to
// produce caption batches.
type CaptionClient struct {
	client      *resty.Client
	endpoint    string
	model       string
	temperature float64
	maxTokens   int
}

// CaptionConfig holds configuration for the caption client.
type CaptionConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// NewCaptionClient creates a caption client. Missing credentials fail here,
// before any request is attempted.
// Parameters:
//   - cfg: LLM configuration including model, API key and base URL.
//
// Returns:
//   - *CaptionClient: initialized client.
//   - error: non-nil when required configuration is missing.
func NewCaptionClient(cfg *CaptionConfig) (*CaptionClient, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, fmt.Errorf("caption generation requires an LLM API key")
	}

	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	// Set timeout to prevent hanging requests
	client.SetTimeout(60 * time.Second)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1500
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &CaptionClient{
		client:      client,
		endpoint:    strings.TrimSuffix(baseURL, "/") + "/chat/completions",
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

// OpenAI-compatible Chat Completion API request/response structures
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends one system+user exchange and returns the completion text.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - system: system prompt defining the output contract.
//   - user: user message with the concrete request.
//
// Returns:
//   - string: completion content.
//   - error: non-nil if the API request fails or returns no choices.
func (c *CaptionClient) Complete(ctx context.Context, system, user string) (string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	var resp chatResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(c.endpoint)

	if err != nil {
		return "", fmt.Errorf("failed to call LLM API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != nil {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		} else {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
		}
		return "", fmt.Errorf("LLM API returned error: %s", errorMsg)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("LLM API error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM API (status: %d)", httpResp.StatusCode())
	}

	return resp.Choices[0].Message.Content, nil
}

// SplitCaptions breaks one multi-caption completion into individual captions
// along the *** separator lines. Blank fragments are dropped; a completion
// without any separator yields a single caption.
func SplitCaptions(raw string) []string {
	var captions []string
	var current []string

	flush := func() {
		text := strings.TrimSpace(strings.Join(current, "\n"))
		if text != "" {
			captions = append(captions, text)
		}
		current = current[:0]
	}

	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == prompts.CaptionSeparator {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return captions
}
