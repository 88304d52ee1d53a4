// Package acquire resolves the image to show for a card: an immediately
// available stock URL, a web-search lookup, or a long-running AI generation
// task polled to completion with first-class cancellation.
package acquire

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hualin/rednote-studio/internal/domain"
)

// ClientConfig holds configuration for the image generation service client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
}

// Client talks to the asynchronous image generation service: submit a
// prompt, poll task status, fetch the finished payload.
type Client struct {
	client  *resty.Client
	baseURL string
}

// NewClient creates an image generation client. Returns a configuration
// error before any network call when the base URL is missing.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("image service base URL is not configured")
	}

	client := resty.New()
	client.SetTimeout(30 * time.Second)
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	client.SetHeader("Content-Type", "application/json")

	return &Client{
		client:  client,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
	}, nil
}

type submitRequest struct {
	Prompt string `json:"prompt"`
	Seed   int    `json:"seed"`
}

type submitResponse struct {
	TaskID string `json:"task_id"`
}

type statusResponse struct {
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	TotalSteps int    `json:"total_steps"`
	Error      string `json:"error,omitempty"`
}

type resultResponse struct {
	ImageBase64 string `json:"image_base64"`
}

// Submit starts a generation task and returns its id.
func (c *Client) Submit(ctx context.Context, prompt string, seed int) (string, error) {
	var resp submitResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(submitRequest{Prompt: prompt, Seed: seed}).
		SetResult(&resp).
		Post(c.baseURL + "/generate-async")
	if err != nil {
		return "", fmt.Errorf("failed to submit generation task: %w", err)
	}
	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		return "", fmt.Errorf("generation submit returned HTTP %d: %s",
			httpResp.StatusCode(), string(httpResp.Body()))
	}
	if resp.TaskID == "" {
		return "", fmt.Errorf("generation submit returned no task id")
	}
	return resp.TaskID, nil
}

// Status polls one task. Wire status casing varies, so the state is
// normalized through domain.ParseTaskStatus.
func (c *Client) Status(ctx context.Context, taskID string) (domain.TaskState, error) {
	var resp statusResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetResult(&resp).
		Get(c.baseURL + "/task/" + taskID)
	if err != nil {
		return domain.TaskState{}, fmt.Errorf("failed to poll task %s: %w", taskID, err)
	}
	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		return domain.TaskState{}, fmt.Errorf("task poll returned HTTP %d: %s",
			httpResp.StatusCode(), string(httpResp.Body()))
	}
	return domain.TaskState{
		TaskID:     taskID,
		Status:     domain.ParseTaskStatus(resp.Status),
		Progress:   resp.Progress,
		TotalSteps: resp.TotalSteps,
		Error:      resp.Error,
	}, nil
}

// Result fetches and decodes the finished payload of a completed task.
func (c *Client) Result(ctx context.Context, taskID string) ([]byte, error) {
	var resp resultResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetResult(&resp).
		Get(c.baseURL + "/result/" + taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch result of task %s: %w", taskID, err)
	}
	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		return nil, fmt.Errorf("task result returned HTTP %d: %s",
			httpResp.StatusCode(), string(httpResp.Body()))
	}
	data, err := base64.StdEncoding.DecodeString(resp.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode result of task %s: %w", taskID, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("task %s returned an empty image payload", taskID)
	}
	return data, nil
}
