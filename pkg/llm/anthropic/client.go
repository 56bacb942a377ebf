// Package anthropic implements llm.Provider over the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"slowlooking/pkg/config"
	"slowlooking/pkg/llm"
	"slowlooking/pkg/request"
)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
	providerName   = "anthropic"
)

// Client implements llm.Provider for Anthropic Claude models.
type Client struct {
	rc          *request.Client
	history     *llm.History
	apiKey      string
	model       string
	baseURL     string
	maxTokens   int
	temperature float64
}

// Request is the Messages API request body.
type Request struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []Message `json:"messages"`
}

type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

type ContentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *ImageSource `json:"source,omitempty"`
}

type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// Response is the subset of the Messages API response we read.
type Response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewClient creates a new Anthropic client.
func NewClient(cfg config.LLMConfig, rc *request.Client, h *llm.History) (*Client, error) {
	if cfg.Key == "" {
		return nil, &config.ConfigurationError{Provider: providerName, EnvVar: config.KeyEnvVar(providerName)}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultModel(providerName)
	}
	return &Client{
		rc:          rc,
		history:     h,
		apiKey:      cfg.Key,
		model:       model,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// GenerateImageText sends the image followed by the prompt as a single user turn.
func (c *Client) GenerateImageText(ctx context.Context, name, prompt string, img llm.Image) (string, error) {
	req := Request{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages: []Message{{
			Role: "user",
			Content: []ContentBlock{
				{Type: "image", Source: &ImageSource{
					Type:      "base64",
					MediaType: img.MediaType,
					Data:      base64.StdEncoding.EncodeToString(img.Data),
				}},
				{Type: "text", Text: prompt},
			},
		}},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	respBody, err := c.rc.PostWithHeaders(ctx, c.baseURL+"/v1/messages", body, c.headers())
	if err != nil {
		c.history.Log(providerName, name, prompt, fmt.Sprintf("ERROR: %v", err))
		return "", err
	}

	text, err := parseResponse(respBody)
	if err != nil {
		c.history.Log(providerName, name, prompt, fmt.Sprintf("PARSE_ERROR: %v", err))
		return "", err
	}
	c.history.Log(providerName, name, prompt, text)
	return text, nil
}

// HealthCheck confirms the key can see the configured model.
func (c *Client) HealthCheck(ctx context.Context) error {
	u := c.baseURL + "/v1/models/" + url.PathEscape(c.model)
	if _, err := c.rc.GetWithHeaders(ctx, u, c.headers()); err != nil {
		return fmt.Errorf("anthropic model %s unavailable: %w", c.model, err)
	}
	return nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": apiVersion,
		"Content-Type":      "application/json",
	}
}

func parseResponse(body []byte) (string, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("anthropic api error: %s (%s)", resp.Error.Message, resp.Error.Type)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("anthropic response contained no text")
	}
	return sb.String(), nil
}
