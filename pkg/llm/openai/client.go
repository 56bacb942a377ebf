// Package openai implements llm.Provider over the OpenAI Responses API.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"slowlooking/pkg/config"
	"slowlooking/pkg/llm"
	"slowlooking/pkg/tracker"
)

const providerName = "openai"

// Client implements llm.Provider for OpenAI vision models.
type Client struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
	tracker     *tracker.Tracker
	history     *llm.History
}

// NewClient creates a new OpenAI client. The SDK's own retries are disabled;
// a failed call is reported to the caller as is.
func NewClient(cfg config.LLMConfig, timeout time.Duration, t *tracker.Tracker, h *llm.History) (*Client, error) {
	if cfg.Key == "" {
		return nil, &config.ConfigurationError{Provider: providerName, EnvVar: config.KeyEnvVar(providerName)}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.Key),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")+"/"))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}

	model := cfg.Model
	if model == "" {
		model = config.DefaultModel(providerName)
	}

	return &Client{
		client:      openai.NewClient(opts...),
		model:       model,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
		tracker:     t,
		history:     h,
	}, nil
}

// GenerateImageText sends the prompt and the image as a data URL in one user message.
func (c *Client) GenerateImageText(ctx context.Context, name, prompt string, img llm.Image) (string, error) {
	resp, err := c.client.Responses.New(ctx, c.params(prompt, img))
	if err != nil {
		c.history.Log(providerName, name, prompt, fmt.Sprintf("ERROR: %v", err))
		c.tracker.TrackAPIFailure(providerName)
		return "", fmt.Errorf("openai responses error: %w", err)
	}

	text := resp.OutputText()
	if text == "" {
		c.history.Log(providerName, name, prompt, "EMPTY_RESPONSE")
		c.tracker.TrackAPIFailure(providerName)
		return "", errors.New("openai response contained no text")
	}

	c.history.Log(providerName, name, prompt, text)
	c.tracker.TrackAPISuccess(providerName)
	return text, nil
}

func (c *Client) params(prompt string, img llm.Image) responses.ResponseNewParams {
	dataURL := fmt.Sprintf("data:%s;base64,%s", img.MediaType, base64.StdEncoding.EncodeToString(img.Data))
	content := responses.ResponseInputMessageContentListParam{
		{OfInputText: &responses.ResponseInputTextParam{Text: prompt}},
		{OfInputImage: &responses.ResponseInputImageParam{
			Detail:   responses.ResponseInputImageDetailAuto,
			ImageURL: openai.String(dataURL),
		}},
	}

	p := responses.ResponseNewParams{
		Model:       c.model,
		Temperature: openai.Float(c.temperature),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(content, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if c.maxTokens > 0 {
		p.MaxOutputTokens = openai.Int(c.maxTokens)
	}
	return p
}

// HealthCheck confirms the configured model is visible to the key.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.client.Models.Get(ctx, c.model); err != nil {
		return fmt.Errorf("openai model %s unavailable: %w", c.model, err)
	}
	return nil
}
