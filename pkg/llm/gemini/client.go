package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"slowlooking/pkg/config"
	"slowlooking/pkg/llm"
	"slowlooking/pkg/tracker"
)

const providerName = "gemini"

// Client implements llm.Provider for Google Gemini.
type Client struct {
	genaiClient *genai.Client
	modelName   string
	maxTokens   int32
	temperature float32
	tracker     *tracker.Tracker
	history     *llm.History
}

// NewClient creates a new Gemini client. No request is made until the first
// generation or health check.
func NewClient(ctx context.Context, cfg config.LLMConfig, t *tracker.Tracker, h *llm.History) (*Client, error) {
	if cfg.Key == "" {
		return nil, &config.ConfigurationError{Provider: providerName, EnvVar: config.KeyEnvVar(providerName)}
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.Key,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = config.DefaultModel(providerName)
	}

	return &Client{
		genaiClient: client,
		modelName:   model,
		maxTokens:   int32(cfg.MaxTokens),
		temperature: float32(cfg.Temperature),
		tracker:     t,
		history:     h,
	}, nil
}

// GenerateImageText sends the image and the prompt as one user turn.
func (c *Client) GenerateImageText(ctx context.Context, name, prompt string, img llm.Image) (string, error) {
	resp, err := c.genaiClient.Models.GenerateContent(ctx, c.modelName, buildContents(prompt, img), c.generateConfig())
	if err != nil {
		c.history.Log(providerName, name, prompt, fmt.Sprintf("ERROR: %v", err))
		c.tracker.TrackAPIFailure(providerName)
		return "", fmt.Errorf("generate content error: %w", err)
	}

	text, err := getResponseText(resp)
	if err != nil {
		c.history.Log(providerName, name, prompt, fmt.Sprintf("TEXT_PARSE_ERROR: %v", err))
		c.tracker.TrackAPIFailure(providerName)
		return "", err
	}

	c.history.Log(providerName, name, prompt, text)
	c.tracker.TrackAPISuccess(providerName)
	return text, nil
}

func buildContents(prompt string, img llm.Image) []*genai.Content {
	return []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(img.Data, img.MediaType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
}

func (c *Client) generateConfig() *genai.GenerateContentConfig {
	temp := c.temperature
	return &genai.GenerateContentConfig{
		Temperature:      &temp,
		MaxOutputTokens:  c.maxTokens,
		ResponseMIMEType: "application/json",
	}
}

func getResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("no candidates returned")
	}

	cand := resp.Candidates[0]
	var sb strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part != nil && part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response (finish reason %q)", cand.FinishReason)
	}
	return sb.String(), nil
}

// HealthCheck checks that the configured model is available for the API key.
// On failure the available gemini models are logged.
func (c *Client) HealthCheck(ctx context.Context) error {
	name := c.modelName
	if !strings.HasPrefix(name, "models/") {
		name = "models/" + name
	}

	_, err := c.genaiClient.Models.Get(ctx, name, nil)
	if err == nil {
		slog.Debug("Gemini model validation success", "model", c.modelName)
		return nil
	}

	slog.Warn("Gemini model validation failed, fetching available models...", "model", c.modelName, "error", err)
	if available := c.listModels(ctx); len(available) > 0 {
		slog.Error("Available 'gemini' models for this key:")
		for _, m := range available {
			slog.Error("- " + m)
		}
	}
	return fmt.Errorf("gemini model %s unavailable: %w", c.modelName, err)
}

func (c *Client) listModels(ctx context.Context) []string {
	page, err := c.genaiClient.Models.List(ctx, nil)
	if err != nil {
		slog.Warn("Failed to list models", "error", err)
		return nil
	}

	var out []string
	for {
		for _, m := range page.Items {
			if m != nil && strings.Contains(strings.ToLower(m.Name), "gemini") {
				out = append(out, m.Name)
			}
		}
		if page.NextPageToken == "" {
			break
		}
		if page, err = page.Next(ctx); err != nil {
			if !errors.Is(err, genai.ErrPageDone) {
				slog.Warn("Failed to list models", "error", err)
			}
			break
		}
	}
	return out
}
