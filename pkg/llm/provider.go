package llm

import (
	"context"
)

// Image is an encoded picture handed to a vision model.
type Image struct {
	Data      []byte
	MediaType string
}

// Provider defines the interface for interacting with vision LLM services.
type Provider interface {
	// GenerateImageText sends a prompt together with an image and returns the raw text response.
	GenerateImageText(ctx context.Context, name, prompt string, img Image) (string, error)

	// HealthCheck verifies that the provider is configured and reachable.
	HealthCheck(ctx context.Context) error
}
