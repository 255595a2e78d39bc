// Package ai wraps the Gemini API behind the pipeline's completion contract.
package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModelName is the default Gemini model used for parsing.
const DefaultModelName = "gemini-2.5-flash"

// GeminiCompleter sends prompts to Gemini and returns the raw text response.
// All response validation and parsing happens in the caller.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

// NewClient builds a Gemini client from ambient credentials
// (GOOGLE_API_KEY / application default credentials).
func NewClient(ctx context.Context) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("ai: create genai client: %w", err)
	}
	return client, nil
}

// NewGeminiCompleter wraps an existing client. An empty model falls back to
// DefaultModelName.
func NewGeminiCompleter(client *genai.Client, model string) *GeminiCompleter {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiCompleter{client: client, model: model}
}

// Complete sends the prompt as a single user turn.
func (c *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("ai: generate content: %w", err)
	}
	return resp.Text(), nil
}
