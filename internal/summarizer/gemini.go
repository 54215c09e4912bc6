package summarizer

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Generation settings shared by every document so repeated runs stay close.
var geminiConfig = &genai.GenerateContentConfig{
	Temperature:     genai.Ptr[float32](0.2),
	MaxOutputTokens: maxOutputTokens,
}

type GeminiSummarizer struct {
	models *genai.Models
	model  string
}

func NewGeminiSummarizer(ctx context.Context, apiKey, model string) (*GeminiSummarizer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiSummarizer{models: client.Models, model: model}, nil
}

func (g *GeminiSummarizer) Summarize(ctx context.Context, transcript, customPrompt string) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(buildPrompt(transcript, customPrompt)), geminiConfig)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	if text := resp.Text(); text != "" {
		return text, nil
	}
	return "", errors.New("empty response from Gemini")
}
