package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type ClaudeSummarizer struct {
	client *anthropic.Client
	model  string
}

func NewClaudeSummarizer(apiKey, model string, opts ...option.RequestOption) (*ClaudeSummarizer, error) {
	if apiKey != "" {
		opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	}
	client := anthropic.NewClient(opts...)
	return &ClaudeSummarizer{
		client: &client,
		model:  model,
	}, nil
}

func (c *ClaudeSummarizer) Summarize(ctx context.Context, transcript, customPrompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxOutputTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(transcript, customPrompt))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude API error: %w", err)
	}

	var result strings.Builder
	for _, block := range message.Content {
		if text := block.AsText().Text; text != "" {
			result.WriteString(text)
		}
	}
	if result.Len() == 0 {
		return "", errors.New("empty response from Claude")
	}

	return result.String(), nil
}
