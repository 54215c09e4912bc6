package summarizer

import (
	"context"
	"fmt"
	"strings"
)

// Summarizer turns a video transcript into the summary section of a document.
type Summarizer interface {
	Summarize(ctx context.Context, transcript, customPrompt string) (string, error)
}

const DefaultPrompt = `You are writing documentation for a YouTube video from its transcript. Please provide a summary that includes:

1. **Main Topic**: What is the video about?
2. **Key Points**: List the main ideas, steps or arguments presented
3. **Important Details**: Any commands, code, statistics or specific examples mentioned
4. **Conclusion**: What should a reader take away?

Write it as reference documentation someone could read instead of watching. Use bullet points where appropriate.`

const (
	// maxInputChars bounds the transcript sent to the model.
	maxInputChars = 400_000

	maxOutputTokens = 4096
)

func buildPrompt(transcript, customPrompt string) string {
	prompt := customPrompt
	if prompt == "" {
		prompt = DefaultPrompt
	}
	transcript = truncate(transcript, maxInputChars)
	return fmt.Sprintf("%s\n\n---\n\nTranscript:\n\n%s", prompt, transcript)
}

// truncate cuts s to at most n characters without splitting one.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// New returns the summarizer for provider, or nil when provider is "none" or empty.
func New(ctx context.Context, provider, model, anthropicKey, googleKey string) (Summarizer, error) {
	switch strings.ToLower(provider) {
	case "", "none":
		return nil, nil
	case "claude":
		s, err := NewClaudeSummarizer(anthropicKey, model)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "gemini":
		s, err := NewGeminiSummarizer(ctx, googleKey, model)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown summarizer provider %q", provider)
	}
}
