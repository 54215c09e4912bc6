package youtube

import (
	"context"
	"fmt"
	"strings"

	"github.com/horiagug/youtube-transcript-api-go/pkg/yt_transcript"
	"github.com/horiagug/youtube-transcript-api-go/pkg/yt_transcript_formatters"
)

type transcriptFetcher interface {
	GetFormattedTranscripts(videoID string, languages []string, preserveFormatting bool) (string, error)
}

// TranscriptAPI fetches caption tracks from the public timedtext endpoint and
// renders them as plain text without timestamps.
type TranscriptAPI struct {
	fetcher transcriptFetcher
}

func NewTranscriptAPI() *TranscriptAPI {
	formatter := yt_transcript_formatters.NewTextFormatter(
		yt_transcript_formatters.WithTimestamps(false),
		yt_transcript_formatters.WithLanguageCode(false),
	)
	return &TranscriptAPI{
		fetcher: yt_transcript.NewClient(yt_transcript.WithFormatter(formatter)),
	}
}

func (t *TranscriptAPI) Name() string { return "transcript-api" }

// Transcript fetches the transcript in language, falling back to English.
// The underlying client is not context aware, so cancellation only stops the wait.
func (t *TranscriptAPI) Transcript(ctx context.Context, videoID, language string) (string, error) {
	languages := []string{language}
	if language != "en" {
		languages = append(languages, "en")
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := t.fetcher.GetFormattedTranscripts(videoID, languages, false)
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("failed to fetch transcript: %w", r.err)
		}
		return strings.TrimSpace(r.text), nil
	}
}
