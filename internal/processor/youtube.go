package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/clobrano/youtubedoc/internal/models"
	"github.com/clobrano/youtubedoc/internal/youtube"
)

// MaxComments is the number of comments fetched and rendered per video.
const MaxComments = 20

const truncatedSuffix = "\n[Transcript truncated...]"

// VideoClient is the set of YouTube lookups a document needs.
type VideoClient interface {
	Metadata(ctx context.Context, videoID, url string) (models.VideoInfo, error)
	Transcript(ctx context.Context, videoID, language string) (string, error)
	Comments(ctx context.Context, videoID string, max int) ([]string, error)
}

// Extraction is everything gathered for one video.
type Extraction struct {
	Info       models.VideoInfo
	Transcript string
	Comments   []string
}

type YouTubeProcessor struct {
	client VideoClient
	logger *slog.Logger
}

func NewYouTubeProcessor(client VideoClient, logger *slog.Logger) *YouTubeProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &YouTubeProcessor{client: client, logger: logger}
}

// Process fetches metadata, transcript and, when requested, comments.
// A missing transcript or comment list is logged and left empty.
func (y *YouTubeProcessor) Process(ctx context.Context, q models.VideoQuery) (*Extraction, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	videoID, err := q.VideoID()
	if err != nil {
		return nil, err
	}

	info, err := y.client.Metadata(ctx, videoID, q.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}
	if info.VideoID == "" {
		info.VideoID = videoID
	}

	out := &Extraction{Info: info}

	transcript, err := y.client.Transcript(ctx, videoID, q.Language)
	switch {
	case err == nil:
		out.Transcript = truncateTranscript(transcript, q.MaxTranscriptLength)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		y.logger.Warn("no transcript extracted",
			slog.String("video_id", videoID),
			slog.String("language", q.Language),
			slog.String("error", err.Error()))
	}

	if q.IncludeComments {
		comments, err := y.client.Comments(ctx, videoID, MaxComments)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			level := slog.LevelWarn
			if errors.Is(err, youtube.ErrCommentsUnavailable) {
				level = slog.LevelDebug
			}
			y.logger.Log(ctx, level, "comments not fetched",
				slog.String("video_id", videoID),
				slog.String("error", err.Error()))
		}
		out.Comments = comments
	}

	return out, nil
}

func truncateTranscript(s string, max int) string {
	if max <= 0 {
		return s
	}
	if cut, ok := truncateRunes(s, max); ok {
		return cut + truncatedSuffix
	}
	return s
}

// truncateRunes cuts s to at most n characters. ok reports whether anything was cut.
func truncateRunes(s string, n int) (string, bool) {
	if len(s) <= n {
		return s, false
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	return s, false
}

// runeLen counts characters, not bytes.
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
