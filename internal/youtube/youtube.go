// Package youtube gathers video metadata, transcripts and comments from the
// sources available at runtime and chains them with fallbacks.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/clobrano/youtubedoc/internal/models"
)

var (
	// ErrVideoUnavailable is returned when a source knows the video is private, removed or missing.
	ErrVideoUnavailable = errors.New("video not available")
	// ErrTranscriptUnavailable is returned when no transcript could be fetched.
	ErrTranscriptUnavailable = errors.New("transcript not available")
	// ErrCommentsUnavailable is returned when no comment source is configured.
	ErrCommentsUnavailable = errors.New("comments not available")
)

type MetadataSource interface {
	Name() string
	Metadata(ctx context.Context, videoID, url string) (models.VideoInfo, error)
}

type TranscriptSource interface {
	Name() string
	Transcript(ctx context.Context, videoID, language string) (string, error)
}

type CommentSource interface {
	Comments(ctx context.Context, videoID string, max int) ([]string, error)
}

// Chain tries each configured source in order.
type Chain struct {
	metadata    []MetadataSource
	transcripts []TranscriptSource
	comments    CommentSource
	logger      *slog.Logger
}

func NewChain(metadata []MetadataSource, transcripts []TranscriptSource, comments CommentSource, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		metadata:    metadata,
		transcripts: transcripts,
		comments:    comments,
		logger:      logger,
	}
}

func (c *Chain) Name() string { return "chain" }

// Metadata returns the first successful source result. When every source fails
// a placeholder is returned, unless all of them reported the video unavailable.
func (c *Chain) Metadata(ctx context.Context, videoID, url string) (models.VideoInfo, error) {
	unavailable := 0
	for _, src := range c.metadata {
		info, err := src.Metadata(ctx, videoID, url)
		if err == nil {
			if info.Source == "" {
				info.Source = src.Name()
			}
			return info, nil
		}
		if ctx.Err() != nil {
			return models.VideoInfo{}, ctx.Err()
		}
		if errors.Is(err, ErrVideoUnavailable) {
			unavailable++
		}
		c.logger.Warn("metadata source failed",
			slog.String("source", src.Name()),
			slog.String("video_id", videoID),
			slog.String("error", err.Error()))
	}

	if len(c.metadata) > 0 && unavailable == len(c.metadata) {
		return models.VideoInfo{}, fmt.Errorf("video %s: %w", videoID, ErrVideoUnavailable)
	}
	return models.PlaceholderInfo(videoID, url), nil
}

func (c *Chain) Transcript(ctx context.Context, videoID, language string) (string, error) {
	for _, src := range c.transcripts {
		text, err := src.Transcript(ctx, videoID, language)
		if err == nil && text != "" {
			c.logger.Debug("transcript fetched",
				slog.String("source", src.Name()),
				slog.String("video_id", videoID),
				slog.Int("chars", len(text)))
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if err == nil {
			err = errors.New("empty transcript")
		}
		c.logger.Warn("transcript source failed",
			slog.String("source", src.Name()),
			slog.String("video_id", videoID),
			slog.String("language", language),
			slog.String("error", err.Error()))
	}
	return "", fmt.Errorf("video %s: %w", videoID, ErrTranscriptUnavailable)
}

func (c *Chain) Comments(ctx context.Context, videoID string, max int) ([]string, error) {
	if c.comments == nil {
		return nil, ErrCommentsUnavailable
	}
	return c.comments.Comments(ctx, videoID, max)
}
