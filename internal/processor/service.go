package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/clobrano/youtubedoc/internal/cache"
	"github.com/clobrano/youtubedoc/internal/models"
	"github.com/clobrano/youtubedoc/internal/storage"
	"github.com/clobrano/youtubedoc/internal/summarizer"
	"github.com/clobrano/youtubedoc/internal/youtube"
)

const (
	MsgInvalidURL            = "Please enter a valid YouTube URL"
	MsgVideoUnavailable      = "Video not available. Please check that the video is public and the URL is correct."
	MsgTranscriptUnavailable = "Transcript not available for this video. Try a different video or check if captions are enabled."
)

// Result is what a documentation request produces. Exactly one of Content or
// ContentURL is set when OK is true.
type Result struct {
	VideoURL     string            `json:"video_url"`
	VideoInfo    *models.VideoInfo `json:"video_info,omitempty"`
	Content      string            `json:"content,omitempty"`
	ContentURL   string            `json:"content_url,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	OK           bool              `json:"result"`
	Cached       bool              `json:"cached,omitempty"`
}

// Options are the per-request knobs. Zero values take the service defaults.
type Options struct {
	MaxTranscriptLength int
	IncludeComments     bool
	Language            string
}

type ServiceConfig struct {
	Processor      *YouTubeProcessor
	Summarizer     summarizer.Summarizer // optional
	SummaryPrompt  string
	Publisher      storage.Publisher // optional
	Cache          *cache.Cache      // optional
	MaxDisplaySize int
	Logger         *slog.Logger
}

// Service turns a URL into a published or inline document.
type Service struct {
	processor      *YouTubeProcessor
	summarizer     summarizer.Summarizer
	summaryPrompt  string
	publisher      storage.Publisher
	cache          *cache.Cache
	maxDisplaySize int
	logger         *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		processor:      cfg.Processor,
		summarizer:     cfg.Summarizer,
		summaryPrompt:  cfg.SummaryPrompt,
		publisher:      cfg.Publisher,
		cache:          cfg.Cache,
		maxDisplaySize: cfg.MaxDisplaySize,
		logger:         logger,
	}
}

// Document is a rendered document before it is published.
type Document struct {
	VideoID    string
	Info       models.VideoInfo
	Markdown   string
	Transcript int
}

// Generate validates the query and renders its document. An empty prompt uses
// the service's summary prompt.
func (s *Service) Generate(ctx context.Context, q models.VideoQuery, prompt string) (*Document, error) {
	ext, err := s.processor.Process(ctx, q)
	if err != nil {
		return nil, err
	}

	if prompt == "" {
		prompt = s.summaryPrompt
	}

	var summary string
	if s.summarizer != nil && ext.Transcript != "" {
		summary, err = s.summarizer.Summarize(ctx, ext.Transcript, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("summary failed, continuing without it",
				slog.String("video_id", ext.Info.VideoID),
				slog.String("error", err.Error()))
			summary = ""
		}
	}

	return &Document{
		VideoID:    ext.Info.VideoID,
		Info:       ext.Info,
		Markdown:   GenerateDocumentation(ext.Info, ext.Transcript, ext.Comments, q.IncludeComments, summary),
		Transcript: runeLen(ext.Transcript),
	}, nil
}

// Run handles one request end to end and never returns an error: failures are
// reported through Result.ErrorMessage.
func (s *Service) Run(ctx context.Context, input string, opts Options) Result {
	start := time.Now()
	q := s.query(input, opts)
	res := Result{VideoURL: input}

	videoID, err := q.VideoID()
	if err == nil {
		err = q.Validate()
	}
	if err != nil {
		s.logFailure(input, err)
		res.ErrorMessage = UserMessage(err)
		return res
	}

	key := cache.Key("doc", videoID, q.Language, strconv.Itoa(q.MaxTranscriptLength), strconv.FormatBool(q.IncludeComments))
	if cached, ok := cache.GetJSON[Result](ctx, s.cache, key); ok {
		cached.VideoURL = input
		cached.Cached = true
		s.logger.Info("documentation served from cache", slog.String("url", input), slog.String("video_id", videoID))
		return cached
	}

	doc, err := s.Generate(ctx, q, "")
	if err != nil {
		s.logFailure(input, err)
		res.ErrorMessage = UserMessage(err)
		return res
	}

	res.VideoInfo = &doc.Info
	res.OK = true

	if url := s.Publish(ctx, doc); url != "" {
		res.ContentURL = url
	} else {
		res.Content = CropForDisplay(doc.Markdown, s.maxDisplaySize)
	}

	cache.SetJSON(ctx, s.cache, key, res)

	s.logger.Info("documentation generated",
		slog.String("url", input),
		slog.String("title", doc.Info.Title),
		slog.String("duration", FormatDuration(doc.Info.Duration)),
		slog.Int("transcript_chars", doc.Transcript),
		slog.Bool("published", res.ContentURL != ""),
		slog.Duration("elapsed", time.Since(start)))
	return res
}

// Published returns the URL of an already published document for videoID.
func (s *Service) Published(ctx context.Context, videoID string) (string, bool) {
	if s.publisher == nil {
		return "", false
	}
	url, err := s.publisher.Lookup(ctx, storage.ObjectKey(videoID))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("published document lookup failed", slog.String("video_id", videoID), slog.String("error", err.Error()))
		}
		return "", false
	}
	return url, true
}

// Publish stores doc and returns its URL, or "" when there is no publisher or
// the upload failed.
func (s *Service) Publish(ctx context.Context, doc *Document) string {
	if s.publisher == nil {
		return ""
	}
	url, err := s.publisher.Publish(ctx, storage.ObjectKey(doc.VideoID), doc.Markdown)
	if err != nil {
		s.logger.Error("failed to publish document, keeping it inline",
			slog.String("video_id", doc.VideoID),
			slog.String("error", err.Error()))
		return ""
	}
	return url
}

func (s *Service) query(input string, opts Options) models.VideoQuery {
	q := models.NewVideoQuery(input)
	if opts.MaxTranscriptLength != 0 {
		q.MaxTranscriptLength = opts.MaxTranscriptLength
	}
	if opts.Language != "" {
		q.Language = opts.Language
	}
	q.IncludeComments = opts.IncludeComments
	return q
}

func (s *Service) logFailure(input string, err error) {
	s.logger.Warn("documentation failed", slog.String("url", input), slog.String("error", err.Error()))
}

// UserMessage maps an error to the text shown to users.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidURL):
		return MsgInvalidURL
	case errors.Is(err, youtube.ErrVideoUnavailable):
		return MsgVideoUnavailable
	case errors.Is(err, youtube.ErrTranscriptUnavailable):
		return MsgTranscriptUnavailable
	default:
		return fmt.Sprintf("Error processing video: %v", err)
	}
}
