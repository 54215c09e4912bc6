package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clobrano/youtubedoc/internal/cache"
	"github.com/clobrano/youtubedoc/internal/config"
	"github.com/clobrano/youtubedoc/internal/processor"
	"github.com/clobrano/youtubedoc/internal/storage"
	"github.com/clobrano/youtubedoc/internal/summarizer"
	"github.com/clobrano/youtubedoc/internal/youtube"
)

// app holds the long-lived collaborators shared by the commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	cache   *cache.Cache
	service *processor.Service
}

// newApp wires the YouTube sources, publisher, cache and summarizer. A non-nil
// publisher overrides the S3 settings.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, publisher storage.Publisher) (*app, error) {
	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	client, err := newVideoClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if publisher == nil && cfg.S3Bucket != "" {
		s3pub, err := storage.NewS3Publisher(cfg.S3Bucket, cfg.S3Region)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 publisher: %w", err)
		}
		logger.Info("publishing documents to S3", slog.String("bucket", cfg.S3Bucket), slog.String("region", cfg.S3Region))
		publisher = s3pub
	}

	sum, err := summarizer.New(ctx, cfg.LLMProvider, cfg.LLMModel, cfg.AnthropicKey, cfg.GoogleKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize summarizer: %w", err)
	}
	if sum != nil {
		logger.Info("summarizer initialized", slog.String("provider", cfg.LLMProvider), slog.String("model", cfg.LLMModel))
	}

	c := cache.New(ctx, cache.Options{
		RedisURL:   cfg.RedisURL,
		TTL:        cfg.CacheTTL,
		MaxEntries: cfg.CacheMaxEntries,
	})

	svc := processor.NewService(processor.ServiceConfig{
		Processor:      processor.NewYouTubeProcessor(client, logger),
		Summarizer:     sum,
		Publisher:      publisher,
		Cache:          c,
		MaxDisplaySize: cfg.MaxDisplaySize,
		Logger:         logger,
	})

	return &app{cfg: cfg, logger: logger, cache: c, service: svc}, nil
}

func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("failed to close cache", slog.String("error", err.Error()))
	}
}

// newVideoClient orders the sources from the most to the least reliable.
func newVideoClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*youtube.Chain, error) {
	proxy := youtube.ProxyConfig{HTTP: cfg.HTTPProxy, HTTPS: cfg.HTTPSProxy}
	youtube.LogProxyState(logger, proxy)

	httpClient, err := youtube.NewHTTPClient(proxy, cfg.FetchTimeout)
	if err != nil {
		return nil, err
	}
	innertube := youtube.NewInnertube(httpClient)

	var (
		metadata []youtube.MetadataSource
		comments youtube.CommentSource
	)
	if cfg.YouTubeAPIKey != "" {
		api, err := youtube.NewDataAPI(ctx, cfg.YouTubeAPIKey)
		if err != nil {
			return nil, err
		}
		metadata = append(metadata, api)
		comments = api
	}
	metadata = append(metadata, innertube, youtube.NewPageScraper(httpClient))

	transcripts := []youtube.TranscriptSource{youtube.NewTranscriptAPI(), innertube}

	return youtube.NewChain(metadata, transcripts, comments, logger), nil
}
