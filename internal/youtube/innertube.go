package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	kkyoutube "github.com/kkdai/youtube/v2"

	"github.com/clobrano/youtubedoc/internal/models"
)

// Innertube reads the player response YouTube serves to its own clients.
// It needs no API key.
type Innertube struct {
	client *kkyoutube.Client
}

func NewInnertube(httpClient *http.Client) *Innertube {
	return &Innertube{client: &kkyoutube.Client{HTTPClient: httpClient}}
}

func (i *Innertube) Name() string { return "innertube" }

func (i *Innertube) video(ctx context.Context, videoID string) (*kkyoutube.Video, error) {
	v, err := i.client.GetVideoContext(ctx, videoID)
	if err != nil {
		if errors.Is(err, kkyoutube.ErrVideoPrivate) || errors.Is(err, kkyoutube.ErrLoginRequired) {
			return nil, fmt.Errorf("%w: %v", ErrVideoUnavailable, err)
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return v, nil
}

func (i *Innertube) Metadata(ctx context.Context, videoID, url string) (models.VideoInfo, error) {
	v, err := i.video(ctx, videoID)
	if err != nil {
		return models.VideoInfo{}, err
	}

	info := models.VideoInfo{
		Title:        v.Title,
		Description:  v.Description,
		Duration:     int(v.Duration.Seconds()),
		Channel:      v.Author,
		URL:          url,
		VideoID:      videoID,
		ThumbnailURL: models.ThumbnailURL(videoID),
		Source:       i.Name(),
	}
	if v.Views > 0 {
		views := int64(v.Views)
		info.ViewCount = &views
	}
	if !v.PublishDate.IsZero() {
		info.UploadDate = v.PublishDate.Format("20060102")
	}
	if n := len(v.Thumbnails); n > 0 && v.Thumbnails[n-1].URL != "" {
		info.ThumbnailURL = v.Thumbnails[n-1].URL
	}
	return info, nil
}

func (i *Innertube) Transcript(ctx context.Context, videoID, language string) (string, error) {
	v, err := i.video(ctx, videoID)
	if err != nil {
		return "", err
	}
	segments, err := i.client.GetTranscriptCtx(ctx, v, language)
	if err != nil {
		return "", fmt.Errorf("failed to get transcript: %w", err)
	}

	var b strings.Builder
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(text)
	}
	return b.String(), nil
}
