package youtube

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sosodev/duration"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/clobrano/youtubedoc/internal/models"
)

// DataAPI reads metadata and comments through the YouTube Data API v3.
type DataAPI struct {
	service *ytapi.Service
}

func NewDataAPI(ctx context.Context, apiKey string, opts ...option.ClientOption) (*DataAPI, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := ytapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &DataAPI{service: service}, nil
}

func (d *DataAPI) Name() string { return "data-api" }

func (d *DataAPI) Metadata(ctx context.Context, videoID, url string) (models.VideoInfo, error) {
	resp, err := d.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
		Id(videoID).
		Context(ctx).
		Do()
	if err != nil {
		return models.VideoInfo{}, fmt.Errorf("error while getting video details: %w", err)
	}
	if len(resp.Items) == 0 {
		return models.VideoInfo{}, ErrVideoUnavailable
	}

	item := resp.Items[0]
	info := models.VideoInfo{
		URL:          url,
		VideoID:      videoID,
		ThumbnailURL: models.ThumbnailURL(videoID),
		Source:       d.Name(),
	}

	if s := item.Snippet; s != nil {
		info.Title = s.Title
		info.Description = s.Description
		info.Channel = s.ChannelTitle
		if published, err := time.Parse(time.RFC3339, s.PublishedAt); err == nil {
			info.UploadDate = published.Format("20060102")
		}
		if thumb := bestThumbnail(s.Thumbnails); thumb != "" {
			info.ThumbnailURL = thumb
		}
	}

	if cd := item.ContentDetails; cd != nil && cd.Duration != "" {
		dur, err := duration.Parse(cd.Duration)
		if err != nil {
			return models.VideoInfo{}, fmt.Errorf("error while parsing video duration: %w", err)
		}
		info.Duration = int(dur.ToTimeDuration().Seconds())
	}

	if st := item.Statistics; st != nil {
		views := int64(st.ViewCount)
		info.ViewCount = &views
	}

	return info, nil
}

// Comments returns the text of the top-level comments ordered by relevance.
func (d *DataAPI) Comments(ctx context.Context, videoID string, max int) ([]string, error) {
	if max <= 0 {
		return nil, nil
	}
	resp, err := d.service.CommentThreads.List([]string{"snippet"}).
		VideoId(videoID).
		MaxResults(int64(max)).
		Order("relevance").
		TextFormat("plainText").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("error while listing comments: %w", err)
	}

	comments := make([]string, 0, len(resp.Items))
	for _, thread := range resp.Items {
		if thread.Snippet == nil || thread.Snippet.TopLevelComment == nil || thread.Snippet.TopLevelComment.Snippet == nil {
			continue
		}
		c := thread.Snippet.TopLevelComment.Snippet
		text := strings.TrimSpace(c.TextDisplay)
		if text == "" {
			continue
		}
		if c.AuthorDisplayName != "" {
			text = c.AuthorDisplayName + ": " + text
		}
		comments = append(comments, text)
		if len(comments) == max {
			break
		}
	}
	return comments, nil
}

func bestThumbnail(t *ytapi.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*ytapi.Thumbnail{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
